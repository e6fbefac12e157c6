package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

// CreatePlaylist handles POST /playlists
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var in services.PlaylistInput
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Playlists.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/playlists/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

// GetPlaylist handles GET /playlists/{id} and resolves the member songs.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	view, err := h.Playlists.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdatePlaylist handles PATCH /playlists/{id}. Omitted fields stay as they are.
func (h *Handler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var in services.PlaylistInput
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Playlists.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.Playlists.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MyPlaylists handles GET /playlists/mine: owned or collaborating.
func (h *Handler) MyPlaylists(w http.ResponseWriter, r *http.Request) {
	lq, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ps, total, err := h.Playlists.Mine(r.Context(), actorFrom(r.Context()), lq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(ps, total, lq))
}

func (h *Handler) PublicPlaylists(w http.ResponseWriter, r *http.Request) {
	n, err := topN(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ps, err := h.Playlists.Public(r.Context(), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) FeaturedPlaylists(w http.ResponseWriter, r *http.Request) {
	n, err := topN(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ps, err := h.Playlists.Featured(r.Context(), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) SearchPlaylists(w http.ResponseWriter, r *http.Request) {
	lq, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ps, total, err := h.Playlists.Search(r.Context(), r.URL.Query().Get("q"), lq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(ps, total, lq))
}

type addSongRequest struct {
	SongID string `json:"songId"`
}

// AddPlaylistSong handles POST /playlists/{id}/songs. Adding a member song
// again is not an error.
func (h *Handler) AddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	var req addSongRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.SongID == "" {
		h.fail(w, r, &domain.ValidationError{Field: "songId", Reason: "is required"})
		return
	}
	p, err := h.Playlists.AddSong(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.SongID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) RemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	p, err := h.Playlists.RemoveSong(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "songID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type reorderRequest struct {
	Songs []domain.OrderAssignment `json:"songs"`
}

// ReorderPlaylist handles PUT /playlists/{id}/songs/order.
func (h *Handler) ReorderPlaylist(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Playlists.Reorder(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Songs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type collaboratorRequest struct {
	UserID string                  `json:"userId"`
	Role   domain.CollaboratorRole `json:"role"`
}

func (h *Handler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	var req collaboratorRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = domain.CollaboratorViewer
	}
	p, err := h.Playlists.AddCollaborator(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.UserID, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	p, err := h.Playlists.RemoveCollaborator(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) LikePlaylist(w http.ResponseWriter, r *http.Request) {
	res, err := h.Playlists.ToggleLike(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) FollowPlaylist(w http.ResponseWriter, r *http.Request) {
	res, err := h.Playlists.ToggleFollow(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) PlayPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := h.Playlists.Play(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "playCount": p.PlayCount})
}

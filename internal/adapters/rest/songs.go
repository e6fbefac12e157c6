package rest

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

// ListSongs handles GET /songs with optional q, genre, mood, artist,
// uploadedBy and featured filters.
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	lq, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	f := ports.SongFilter{
		Text:       q.Get("q"),
		Genre:      domain.Genre(q.Get("genre")),
		Mood:       domain.Mood(q.Get("mood")),
		Artist:     q.Get("artist"),
		UploadedBy: q.Get("uploadedBy"),
	}
	f.FeaturedOnly, _ = strconv.ParseBool(q.Get("featured"))

	songs, total, err := h.Songs.List(r.Context(), actorFrom(r.Context()), f, lq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(songs, total, lq))
}

// SearchSongs handles GET /songs/search?q=.
func (h *Handler) SearchSongs(w http.ResponseWriter, r *http.Request) {
	lq, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	songs, total, err := h.Songs.Search(r.Context(), actorFrom(r.Context()), r.URL.Query().Get("q"), lq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(songs, total, lq))
}

func (h *Handler) TrendingSongs(w http.ResponseWriter, r *http.Request) {
	n, err := topN(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	songs, err := h.Songs.Trending(r.Context(), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *Handler) FeaturedSongs(w http.ResponseWriter, r *http.Request) {
	n, err := topN(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	songs, err := h.Songs.Featured(r.Context(), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// UploadSong handles POST /songs as multipart/form-data with a JSON
// "metadata" field, an "audio" file and an optional "cover" file.
func (h *Handler) UploadSong(w http.ResponseWriter, r *http.Request) {
	// Reject before the body is read and spooled.
	switch a := actorFrom(r.Context()); {
	case a.Anonymous():
		h.fail(w, r, domain.ErrUnauthenticated)
		return
	case !policy.IsAdmin(a):
		h.fail(w, r, domain.ErrForbidden)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var in services.UploadInput
	if err := json.Unmarshal([]byte(r.FormValue("metadata")), &in.Meta); err != nil {
		h.fail(w, r, &domain.ValidationError{Field: "metadata", Reason: "must be a JSON object"})
		return
	}

	audio, audioHdr, err := r.FormFile("audio")
	if err != nil {
		h.fail(w, r, &domain.ValidationError{Field: "audio", Reason: "is required"})
		return
	}
	defer audio.Close()
	in.Audio = upload(audio, audioHdr)

	cover, coverHdr, err := r.FormFile("cover")
	switch {
	case err == nil:
		defer cover.Close()
		c := upload(cover, coverHdr)
		in.Cover = &c
	case !errors.Is(err, http.ErrMissingFile):
		h.fail(w, r, &domain.ValidationError{Field: "cover", Reason: "could not be read"})
		return
	}

	song, err := h.Songs.Upload(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/songs/"+song.ID)
	writeJSON(w, http.StatusCreated, song)
}

func upload(f multipart.File, hdr *multipart.FileHeader) services.MediaUpload {
	return services.MediaUpload{
		Body:        f,
		Size:        hdr.Size,
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
	}
}

func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.Songs.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// UpdateSong handles PUT /songs/{id}, replacing the editable metadata.
func (h *Handler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	var m services.SongMetadata
	if err := h.decodeJSON(w, r, &m); err != nil {
		h.fail(w, r, err)
		return
	}
	song, err := h.Songs.UpdateMetadata(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) SetSongActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Active == nil {
		h.fail(w, r, &domain.ValidationError{Field: "active", Reason: "is required"})
		return
	}
	song, err := h.Songs.SetActive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// DeleteSong deactivates the song. Records are never removed so playlists
// keep resolving their members.
func (h *Handler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Songs.SetActive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), false); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type playRequest struct {
	DurationPlayed int `json:"durationPlayed"`
}

// PlaySong handles POST /songs/{id}/play. The body is optional.
func (h *Handler) PlaySong(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if r.ContentLength != 0 {
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	song, err := h.Songs.Play(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.DurationPlayed)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": song.ID, "playCount": song.PlayCount})
}

func (h *Handler) LikeSong(w http.ResponseWriter, r *http.Request) {
	res, err := h.Songs.ToggleLike(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DislikeSong(w http.ResponseWriter, r *http.Request) {
	res, err := h.Songs.ToggleDislike(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	lq, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	comments, total, err := h.Songs.Comments(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), lq.Offset, lq.Limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(comments, total, lq))
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Songs.AddComment(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.Songs.DeleteComment(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamSong handles GET /songs/{id}/stream with Range support.
func (h *Handler) StreamSong(w http.ResponseWriter, r *http.Request) {
	m, err := h.Songs.Stream(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	serveMedia(w, r, m)
}

func (h *Handler) SongCover(w http.ResponseWriter, r *http.Request) {
	m, err := h.Songs.Cover(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	serveMedia(w, r, m)
}

func serveMedia(w http.ResponseWriter, r *http.Request, m services.Media) {
	defer m.Body.Close()
	if m.Info.ContentType != "" {
		w.Header().Set("Content-Type", m.Info.ContentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, m.Name, m.Info.ModTime, m.Body)
}

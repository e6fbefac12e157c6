package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.PublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileUpdate
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Users.UpdateProfile(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	songs, err := h.Users.Favorites(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if songs == nil {
		songs = []domain.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	on, err := h.Users.ToggleFavorite(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "songID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": on})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	hist, err := h.Users.History(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if hist == nil {
		hist = domain.History{}
	}
	writeJSON(w, http.StatusOK, hist)
}

type subscribeRequest struct {
	Plan domain.SubscriptionType `json:"plan"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Users.Subscribe(r.Context(), actorFrom(r.Context()), req.Plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Subscription)
}

func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.CancelSubscription(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Subscription)
}

package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Admin.Stats(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// AdminUsers handles GET /admin/users with optional q, role and active filters.
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	lq, err := listQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	f := ports.UserFilter{Text: q.Get("q"), Role: domain.Role(q.Get("role")), ActiveOnly: q.Get("active") == "true"}
	users, total, err := h.Admin.Users(r.Context(), actorFrom(r.Context()), f, lq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(users, total, lq))
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *Handler) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Admin.SetRole(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminSetUserActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Active == nil {
		h.fail(w, r, &domain.ValidationError{Field: "active", Reason: "is required"})
		return
	}
	u, err := h.Admin.SetActive(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminAwardBadge(w http.ResponseWriter, r *http.Request) {
	var in services.BadgeInput
	if err := h.decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Admin.AwardBadge(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type featuredRequest struct {
	Featured bool `json:"featured"`
}

func (h *Handler) AdminFeatureSong(w http.ResponseWriter, r *http.Request) {
	var req featuredRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	song, err := h.Admin.FeatureSong(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Featured)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *Handler) AdminFeaturePlaylist(w http.ResponseWriter, r *http.Request) {
	var req featuredRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Admin.FeaturePlaylist(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Featured)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

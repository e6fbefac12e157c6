package rest

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

const stateCookie = "tuneforge_oauth_state"

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type authResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request, status int, u domain.User) {
	token, expires, err := h.startSession(r.Context(), w, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{User: u, Token: token, ExpiresAt: expires})
}

// Register handles POST /auth/register and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Users.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.signedIn(w, r, http.StatusCreated, u)
}

// Login handles POST /auth/login. The identifier is a username or an email.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}
	u, err := h.Users.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.signedIn(w, r, http.StatusOK, u)
}

// Logout handles POST /auth/logout. It is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := sessionFrom(r.Context()); sid != "" {
		if err := h.Sessions.Delete(r.Context(), sid); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a := actorFrom(r.Context())
	if a.Anonymous() {
		h.fail(w, r, domain.ErrUnauthenticated)
		return
	}
	u, err := h.Users.Get(r.Context(), a.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GoogleLogin handles GET /auth/google/login by redirecting to Google with a
// state value pinned in a short-lived cookie.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Identity == nil {
		writeError(w, http.StatusServiceUnavailable, "google login not configured")
		return
	}
	state, err := randomToken(16)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.Identity.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.Identity == nil {
		writeError(w, http.StatusServiceUnavailable, "google login not configured")
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, "google error: "+e)
		return
	}
	c, err := r.Cookie(stateCookie)
	if err != nil || q.Get("state") == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1})

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}
	id, err := h.Identity.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Users.LoginExternal(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.signedIn(w, r, http.StatusOK, u)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

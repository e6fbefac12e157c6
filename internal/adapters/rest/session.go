package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

const sessionCookie = "tuneforge_session"

// TokenClaims carries the session id in jti and the user id in sub. The
// session record is what makes a token revocable.
type TokenClaims struct {
	jwt.RegisteredClaims
}

type principal struct {
	actor     policy.Actor
	sessionID string
}

type ctxPrincipalKey struct{}

func actorFrom(ctx context.Context) policy.Actor {
	p, _ := ctx.Value(ctxPrincipalKey{}).(principal)
	return p.actor
}

func sessionFrom(ctx context.Context) string {
	p, _ := ctx.Value(ctxPrincipalKey{}).(principal)
	return p.sessionID
}

// startSession records a session and hands the signed token to the client
// as a cookie.
func (h *Handler) startSession(ctx context.Context, w http.ResponseWriter, u domain.User) (string, time.Time, error) {
	now := h.Now()
	s := ports.Session{ID: uuid.NewString(), UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(h.cfg.SessionTTL)}
	if err := h.Sessions.Create(ctx, s); err != nil {
		return "", time.Time{}, fmt.Errorf("rest: failed to create session: %w", err)
	}
	claims := &TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.cfg.SessionSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("rest: failed to sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return token, s.ExpiresAt, nil
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func bearerOrCookie(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) parseToken(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return h.cfg.SessionSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(h.Now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// authenticate resolves the caller. Requests without a usable session run as
// anonymous; the use cases decide whether that is enough.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerOrCookie(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := h.parseToken(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		s, err := h.Sessions.Get(ctx, claims.ID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && s.UserID != claims.Subject) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}

		u, err := h.Users.Get(ctx, s.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !u.IsActive {
			next.ServeHTTP(w, r)
			return
		}

		ctx = context.WithValue(ctx, ctxPrincipalKey{}, principal{actor: policy.ActorFor(u), sessionID: s.ID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Package rest is the JSON HTTP interface of the service.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
)

// Deps are the use cases and driven ports the handlers call. Identity is
// optional; without it the Google routes answer 503.
type Deps struct {
	Users     *services.UserService
	Songs     *services.SongService
	Playlists *services.PlaylistService
	Admin     *services.AdminService
	Sessions  ports.SessionStore
	Identity  ports.IdentityProvider
	Log       *slog.Logger
	Now       func() time.Time
}

type Config struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	SecureCookies bool
	MaxUploadSize int64
	// MaxBodySize bounds JSON request bodies.
	MaxBodySize int64
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	Deps
	cfg    Config
	router chi.Router
}

func NewHandler(d Deps, cfg Config) *Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 50 << 20
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	h := &Handler{Deps: d, cfg: cfg, router: chi.NewRouter()}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.authenticate)

	r.Get("/health", h.HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Get("/google/login", h.GoogleLogin)
		r.Get("/google/callback", h.GoogleCallback)
	})

	r.Route("/songs", func(r chi.Router) {
		r.Get("/", h.ListSongs)
		r.Post("/", h.UploadSong)
		r.Get("/search", h.SearchSongs)
		r.Get("/trending", h.TrendingSongs)
		r.Get("/featured", h.FeaturedSongs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSong)
			r.Put("/", h.UpdateSong)
			r.Delete("/", h.DeleteSong)
			r.Put("/active", h.SetSongActive)
			r.Post("/play", h.PlaySong)
			r.Post("/like", h.LikeSong)
			r.Post("/dislike", h.DislikeSong)
			r.Get("/comments", h.ListComments)
			r.Post("/comments", h.AddComment)
			r.Delete("/comments/{commentID}", h.DeleteComment)
			r.Get("/stream", h.StreamSong)
			r.Get("/cover", h.SongCover)
		})
	})

	r.Route("/playlists", func(r chi.Router) {
		r.Post("/", h.CreatePlaylist)
		r.Get("/mine", h.MyPlaylists)
		r.Get("/public", h.PublicPlaylists)
		r.Get("/featured", h.FeaturedPlaylists)
		r.Get("/search", h.SearchPlaylists)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetPlaylist)
			r.Patch("/", h.UpdatePlaylist)
			r.Delete("/", h.DeletePlaylist)
			r.Post("/songs", h.AddPlaylistSong)
			r.Delete("/songs/{songID}", h.RemovePlaylistSong)
			r.Put("/songs/order", h.ReorderPlaylist)
			r.Post("/collaborators", h.AddCollaborator)
			r.Delete("/collaborators/{userID}", h.RemoveCollaborator)
			r.Post("/like", h.LikePlaylist)
			r.Post("/follow", h.FollowPlaylist)
			r.Post("/play", h.PlayPlaylist)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Patch("/me", h.UpdateProfile)
		r.Get("/me/favorites", h.Favorites)
		r.Post("/me/favorites/{songID}", h.ToggleFavorite)
		r.Get("/me/history", h.History)
		r.Post("/me/subscription", h.Subscribe)
		r.Delete("/me/subscription", h.CancelSubscription)
		r.Get("/{username}", h.PublicProfile)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats", h.AdminStats)
		r.Get("/users", h.AdminUsers)
		r.Put("/users/{id}/role", h.AdminSetRole)
		r.Put("/users/{id}/active", h.AdminSetUserActive)
		r.Post("/users/{id}/badges", h.AdminAwardBadge)
		r.Put("/songs/{id}/featured", h.AdminFeatureSong)
		r.Put("/playlists/{id}/featured", h.AdminFeaturePlaylist)
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/media"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/memory"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/services"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/logger"
)

func init() {
	services.BcryptCost = bcrypt.MinCost
}

const adminEmail = "root@example.com"

type testEnv struct {
	h        *Handler
	users    *memory.UserRepository
	sessions *memory.SessionStore
	identity *fakeIdentity
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		users:    memory.NewUserRepository(),
		sessions: memory.NewSessionStore(),
		identity: &fakeIdentity{},
		now:      time.Now().UTC(),
	}
	clock := func() time.Time { return env.now }
	d := services.Deps{
		Users:      env.users,
		Songs:      memory.NewSongRepository(),
		Playlists:  memory.NewPlaylistRepository(),
		Sessions:   env.sessions,
		Media:      store,
		Events:     memory.NewEventLog(nil),
		Log:        logger.NewTestLogger(),
		AdminEmail: adminEmail,
		Now:        clock,
	}
	env.h = NewHandler(Deps{
		Users:     services.NewUserService(d),
		Songs:     services.NewSongService(d),
		Playlists: services.NewPlaylistService(d),
		Admin:     services.NewAdminService(d),
		Sessions:  env.sessions,
		Identity:  env.identity,
		Log:       logger.NewTestLogger(),
		Now:       clock,
	}, Config{SessionSecret: []byte("test-secret"), SessionTTL: time.Hour})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

// register signs up a user and returns the session token and user id.
func (e *testEnv) register(t *testing.T, username, email string) (string, string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Token, res.User.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type fakeIdentity struct {
	id  ports.ExternalIdentity
	err error
}

func (f *fakeIdentity) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeIdentity) Exchange(context.Context, string) (ports.ExternalIdentity, error) {
	return f.id, f.err
}

func TestHandler_HealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestHandler_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "ada", "ada@example.com")

	rec := env.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", decode[domain.User](t, rec).Username)

	// The cookie set at login works the same as the bearer header.
	login := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"identifier": "ADA@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	env.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked session must not authenticate")
}

func TestHandler_SessionExpiryAndDeactivation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "bob", "bob@example.com")
	adminToken, _ := env.register(t, "root", adminEmail)

	env.now = env.now.Add(2 * time.Hour)
	rec := env.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.now = env.now.Add(-2 * time.Hour)
	token, id := env.register(t, "carol", "carol@example.com")
	rec = env.do(t, http.MethodPut, "/admin/users/"+id+"/active", adminToken, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "dora", "dora@example.com")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantBody   string
	}{
		{name: "duplicate username", method: http.MethodPost, path: "/auth/register",
			body:       map[string]string{"username": "dora", "email": "other@example.com", "password": "correct horse"},
			wantStatus: http.StatusConflict},
		{name: "short password", method: http.MethodPost, path: "/auth/register",
			body:       map[string]string{"username": "eve", "email": "eve@example.com", "password": "x"},
			wantStatus: http.StatusBadRequest, wantBody: `"field":"password"`},
		{name: "wrong password", method: http.MethodPost, path: "/auth/login",
			body:       map[string]string{"identifier": "dora", "password": "wrong password"},
			wantStatus: http.StatusUnauthorized},
		{name: "missing body", method: http.MethodPost, path: "/playlists", token: token,
			wantStatus: http.StatusBadRequest},
		{name: "anonymous create", method: http.MethodPost, path: "/playlists",
			body: map[string]string{"name": "x"}, wantStatus: http.StatusUnauthorized},
		{name: "unknown song", method: http.MethodGet, path: "/songs/nope", wantStatus: http.StatusNotFound},
		{name: "non-admin stats", method: http.MethodGet, path: "/admin/stats", token: token, wantStatus: http.StatusForbidden},
		{name: "bad limit", method: http.MethodGet, path: "/songs?limit=abc", wantStatus: http.StatusBadRequest, wantBody: `"field":"limit"`},
		{name: "empty search", method: http.MethodGet, path: "/songs/search?q=", wantStatus: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func uploadRequest(t *testing.T, token string, meta map[string]any, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	m, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("metadata", string(m)))
	fw, err := mw.CreateFormFile("audio", "track.mp3")
	require.NoError(t, err)
	_, err = fw.Write(audio)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/songs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHandler_UploadAndStream(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.register(t, "root", adminEmail)
	userToken, _ := env.register(t, "fan", "fan@example.com")
	audio := []byte("0123456789abcdef")

	upload := func(token string, premium bool) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		env.h.ServeHTTP(rec, uploadRequest(t, token, map[string]any{
			"title": "Song", "artist": "Band", "genre": "rock", "duration": 180, "isPremium": premium,
		}, audio))
		return rec
	}

	rec := upload(userToken, false)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only admins upload")

	limit := env.h.cfg.MaxUploadSize
	env.h.cfg.MaxUploadSize = 8
	rec = upload(userToken, false)
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-admins are turned away before the size check")
	rec = upload(adminToken, false)
	assert.NotEqual(t, http.StatusCreated, rec.Code, "admins still hit the size limit")
	env.h.cfg.MaxUploadSize = limit

	rec = upload(adminToken, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	free := decode[domain.Song](t, rec)

	req := httptest.NewRequest(http.MethodGet, "/songs/"+free.ID+"/stream", nil)
	req.Header.Set("Range", "bytes=4-7")
	rec = httptest.NewRecorder()
	env.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "4567", rec.Body.String())

	rec = upload(adminToken, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	premium := decode[domain.Song](t, rec)

	rec = env.do(t, http.MethodGet, "/songs/"+premium.ID+"/stream", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodPost, "/users/me/subscription", userToken, map[string]string{"plan": "premium"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodGet, "/songs/"+premium.ID+"/stream", userToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, audio, rec.Body.Bytes())

	rec = env.do(t, http.MethodGet, "/songs/"+free.ID+"/cover", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/songs/"+free.ID+"/play", userToken, map[string]int{"durationPlayed": 30})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"playCount":1`)

	rec = env.do(t, http.MethodGet, "/songs/trending?n=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trending := decode[[]domain.Song](t, rec)
	require.Len(t, trending, 1)
	assert.Equal(t, free.ID, trending[0].ID)

	rec = env.do(t, http.MethodDelete, "/songs/"+free.ID, userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, "/songs/"+free.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/songs/"+free.ID, userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "deleted songs are hidden")
	rec = env.do(t, http.MethodGet, "/songs/"+free.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, "the record is kept")
	assert.False(t, decode[domain.Song](t, rec).IsActive)
}

func TestHandler_PlaylistSharing(t *testing.T) {
	env := newTestEnv(t)
	ownerToken, _ := env.register(t, "owner", "owner@example.com")
	guestToken, guestID := env.register(t, "guest", "guest@example.com")

	rec := env.do(t, http.MethodPost, "/playlists", ownerToken, map[string]any{"name": "Late Night", "isPublic": false})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[domain.Playlist](t, rec)
	assert.Equal(t, "/playlists/"+p.ID, rec.Header().Get("Location"))

	rec = env.do(t, http.MethodGet, "/playlists/"+p.ID, guestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/playlists/"+p.ID+"/collaborators", ownerToken, map[string]string{"userId": guestID, "role": "viewer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/playlists/"+p.ID, guestToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPatch, "/playlists/"+p.ID, guestToken, map[string]string{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/playlists/mine", guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[page[domain.Playlist]](t, rec)
	assert.Equal(t, 1, mine.Total)

	rec = env.do(t, http.MethodPost, "/playlists/"+p.ID+"/follow", guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.Social{Active: true, Followers: 1}, decode[services.Social](t, rec))

	rec = env.do(t, http.MethodDelete, "/playlists/"+p.ID, guestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, "/playlists/"+p.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_GoogleLogin(t *testing.T) {
	env := newTestEnv(t)
	env.identity.id = ports.ExternalIdentity{Subject: "g-1", Email: "gina@example.com", EmailVerified: true, Name: "Gina"}

	rec := env.do(t, http.MethodGet, "/auth/google/login", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	var stateC *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			stateC = c
		}
	}
	require.NotNil(t, stateC)

	callback := func(state string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
		req.AddCookie(stateC)
		rec := httptest.NewRecorder()
		env.h.ServeHTTP(rec, req)
		return rec
	}

	rec = callback("forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = callback(state)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[authResponse](t, rec)
	assert.Equal(t, "gina@example.com", res.User.Email)
	assert.Equal(t, domain.ProviderGoogle, res.User.Provider)

	env.identity.err = domain.ErrUnavailable
	rec = callback(state)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_BodyLimit(t *testing.T) {
	env := newTestEnv(t)
	env.h.cfg.MaxBodySize = 16
	big := map[string]string{"username": strings.Repeat("a", 64), "email": "x@example.com", "password": "correct horse"}
	rec := env.do(t, http.MethodPost, "/auth/register", "", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

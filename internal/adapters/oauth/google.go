// Package oauth signs users in through Google's OAuth2 authorization code
// flow and reports who they are.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides, empty means Google's.
	AuthURL     string
	TokenURL    string
	UserinfoURL string

	HTTPClient  *http.Client
	MaxRetries  int
	BaseBackoff time.Duration
	Log         *slog.Logger
}

// Google implements ports.IdentityProvider.
type Google struct {
	cfg         oauth2.Config
	userinfoURL string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	log         *slog.Logger
}

var _ ports.IdentityProvider = (*Google)(nil)

func NewGoogle(c GoogleConfig) *Google {
	g := &Google{
		cfg: oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   orDefault(c.AuthURL, googleAuthURL),
				TokenURL:  orDefault(c.TokenURL, googleTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userinfoURL: orDefault(c.UserinfoURL, googleUserinfoURL),
		httpClient:  c.HTTPClient,
		maxRetries:  c.MaxRetries,
		baseBackoff: c.BaseBackoff,
		log:         c.Log,
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g
}

func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades the callback code for a token and fetches the profile.
// A rejected code is ErrUnauthenticated; an unreachable Google is
// ErrUnavailable.
func (g *Google) Exchange(ctx context.Context, code string) (ports.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			return ports.ExternalIdentity{}, fmt.Errorf("oauth: code rejected: %w", domain.ErrUnauthenticated)
		}
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: token exchange failed: %w: %w", domain.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoURL, nil)
	if err != nil {
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: %w", err)
	}
	resp, err := g.doRequestWithRetry(g.cfg.Client(ctx, tok), req)
	if err != nil {
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: userinfo failed: %w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: userinfo rejected token: %w", domain.ErrUnauthenticated)
	case resp.StatusCode != http.StatusOK:
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: userinfo status %d: %w", resp.StatusCode, domain.ErrUnavailable)
	}

	var ui googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: invalid userinfo response: %w: %w", domain.ErrUnavailable, err)
	}
	if ui.Sub == "" || ui.Email == "" {
		return ports.ExternalIdentity{}, fmt.Errorf("oauth: userinfo missing email or sub: %w", domain.ErrUnauthenticated)
	}
	return ports.ExternalIdentity{
		Subject:       ui.Sub,
		Email:         ui.Email,
		EmailVerified: ui.EmailVerified,
		Name:          ui.Name,
		Picture:       ui.Picture,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

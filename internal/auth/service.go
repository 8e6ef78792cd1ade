// Package auth handles OAuth sign-in and session tokens.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/screensnap/service/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrExchangeFailed is returned when the provider rejects the authorization code
// or does not return a usable identity.
var ErrExchangeFailed = errors.New("oauth exchange failed")

// Identity is the signed-in user as reported by the provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Service contains the OAuth code flow.
type Service struct {
	oauth       *oauth2.Config
	userInfoURL string
	sessions    *Sessions
}

// NewService creates a new auth Service. Empty endpoint URLs fall back to Google's.
func NewService(cfg config.OAuthConfig, sessions *Sessions) *Service {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		sessions:    sessions,
	}
}

// Sessions returns the session issuer used after a successful sign-in.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// LoginURL returns the provider URL the browser is sent to.
func (s *Service) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Complete exchanges the authorization code, looks up the user and issues a session token.
func (s *Service) Complete(ctx context.Context, code string) (string, *Identity, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	id, err := s.fetchIdentity(ctx, s.oauth.Client(ctx, tok))
	if err != nil {
		return "", nil, err
	}

	session, err := s.sessions.Issue(*id)
	if err != nil {
		return "", nil, err
	}
	return session, id, nil
}

func (s *Service) fetchIdentity(ctx context.Context, client *http.Client) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrExchangeFailed, resp.StatusCode)
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrExchangeFailed, err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo without subject", ErrExchangeFailed)
	}

	return &Identity{ID: info.Sub, Email: info.Email, Name: info.Name}, nil
}

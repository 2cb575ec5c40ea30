package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"resumate/internal/config"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleIdentity is the subset of the OpenID userinfo response used for sign-in.
type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleProvider runs the OAuth2 authorization code flow against Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider returns nil when Google sign-in is not configured.
func NewGoogleProvider(cfg config.GoogleConfig) *GoogleProvider {
	if !cfg.Enabled() {
		return nil
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL returns the consent page URL bound to state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for the caller's Google identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (GoogleIdentity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return GoogleIdentity{}, err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GoogleIdentity{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}

	var identity GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return GoogleIdentity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if identity.Subject == "" || identity.Email == "" {
		return GoogleIdentity{}, errors.New("userinfo missing subject or email")
	}
	if !identity.EmailVerified {
		return GoogleIdentity{}, errors.New("google email is not verified")
	}
	return identity, nil
}

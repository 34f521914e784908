// Package oauth verifies Google sign-in credentials for POST /auth/google.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
)

const (
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type UserInfo struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Google struct {
	clientID     string
	oauth        *oauth2.Config
	httpClient   *http.Client
	tokenInfoURL string
	userInfoURL  string
}

type Option func(*Google)

// WithEndpoints overrides Google's endpoints, for tests and proxies.
func WithEndpoints(tokenInfoURL, userInfoURL string, endpoint oauth2.Endpoint) Option {
	return func(g *Google) {
		g.tokenInfoURL = tokenInfoURL
		g.userInfoURL = userInfoURL
		g.oauth.Endpoint = endpoint
	}
}

func NewGoogle(cfg GoogleConfig, opts ...Option) *Google {
	g := &Google{
		clientID: cfg.ClientID,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokenInfoURL: defaultTokenInfoURL,
		userInfoURL:  defaultUserInfoURL,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Google) Enabled() bool { return g != nil && g.clientID != "" }

// VerifyIDToken validates a Google Identity Services credential (ID token).
func (g *Google) VerifyIDToken(ctx context.Context, credential string) (*UserInfo, error) {
	if !g.Enabled() {
		return nil, errs.ErrOAuthDisabled
	}
	var claims struct {
		Aud           string `json:"aud"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	u := g.tokenInfoURL + "?id_token=" + url.QueryEscape(credential)
	if err := g.getJSON(ctx, g.httpClient, u, &claims); err != nil {
		return nil, err
	}
	if claims.Aud != g.clientID {
		return nil, fmt.Errorf("%w: audience mismatch", errs.ErrOAuthRejected)
	}
	if claims.Email == "" || !strings.EqualFold(claims.EmailVerified, "true") {
		return nil, fmt.Errorf("%w: email not verified", errs.ErrOAuthRejected)
	}
	return &UserInfo{Subject: claims.Sub, Email: claims.Email, Name: claims.Name, Picture: claims.Picture}, nil
}

// ExchangeCode trades an authorization code for a token and reads the profile.
func (g *Google) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	if !g.Enabled() {
		return nil, errs.ErrOAuthDisabled
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange: %v", errs.ErrOAuthRejected, err)
	}
	var info struct {
		UserInfo
		VerifiedEmail bool `json:"verified_email"`
	}
	if err := g.getJSON(ctx, g.oauth.Client(ctx, tok), g.userInfoURL, &info); err != nil {
		return nil, err
	}
	if info.Email == "" || !info.VerifiedEmail {
		return nil, fmt.Errorf("%w: email not verified", errs.ErrOAuthRejected)
	}
	return &info.UserInfo, nil
}

// AuthCodeURL is the consent page for the redirect flow.
func (g *Google) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *Google) getJSON(ctx context.Context, client *http.Client, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("google: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("%w: google status %d", errs.ErrOAuthRejected, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("google: decode: %w", err)
	}
	return nil
}

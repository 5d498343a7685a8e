// Package identity talks to the hosted identity provider. The provider owns
// credentials and token issuance; this client only exchanges and resolves
// tokens on its behalf.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crownkeys/internal/domain"
)

const requestTimeout = 10 * time.Second

// Session is what the provider returns from sign-in, sign-up and refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	User         domain.ExternalIdentity
}

// Client is an HTTP client for the identity provider's auth API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the provider at baseURL authenticated with
// the project API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GetUser resolves an opaque access token to the external identity it was
// issued for. Any rejection by the provider is reported as
// domain.ErrInvalidCredential without further detail.
func (c *Client) GetUser(ctx context.Context, accessToken string) (domain.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return domain.ExternalIdentity{}, fmt.Errorf("creating user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExternalIdentity{}, domain.ErrInvalidCredential
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return domain.ExternalIdentity{}, domain.ErrInvalidCredential
	}

	var body userBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.ExternalIdentity{}, domain.ErrInvalidCredential
	}
	return body.identity(), nil
}

// SignUp registers credentials with the provider, attaching profile fields
// as user metadata.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (Session, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}
	return c.postSession(ctx, "/auth/v1/signup", payload)
}

// SignIn exchanges email/password credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	payload := map[string]any{"email": email, "password": password}
	return c.postSession(ctx, "/auth/v1/token?grant_type=password", payload)
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	payload := map[string]any{"refresh_token": refreshToken}
	return c.postSession(ctx, "/auth/v1/token?grant_type=refresh_token", payload)
}

// SignOut revokes the session behind the access token. A provider-side
// failure is not fatal to the caller's logout.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider logout: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()
	drain(resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("identity provider logout returned %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	return nil
}

func (c *Client) postSession(ctx context.Context, path string, payload any) (Session, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return Session{}, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return Session{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("identity provider call: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= http.StatusInternalServerError:
		drain(resp.Body)
		return Session{}, fmt.Errorf("identity provider returned %d: %w", resp.StatusCode, domain.ErrUpstream)
	default:
		drain(resp.Body)
		return Session{}, domain.ErrInvalidCredential
	}

	var body sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return Session{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresIn:    body.ExpiresIn,
		User:         body.User.identity(),
	}, nil
}

type sessionBody struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         userBody `json:"user"`
}

type userBody struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u userBody) identity() domain.ExternalIdentity {
	// Metadata is free-form on the provider side; only string values are
	// meaningful to us.
	meta := make(map[string]string, len(u.UserMetadata))
	for k, v := range u.UserMetadata {
		if s, ok := v.(string); ok {
			meta[k] = s
		}
	}
	return domain.ExternalIdentity{
		ID:       u.ID,
		Email:    u.Email,
		Metadata: meta,
	}
}

func drain(r io.Reader) {
	io.Copy(io.Discard, io.LimitReader(r, 4096))
}

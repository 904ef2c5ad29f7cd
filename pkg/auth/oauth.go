package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// client performs the raw wire exchanges against one OAuth token
// endpoint. The Manager layers storage, single-flight, and state
// tracking on top.
type client struct {
	endpoint Endpoint
	http     *http.Client
}

// newClient creates a wire client for the given endpoint.
func newClient(endpoint Endpoint) *client {
	return &client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// exchangeRequest is the authorization_code grant payload. The token
// endpoint expects JSON, not the form encoding of RFC 6749.
type exchangeRequest struct {
	Code         string `json:"code"`
	State        string `json:"state"`
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
}

// refreshRequest is the refresh_token grant payload.
type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
}

// tokenResponse is the token endpoint's success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// exchange trades an authorization code for tokens.
func (c *client) exchange(ctx context.Context, code, state, verifier string) (tokenResponse, error) {
	return c.post(ctx, exchangeRequest{
		Code:         code,
		State:        state,
		GrantType:    "authorization_code",
		ClientID:     c.endpoint.ClientID,
		RedirectURI:  c.endpoint.RedirectURI,
		CodeVerifier: verifier,
	})
}

// refresh trades a refresh token for a new token pair.
func (c *client) refresh(ctx context.Context, refreshToken string) (tokenResponse, error) {
	return c.post(ctx, refreshRequest{
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
		ClientID:     c.endpoint.ClientID,
	})
}

// post sends one JSON request to the token endpoint and decodes the
// response.
func (c *client) post(ctx context.Context, payload any) (tokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.TokenURL, bytes.NewReader(body))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenResponse{}, fmt.Errorf("token endpoint returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var token tokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return tokenResponse{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token response missing access_token")
	}

	return token, nil
}

package auth

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint describes one OAuth authorization server: where to send the
// user, where to exchange codes, and what to ask for.
type Endpoint struct {
	// ClientID is the OAuth client identifier.
	ClientID string

	// AuthURL is the browser-facing authorization page.
	AuthURL string

	// TokenURL is the code exchange and refresh endpoint.
	TokenURL string

	// RedirectURI is where the authorization server sends the code.
	RedirectURI string

	// Scopes are the requested permission scopes.
	Scopes []string
}

// Flow kinds accepted by LookupEndpoint.
const (
	// FlowMax authorizes against a Claude Pro/Max subscription.
	FlowMax = "max"

	// FlowConsole authorizes against the Anthropic Console, which also
	// allows API key creation.
	FlowConsole = "console"
)

// Both flows are registered under the same OAuth client.
const anthropicClientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"

// AnthropicMax returns the endpoint for the Claude Pro/Max flow.
func AnthropicMax() Endpoint {
	return Endpoint{
		ClientID:    anthropicClientID,
		AuthURL:     "https://claude.ai/oauth/authorize",
		TokenURL:    "https://console.anthropic.com/v1/oauth/token",
		RedirectURI: "https://console.anthropic.com/oauth/code/callback",
		Scopes: []string{
			"org:create_api_key",
			"user:profile",
			"user:inference",
		},
	}
}

// AnthropicConsole returns the endpoint for the Anthropic Console flow.
// It differs from the Max flow only in the authorization page.
func AnthropicConsole() Endpoint {
	endpoint := AnthropicMax()
	endpoint.AuthURL = "https://console.anthropic.com/oauth/authorize"
	return endpoint
}

// LookupEndpoint resolves a flow kind to its endpoint preset. An empty
// kind selects the Max flow.
func LookupEndpoint(kind string) (Endpoint, error) {
	switch kind {
	case "", FlowMax:
		return AnthropicMax(), nil
	case FlowConsole:
		return AnthropicConsole(), nil
	default:
		return Endpoint{}, fmt.Errorf("unknown oauth flow %q (must be %q or %q)", kind, FlowMax, FlowConsole)
	}
}

// AuthorizeURL builds the browser-facing authorization URL carrying the
// PKCE challenge and the CSRF state value.
func (e Endpoint) AuthorizeURL(challenge, state string) string {
	params := url.Values{}
	params.Set("code", "true")
	params.Set("client_id", e.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", e.RedirectURI)
	params.Set("scope", strings.Join(e.Scopes, " "))
	params.Set("code_challenge", challenge)
	params.Set("code_challenge_method", "S256")
	params.Set("state", state)

	return e.AuthURL + "?" + params.Encode()
}

package auth

import (
	"net/url"
	"strings"
	"testing"
)

func TestLookupEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		wantAuth string
		wantErr  bool
	}{
		{
			name:     "max flow",
			kind:     "max",
			wantAuth: "https://claude.ai/oauth/authorize",
		},
		{
			name:     "console flow",
			kind:     "console",
			wantAuth: "https://console.anthropic.com/oauth/authorize",
		},
		{
			name:     "empty defaults to max",
			kind:     "",
			wantAuth: "https://claude.ai/oauth/authorize",
		},
		{
			name:    "unknown kind",
			kind:    "github",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, err := LookupEndpoint(tt.kind)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupEndpoint failed: %v", err)
			}

			if endpoint.AuthURL != tt.wantAuth {
				t.Errorf("AuthURL = %q, want %q", endpoint.AuthURL, tt.wantAuth)
			}
			if endpoint.ClientID != anthropicClientID {
				t.Errorf("ClientID = %q, want %q", endpoint.ClientID, anthropicClientID)
			}
			if endpoint.TokenURL != "https://console.anthropic.com/v1/oauth/token" {
				t.Errorf("unexpected TokenURL %q", endpoint.TokenURL)
			}
		})
	}
}

func TestEndpoint_AuthorizeURL(t *testing.T) {
	endpoint := AnthropicMax()
	raw := endpoint.AuthorizeURL("test-challenge", "test-state")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("authorize URL does not parse: %v", err)
	}
	if !strings.HasPrefix(raw, endpoint.AuthURL+"?") {
		t.Errorf("URL %q does not start with %q", raw, endpoint.AuthURL)
	}

	params := parsed.Query()
	want := map[string]string{
		"code":                  "true",
		"client_id":             anthropicClientID,
		"response_type":         "code",
		"redirect_uri":          endpoint.RedirectURI,
		"scope":                 "org:create_api_key user:profile user:inference",
		"code_challenge":        "test-challenge",
		"code_challenge_method": "S256",
		"state":                 "test-state",
	}
	for key, value := range want {
		if got := params.Get(key); got != value {
			t.Errorf("param %s = %q, want %q", key, got, value)
		}
	}
}

package handlers

import (
	"context"
	"testing"

	"github.com/meta-introspector/claude-code-mux/pkg/auth"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// fakeGateway scripts the gateway surface for handler tests.
type fakeGateway struct {
	snapshot *config.Snapshot

	completeResp *providers.MessagesResponse
	completeErr  error
	lastComplete *providers.MessagesRequest

	streamEvents []*providers.StreamEvent
	streamErr    error

	countResp *providers.CountTokensResponse
	countErr  error
}

func (f *fakeGateway) Complete(ctx context.Context, req *providers.MessagesRequest) (*providers.MessagesResponse, error) {
	f.lastComplete = req
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.completeResp, nil
}

func (f *fakeGateway) Stream(ctx context.Context, req *providers.MessagesRequest) (<-chan *providers.StreamEvent, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan *providers.StreamEvent, len(f.streamEvents))
	for _, ev := range f.streamEvents {
		out <- ev
	}
	close(out)
	return out, nil
}

func (f *fakeGateway) CountTokens(ctx context.Context, req *providers.CountTokensRequest) (*providers.CountTokensResponse, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return f.countResp, nil
}

func (f *fakeGateway) Snapshot() *config.Snapshot {
	return f.snapshot
}

// testSnapshot builds a snapshot over a small two-provider config.
func testSnapshot(t *testing.T) *config.Snapshot {
	t.Helper()

	disabled := false
	cfg := &config.Config{
		Router: config.RouterConfig{Default: "claude-sonnet-4"},
		Providers: map[string]config.Provider{
			"anthropic": {Type: "anthropic", APIKey: "sk-ant-test"},
			"openrouter": {
				Type:    "openrouter",
				APIKey:  "sk-or-test",
				Enabled: &disabled,
			},
		},
		Models: map[string][]config.Candidate{
			"claude-sonnet-4": {
				{Provider: "anthropic", Model: "claude-sonnet-4", Priority: 1},
				{Provider: "openrouter", Model: "anthropic/claude-sonnet-4", Priority: 2},
			},
		},
	}
	config.ApplyDefaults(cfg)

	snapshot, err := config.NewSnapshot(cfg)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	return snapshot
}

// fakeTokenManager scripts the token lifecycle surface.
type fakeTokenManager struct {
	authz    auth.Authorization
	authzErr error

	token    auth.Token
	tokenErr error

	statuses []auth.TokenStatus

	deleted   []string
	deleteErr error

	lastKind     string
	lastCode     string
	lastVerifier string
	lastProvider string
}

func (f *fakeTokenManager) AuthorizeBegin(kind string) (auth.Authorization, error) {
	f.lastKind = kind
	return f.authz, f.authzErr
}

func (f *fakeTokenManager) Exchange(ctx context.Context, code, verifier, providerID string) (auth.Token, error) {
	f.lastCode, f.lastVerifier, f.lastProvider = code, verifier, providerID
	return f.token, f.tokenErr
}

func (f *fakeTokenManager) Refresh(ctx context.Context, providerID string) (auth.Token, error) {
	f.lastProvider = providerID
	return f.token, f.tokenErr
}

func (f *fakeTokenManager) ListTokens() []auth.TokenStatus {
	return f.statuses
}

func (f *fakeTokenManager) DeleteToken(providerID string) error {
	f.deleted = append(f.deleted, providerID)
	return f.deleteErr
}

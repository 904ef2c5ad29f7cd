package handlers

import (
	"context"

	"github.com/meta-introspector/claude-code-mux/pkg/auth"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Gateway is the request-serving surface the completion handlers need.
// The gateway package's orchestrator implements it.
type Gateway interface {
	Complete(ctx context.Context, req *providers.MessagesRequest) (*providers.MessagesResponse, error)
	Stream(ctx context.Context, req *providers.MessagesRequest) (<-chan *providers.StreamEvent, error)
	CountTokens(ctx context.Context, req *providers.CountTokensRequest) (*providers.CountTokensResponse, error)

	// Snapshot returns the current configuration snapshot, nil before
	// the first load.
	Snapshot() *config.Snapshot
}

// TokenManager is the OAuth lifecycle surface the oauth handlers need.
// The auth package's manager implements it.
type TokenManager interface {
	AuthorizeBegin(kind string) (auth.Authorization, error)
	Exchange(ctx context.Context, code, verifier, providerID string) (auth.Token, error)
	Refresh(ctx context.Context, providerID string) (auth.Token, error)
	ListTokens() []auth.TokenStatus
	DeleteToken(providerID string) error
}

package routing

import (
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Rule names the routing rule that picked a model.
type Rule string

const (
	// RuleDefault means no special rule fired; the model is the
	// requested name, or the default model after auto mapping.
	RuleDefault Rule = "default"

	// RuleWebSearch fired on a web search tool in the request.
	RuleWebSearch Rule = "websearch"

	// RuleSubagent fired on a subagent tag in the system prompt.
	RuleSubagent Rule = "subagent"

	// RuleThink fired on an enabled thinking directive.
	RuleThink Rule = "think"

	// RuleBackground fired on the background model-name pattern.
	RuleBackground Rule = "background"
)

// Decision is the outcome of resolving a request's model.
type Decision struct {
	// Model is the resolved model name dispatch runs with.
	Model string

	// Rule names the rule that picked Model.
	Rule Rule

	// AutoMapped reports whether auto mapping rewrote the requested
	// name, independent of which rule fired afterwards.
	AutoMapped bool

	// System is a cleaned copy of the system prompt with the subagent
	// tag stripped. Set only when Rule is RuleSubagent; the caller
	// swaps it into the outbound request. The inbound request is never
	// mutated.
	System *providers.SystemPrompt
}

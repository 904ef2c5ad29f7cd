package routing

import (
	"strings"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// webSearchPrefix matches the versioned server tool types
// (web_search_20250305 and successors).
const webSearchPrefix = "web_search"

// Resolve picks the model for a request from the routing rules of one
// configuration snapshot. It is a pure function of the snapshot and the
// request; the request is never mutated.
//
// Auto mapping runs first: a requested name matching the auto-map
// pattern is rewritten to the default model. The special rules then
// apply in strict order, first match wins: web search tool, subagent
// tag, thinking directive, background pattern. The background pattern
// is tested against the name the client sent, not the rewritten one.
func Resolve(snapshot *config.Snapshot, req *providers.MessagesRequest) Decision {
	router := snapshot.Router()
	original := req.Model

	transformed := original
	autoMapped := false
	if re := snapshot.AutoMap(); re != nil && re.MatchString(original) {
		transformed = router.Default
		autoMapped = true
	}

	if router.WebSearch != "" && hasWebSearchTool(req.Tools) {
		return Decision{Model: router.WebSearch, Rule: RuleWebSearch, AutoMapped: autoMapped}
	}

	if model, cleaned, ok := extractSubagent(snapshot, req.System); ok {
		return Decision{Model: model, Rule: RuleSubagent, AutoMapped: autoMapped, System: cleaned}
	}

	if router.Think != "" && req.Thinking.Enabled() {
		return Decision{Model: router.Think, Rule: RuleThink, AutoMapped: autoMapped}
	}

	if router.Background.Model != "" {
		if re := snapshot.Background(); re != nil && re.MatchString(original) {
			return Decision{Model: router.Background.Model, Rule: RuleBackground, AutoMapped: autoMapped}
		}
	}

	return Decision{Model: transformed, Rule: RuleDefault, AutoMapped: autoMapped}
}

// hasWebSearchTool reports whether any tool is a web search server
// tool.
func hasWebSearchTool(tools []providers.Tool) bool {
	for _, tool := range tools {
		if strings.HasPrefix(tool.Type, webSearchPrefix) {
			return true
		}
	}
	return false
}

// extractSubagent looks for the subagent tag in the second system
// block. On a match it returns the wrapped model name and a copy of the
// system prompt with the tag removed. A missing, unterminated, or empty
// tag is no match.
func extractSubagent(snapshot *config.Snapshot, system *providers.SystemPrompt) (string, *providers.SystemPrompt, bool) {
	if system == nil || len(system.Blocks) < 2 {
		return "", nil, false
	}

	re := snapshot.SubagentTag()
	match := re.FindStringSubmatch(system.Blocks[1].Text)
	if match == nil || match[1] == "" {
		return "", nil, false
	}

	blocks := make([]providers.ContentBlock, len(system.Blocks))
	copy(blocks, system.Blocks)
	blocks[1].Text = re.ReplaceAllString(blocks[1].Text, "")

	return match[1], &providers.SystemPrompt{Blocks: blocks}, true
}

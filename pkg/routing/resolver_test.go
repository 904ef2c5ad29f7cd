package routing

import (
	"testing"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

func testSnapshot(t *testing.T, router config.RouterConfig) *config.Snapshot {
	t.Helper()

	if router.SubagentTag == "" {
		router.SubagentTag = "CCM-SUBAGENT-MODEL"
	}

	snapshot, err := config.NewSnapshot(&config.Config{Router: router})
	if err != nil {
		t.Fatalf("NewSnapshot() failed: %v", err)
	}
	return snapshot
}

func fullRouter() config.RouterConfig {
	return config.RouterConfig{
		Default:   "default.model",
		AutoMap:   "^claude-",
		WebSearch: "websearch.model",
		Think:     "think.model",
		Background: config.BackgroundRule{
			Regex: "(?i)claude.*haiku",
			Model: "background.model",
		},
	}
}

func webSearchTool() providers.Tool {
	return providers.Tool{Type: "web_search_20250305", Name: "web_search"}
}

func taggedSystem(text string) *providers.SystemPrompt {
	return &providers.SystemPrompt{
		Blocks: []providers.ContentBlock{
			{Type: "text", Text: "You are Claude Code."},
			{Type: "text", Text: text},
		},
	}
}

func TestResolve_Default(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{Model: "glm-4.6"})

	if decision.Rule != RuleDefault {
		t.Errorf("Rule = %s, want default", decision.Rule)
	}
	if decision.Model != "glm-4.6" {
		t.Errorf("Model = %s, want glm-4.6", decision.Model)
	}
	if decision.AutoMapped {
		t.Error("Expected AutoMapped false for a non-matching name")
	}
}

func TestResolve_AutoMap(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{Model: "claude-3-5-sonnet-20241022"})

	if decision.Rule != RuleDefault {
		t.Errorf("Rule = %s, want default", decision.Rule)
	}
	if decision.Model != "default.model" {
		t.Errorf("Model = %s, want default.model", decision.Model)
	}
	if !decision.AutoMapped {
		t.Error("Expected AutoMapped true")
	}
}

func TestResolve_AutoMapDisabled(t *testing.T) {
	router := fullRouter()
	router.AutoMap = ""
	snapshot := testSnapshot(t, router)

	decision := Resolve(snapshot, &providers.MessagesRequest{Model: "claude-sonnet-4-5"})

	if decision.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %s, want the untouched name", decision.Model)
	}
	if decision.AutoMapped {
		t.Error("Expected AutoMapped false with auto mapping disabled")
	}
}

func TestResolve_WebSearch(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model: "claude-sonnet-4-5",
		Tools: []providers.Tool{webSearchTool()},
	})

	if decision.Rule != RuleWebSearch {
		t.Errorf("Rule = %s, want websearch", decision.Rule)
	}
	if decision.Model != "websearch.model" {
		t.Errorf("Model = %s, want websearch.model", decision.Model)
	}
}

func TestResolve_WebSearchIgnoresClientTools(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model: "glm-4.6",
		Tools: []providers.Tool{
			{Name: "bash", InputSchema: []byte(`{"type":"object"}`)},
			{Name: "web_search_helper", InputSchema: []byte(`{"type":"object"}`)},
		},
	})

	// Only the server tool type counts, not a tool name.
	if decision.Rule != RuleDefault {
		t.Errorf("Rule = %s, want default", decision.Rule)
	}
}

func TestResolve_WebSearchUnsetTarget(t *testing.T) {
	router := fullRouter()
	router.WebSearch = ""
	snapshot := testSnapshot(t, router)

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model: "glm-4.6",
		Tools: []providers.Tool{webSearchTool()},
	})

	if decision.Rule != RuleDefault {
		t.Errorf("Rule = %s, want default with websearch unset", decision.Rule)
	}
}

func TestResolve_Subagent(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	request := &providers.MessagesRequest{
		Model:  "claude-sonnet-4-5",
		System: taggedSystem("You are a reviewer. <CCM-SUBAGENT-MODEL>glm-4.6</CCM-SUBAGENT-MODEL> Be thorough."),
	}

	decision := Resolve(snapshot, request)

	if decision.Rule != RuleSubagent {
		t.Fatalf("Rule = %s, want subagent", decision.Rule)
	}
	if decision.Model != "glm-4.6" {
		t.Errorf("Model = %s, want glm-4.6", decision.Model)
	}

	if decision.System == nil {
		t.Fatal("Expected cleaned system prompt on the decision")
	}
	cleaned := decision.System.Blocks[1].Text
	if cleaned != "You are a reviewer.  Be thorough." {
		t.Errorf("Cleaned text = %q, want the tag removed", cleaned)
	}

	// The inbound request must keep its tag.
	if request.System.Blocks[1].Text == cleaned {
		t.Error("Resolve mutated the request's system prompt")
	}
}

func TestResolve_SubagentCustomTag(t *testing.T) {
	router := fullRouter()
	router.SubagentTag = "AGENT-MODEL"
	snapshot := testSnapshot(t, router)

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model:  "claude-sonnet-4-5",
		System: taggedSystem("<AGENT-MODEL>deepseek-v3</AGENT-MODEL>"),
	})

	if decision.Rule != RuleSubagent || decision.Model != "deepseek-v3" {
		t.Errorf("Decision = %+v, want subagent deepseek-v3", decision)
	}
}

func TestResolve_SubagentNoMatch(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	tests := []struct {
		name   string
		system *providers.SystemPrompt
	}{
		{"nil system", nil},
		{"string form", &providers.SystemPrompt{Text: "<CCM-SUBAGENT-MODEL>glm-4.6</CCM-SUBAGENT-MODEL>"}},
		{"single block", &providers.SystemPrompt{Blocks: []providers.ContentBlock{
			{Type: "text", Text: "<CCM-SUBAGENT-MODEL>glm-4.6</CCM-SUBAGENT-MODEL>"},
		}}},
		{"tag in first block only", &providers.SystemPrompt{Blocks: []providers.ContentBlock{
			{Type: "text", Text: "<CCM-SUBAGENT-MODEL>glm-4.6</CCM-SUBAGENT-MODEL>"},
			{Type: "text", Text: "no tag here"},
		}}},
		{"unterminated tag", taggedSystem("<CCM-SUBAGENT-MODEL>glm-4.6")},
		{"empty tag", taggedSystem("<CCM-SUBAGENT-MODEL></CCM-SUBAGENT-MODEL>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Resolve(snapshot, &providers.MessagesRequest{
				Model:  "glm-4.6",
				System: tt.system,
			})
			if decision.Rule == RuleSubagent {
				t.Errorf("Expected subagent rule to be skipped, got model %s", decision.Model)
			}
			if decision.System != nil {
				t.Error("Expected no cleaned system prompt when the rule is skipped")
			}
		})
	}
}

func TestResolve_SubagentLazyMatch(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model:  "claude-sonnet-4-5",
		System: taggedSystem("<CCM-SUBAGENT-MODEL>a</CCM-SUBAGENT-MODEL><CCM-SUBAGENT-MODEL>b</CCM-SUBAGENT-MODEL>"),
	})

	if decision.Model != "a" {
		t.Errorf("Model = %s, want the first lazy capture 'a'", decision.Model)
	}
	if decision.System.Blocks[1].Text != "" {
		t.Errorf("Cleaned text = %q, want all tags removed", decision.System.Blocks[1].Text)
	}
}

func TestResolve_Think(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model:    "claude-sonnet-4-5",
		Thinking: &providers.ThinkingConfig{Type: "enabled", BudgetTokens: 10000},
	})

	if decision.Rule != RuleThink {
		t.Errorf("Rule = %s, want think", decision.Rule)
	}
	if decision.Model != "think.model" {
		t.Errorf("Model = %s, want think.model", decision.Model)
	}
}

func TestResolve_ThinkDisabledDirective(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{
		Model:    "glm-4.6",
		Thinking: &providers.ThinkingConfig{Type: "disabled"},
	})

	if decision.Rule != RuleDefault {
		t.Errorf("Rule = %s, want default for a disabled directive", decision.Rule)
	}
}

func TestResolve_Background(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	decision := Resolve(snapshot, &providers.MessagesRequest{Model: "claude-3-5-haiku-20241022"})

	if decision.Rule != RuleBackground {
		t.Errorf("Rule = %s, want background", decision.Rule)
	}
	if decision.Model != "background.model" {
		t.Errorf("Model = %s, want background.model", decision.Model)
	}
	// Auto mapping also matched; the background rule still sees the
	// original name.
	if !decision.AutoMapped {
		t.Error("Expected AutoMapped true for a claude-* name")
	}
}

func TestResolve_BackgroundTestsOriginalName(t *testing.T) {
	router := fullRouter()
	router.Background.Regex = "^default\\."
	snapshot := testSnapshot(t, router)

	// The transformed name would match, but the rule only sees the
	// original.
	decision := Resolve(snapshot, &providers.MessagesRequest{Model: "claude-sonnet-4-5"})

	if decision.Rule != RuleDefault {
		t.Errorf("Rule = %s, want default", decision.Rule)
	}
	if decision.Model != "default.model" {
		t.Errorf("Model = %s, want default.model via auto mapping", decision.Model)
	}
}

func TestResolve_BackgroundDisabled(t *testing.T) {
	t.Run("empty regex", func(t *testing.T) {
		router := fullRouter()
		router.Background.Regex = ""
		snapshot := testSnapshot(t, router)

		decision := Resolve(snapshot, &providers.MessagesRequest{Model: "claude-3-5-haiku-20241022"})
		if decision.Rule != RuleDefault {
			t.Errorf("Rule = %s, want default with the regex unset", decision.Rule)
		}
	})

	t.Run("empty target", func(t *testing.T) {
		router := fullRouter()
		router.Background.Model = ""
		snapshot := testSnapshot(t, router)

		decision := Resolve(snapshot, &providers.MessagesRequest{Model: "claude-3-5-haiku-20241022"})
		if decision.Rule != RuleDefault {
			t.Errorf("Rule = %s, want default with the target unset", decision.Rule)
		}
	})
}

// TestResolve_Precedence walks the rule chain by removing the winning
// trigger one step at a time.
func TestResolve_Precedence(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	request := &providers.MessagesRequest{
		Model:    "claude-3-5-haiku-20241022",
		Tools:    []providers.Tool{webSearchTool()},
		System:   taggedSystem("<CCM-SUBAGENT-MODEL>glm-4.6</CCM-SUBAGENT-MODEL>"),
		Thinking: &providers.ThinkingConfig{Type: "enabled"},
	}

	if d := Resolve(snapshot, request); d.Rule != RuleWebSearch {
		t.Errorf("All triggers: Rule = %s, want websearch", d.Rule)
	}

	request.Tools = nil
	if d := Resolve(snapshot, request); d.Rule != RuleSubagent {
		t.Errorf("Without tools: Rule = %s, want subagent", d.Rule)
	}

	request.System = nil
	if d := Resolve(snapshot, request); d.Rule != RuleThink {
		t.Errorf("Without system: Rule = %s, want think", d.Rule)
	}

	request.Thinking = nil
	if d := Resolve(snapshot, request); d.Rule != RuleBackground {
		t.Errorf("Without thinking: Rule = %s, want background", d.Rule)
	}

	request.Model = "claude-sonnet-4-5"
	if d := Resolve(snapshot, request); d.Rule != RuleDefault || d.Model != "default.model" {
		t.Errorf("Without haiku name: Rule = %s, Model = %s, want default/default.model", d.Rule, d.Model)
	}
}

// TestResolve_Deterministic resolves the same request twice and expects
// identical decisions.
func TestResolve_Deterministic(t *testing.T) {
	snapshot := testSnapshot(t, fullRouter())

	request := &providers.MessagesRequest{
		Model:  "claude-sonnet-4-5",
		System: taggedSystem("pick <CCM-SUBAGENT-MODEL>glm-4.6</CCM-SUBAGENT-MODEL>"),
	}

	first := Resolve(snapshot, request)
	second := Resolve(snapshot, request)

	if first.Model != second.Model || first.Rule != second.Rule {
		t.Errorf("Decisions differ: %+v vs %+v", first, second)
	}
	if first.System.Blocks[1].Text != second.System.Blocks[1].Text {
		t.Error("Cleaned system prompts differ between calls")
	}
}

package providers

// Preset carries the built-in defaults for a known provider type: the wire
// dialect it speaks, its public API base URL, and any static headers the
// service expects. A configured base_url always overrides the preset URL.
type Preset struct {
	// Kind is the wire dialect the provider speaks.
	Kind Kind

	// BaseURL is the provider's public API endpoint.
	BaseURL string

	// Headers are extra static headers sent with every request.
	Headers map[string]string
}

// presets maps the provider type names accepted in configuration to their
// defaults. Anthropic-dialect services expose a Messages endpoint; the rest
// are Chat Completions compatible.
var presets = map[string]Preset{
	"anthropic": {
		Kind:    KindAnthropic,
		BaseURL: "https://api.anthropic.com",
	},
	"z.ai": {
		Kind:    KindAnthropic,
		BaseURL: "https://api.z.ai/api/anthropic",
	},
	"minimax": {
		Kind:    KindAnthropic,
		BaseURL: "https://api.minimax.io/anthropic",
	},
	"zenmux": {
		Kind:    KindAnthropic,
		BaseURL: "https://zenmux.ai/api/anthropic",
	},
	"kimi-coding": {
		Kind:    KindAnthropic,
		BaseURL: "https://api.moonshot.ai/anthropic",
	},
	"openai": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.openai.com/v1",
	},
	"openrouter": {
		Kind:    KindOpenAI,
		BaseURL: "https://openrouter.ai/api/v1",
		Headers: map[string]string{
			"HTTP-Referer": "https://github.com/meta-introspector/claude-code-mux",
			"X-Title":      "Claude Code Mux",
		},
	},
	"deepinfra": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.deepinfra.com/v1/openai",
	},
	"novita": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.novita.ai/v3/openai",
		Headers: map[string]string{
			"X-Novita-Source": "claude-code-mux",
		},
	},
	"baseten": {
		Kind:    KindOpenAI,
		BaseURL: "https://inference.baseten.co/v1",
	},
	"together": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.together.xyz/v1",
	},
	"fireworks": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.fireworks.ai/inference/v1",
	},
	"groq": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.groq.com/openai/v1",
	},
	"nebius": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.studio.nebius.ai/v1",
	},
	"cerebras": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.cerebras.ai/v1",
	},
	"moonshot": {
		Kind:    KindOpenAI,
		BaseURL: "https://api.moonshot.cn/v1",
	},
}

// PresetFor looks up the defaults for a provider type. The second return is
// false for types with no built-in preset.
func PresetFor(providerType string) (Preset, bool) {
	p, ok := presets[providerType]
	return p, ok
}

// KnownTypes lists every provider type with a built-in preset.
func KnownTypes() []string {
	types := make([]string, 0, len(presets))
	for name := range presets {
		types = append(types, name)
	}
	return types
}

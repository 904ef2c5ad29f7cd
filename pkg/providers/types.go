package providers

import (
	"encoding/json"
	"time"
)

// MessagesRequest is the unified chat-completion request. The gateway speaks
// the Anthropic Messages shape internally; adapters translate it to each
// upstream dialect.
type MessagesRequest struct {
	// Model is the requested model name before routing, and the upstream
	// model name after the dispatcher rewrites it for a candidate.
	Model string `json:"model"`

	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	// System is the optional system prompt: a plain string or a list of
	// text blocks on the wire.
	System *SystemPrompt `json:"system,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 1.0).
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0).
	TopP *float64 `json:"top_p,omitempty"`

	// TopK limits sampling to the K most likely tokens.
	TopK *int `json:"top_k,omitempty"`

	// StopSequences halt generation when produced.
	StopSequences []string `json:"stop_sequences,omitempty"`

	// Stream requests an incremental server-sent-event response.
	Stream bool `json:"stream,omitempty"`

	// Tools lists the tools the model may call.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice constrains which tool may be called. Passed through opaque.
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`

	// Thinking enables extended reasoning when its type is "enabled".
	Thinking *ThinkingConfig `json:"thinking,omitempty"`

	// Metadata is opaque request context forwarded to the upstream.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Message is a single conversation turn.
type Message struct {
	// Role identifies the sender (user or assistant).
	Role string `json:"role"`

	// Content is the turn's content: a plain string or content blocks.
	Content MessageContent `json:"content"`
}

// MessageContent holds either plain text or a list of content blocks,
// matching the two wire encodings the Messages schema allows.
type MessageContent struct {
	// Text is set when the wire form was a plain string.
	Text string

	// Blocks is set when the wire form was a block array.
	Blocks []ContentBlock
}

// UnmarshalJSON accepts both the string and the block-array encoding.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	return json.Unmarshal(data, &c.Blocks)
}

// MarshalJSON re-emits whichever encoding was parsed.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// Text returns message content in the plain-string encoding.
func Text(s string) MessageContent {
	return MessageContent{Text: s}
}

// SystemPrompt holds the system prompt in either of its wire encodings.
type SystemPrompt struct {
	// Text is set when the wire form was a plain string.
	Text string

	// Blocks is set when the wire form was a block array.
	Blocks []ContentBlock
}

// UnmarshalJSON accepts both the string and the block-array encoding.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Text)
	}
	return json.Unmarshal(data, &s.Blocks)
}

// MarshalJSON re-emits whichever encoding was parsed.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

// JoinedText returns the prompt as one string, concatenating text blocks
// with newlines when the block form was used.
func (s *SystemPrompt) JoinedText() string {
	if s == nil {
		return ""
	}
	if s.Blocks == nil {
		return s.Text
	}
	var out string
	for i, b := range s.Blocks {
		if b.Type != ContentTypeText {
			continue
		}
		if i > 0 && out != "" {
			out += "\n"
		}
		out += b.Text
	}
	return out
}

// ContentBlock is one typed block inside a message, system prompt, or
// response. The Type field selects which of the remaining fields apply.
type ContentBlock struct {
	// Type is the block discriminator (text, image, tool_use, tool_result,
	// thinking, redacted_thinking).
	Type string `json:"type"`

	// Text carries the content of a text block.
	Text string `json:"text,omitempty"`

	// ID is the tool invocation identifier of a tool_use block.
	ID string `json:"id,omitempty"`

	// Name is the tool name of a tool_use block.
	Name string `json:"name,omitempty"`

	// Input is the JSON argument object of a tool_use block.
	Input json.RawMessage `json:"input,omitempty"`

	// ToolUseID links a tool_result block to the tool_use it answers.
	ToolUseID string `json:"tool_use_id,omitempty"`

	// Content is the result payload of a tool_result block: a string or
	// nested blocks, passed through opaque.
	Content json.RawMessage `json:"content,omitempty"`

	// IsError marks a tool_result block as a failed invocation.
	IsError bool `json:"is_error,omitempty"`

	// Source carries the payload of an image block.
	Source *ImageSource `json:"source,omitempty"`

	// Thinking carries the reasoning text of a thinking block.
	Thinking string `json:"thinking,omitempty"`

	// Signature is the integrity signature of a thinking block.
	Signature string `json:"signature,omitempty"`

	// CacheControl is the prompt-caching directive, passed through opaque.
	CacheControl json.RawMessage `json:"cache_control,omitempty"`
}

// ImageSource is the payload of an image content block.
type ImageSource struct {
	// Type is the encoding (base64 or url).
	Type string `json:"type"`

	// MediaType is the MIME type for base64 sources.
	MediaType string `json:"media_type,omitempty"`

	// Data is the base64 payload for base64 sources.
	Data string `json:"data,omitempty"`

	// URL is the location for url sources.
	URL string `json:"url,omitempty"`
}

// Tool describes one tool the model may call. Server tools (web search)
// carry a Type; client tools carry an InputSchema.
type Tool struct {
	// Type is set for server-side tools (e.g. web_search_20250305).
	Type string `json:"type,omitempty"`

	// Name is the tool name.
	Name string `json:"name"`

	// Description explains the tool to the model.
	Description string `json:"description,omitempty"`

	// InputSchema is a JSON Schema object describing the tool arguments.
	InputSchema json.RawMessage `json:"input_schema,omitempty"`

	// MaxUses bounds server-tool invocations, passed through opaque.
	MaxUses int `json:"max_uses,omitempty"`
}

// ThinkingConfig is the extended-reasoning directive.
type ThinkingConfig struct {
	// Type is "enabled" or "disabled".
	Type string `json:"type"`

	// BudgetTokens caps reasoning tokens when enabled.
	BudgetTokens int `json:"budget_tokens,omitempty"`
}

// Enabled reports whether the directive requests reasoning.
func (t *ThinkingConfig) Enabled() bool {
	return t != nil && t.Type == ThinkingEnabled
}

// MessagesResponse is the unified non-streaming response.
type MessagesResponse struct {
	// ID is the upstream response identifier.
	ID string `json:"id"`

	// Type is always "message".
	Type string `json:"type"`

	// Role is always "assistant".
	Role string `json:"role"`

	// Model is the model that produced the response.
	Model string `json:"model"`

	// Content is the generated content blocks.
	Content []ContentBlock `json:"content"`

	// StopReason indicates why generation stopped (end_turn, max_tokens,
	// stop_sequence, tool_use).
	StopReason string `json:"stop_reason,omitempty"`

	// StopSequence is the matched stop sequence, when StopReason is
	// stop_sequence.
	StopSequence string `json:"stop_sequence,omitempty"`

	// Usage reports token consumption.
	Usage Usage `json:"usage"`
}

// Usage tracks token consumption for one request.
type Usage struct {
	// InputTokens is the number of prompt tokens.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of generated tokens.
	OutputTokens int `json:"output_tokens"`

	// CacheCreationInputTokens counts tokens written to the prompt cache.
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`

	// CacheReadInputTokens counts tokens served from the prompt cache.
	CacheReadInputTokens int `json:"cache_read_input_tokens,omitempty"`
}

// StreamEvent is one server-sent event of a streaming response, already in
// the unified event dialect (message_start, content_block_start,
// content_block_delta, content_block_stop, message_delta, message_stop,
// ping, error).
type StreamEvent struct {
	// Type is the SSE event name.
	Type string `json:"type"`

	// Data is the event payload as sent on the wire.
	Data json.RawMessage `json:"-"`

	// Error is set on the terminal event of an interrupted stream. No
	// further events follow an event with Error set.
	Error error `json:"-"`
}

// CountTokensRequest asks for a token count without generating.
type CountTokensRequest struct {
	// Model is the model whose tokenizer applies.
	Model string `json:"model"`

	// Messages is the conversation to count.
	Messages []Message `json:"messages"`

	// System is the optional system prompt.
	System *SystemPrompt `json:"system,omitempty"`

	// Tools are counted as part of the prompt.
	Tools []Tool `json:"tools,omitempty"`
}

// CountTokensResponse reports the counted prompt size.
type CountTokensResponse struct {
	// InputTokens is the token count of the whole prompt.
	InputTokens int `json:"input_tokens"`
}

// Credential is the resolved authentication material for one upstream call.
// The dispatcher resolves it per candidate before invoking the adapter.
type Credential struct {
	// Kind selects the header scheme.
	Kind AuthKind

	// Secret is the API key or bearer token value.
	Secret string
}

// ProviderConfig is the adapter-facing subset of the provider configuration.
type ProviderConfig struct {
	// Name is the unique provider identifier from the configuration.
	Name string

	// Type selects a service preset for base URL, dialect and extra
	// headers. See KnownTypes for the accepted values.
	Type string

	// Kind is the wire dialect the adapter speaks. Filled from the preset
	// when empty.
	Kind Kind

	// AuthKind is how requests to this provider authenticate.
	AuthKind AuthKind

	// BaseURL is the API endpoint base URL.
	BaseURL string

	// APIKey is the static secret for api_key auth.
	APIKey string

	// OAuthProvider is the token-store key for oauth auth.
	OAuthProvider string

	// Models are the upstream model names this provider serves. Informational.
	Models []string

	// Enabled gates the provider in and out of dispatch.
	Enabled bool

	// RequestTimeout bounds one upstream call. Default: 10 minutes.
	RequestTimeout time.Duration

	// ConnectTimeout bounds connection establishment. Default: 10 seconds.
	ConnectTimeout time.Duration

	// MaxIdleConns is the connection pool size. Default: 100.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host pool size. Default: 10.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection is kept. Default: 90s.
	IdleConnTimeout time.Duration
}

// ApplyDefaults fills unset tuning fields with their defaults.
func (c *ProviderConfig) ApplyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

// Kind identifies the wire dialect an adapter speaks.
type Kind string

// Adapter dialects.
const (
	// KindAnthropic speaks the Anthropic Messages API natively.
	KindAnthropic Kind = "anthropic"

	// KindOpenAI speaks the OpenAI Chat Completions API.
	KindOpenAI Kind = "openai"
)

// AuthKind identifies how a provider authenticates.
type AuthKind string

// Provider auth schemes.
const (
	// AuthAPIKey sends a static secret header.
	AuthAPIKey AuthKind = "api_key"

	// AuthOAuth sends a bearer token managed by the token lifecycle manager.
	AuthOAuth AuthKind = "oauth"
)

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block type constants.
const (
	ContentTypeText             = "text"
	ContentTypeImage            = "image"
	ContentTypeToolUse          = "tool_use"
	ContentTypeToolResult       = "tool_result"
	ContentTypeThinking         = "thinking"
	ContentTypeRedactedThinking = "redacted_thinking"
)

// Stop reason constants.
const (
	StopEndTurn      = "end_turn"
	StopMaxTokens    = "max_tokens"
	StopStopSequence = "stop_sequence"
	StopToolUse      = "tool_use"
)

// Thinking directive types.
const (
	ThinkingEnabled  = "enabled"
	ThinkingDisabled = "disabled"
)

// Stream event type constants.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
	EventError             = "error"
)

package tokens

import (
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Character-based estimation constants. The ratio tracks real tokenizers
// within a few percent for English prose, which is close enough for the
// fallback paths that use it.
const (
	// charsPerToken is the assumed characters-per-token ratio.
	charsPerToken = 4.0

	// roleTokens accounts for the role marker on each message.
	roleTokens = 1

	// messageOverhead accounts for per-message formatting tokens.
	messageOverhead = 3

	// conversationOverhead accounts for conversation-level framing.
	conversationOverhead = 3

	// toolOverhead accounts for per-tool-definition formatting.
	toolOverhead = 10

	// toolCallOverhead accounts for tool use and result framing.
	toolCallOverhead = 5

	// imageTokens is the flat estimate for one image block.
	imageTokens = 1000

	// requestOverhead accounts for request-level special tokens.
	requestOverhead = 5
)

// EstimateText estimates tokens for a single text string.
func EstimateText(text string) int {
	if text == "" {
		return 0
	}

	estimated := float64(len(text)) / charsPerToken
	if estimated < 1.0 {
		return 1
	}

	return int(estimated + 0.5)
}

// EstimateMessages estimates prompt tokens for a list of messages,
// including per-message formatting overhead.
func EstimateMessages(messages []providers.Message) int {
	if len(messages) == 0 {
		return 0
	}

	total := 0
	for _, msg := range messages {
		total += roleTokens
		if msg.Content.Blocks != nil {
			total += estimateBlocks(msg.Content.Blocks)
		} else {
			total += EstimateText(msg.Content.Text)
		}
		total += messageOverhead
	}

	return total + conversationOverhead
}

// EstimateTools estimates tokens for tool definitions. The input schema is
// counted as serialized JSON since that is roughly what the model sees.
func EstimateTools(tools []providers.Tool) int {
	total := 0
	for _, tool := range tools {
		total += EstimateText(tool.Name)
		total += EstimateText(tool.Description)
		total += EstimateText(string(tool.InputSchema))
		total += toolOverhead
	}

	return total
}

// EstimateRequest estimates the full prompt size of a counting request:
// system prompt, messages, tool definitions, and framing overhead.
func EstimateRequest(req *providers.CountTokensRequest) int {
	if req == nil {
		return 0
	}

	total := requestOverhead

	if req.System != nil {
		if req.System.Blocks != nil {
			total += estimateBlocks(req.System.Blocks)
		} else {
			total += EstimateText(req.System.Text)
		}
	}

	total += EstimateMessages(req.Messages)
	total += EstimateTools(req.Tools)

	return total
}

// estimateBlocks sums the estimate over a block list. Unknown block types
// contribute nothing rather than guessing.
func estimateBlocks(blocks []providers.ContentBlock) int {
	total := 0
	for _, block := range blocks {
		switch block.Type {
		case providers.ContentTypeText:
			total += EstimateText(block.Text)
		case providers.ContentTypeImage:
			total += imageTokens
		case providers.ContentTypeToolUse:
			total += EstimateText(block.Name)
			total += EstimateText(string(block.Input))
			total += toolCallOverhead
		case providers.ContentTypeToolResult:
			total += EstimateText(string(block.Content))
			total += toolCallOverhead
		case providers.ContentTypeThinking:
			total += EstimateText(block.Thinking)
		}
	}

	return total
}

// Package tokens provides heuristic token estimation for Messages requests.
//
// The estimator is character based: roughly four characters per token, plus
// small fixed overheads for message framing, tool definitions, and images.
// It exists for the paths where no real tokenizer is available:
//
//   - The count_tokens endpoint when the upstream provider does not offer one
//   - Local sizing of prompts before dispatch
//
// # Usage
//
//	count := tokens.EstimateRequest(&providers.CountTokensRequest{
//	    Model:    "claude-sonnet-4-5",
//	    Messages: msgs,
//	})
//
// The estimate is intentionally coarse. Callers that need exact counts should
// prefer the upstream counting endpoint and treat this as the fallback.
package tokens

// Package openai implements the adapter for OpenAI-compatible chat
// completion services: OpenAI itself plus the many services that mirror its
// wire format (OpenRouter, DeepInfra, Novita, Groq, Together and others).
//
// # Translation
//
// The gateway's unified schema is the Messages format, so this adapter
// translates in both directions. On the way out, system prompts become a
// system role message, tool_use blocks become tool_calls, and tool_result
// blocks become tool role messages. Server-side tools and thinking
// configuration have no Chat Completions equivalent and are dropped with a
// warning. On the way back, reasoning text maps to a thinking block,
// tool_calls map to tool_use blocks, and finish reasons map to stop
// reasons, with "stop" as the default for absent or unknown values.
//
// # Streaming
//
// Chat Completions streams carry flat deltas with no block structure, so
// the adapter synthesizes Messages events: message_start on the first
// chunk, content blocks opened and closed as the delta kinds change, and
// message_delta plus message_stop when the stream finishes. A stream that
// ends without a finish reason or [DONE] sentinel is reported as a started
// stream error.
//
// # Credentials
//
// API keys and OAuth access tokens are both sent as bearer tokens. Per
// provider extras, like OpenRouter's attribution headers, are passed to New
// and added to every request.
//
// # Token Counting
//
// Chat Completions services expose no counting endpoint, so CountTokens
// always estimates locally with the character heuristic.
package openai

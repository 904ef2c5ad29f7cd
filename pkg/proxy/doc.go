// Package proxy provides the HTTP surface of the gateway: request parsing,
// response writing, wire format conversion and error mapping.
//
// The gateway speaks the Anthropic Messages API natively. This package
// parses inbound bodies into the unified request types, converts between
// the Messages shape and the Chat Completions shape for the
// OpenAI-compatible endpoint, and maps gateway errors to HTTP responses.
// The handlers and middleware live in the handlers and middleware
// subpackages; the server in pkg/server assembles them into a route table.
//
// # Surfaces
//
// Two client dialects are served from the same gateway core:
//
//   - POST /v1/messages and /v1/messages/count_tokens speak the Messages
//     API. Requests pass through unchanged; streaming responses relay the
//     unified events in Messages SSE framing (event: name, data: payload).
//   - POST /v1/chat/completions speaks Chat Completions. ChatToMessages
//     and MessagesToChat convert requests and responses; StreamTranslator
//     converts the unified event stream into chat chunks terminated by a
//     [DONE] marker.
//
// # Error Handling
//
// All Messages API errors follow the Messages error envelope:
//
//	{
//	  "type": "error",
//	  "error": {
//	    "type": "invalid_request_error",
//	    "message": "model is required"
//	  }
//	}
//
// HandleError maps gateway errors onto this envelope: client mistakes get
// 4xx, a gateway without configuration gets 503, exhausted failover gets
// 502, and a permanent upstream 4xx passes through with the status the
// service answered. The Chat Completions surface wraps the same mapping
// in the {"error": {...}} envelope its clients expect.
//
// # Request Limits
//
// Request bodies are limited to MaxRequestBodySize (10MB). Larger bodies
// are rejected with 413 before buffering completes.
package proxy

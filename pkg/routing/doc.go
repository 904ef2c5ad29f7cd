// Package routing resolves the model a request should run on.
//
// # Overview
//
// Clients send Anthropic model names; the routing rules in the
// configuration decide which mapped model actually serves the request.
// Resolve applies them in a fixed order:
//
//  1. Auto mapping rewrites matching requested names (the claude-*
//     family by convention) to the default model.
//  2. A web search tool routes to the websearch model.
//  3. A subagent tag in the system prompt routes to the model named
//     inside the tag, and the tag is stripped from the outbound
//     system prompt.
//  4. An enabled thinking directive routes to the think model.
//  5. A requested name matching the background pattern routes to the
//     background model. The pattern sees the original name, so
//     claude-*-haiku requests reach the background model even though
//     auto mapping rewrote them.
//
// The first matching rule wins. With no match the request runs on the
// auto-mapped name, or untouched on whatever the client asked for.
//
// # Purity
//
// Resolve never mutates the request. When the subagent rule strips its
// tag the Decision carries a cleaned copy of the system blocks and the
// caller applies it to the outbound request only. Two calls with the
// same snapshot and request always return the same Decision.
package routing

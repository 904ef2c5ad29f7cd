// Claude Code Mux is a chat completion gateway that multiplexes requests
// across heterogeneous LLM providers.
//
// It speaks the Anthropic Messages API (plus an OpenAI-compatible
// surface), routes each request to a provider candidate list by model
// mapping rules, fails over across candidates in priority order, and
// manages OAuth token lifecycles for providers that need them.
//
// Usage:
//
//	# Start the gateway with the default configuration
//	ccm start
//
//	# Start with a custom configuration file
//	ccm start --config /path/to/config.yaml
//
//	# Override the listen port
//	ccm start --port 8080
//
//	# Stop a running gateway
//	ccm stop
//
//	# Show gateway status
//	ccm status
//
//	# Print the routing table
//	ccm models
//
// For complete documentation, see: https://github.com/meta-introspector/claude-code-mux
package main

func main() {
	Execute()
}

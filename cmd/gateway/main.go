// Jupiter Gateway is the OpenAI-compatible request-plane dispatcher: admission,
// routing, resilience, and unified streaming relay in front of OpenAI,
// Anthropic, and OpenAI-compatible upstream providers.
//
// Usage:
//
//	# Start server with default configuration
//	gateway run
//
//	# Start with custom configuration file
//	gateway run --config /path/to/config.yaml
//
//	# Show version information
//	gateway version
//
//	# Validate routing-override policy files
//	gateway lint --file policies.yaml
package main

func main() {
	Execute()
}

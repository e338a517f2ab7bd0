// Ceres is a beneficiary-registration validation service.
//
// It evaluates registration payloads against a declarative rule catalog:
// reference dictionaries, per-merchant required-field policies and
// versioned rule files, producing a deterministic verdict and an audit
// trail for every decision.
//
// Usage:
//
//	# Start the server with the default configuration
//	ceres run
//
//	# Start with a custom configuration file
//	ceres run --config /etc/ceres/config.yaml
//
//	# Validate the rule catalog without serving
//	ceres lint
//
//	# Show version information
//	ceres version
package main

func main() {
	Execute()
}

// Package model defines the generation capability the cognitive engine
// depends on. The core never parses provider-specific wire formats: it calls
// the one-method Generator interface and forwards any generation failure
// unchanged to the caller.
//
// Concrete providers live in the anthropic and openai subpackages and are
// selected explicitly at construction time; there is no runtime probing of a
// client's available methods. MockGenerator serves tests and examples.
package model

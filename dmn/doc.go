// Package dmn implements the default-mode-network engine: a three-state
// cognitive-mode machine (Driver), a retrieval curator blending five scored
// strategies under mode-specific weight tables, and the supporting
// synthesizer, brain-break and intrusive-thought components.
//
// The Driver owns the cycle loop. Each cycle takes an explicit CycleContext
// value and returns the next one; there is no shared mutable cycle state.
// The Curator and every other component mutate memory only through the
// Store's public operations, never by reaching into its index or backend.
package dmn

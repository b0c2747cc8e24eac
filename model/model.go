package model

import (
	"context"
	"fmt"
	"sync"
)

// Generator is the minimal capability interface the cognitive engine needs
// from a text-generation provider. Implementations must be safe for
// concurrent use and honor context cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Info returns metadata about the provider implementation.
	Info() Info
}

// Info contains metadata about a generator implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// MockGenerator is a lightweight in-memory Generator useful for tests and
// examples. Register deterministic canned completions per prompt; unknown
// prompts get an echoing default.
type MockGenerator struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	calls     []string
	err       error
}

// Interface compliance (compile-time assertion)
var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator constructs a MockGenerator.
func NewMockGenerator(name string) *MockGenerator {
	return &MockGenerator{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockGenerator) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailWith makes every subsequent Generate call return err.
func (m *MockGenerator) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the prompts seen so far.
func (m *MockGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, prompt)
	if m.err != nil {
		return "", m.err
	}
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// Info implements Generator.
func (m *MockGenerator) Info() Info { return m.info }

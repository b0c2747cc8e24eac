package testutil

import (
	"time"

	"github.com/reverie-ai/reverie/dmn"
)

// ContextBuilder provides a fluent helper for constructing cycle contexts
// in tests.
type ContextBuilder struct {
	cctx dmn.CycleContext
}

// NewContextBuilder creates a builder starting from a fresh active context.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{cctx: dmn.NewCycleContext()}
}

// Mode sets the cognitive mode (chainable).
func (b *ContextBuilder) Mode(m dmn.Mode) *ContextBuilder { b.cctx.Mode = m; return b }

// Chunks sets the working-memory chunks (chainable).
func (b *ContextBuilder) Chunks(chunks ...string) *ContextBuilder {
	b.cctx.Chunks = chunks
	return b
}

// Hypothesis sets the current hypothesis (chainable).
func (b *ContextBuilder) Hypothesis(h string) *ContextBuilder { b.cctx.Hypothesis = h; return b }

// Load sets the working-memory load (chainable).
func (b *ContextBuilder) Load(v float64) *ContextBuilder { b.cctx.WorkingLoad = v; return b }

// Exhaustion appends exhaustion signals (chainable).
func (b *ContextBuilder) Exhaustion(signals ...string) *ContextBuilder {
	b.cctx.ExhaustionSignals = append(b.cctx.ExhaustionSignals, signals...)
	return b
}

// Intrusive appends intrusive thoughts (chainable).
func (b *ContextBuilder) Intrusive(thoughts ...string) *ContextBuilder {
	b.cctx.IntrusiveThoughts = append(b.cctx.IntrusiveThoughts, thoughts...)
	return b
}

// RecentThoughts sets the thoughts queued for consolidation (chainable).
func (b *ContextBuilder) RecentThoughts(thoughts ...string) *ContextBuilder {
	b.cctx.RecentThoughts = thoughts
	return b
}

// Cycle sets the cycle counter (chainable).
func (b *ContextBuilder) Cycle(n int) *ContextBuilder { b.cctx.CycleCount = n; return b }

// LastBreak pins the last break time (chainable).
func (b *ContextBuilder) LastBreak(t time.Time) *ContextBuilder { b.cctx.LastBreak = t; return b }

// Build returns the cycle context value.
func (b *ContextBuilder) Build() dmn.CycleContext { return b.cctx }

package testutil

import (
	"time"

	"github.com/reverie-ai/reverie/memory"
)

// EntryBuilder provides a fluent helper for constructing memory entries in
// tests.
// Example:
//
//	e := NewEntryBuilder().Content("saw a red bird").Importance(0.8).Tag("birds").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EntryBuilder struct {
	content string
	typ     memory.Type
	opts    []memory.EntryOption
}

// NewEntryBuilder creates a builder with default type episodic.
func NewEntryBuilder() *EntryBuilder {
	return &EntryBuilder{content: "test memory", typ: memory.TypeEpisodic}
}

// Content sets the entry content (chainable).
func (b *EntryBuilder) Content(c string) *EntryBuilder { b.content = c; return b }

// Type sets the memory type (chainable).
func (b *EntryBuilder) Type(t memory.Type) *EntryBuilder { b.typ = t; return b }

// ID overrides the auto-generated id. Use mainly where determinism matters.
func (b *EntryBuilder) ID(id string) *EntryBuilder {
	b.opts = append(b.opts, memory.WithID(id))
	return b
}

// Importance sets the importance score (chainable).
func (b *EntryBuilder) Importance(v float64) *EntryBuilder {
	b.opts = append(b.opts, memory.WithImportance(v))
	return b
}

// Valence sets the emotional valence (chainable).
func (b *EntryBuilder) Valence(v float64) *EntryBuilder {
	b.opts = append(b.opts, memory.WithValence(v))
	return b
}

// Confidence sets the confidence score (chainable).
func (b *EntryBuilder) Confidence(v float64) *EntryBuilder {
	b.opts = append(b.opts, memory.WithConfidence(v))
	return b
}

// DecayRate sets the decay rate (chainable).
func (b *EntryBuilder) DecayRate(v float64) *EntryBuilder {
	b.opts = append(b.opts, memory.WithDecayRate(v))
	return b
}

// Source sets the origin (chainable).
func (b *EntryBuilder) Source(s string) *EntryBuilder {
	b.opts = append(b.opts, memory.WithSource(s))
	return b
}

// Tag appends tags (chainable).
func (b *EntryBuilder) Tag(tags ...string) *EntryBuilder {
	b.opts = append(b.opts, memory.WithTags(tags...))
	return b
}

// CreatedAt pins the creation time (chainable).
func (b *EntryBuilder) CreatedAt(t time.Time) *EntryBuilder {
	b.opts = append(b.opts, memory.WithCreatedAt(t))
	return b
}

// Build constructs the memory.Entry value.
func (b *EntryBuilder) Build() *memory.Entry {
	return memory.NewEntry(b.content, b.typ, b.opts...)
}

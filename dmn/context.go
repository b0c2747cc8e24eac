package dmn

import (
	"strings"
	"time"
)

// Mode is one of the three cognitive modes of the engine.
type Mode string

const (
	// ModeActive enables full reasoning with working-memory read/write and
	// no long-term persistence writes.
	ModeActive Mode = "active"
	// ModePartialWake is the brain-break mode: same rights as active,
	// retrieval skewed toward random and creative-associative sources.
	ModePartialWake Mode = "partial_wake"
	// ModeDefault admits no new content; recent working memory is flushed
	// into long-term storage and no retrieval runs.
	ModeDefault Mode = "default"
)

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// CycleContext carries the state of one cognitive cycle. It is an explicit
// value passed into and returned from each cycle call; the driver never
// keeps a shared mutable copy.
type CycleContext struct {
	Mode              Mode
	Chunks            []string
	Hypothesis        string
	WorkingLoad       float64
	ExhaustionSignals []string
	IntrusiveThoughts []string
	RecentThoughts    []string
	CycleCount        int
	LastBreak         time.Time
	Timestamp         time.Time
}

// NewCycleContext returns a fresh context starting in active mode.
func NewCycleContext() CycleContext {
	return CycleContext{Mode: ModeActive, Timestamp: time.Now()}
}

// clone deep-copies the slices so the returned context shares no backing
// arrays with its predecessor.
func (c CycleContext) clone() CycleContext {
	out := c
	out.Chunks = append([]string(nil), c.Chunks...)
	out.ExhaustionSignals = append([]string(nil), c.ExhaustionSignals...)
	out.IntrusiveThoughts = append([]string(nil), c.IntrusiveThoughts...)
	out.RecentThoughts = append([]string(nil), c.RecentThoughts...)
	return out
}

// queryText assembles the retrieval query from the most recent working
// memory, the current hypothesis and recent intrusive thoughts.
func (c CycleContext) queryText() string {
	var parts []string
	if n := len(c.Chunks); n > 0 {
		start := n - 3
		if start < 0 {
			start = 0
		}
		parts = append(parts, c.Chunks[start:]...)
	}
	if c.Hypothesis != "" {
		parts = append(parts, c.Hypothesis)
	}
	if n := len(c.IntrusiveThoughts); n > 0 {
		start := n - 2
		if start < 0 {
			start = 0
		}
		parts = append(parts, c.IntrusiveThoughts[start:]...)
	}
	if len(parts) == 0 {
		return "general thoughts"
	}
	return strings.Join(parts, " ")
}

// Package memory implements the hierarchical memory subsystem: decay-scored
// entries, a multi-key in-process index and the Store that orchestrates both
// together with a pluggable persistence backend.
//
// The Entry value type and its strength formula live in entry.go; the Index
// is fully derived state, rebuildable from the entry set; the Store is the
// single entry point consumers interact with. Durable backends reside in the
// persistence package and are selected at wiring time, keeping the domain
// contracts centralized while allowing storage implementations (SQLite,
// JSON, gob) to be swapped without introducing dependency cycles.
package memory

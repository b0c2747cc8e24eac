// Package persistence contains concrete memory.Backend implementations. The
// backend interface and the canonical record layout reside in the memory
// package; depend on memory.Backend in your code and select an
// implementation here at wiring time.
//
// Three interchangeable backends are provided: SQLite (durable relational
// storage, CGO-free via modernc.org/sqlite), JSON (a single human-readable
// file) and gob (compact binary serialization). All three persist the same
// record layout, so a store can be migrated between backends by loading from
// one and saving into another.
package persistence

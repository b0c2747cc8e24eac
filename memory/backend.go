package memory

import "errors"

// ErrNotFound is returned when an entry for the given id does not exist in
// the underlying backend.
var ErrNotFound = errors.New("memory entry not found")

// Backend defines durable persistence for memory entries. Implementations
// live in the persistence package (SQLite, JSON file, gob file); depend on
// this interface and select an implementation at wiring time.
//
// Save is last-write-wins by id. Backends surface I/O failures as errors;
// the Store catches them at this boundary, logs and degrades, so a backend
// failure never escapes a public Store operation.
type Backend interface {
	Save(e *Entry) error
	Load(id string) (*Entry, error)
	LoadAll() ([]*Entry, error)
	Delete(id string) (bool, error)
	Count() (int, error)
	Backup(path string) error
	ClearAll() error
	Close() error
}

// NullBackend is a Backend that durably stores nothing. It backs purely
// in-memory stores and keeps tests free of filesystem state.
type NullBackend struct{}

// Save implements Backend.
func (NullBackend) Save(*Entry) error { return nil }

// Load implements Backend; every id is unknown.
func (NullBackend) Load(string) (*Entry, error) { return nil, ErrNotFound }

// LoadAll implements Backend.
func (NullBackend) LoadAll() ([]*Entry, error) { return nil, nil }

// Delete implements Backend.
func (NullBackend) Delete(string) (bool, error) { return false, nil }

// Count implements Backend.
func (NullBackend) Count() (int, error) { return 0, nil }

// Backup implements Backend.
func (NullBackend) Backup(string) error { return nil }

// ClearAll implements Backend.
func (NullBackend) ClearAll() error { return nil }

// Close implements Backend.
func (NullBackend) Close() error { return nil }

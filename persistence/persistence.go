package persistence

import (
	"fmt"

	"github.com/reverie-ai/reverie/memory"
)

// Backend kind names accepted by Open.
const (
	KindSQLite = "sqlite"
	KindJSON   = "json"
	KindGob    = "gob"
	KindNone   = "none"
)

// Open constructs a backend by kind name. KindNone yields a NullBackend for
// purely in-memory operation.
func Open(kind, path string) (memory.Backend, error) {
	switch kind {
	case KindSQLite:
		return NewSQLite(path)
	case KindJSON:
		return NewJSONFile(path)
	case KindGob:
		return NewGobFile(path)
	case KindNone, "":
		return memory.NullBackend{}, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", kind)
	}
}

package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reverie-ai/reverie/memory"
)

// GobFile implements memory.Backend with binary serialization via
// encoding/gob. Same atomic replace-on-write discipline as the JSON backend,
// but compact and fast to decode; the payload is the canonical record slice,
// so gob files interoperate with the other backends.
type GobFile struct {
	path string
}

// Interface compliance (compile-time assertion)
var _ memory.Backend = (*GobFile)(nil)

// NewGobFile creates a gob-file backend at the given path.
func NewGobFile(path string) (*GobFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	b := &GobFile{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := b.writeRecords(nil); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *GobFile) readRecords() ([]memory.Record, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var recs []memory.Record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return recs, nil
}

func (b *GobFile) writeRecords(recs []memory.Record) error {
	if recs == nil {
		recs = []memory.Record{}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(recs); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

// Save implements Backend. An existing record with the same id is replaced.
func (b *GobFile) Save(e *memory.Entry) error {
	recs, err := b.readRecords()
	if err != nil {
		return err
	}
	rec := e.ToRecord()
	replaced := false
	for i := range recs {
		if recs[i].ID == rec.ID {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return b.writeRecords(recs)
}

// Load implements Backend.
func (b *GobFile) Load(id string) (*memory.Entry, error) {
	recs, err := b.readRecords()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.ID == id {
			return memory.FromRecord(rec)
		}
	}
	return nil, memory.ErrNotFound
}

// LoadAll implements Backend.
func (b *GobFile) LoadAll() ([]*memory.Entry, error) {
	recs, err := b.readRecords()
	if err != nil {
		return nil, err
	}
	entries := make([]*memory.Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := memory.FromRecord(rec)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Delete implements Backend.
func (b *GobFile) Delete(id string) (bool, error) {
	recs, err := b.readRecords()
	if err != nil {
		return false, err
	}
	filtered := recs[:0]
	for _, rec := range recs {
		if rec.ID != id {
			filtered = append(filtered, rec)
		}
	}
	if len(filtered) == len(recs) {
		return false, nil
	}
	return true, b.writeRecords(filtered)
}

// Count implements Backend.
func (b *GobFile) Count() (int, error) {
	recs, err := b.readRecords()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Backup implements Backend by copying the storage file.
func (b *GobFile) Backup(path string) error {
	return copyFile(b.path, path)
}

// ClearAll implements Backend.
func (b *GobFile) ClearAll() error {
	return b.writeRecords(nil)
}

// Close implements Backend; the file backend holds no open handles.
func (b *GobFile) Close() error { return nil }

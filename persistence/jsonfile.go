package persistence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/reverie-ai/reverie/memory"
)

// JSONFile implements memory.Backend on a single JSON file holding an array
// of canonical records. Writes replace the whole file atomically (write to a
// temp file, then rename), so a crash mid-save never corrupts the store.
type JSONFile struct {
	path string
}

// Interface compliance (compile-time assertion)
var _ memory.Backend = (*JSONFile)(nil)

// NewJSONFile creates a JSON-file backend at the given path. The file is
// initialized with an empty array if it does not exist yet.
func NewJSONFile(path string) (*JSONFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	b := &JSONFile{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := b.writeRecords(nil); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *JSONFile) readRecords() ([]memory.Record, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	var recs []memory.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return recs, nil
}

func (b *JSONFile) writeRecords(recs []memory.Record) error {
	if recs == nil {
		recs = []memory.Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

// Save implements Backend. An existing record with the same id is replaced.
func (b *JSONFile) Save(e *memory.Entry) error {
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
func (b *JSONFile) Load(id string) (*memory.Entry, error) {
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

// LoadAll implements Backend. Records that fail to decode are skipped.
func (b *JSONFile) LoadAll() ([]*memory.Entry, error) {
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
func (b *JSONFile) Delete(id string) (bool, error) {
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
func (b *JSONFile) Count() (int, error) {
	recs, err := b.readRecords()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Backup implements Backend by copying the storage file.
func (b *JSONFile) Backup(path string) error {
	return copyFile(b.path, path)
}

// ClearAll implements Backend.
func (b *JSONFile) ClearAll() error {
	return b.writeRecords(nil)
}

// Close implements Backend; the file backend holds no open handles.
func (b *JSONFile) Close() error { return nil }

func copyFile(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Sync()
}

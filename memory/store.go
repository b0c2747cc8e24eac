package memory

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/reverie-ai/reverie/logging"
)

const (
	consolidationImportanceBoost = 0.05
	consolidationDecayPenalty    = 0.1
	consolidationAccessThreshold = 5
	consolidationStaleAge        = 30 * 24 * time.Hour
	consolidationStaleAccessMax  = 2
)

// Store orchestrates the Index and a persistence Backend behind one
// process-wide mutex. Every public operation holds the lock for its full
// duration, which fully serializes access. Sharding the lock is the first
// thing to revisit if contention shows up.
//
// Persistence is the sole source of truth; the Index is derived state
// rebuilt from it at startup. On a failed write-through the Index is not
// rolled back, leaving a logged inconsistency window until the next
// successful save.
type Store struct {
	mu      sync.Mutex
	index   *Index
	backend Backend
	logger  logging.Logger

	capacity int
	autoSave bool
	interval time.Duration
	now      func() time.Time
	rng      *rand.Rand

	joinTimeout time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	closeOnce   sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCapacity bounds the working set; after any insert that exceeds the
// cap, the globally weakest entries by Strength are evicted. Zero means
// unlimited.
func WithCapacity(n int) StoreOption {
	return func(s *Store) { s.capacity = n }
}

// WithConsolidationInterval sets how often the background consolidation
// pass runs. Zero disables the worker.
func WithConsolidationInterval(d time.Duration) StoreOption {
	return func(s *Store) { s.interval = d }
}

// WithAutoSave toggles write-through persistence on every mutation. Enabled
// by default; disable for ephemeral stores that only call SaveAll on close.
func WithAutoSave(enabled bool) StoreOption {
	return func(s *Store) { s.autoSave = enabled }
}

// WithLogger sets the logger. Defaults to NoOpLogger.
func WithLogger(l logging.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the time source, pinning Strength and consolidation
// decisions in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand injects the randomness source used by sampling helpers.
func WithRand(rng *rand.Rand) StoreOption {
	return func(s *Store) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// NewStore creates a store over the given backend, loads every persisted
// entry into the index and starts the consolidation worker when an interval
// is configured. A nil backend falls back to NullBackend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	if backend == nil {
		backend = NullBackend{}
	}
	s := &Store{
		backend:     backend,
		logger:      logging.NoOpLogger{},
		autoSave:    true,
		interval:    time.Hour,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		joinTimeout: 5 * time.Second,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.index = NewIndexWithClock(s.now)

	s.loadExisting()

	if s.interval > 0 {
		go s.consolidationWorker()
	} else {
		close(s.doneCh)
	}
	return s
}

// loadExisting rebuilds the index from the backend. A load failure is
// logged and the store starts empty rather than refusing to come up.
func (s *Store) loadExisting() {
	entries, err := s.backend.LoadAll()
	if err != nil {
		s.logger.Error("failed to load existing memories", "error", err)
		return
	}
	for _, e := range entries {
		s.index.Add(e)
	}
	s.logger.Info("loaded existing memories", "count", len(entries))
}

// Store creates a new entry from content and type, indexes it, writes it
// through and enforces the capacity cap. Returns the entry id.
func (s *Store) Store(content string, typ Type, opts ...EntryOption) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := NewEntry(content, typ, opts...)
	s.index.Add(e)
	s.persist(e)

	if s.capacity > 0 && s.index.Len() > s.capacity {
		s.evictWeakest(s.index.Len() - s.capacity)
	}

	s.logger.Debug("stored memory", "id", e.ID, "type", string(typ))
	return e.ID
}

// Retrieve returns the entry with the given id, bumping its access
// statistics. A read is also a write here: relevance compounds with
// use. Returns nil for unknown ids.
func (s *Store) Retrieve(id string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.index.Get(id)
	if e == nil {
		return nil
	}
	s.touch(e)
	return e.Clone()
}

// touch bumps access statistics, re-indexes and persists. Caller holds the lock.
func (s *Store) touch(e *Entry) {
	e.UpdateAccess(s.now())
	s.index.Update(e)
	s.persist(e)
}

// persist writes the entry through to the backend when auto-save is on.
// Failures are logged, not propagated; the index keeps the new state.
func (s *Store) persist(e *Entry) {
	if !s.autoSave {
		return
	}
	if err := s.backend.Save(e); err != nil {
		s.logger.Error("failed to persist memory", "id", e.ID, "error", err)
	}
}

// Patch selects the fields Update should change. Nil pointers leave the
// field untouched; a non-nil Tags slice replaces the whole tag set. Bounded
// values are clamped, never rejected.
type Patch struct {
	Content    *string
	Importance *float64
	Valence    *float64
	Confidence *float64
	DecayRate  *float64
	Tags       []string
}

// Update applies a field patch to an existing entry, re-indexes it as a
// remove-then-add and writes it through. Returns false for unknown ids.
func (s *Store) Update(id string, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.index.Get(id)
	if e == nil {
		return false
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Importance != nil {
		e.Metadata.Importance = *p.Importance
	}
	if p.Valence != nil {
		e.Metadata.Valence = *p.Valence
	}
	if p.Confidence != nil {
		e.Metadata.Confidence = *p.Confidence
	}
	if p.DecayRate != nil {
		e.Metadata.DecayRate = *p.DecayRate
	}
	if p.Tags != nil {
		e.Metadata.tags = make(map[string]struct{}, len(p.Tags))
		for _, tag := range p.Tags {
			e.Metadata.tags[tag] = struct{}{}
		}
	}
	e.Metadata.normalize()

	s.index.Update(e)
	s.persist(e)
	return true
}

// Delete removes the entry from the index and the backend. Returns false
// for unknown ids.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) bool {
	if !s.index.Remove(id) {
		return false
	}
	if s.autoSave {
		if _, err := s.backend.Delete(id); err != nil {
			s.logger.Error("failed to delete persisted memory", "id", id, "error", err)
		}
	}
	return true
}

// AddTag attaches a tag to an entry. Idempotent; returns false for unknown ids.
func (s *Store) AddTag(id, tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.index.Get(id)
	if e == nil {
		return false
	}
	e.AddTag(tag)
	s.index.Update(e)
	s.persist(e)
	return true
}

// RemoveTag detaches a tag from an entry. Idempotent; returns false for
// unknown ids.
func (s *Store) RemoveTag(id, tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.index.Get(id)
	if e == nil {
		return false
	}
	e.RemoveTag(tag)
	s.index.Update(e)
	s.persist(e)
	return true
}

// Strongest returns up to k entries ordered by Strength descending.
func (s *Store) Strongest(k int) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.index.Strongest(k))
}

// Recent returns entries accessed within the given window, most recent
// first, truncated to limit (<= 0 means unlimited).
func (s *Store) Recent(within time.Duration, limit int) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.index.RecentlyAccessed(within)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return cloneAll(entries)
}

// Sample returns up to k uniformly sampled entries. Used by the random
// retrieval strategy.
func (s *Store) Sample(k int) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, s.index.Len())
	for id := range s.index.IDs() {
		ids = append(ids, id)
	}
	s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if k > len(ids) {
		k = len(ids)
	}
	out := make([]*Entry, 0, k)
	for _, id := range ids[:k] {
		out = append(out, s.index.Get(id).Clone())
	}
	return out
}

// All returns a snapshot of every entry. Intended for strategies that scan
// the whole working set (creative association); bounded stores keep this cheap.
func (s *Store) All() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, s.index.Len())
	for id := range s.index.IDs() {
		out = append(out, s.index.Get(id).Clone())
	}
	return out
}

// Len returns the number of entries in the working set.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Len()
}

// Contains reports whether the id exists in the working set.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Contains(id)
}

// Statistics returns a combined snapshot of index and backend state.
func (s *Store) Statistics() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.index.Statistics()
	if count, err := s.backend.Count(); err == nil {
		stats["persisted_count"] = count
	} else {
		s.logger.Error("failed to count persisted memories", "error", err)
	}
	stats["auto_save"] = s.autoSave
	stats["capacity"] = s.capacity
	stats["consolidation_interval"] = s.interval.String()
	return stats
}

// Backup asks the backend to write a consistent copy to path.
func (s *Store) Backup(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Backup(path); err != nil {
		s.logger.Error("backup failed", "path", path, "error", err)
		return false
	}
	return true
}

// ClearAll drops every entry from the index and the backend.
func (s *Store) ClearAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Clear()
	if err := s.backend.ClearAll(); err != nil {
		s.logger.Error("failed to clear backend", "error", err)
		return false
	}
	return true
}

// SaveAll flushes every indexed entry to the backend regardless of the
// auto-save setting.
func (s *Store) SaveAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAllLocked()
}

func (s *Store) saveAllLocked() bool {
	ok := true
	for id := range s.index.IDs() {
		e := s.index.Get(id)
		if e == nil {
			continue
		}
		if err := s.backend.Save(e); err != nil {
			s.logger.Error("failed to save memory", "id", e.ID, "error", err)
			ok = false
		}
	}
	return ok
}

// evictWeakest removes the n globally weakest entries by Strength. Caller
// holds the lock.
func (s *Store) evictWeakest(n int) {
	now := s.now()
	type scored struct {
		id       string
		strength float64
	}
	all := make([]scored, 0, s.index.Len())
	for id := range s.index.IDs() {
		e := s.index.Get(id)
		all = append(all, scored{id: id, strength: e.Strength(now)})
	}
	// weakest first
	for i := 0; i < n && i < len(all); i++ {
		min := i
		for j := i + 1; j < len(all); j++ {
			if all[j].strength < all[min].strength {
				min = j
			}
		}
		all[i], all[min] = all[min], all[i]
		s.deleteLocked(all[i].id)
	}
	s.logger.Info("evicted weak memories", "count", n)
}

// consolidationWorker runs the periodic consolidation pass until Close.
func (s *Store) consolidationWorker() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Consolidate()
		}
	}
}

// Consolidate runs one consolidation pass: frequently accessed entries gain
// importance (capped at 1.0), old rarely-accessed entries decay faster.
// Exposed so the cognitive driver can force a pass in DEFAULT mode.
func (s *Store) Consolidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	boosted, weakened := 0, 0
	for id := range s.index.IDs() {
		e := s.index.Get(id)
		if e == nil {
			continue
		}
		changed := false

		if e.Metadata.AccessCount > consolidationAccessThreshold {
			next := clamp(e.Metadata.Importance+consolidationImportanceBoost, 0, 1)
			if next != e.Metadata.Importance {
				e.Metadata.Importance = next
				boosted++
				changed = true
			}
		}

		if now.Sub(e.Metadata.CreatedAt) > consolidationStaleAge &&
			e.Metadata.AccessCount < consolidationStaleAccessMax {
			e.Metadata.DecayRate = clamp(e.Metadata.DecayRate+consolidationDecayPenalty, 0, 1)
			weakened++
			changed = true
		}

		if changed {
			s.index.Update(e)
			s.persist(e)
		}
	}
	if boosted > 0 || weakened > 0 {
		s.logger.Debug("consolidation pass", "boosted", boosted, "weakened", weakened)
	}
}

// ErrShutdownTimeout is logged when the consolidation worker does not stop
// within the join bound on Close. Shutdown proceeds regardless.
var ErrShutdownTimeout = errors.New("consolidation worker join timed out")

// Close stops the consolidation worker (bounded join), flushes every entry
// and closes the backend.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		select {
		case <-s.doneCh:
		case <-time.After(s.joinTimeout):
			s.logger.Error("shutdown", "error", ErrShutdownTimeout)
		}
		s.SaveAll()
		err = s.backend.Close()
	})
	return err
}

func cloneAll(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Clone())
	}
	return out
}

package memory

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// Interface compliance (compile-time assertions)
var (
	_ Backend = NullBackend{}
	_ Backend = (*fakeBackend)(nil)
)

// fakeBackend records calls and can be made to fail, standing in for a
// persistence implementation.
type fakeBackend struct {
	mu      sync.Mutex
	saved   map[string]*Entry
	deleted []string
	failing bool
	closed  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{saved: make(map[string]*Entry)}
}

func (b *fakeBackend) Save(e *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return errors.New("backend down")
	}
	b.saved[e.ID] = e.Clone()
	return nil
}

func (b *fakeBackend) Load(id string) (*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.saved[id]; ok {
		return e.Clone(), nil
	}
	return nil, ErrNotFound
}

func (b *fakeBackend) LoadAll() ([]*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return nil, errors.New("backend down")
	}
	out := make([]*Entry, 0, len(b.saved))
	for _, e := range b.saved {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (b *fakeBackend) Delete(id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return false, errors.New("backend down")
	}
	_, ok := b.saved[id]
	delete(b.saved, id)
	b.deleted = append(b.deleted, id)
	return ok, nil
}

func (b *fakeBackend) Count() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saved), nil
}

func (b *fakeBackend) Backup(string) error { return nil }

func (b *fakeBackend) ClearAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = make(map[string]*Entry)
	return nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func newTestStore(t *testing.T, backend Backend, opts ...StoreOption) *Store {
	t.Helper()
	base := []StoreOption{
		WithConsolidationInterval(0), // no background worker in tests
		WithRand(rand.New(rand.NewSource(1))),
	}
	s := NewStore(backend, append(base, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_StoreRetrieveDelete(t *testing.T) {
	backend := newFakeBackend()
	s := newTestStore(t, backend)

	id := s.Store("crossed the old bridge at dawn", TypeEpisodic, WithTags("travel"))
	if id == "" {
		t.Fatal("expected entry id")
	}
	if !s.Contains(id) || s.Len() != 1 {
		t.Fatal("expected entry in working set")
	}

	e := s.Retrieve(id)
	if e == nil || e.Content != "crossed the old bridge at dawn" {
		t.Fatalf("unexpected retrieval: %+v", e)
	}
	// a read is also a write
	if e.Metadata.AccessCount != 1 {
		t.Fatalf("expected access bump, got %d", e.Metadata.AccessCount)
	}
	// mutating the returned entry must not touch the stored one
	e.Content = "mutated"
	if again := s.Retrieve(id); again.Content != "crossed the old bridge at dawn" {
		t.Fatal("expected clone isolation")
	}

	// write-through happened
	if _, err := backend.Load(id); err != nil {
		t.Fatalf("expected persisted entry: %v", err)
	}

	if !s.Delete(id) {
		t.Fatal("expected delete to succeed")
	}
	if s.Delete(id) {
		t.Fatal("expected second delete to fail")
	}
	if s.Retrieve(id) != nil {
		t.Fatal("expected nil after delete")
	}
	if _, err := backend.Load(id); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected backend delete")
	}
}

func TestStore_LoadsExistingOnStartup(t *testing.T) {
	backend := newFakeBackend()
	seed := NewEntry("persisted earlier", TypeSemantic, WithID("seed"))
	if err := backend.Save(seed); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}

	s := newTestStore(t, backend)
	if !s.Contains("seed") {
		t.Fatal("expected startup load from backend")
	}
}

func TestStore_StartsEmptyOnLoadFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failing = true

	s := NewStore(backend, WithConsolidationInterval(0))
	if s.Len() != 0 {
		t.Fatal("expected empty store after failed load")
	}
}

func TestStore_UpdatePatch(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	id := s.Store("draft", TypeWorking)

	content := "final"
	importance := 5.0 // clamped to 1
	if !s.Update(id, Patch{Content: &content, Importance: &importance, Tags: []string{"done"}}) {
		t.Fatal("expected update to succeed")
	}

	e := s.Retrieve(id)
	if e.Content != "final" || e.Metadata.Importance != 1 || !e.HasTag("done") {
		t.Fatalf("patch not applied: %+v", e)
	}

	if s.Update("missing", Patch{Content: &content}) {
		t.Fatal("expected update of unknown id to fail")
	}
}

func TestStore_Tagging(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	id := s.Store("taggable", TypeEpisodic)

	if !s.AddTag(id, "later") || s.AddTag("missing", "later") {
		t.Fatal("unexpected AddTag results")
	}
	if e := s.Retrieve(id); !e.HasTag("later") {
		t.Fatal("expected tag attached")
	}
	if !s.RemoveTag(id, "later") {
		t.Fatal("expected RemoveTag to succeed")
	}
	if e := s.Retrieve(id); e.HasTag("later") {
		t.Fatal("expected tag detached")
	}
}

func TestStore_RemoveTagDropsSearchability(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	id := s.Store("mooring checklist", TypeProcedural, WithTags("keep", "drop"))

	if !s.RemoveTag(id, "drop") {
		t.Fatal("expected RemoveTag to succeed")
	}
	if got := s.Search(Query{Tags: []string{"drop"}}); len(got) != 0 {
		t.Fatalf("expected no hits under a removed tag, got %d", len(got))
	}
	if got := s.Search(Query{Tags: []string{"keep"}}); len(got) != 1 {
		t.Fatalf("expected the entry under its remaining tag, got %d", len(got))
	}
	dist := s.Statistics()["tag_distribution"].(map[string]int)
	if _, ok := dist["drop"]; ok {
		t.Fatalf("expected removed tag count gone, got %v", dist)
	}
}

func TestStore_UpdateContentDropsStaleTokens(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	id := s.Store("sailing knots", TypeProcedural)

	content := "weather patterns"
	if !s.Update(id, Patch{Content: &content}) {
		t.Fatal("expected update to succeed")
	}
	if got := s.Search(Query{Text: "knots"}); len(got) != 0 {
		t.Fatalf("expected no hits for the replaced content, got %d", len(got))
	}
	if got := s.Search(Query{Text: "weather"}); len(got) != 1 {
		t.Fatalf("expected the new content indexed, got %d", len(got))
	}
}

func TestStore_RetrieveAcrossDaysKeepsOnePosting(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	s := newTestStore(t, newFakeBackend(), WithClock(func() time.Time { return clock }))

	id := s.Store("harbor log", TypeEpisodic, WithCreatedAt(start))

	// next-day access moves the entry's accessed-day bucket
	clock = start.Add(25 * time.Hour)
	if s.Retrieve(id) == nil {
		t.Fatal("expected entry present")
	}

	recent := s.Recent(48*time.Hour, 10)
	if len(recent) != 1 {
		t.Fatalf("expected the entry once across day buckets, got %d", len(recent))
	}
}

func TestStore_CapacityEvictsWeakest(t *testing.T) {
	s := newTestStore(t, newFakeBackend(), WithCapacity(2))

	weak := s.Store("weak", TypeEpisodic, WithImportance(0.1), WithConfidence(0.1))
	strong := s.Store("strong", TypeEpisodic, WithImportance(1), WithConfidence(1))
	mid := s.Store("mid", TypeEpisodic, WithImportance(0.5), WithConfidence(0.5))

	if s.Len() != 2 {
		t.Fatalf("expected capacity enforced, len=%d", s.Len())
	}
	if s.Contains(weak) {
		t.Fatal("expected the weakest entry evicted")
	}
	if !s.Contains(strong) || !s.Contains(mid) {
		t.Fatal("expected stronger entries kept")
	}
}

func TestStore_PersistenceFailureDegrades(t *testing.T) {
	backend := newFakeBackend()
	s := newTestStore(t, backend)

	backend.failing = true
	id := s.Store("unsaved", TypeEpisodic)

	// the index keeps the new state despite the failed write-through
	if !s.Contains(id) {
		t.Fatal("expected entry in index after failed persist")
	}

	backend.failing = false
	if !s.SaveAll() {
		t.Fatal("expected SaveAll to succeed once the backend recovers")
	}
	if _, err := backend.Load(id); err != nil {
		t.Fatalf("expected entry flushed: %v", err)
	}
}

func TestStore_ConsolidatePass(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, newFakeBackend(), WithClock(fixedClock(now)))

	hot := s.Store("frequently used", TypeSemantic,
		WithImportance(0.5), WithCreatedAt(now.Add(-time.Hour)))
	for i := 0; i < 6; i++ {
		s.Retrieve(hot)
	}
	stale := s.Store("forgotten", TypeEpisodic,
		WithDecayRate(0.1), WithCreatedAt(now.Add(-40*24*time.Hour)))

	s.Consolidate()

	if e := s.Retrieve(hot); math.Abs(e.Metadata.Importance-0.55) > 1e-9 {
		t.Fatalf("expected importance boost to 0.55, got %f", e.Metadata.Importance)
	}
	if e := s.Retrieve(stale); math.Abs(e.Metadata.DecayRate-0.2) > 1e-9 {
		t.Fatalf("expected decay penalty to 0.2, got %f", e.Metadata.DecayRate)
	}
}

func TestStore_ConsolidateCapsImportance(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, newFakeBackend(), WithClock(fixedClock(now)))

	id := s.Store("maxed", TypeSemantic, WithImportance(1), WithCreatedAt(now))
	for i := 0; i < 6; i++ {
		s.Retrieve(id)
	}
	s.Consolidate()

	if e := s.Retrieve(id); e.Metadata.Importance != 1 {
		t.Fatalf("expected importance capped at 1, got %f", e.Metadata.Importance)
	}
}

func TestStore_SampleAndAll(t *testing.T) {
	s := newTestStore(t, newFakeBackend())
	for i := 0; i < 5; i++ {
		s.Store("entry", TypeEpisodic)
	}

	if got := s.Sample(3); len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	if got := s.Sample(10); len(got) != 5 {
		t.Fatalf("expected sample truncated to population, got %d", len(got))
	}
	if got := s.All(); len(got) != 5 {
		t.Fatalf("expected full snapshot, got %d", len(got))
	}
}

func TestStore_ClearAllAndStatistics(t *testing.T) {
	backend := newFakeBackend()
	s := newTestStore(t, backend)
	s.Store("a", TypeEpisodic, WithTags("x"))
	s.Store("b", TypeSemantic)

	stats := s.Statistics()
	if stats["total_entries"].(int) != 2 || stats["persisted_count"].(int) != 2 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	if !s.ClearAll() {
		t.Fatal("expected ClearAll to succeed")
	}
	if s.Len() != 0 {
		t.Fatal("expected empty working set")
	}
	if n, _ := backend.Count(); n != 0 {
		t.Fatal("expected empty backend")
	}
}

func TestStore_CloseFlushesAndStopsWorker(t *testing.T) {
	backend := newFakeBackend()
	s := NewStore(backend,
		WithAutoSave(false),
		WithConsolidationInterval(time.Hour),
	)
	id := s.Store("flushed on close", TypeEpisodic)

	if _, err := backend.Load(id); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected no write-through with auto-save off")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := backend.Load(id); err != nil {
		t.Fatalf("expected flush on close: %v", err)
	}
	if !backend.closed {
		t.Fatal("expected backend closed")
	}
	// Close is idempotent
	if err := s.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t, newFakeBackend())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				id := s.Store("concurrent", TypeWorking)
				s.Retrieve(id)
				s.Strongest(3)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 200 {
		t.Fatalf("expected 200 entries, got %d", s.Len())
	}
}

package memory

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIndex_AddGetRemove(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	e := NewEntry("the red fox", TypeEpisodic,
		WithID("e1"),
		WithCreatedAt(now),
		WithTags("animals"),
		WithSource("field"),
	)
	ix.Add(e)

	if !ix.Contains("e1") || ix.Len() != 1 {
		t.Fatalf("expected indexed entry, len=%d", ix.Len())
	}
	if got := ix.Get("e1"); got != e {
		t.Fatal("expected same entry pointer back")
	}
	if ids := ix.IDsByTag("animals"); len(ids) != 1 {
		t.Fatalf("tag index missed the entry: %v", ids)
	}
	if ids := ix.IDsBySource("field"); len(ids) != 1 {
		t.Fatalf("source index missed the entry: %v", ids)
	}
	if ids := ix.IDsByType(TypeEpisodic); len(ids) != 1 {
		t.Fatalf("type index missed the entry: %v", ids)
	}

	if !ix.Remove("e1") {
		t.Fatal("expected removal to succeed")
	}
	if ix.Remove("e1") {
		t.Fatal("expected second removal to fail")
	}
	if ix.Len() != 0 || len(ix.IDsByTag("animals")) != 0 || len(ix.SearchContent("fox", 0)) != 0 {
		t.Fatal("expected every sub-index cleaned up")
	}
}

func TestIndex_UpdateReindexes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	e := NewEntry("sailing knots", TypeProcedural, WithID("e1"), WithCreatedAt(now), WithTags("boats"))
	ix.Add(e)

	e.Content = "weather patterns"
	e.RemoveTag("boats")
	e.AddTag("weather")
	ix.Update(e)

	if len(ix.SearchContent("knots", 0)) != 0 {
		t.Fatal("expected stale token dropped")
	}
	if len(ix.SearchContent("weather", 0)) != 1 {
		t.Fatal("expected new token indexed")
	}
	if len(ix.IDsByTag("boats")) != 0 || len(ix.IDsByTag("weather")) != 1 {
		t.Fatal("expected tag index refreshed")
	}
	if tags := ix.PopularTags(0); len(tags) != 1 || tags[0].Tag != "weather" || tags[0].Count != 1 {
		t.Fatalf("expected stale tag count dropped, got %v", tags)
	}
}

func TestIndex_UpdateMovesAccessDayBucket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	e := NewEntry("tide table", TypeSemantic, WithID("e1"), WithCreatedAt(now))
	ix.Add(e)

	e.UpdateAccess(now.Add(48 * time.Hour))
	ix.Update(e)

	// a stale posting in the old day bucket would surface the entry twice
	got := ix.ByDateRange(now.Add(-24*time.Hour), now.Add(72*time.Hour), false)
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("expected exactly one posting across day buckets, got %v", got)
	}
}

func TestIndex_SearchContentANDSemantics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	ix.Add(NewEntry("red fox in the forest", TypeEpisodic, WithID("a"), WithCreatedAt(now)))
	ix.Add(NewEntry("red car on the road", TypeEpisodic, WithID("b"), WithCreatedAt(now)))
	ix.Add(NewEntry("blue sky", TypeEpisodic, WithID("c"), WithCreatedAt(now)))

	// every query token must match
	matches := ix.SearchContent("red fox", 0)
	if len(matches) != 1 || matches[0].Entry.ID != "a" {
		t.Fatalf("expected only the fox entry, got %v", matches)
	}
	if matches[0].Score != 1 {
		t.Fatalf("expected full overlap score, got %f", matches[0].Score)
	}

	if got := ix.SearchContent("red submarine", 0); got != nil {
		t.Fatalf("expected no match when a token is absent, got %v", got)
	}
	if got := ix.SearchContent("...", 0); got != nil {
		t.Fatalf("expected nil for tokenless query, got %v", got)
	}

	// limit truncates after ranking
	if got := ix.SearchContent("red", 1); len(got) != 1 {
		t.Fatalf("expected truncation to 1, got %d", len(got))
	}
}

func TestIndex_StrongestOrdering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	ix.Add(NewEntry("weak", TypeSemantic, WithID("w"), WithCreatedAt(now), WithImportance(0.1), WithConfidence(0.1)))
	ix.Add(NewEntry("mid", TypeSemantic, WithID("m"), WithCreatedAt(now), WithImportance(0.5), WithConfidence(0.5)))
	ix.Add(NewEntry("strong", TypeSemantic, WithID("s"), WithCreatedAt(now), WithImportance(1), WithConfidence(1)))

	top := ix.Strongest(2)
	if len(top) != 2 || top[0].ID != "s" || top[1].ID != "m" {
		t.Fatalf("unexpected ordering: %v", top)
	}

	ranged := ix.ByStrengthRange(0.2, 0.8)
	if len(ranged) != 1 || ranged[0].ID != "m" {
		t.Fatalf("expected only mid in range, got %v", ranged)
	}
}

func TestIndex_RecentlyAccessed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	old := NewEntry("old", TypeEpisodic, WithID("old"), WithCreatedAt(now.Add(-72*time.Hour)))
	ix.Add(old)
	fresh := NewEntry("fresh", TypeEpisodic, WithID("fresh"), WithCreatedAt(now.Add(-48*time.Hour)))
	fresh.UpdateAccess(now.Add(-time.Hour))
	ix.Add(fresh)

	recent := ix.RecentlyAccessed(2 * time.Hour)
	if len(recent) != 1 || recent[0].ID != "fresh" {
		t.Fatalf("expected only the freshly accessed entry, got %v", recent)
	}
}

func TestIndex_PopularTagsAndStatistics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ix := NewIndexWithClock(fixedClock(now))

	ix.Add(NewEntry("a", TypeEpisodic, WithID("1"), WithCreatedAt(now), WithTags("x", "y")))
	ix.Add(NewEntry("b", TypeSemantic, WithID("2"), WithCreatedAt(now), WithTags("x")))

	tags := ix.PopularTags(0)
	if len(tags) != 2 || tags[0].Tag != "x" || tags[0].Count != 2 {
		t.Fatalf("unexpected tag ranking: %v", tags)
	}

	stats := ix.Statistics()
	if stats["total_entries"].(int) != 2 {
		t.Fatalf("unexpected stats: %v", stats)
	}
	dist := stats["type_distribution"].(map[string]int)
	if dist["episodic"] != 1 || dist["semantic"] != 1 {
		t.Fatalf("unexpected type distribution: %v", dist)
	}

	ix.Clear()
	if ix.Len() != 0 || len(ix.PopularTags(0)) != 0 {
		t.Fatal("expected cleared index")
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The quick-brown FOX, 42 foxes!")
	for _, want := range []string{"the", "quick", "brown", "fox", "foxes"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("missing token %q in %v", want, tokens)
		}
	}
	if _, ok := tokens["42"]; ok {
		t.Fatal("digits are not tokens")
	}
}

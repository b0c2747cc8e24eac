package memory

import (
	"testing"
	"time"
)

func seedSearchStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s := newTestStore(t, newFakeBackend(), WithClock(fixedClock(now)))

	s.Store("watched the storm roll over the bay", TypeEpisodic,
		WithID("storm"), WithCreatedAt(now.Add(-time.Hour)),
		WithImportance(0.9), WithTags("weather", "sea"), WithSource("journal"))
	s.Store("storms form over warm water", TypeSemantic,
		WithID("fact"), WithCreatedAt(now.Add(-48*time.Hour)),
		WithImportance(0.6), WithTags("weather"), WithSource("book"))
	s.Store("reef the sails before the storm hits", TypeProcedural,
		WithID("skill"), WithCreatedAt(now.Add(-24*time.Hour)),
		WithImportance(0.4), WithTags("sailing"), WithSource("journal"))
	s.Store("quiet morning, no wind", TypeEpisodic,
		WithID("calm"), WithCreatedAt(now.Add(-time.Hour)),
		WithImportance(0.2), WithTags("sea"), WithSource("journal"))
	return s
}

func TestSearch_FiltersCompose(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	s := seedSearchStore(t, now)

	// type alone
	if got := s.Search(Query{Type: TypeEpisodic}); len(got) != 2 {
		t.Fatalf("expected 2 episodic entries, got %d", len(got))
	}

	// tag + source intersect
	got := s.Search(Query{Tags: []string{"weather"}, Source: "journal"})
	if len(got) != 1 || got[0].ID != "storm" {
		t.Fatalf("expected only the journal weather entry, got %v", got)
	}

	// text + type intersect; "storm"/"storms" do not stem together
	got = s.Search(Query{Text: "storm", Type: TypeProcedural})
	if len(got) != 1 || got[0].ID != "skill" {
		t.Fatalf("expected only the procedural storm entry, got %v", got)
	}

	// no filters returns everything
	if got := s.Search(Query{}); len(got) != 4 {
		t.Fatalf("expected all entries, got %d", len(got))
	}

	// disjoint filters return nothing
	if got := s.Search(Query{Type: TypeSemantic, Source: "journal"}); len(got) != 0 {
		t.Fatalf("expected no match, got %v", got)
	}
}

func TestSearch_StrengthRange(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	s := seedSearchStore(t, now)

	weak := s.Search(Query{MaxStrength: 0.65})
	if len(weak) != 2 {
		t.Fatalf("expected 2 weak entries, got %d", len(weak))
	}
	for _, e := range weak {
		if e.ID == "storm" || e.ID == "fact" {
			t.Fatalf("entry above max strength: %s", e.ID)
		}
	}

	strong := s.Search(Query{MinStrength: 0.9})
	if len(strong) != 1 || strong[0].ID != "storm" {
		t.Fatalf("expected only the storm entry, got %v", strong)
	}
}

func TestSearch_SortAndLimit(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	s := seedSearchStore(t, now)

	byImportance := s.Search(Query{SortBy: SortByImportance})
	for i := 1; i < len(byImportance); i++ {
		if byImportance[i].Metadata.Importance > byImportance[i-1].Metadata.Importance {
			t.Fatal("expected importance descending")
		}
	}

	byCreation := s.Search(Query{SortBy: SortByCreation, Limit: 2})
	if len(byCreation) != 2 {
		t.Fatalf("expected limit applied, got %d", len(byCreation))
	}
	if byCreation[0].Metadata.CreatedAt.Before(byCreation[1].Metadata.CreatedAt) {
		t.Fatal("expected newest first")
	}

	byStrength := s.Search(Query{})
	for i := 1; i < len(byStrength); i++ {
		if byStrength[i].Strength(now) > byStrength[i-1].Strength(now)+1e-9 {
			t.Fatal("expected strength descending by default")
		}
	}
}

func TestSearch_TouchesResults(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	s := seedSearchStore(t, now)

	before := s.Retrieve("storm").Metadata.AccessCount

	s.Search(Query{Tags: []string{"weather"}, Source: "journal"})

	after := s.Retrieve("storm").Metadata.AccessCount
	// one bump from the search plus one from each Retrieve above
	if after != before+2 {
		t.Fatalf("expected search to bump access count, got %d -> %d", before, after)
	}
}

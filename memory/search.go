package memory

import (
	"sort"
	"time"
)

// Sort orders for search results.
const (
	SortByStrength   = "strength"
	SortByRecency    = "recency"
	SortByImportance = "importance"
	SortByCreation   = "creation"
)

// Query describes a memory search. Zero-valued fields are unused filters;
// supplied filters compose by set intersection.
type Query struct {
	// Text filters by content: every query token must appear in the entry.
	Text string
	// Type filters by memory type.
	Type Type
	// Tags filters by tags; all must be present.
	Tags []string
	// Source filters by origin.
	Source string
	// MinStrength / MaxStrength bound the current Strength. MaxStrength
	// zero means unbounded above.
	MinStrength float64
	MaxStrength float64
	// Limit truncates the result. <= 0 means unlimited.
	Limit int
	// SortBy is one of the SortBy* constants. Defaults to strength.
	SortBy string
}

// Search composes the sub-index results for every supplied filter by set
// intersection, applies content-query filtering and the strength range,
// sorts and truncates. Every returned entry has its access statistics
// bumped and persisted, so a read is also a write and relevance compounds
// with use.
func (s *Store) Search(q Query) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.index.IDs()

	if q.Type != "" {
		intersect(candidates, s.index.IDsByType(q.Type))
	}
	for _, tag := range q.Tags {
		intersect(candidates, s.index.IDsByTag(tag))
	}
	if q.Source != "" {
		intersect(candidates, s.index.IDsBySource(q.Source))
	}

	if q.Text != "" {
		matches := s.index.SearchContent(q.Text, 0)
		matchIDs := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			matchIDs[m.Entry.ID] = struct{}{}
		}
		intersect(candidates, matchIDs)
	}

	now := s.now()
	maxStrength := q.MaxStrength
	if maxStrength == 0 {
		maxStrength = 1e9
	}

	entries := make([]*Entry, 0, len(candidates))
	for id := range candidates {
		e := s.index.Get(id)
		if e == nil {
			continue
		}
		strength := e.Strength(now)
		if strength < q.MinStrength || strength > maxStrength {
			continue
		}
		entries = append(entries, e)
	}

	sortEntries(entries, q.SortBy, now)

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	for _, e := range entries {
		s.touch(e)
	}
	return cloneAll(entries)
}

func intersect(dst, other map[string]struct{}) {
	for id := range dst {
		if _, ok := other[id]; !ok {
			delete(dst, id)
		}
	}
}

func sortEntries(entries []*Entry, sortBy string, now time.Time) {
	switch sortBy {
	case SortByRecency:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Metadata.LastAccessed.After(entries[j].Metadata.LastAccessed)
		})
	case SortByImportance:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Metadata.Importance > entries[j].Metadata.Importance
		})
	case SortByCreation:
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Metadata.CreatedAt.After(entries[j].Metadata.CreatedAt)
		})
	default: // SortByStrength
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Strength(now) > entries[j].Strength(now)
		})
	}
}

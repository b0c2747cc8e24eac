package memory

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Index provides fast multi-key lookup over memory entries: by id, type,
// tag, source, content token, creation/access date and a strength-ordered
// list for range queries and top-k with early exit.
//
// The Index is fully derived state; it owns no durable data and can be
// rebuilt from the entry set at any time. It is not safe for concurrent use
// on its own: the Store serializes access behind its lock.
//
// Remove undoes the postings recorded when the entry was added, not the
// postings its current state would produce, so callers may mutate an entry
// in place before re-indexing it with Update.
type Index struct {
	byID map[string]*Entry

	// posted remembers the keys each id was indexed under, so Remove stays
	// correct after the entry itself has been mutated.
	posted map[string]postedKeys

	byType   map[Type]map[string]struct{}
	byTag    map[string]map[string]struct{}
	bySource map[string]map[string]struct{}

	// token -> entry ids containing the token
	byToken map[string]map[string]struct{}

	// day bucket (YYYY-MM-DD) -> entry ids
	byCreatedDay  map[string]map[string]struct{}
	byAccessedDay map[string]map[string]struct{}

	// strength-ordered, strongest first; rebuilt by full re-sort on every
	// mutation, acceptable for bounded working sets
	byStrength []strengthItem

	typeCounts map[Type]int
	tagCounts  map[string]int

	now func() time.Time
}

type strengthItem struct {
	strength float64
	id       string
}

// postedKeys is the snapshot of index keys taken at Add time.
type postedKeys struct {
	typ         Type
	tags        []string
	source      string
	tokens      map[string]struct{}
	createdDay  string
	accessedDay string
}

// NewIndex creates an empty index using the wall clock for strength snapshots.
func NewIndex() *Index {
	return NewIndexWithClock(time.Now)
}

// NewIndexWithClock creates an empty index with an injected clock, so tests
// can pin strength ordering to a fixed instant.
func NewIndexWithClock(now func() time.Time) *Index {
	return &Index{
		byID:          make(map[string]*Entry),
		posted:        make(map[string]postedKeys),
		byType:        make(map[Type]map[string]struct{}),
		byTag:         make(map[string]map[string]struct{}),
		bySource:      make(map[string]map[string]struct{}),
		byToken:       make(map[string]map[string]struct{}),
		byCreatedDay:  make(map[string]map[string]struct{}),
		byAccessedDay: make(map[string]map[string]struct{}),
		typeCounts:    make(map[Type]int),
		tagCounts:     make(map[string]int),
		now:           now,
	}
}

func addToSet(m map[string]map[string]struct{}, key, id string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[id] = struct{}{}
}

func removeFromSet(m map[string]map[string]struct{}, key, id string) {
	if set, ok := m[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}

func dayBucket(t time.Time) string {
	return t.Format("2006-01-02")
}

// Add indexes the entry under every sub-index matching its current state and
// records that state so Remove can undo it later.
func (ix *Index) Add(e *Entry) {
	id := e.ID
	keys := postedKeys{
		typ:         e.Metadata.Type,
		tags:        e.Metadata.Tags(),
		source:      e.Metadata.Source,
		tokens:      Tokenize(e.Content),
		createdDay:  dayBucket(e.Metadata.CreatedAt),
		accessedDay: dayBucket(e.Metadata.LastAccessed),
	}
	ix.byID[id] = e
	ix.posted[id] = keys

	if _, ok := ix.byType[keys.typ]; !ok {
		ix.byType[keys.typ] = make(map[string]struct{})
	}
	ix.byType[keys.typ][id] = struct{}{}
	ix.typeCounts[keys.typ]++

	for _, tag := range keys.tags {
		addToSet(ix.byTag, tag, id)
		ix.tagCounts[tag]++
	}

	if keys.source != "" {
		addToSet(ix.bySource, keys.source, id)
	}

	for token := range keys.tokens {
		addToSet(ix.byToken, token, id)
	}

	addToSet(ix.byCreatedDay, keys.createdDay, id)
	addToSet(ix.byAccessedDay, keys.accessedDay, id)

	ix.byStrength = append(ix.byStrength, strengthItem{strength: e.Strength(ix.now()), id: id})
	sort.Slice(ix.byStrength, func(i, j int) bool {
		return ix.byStrength[i].strength > ix.byStrength[j].strength
	})
}

// Remove drops the entry from every sub-index, undoing the postings recorded
// at Add time. Returns false for unknown ids.
func (ix *Index) Remove(id string) bool {
	keys, ok := ix.posted[id]
	if !ok {
		return false
	}
	delete(ix.byID, id)
	delete(ix.posted, id)

	if set, ok := ix.byType[keys.typ]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(ix.byType, keys.typ)
		}
	}
	ix.typeCounts[keys.typ]--
	if ix.typeCounts[keys.typ] <= 0 {
		delete(ix.typeCounts, keys.typ)
	}

	for _, tag := range keys.tags {
		removeFromSet(ix.byTag, tag, id)
		ix.tagCounts[tag]--
		if ix.tagCounts[tag] <= 0 {
			delete(ix.tagCounts, tag)
		}
	}

	if keys.source != "" {
		removeFromSet(ix.bySource, keys.source, id)
	}

	for token := range keys.tokens {
		removeFromSet(ix.byToken, token, id)
	}

	removeFromSet(ix.byCreatedDay, keys.createdDay, id)
	removeFromSet(ix.byAccessedDay, keys.accessedDay, id)

	filtered := ix.byStrength[:0]
	for _, item := range ix.byStrength {
		if item.id != id {
			filtered = append(filtered, item)
		}
	}
	ix.byStrength = filtered

	return true
}

// Update re-indexes the entry. Defined as remove-then-add so no sub-index can
// go stale on a partial patch.
func (ix *Index) Update(e *Entry) {
	ix.Remove(e.ID)
	ix.Add(e)
}

// Get returns the entry with the given id, or nil.
func (ix *Index) Get(id string) *Entry {
	return ix.byID[id]
}

// Contains reports whether the id is indexed.
func (ix *Index) Contains(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.byID)
}

// IDs returns the set of indexed ids. The returned set is a copy.
func (ix *Index) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(ix.byID))
	for id := range ix.byID {
		out[id] = struct{}{}
	}
	return out
}

// IDsByType returns a copy of the id set for the given type.
func (ix *Index) IDsByType(typ Type) map[string]struct{} {
	return copySet(ix.byType[typ])
}

// IDsByTag returns a copy of the id set for the given tag.
func (ix *Index) IDsByTag(tag string) map[string]struct{} {
	return copySet(ix.byTag[tag])
}

// IDsBySource returns a copy of the id set for the given source.
func (ix *Index) IDsBySource(source string) map[string]struct{} {
	return copySet(ix.bySource[source])
}

func copySet(set map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

// ByType returns all entries of the given type.
func (ix *Index) ByType(typ Type) []*Entry {
	return ix.collect(ix.byType[typ])
}

// ByTag returns all entries carrying the given tag.
func (ix *Index) ByTag(tag string) []*Entry {
	return ix.collect(ix.byTag[tag])
}

// BySource returns all entries from the given source.
func (ix *Index) BySource(source string) []*Entry {
	return ix.collect(ix.bySource[source])
}

func (ix *Index) collect(ids map[string]struct{}) []*Entry {
	out := make([]*Entry, 0, len(ids))
	for id := range ids {
		if e, ok := ix.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ContentMatch pairs an entry with its token-overlap score for a query.
type ContentMatch struct {
	Entry *Entry
	Score float64 // matched query tokens / total query tokens
}

// SearchContent returns entries whose token set is a superset of the query's
// tokens (AND semantics), ranked by token-overlap ratio descending. limit <= 0
// means unlimited.
func (ix *Index) SearchContent(query string, limit int) []ContentMatch {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	// Intersect the posting sets of every query token.
	var matching map[string]struct{}
	for token := range queryTokens {
		posting, ok := ix.byToken[token]
		if !ok {
			return nil
		}
		if matching == nil {
			matching = copySet(posting)
			continue
		}
		for id := range matching {
			if _, ok := posting[id]; !ok {
				delete(matching, id)
			}
		}
		if len(matching) == 0 {
			return nil
		}
	}

	matches := make([]ContentMatch, 0, len(matching))
	for id := range matching {
		e, ok := ix.byID[id]
		if !ok {
			continue
		}
		contentTokens := Tokenize(e.Content)
		overlap := 0
		for token := range queryTokens {
			if _, ok := contentTokens[token]; ok {
				overlap++
			}
		}
		matches = append(matches, ContentMatch{
			Entry: e,
			Score: float64(overlap) / float64(len(queryTokens)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Strongest returns up to limit entries ordered strongest first, walking the
// sorted strength list with early exit.
func (ix *Index) Strongest(limit int) []*Entry {
	out := make([]*Entry, 0, limit)
	for _, item := range ix.byStrength {
		if len(out) >= limit {
			break
		}
		if e, ok := ix.byID[item.id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ByStrengthRange returns entries whose indexed strength lies within
// [min, max], strongest first. The walk terminates early once strengths fall
// below min since the list is sorted.
func (ix *Index) ByStrengthRange(min, max float64) []*Entry {
	var out []*Entry
	for _, item := range ix.byStrength {
		if item.strength < min {
			break
		}
		if item.strength > max {
			continue
		}
		if e, ok := ix.byID[item.id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ByDateRange returns entries whose creation (or last-access) day falls
// within [start, end]. Zero bounds are open.
func (ix *Index) ByDateRange(start, end time.Time, useCreation bool) []*Entry {
	dateIndex := ix.byCreatedDay
	if !useCreation {
		dateIndex = ix.byAccessedDay
	}

	var out []*Entry
	for day, ids := range dateIndex {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		if !start.IsZero() && d.Before(start.Truncate(24*time.Hour)) {
			continue
		}
		if !end.IsZero() && d.After(end) {
			continue
		}
		for id := range ids {
			if e, ok := ix.byID[id]; ok {
				out = append(out, e)
			}
		}
	}
	return out
}

// RecentlyAccessed returns entries whose last access lies within the given
// duration before the index clock.
func (ix *Index) RecentlyAccessed(within time.Duration) []*Entry {
	cutoff := ix.now().Add(-within)
	// Day buckets are coarse; widen by one day and filter precisely below.
	candidates := ix.ByDateRange(cutoff.Add(-24*time.Hour), time.Time{}, false)
	out := candidates[:0]
	for _, e := range candidates {
		if !e.Metadata.LastAccessed.Before(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.LastAccessed.After(out[j].Metadata.LastAccessed)
	})
	return out
}

// TagCount is a tag paired with its usage count.
type TagCount struct {
	Tag   string
	Count int
}

// PopularTags returns the most used tags, count descending.
func (ix *Index) PopularTags(limit int) []TagCount {
	out := make([]TagCount, 0, len(ix.tagCounts))
	for tag, count := range ix.tagCounts {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Statistics summarizes the index contents.
func (ix *Index) Statistics() map[string]any {
	typeDist := make(map[string]int, len(ix.typeCounts))
	for typ, count := range ix.typeCounts {
		typeDist[string(typ)] = count
	}
	tagDist := make(map[string]int)
	for _, tc := range ix.PopularTags(20) {
		tagDist[tc.Tag] = tc.Count
	}

	var strongest, weakest float64
	if len(ix.byStrength) > 0 {
		strongest = ix.byStrength[0].strength
		weakest = ix.byStrength[len(ix.byStrength)-1].strength
	}

	return map[string]any{
		"total_entries":     len(ix.byID),
		"type_distribution": typeDist,
		"tag_distribution":  tagDist,
		"source_count":      len(ix.bySource),
		"content_tokens":    len(ix.byToken),
		"strongest":         strongest,
		"weakest":           weakest,
	}
}

// Clear drops every entry and sub-index.
func (ix *Index) Clear() {
	*ix = *NewIndexWithClock(ix.now)
}

// Tokenize splits text into its set of lower-cased alphabetic runs.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens[strings.ToLower(b.String())] = struct{}{}
			b.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

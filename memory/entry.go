package memory

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Type classifies an entry within the hierarchical memory structure.
type Type string

const (
	// TypeEpisodic holds specific events and experiences.
	TypeEpisodic Type = "episodic"
	// TypeSemantic holds facts, concepts and knowledge.
	TypeSemantic Type = "semantic"
	// TypeProcedural holds skills, procedures and how-to knowledge.
	TypeProcedural Type = "procedural"
	// TypeEmotional holds emotional associations and feelings.
	TypeEmotional Type = "emotional"
	// TypeWorking holds short-term active memory.
	TypeWorking Type = "working"
)

// Types lists every valid memory type.
var Types = []Type{TypeEpisodic, TypeSemantic, TypeProcedural, TypeEmotional, TypeWorking}

// Valid reports whether t is one of the known memory types.
func (t Type) Valid() bool {
	switch t {
	case TypeEpisodic, TypeSemantic, TypeProcedural, TypeEmotional, TypeWorking:
		return true
	}
	return false
}

// timeFormat is the canonical textual timestamp representation used by every
// serialization path (records, backends, statistics).
const timeFormat = time.RFC3339Nano

// Metadata carries the scoring and bookkeeping state of an entry. Bounded
// fields are clamped on construction and on every mutation; out-of-range
// input is normalized, never rejected.
type Metadata struct {
	Type         Type
	Importance   float64 // [0, 1]
	Valence      float64 // [-1, 1] emotional valence
	Confidence   float64 // [0, 1]
	Source       string
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
	DecayRate    float64 // [0, 1]

	tags map[string]struct{}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// normalize clamps every bounded field into its documented range.
func (m *Metadata) normalize() {
	m.Importance = clamp(m.Importance, 0, 1)
	m.Valence = clamp(m.Valence, -1, 1)
	m.Confidence = clamp(m.Confidence, 0, 1)
	m.DecayRate = clamp(m.DecayRate, 0, 1)
	if m.AccessCount < 0 {
		m.AccessCount = 0
	}
	if !m.Type.Valid() {
		m.Type = TypeEpisodic
	}
	if m.tags == nil {
		m.tags = make(map[string]struct{})
	}
}

// Tags returns the tag set as a sorted slice.
func (m *Metadata) Tags() []string {
	out := make([]string, 0, len(m.tags))
	for tag := range m.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Entry is a single memory entry: a globally unique id, an opaque text
// payload and its scoring metadata.
type Entry struct {
	ID       string
	Content  string
	Metadata Metadata
}

// EntryOption customizes optional metadata fields at construction time.
type EntryOption func(*Entry)

// WithImportance sets the importance score (clamped to [0, 1]).
func WithImportance(v float64) EntryOption {
	return func(e *Entry) { e.Metadata.Importance = v }
}

// WithValence sets the emotional valence (clamped to [-1, 1]).
func WithValence(v float64) EntryOption {
	return func(e *Entry) { e.Metadata.Valence = v }
}

// WithConfidence sets the confidence score (clamped to [0, 1]).
func WithConfidence(v float64) EntryOption {
	return func(e *Entry) { e.Metadata.Confidence = v }
}

// WithSource records where the memory originated from.
func WithSource(source string) EntryOption {
	return func(e *Entry) { e.Metadata.Source = source }
}

// WithTags attaches the given tags (set semantics, duplicates collapse).
func WithTags(tags ...string) EntryOption {
	return func(e *Entry) {
		for _, tag := range tags {
			e.Metadata.tags[tag] = struct{}{}
		}
	}
}

// WithDecayRate sets the daily decay rate (clamped to [0, 1]).
func WithDecayRate(v float64) EntryOption {
	return func(e *Entry) { e.Metadata.DecayRate = v }
}

// WithID overrides the generated id. Used when rehydrating from persistence.
func WithID(id string) EntryOption {
	return func(e *Entry) { e.ID = id }
}

// WithCreatedAt overrides the creation timestamp. Used when rehydrating.
func WithCreatedAt(t time.Time) EntryOption {
	return func(e *Entry) {
		e.Metadata.CreatedAt = t
		e.Metadata.LastAccessed = t
	}
}

// NewEntry constructs a fresh entry with a generated id, current timestamps
// and every bounded field clamped into range.
func NewEntry(content string, typ Type, opts ...EntryOption) *Entry {
	now := time.Now()
	e := &Entry{
		ID:      uuid.NewString(),
		Content: content,
		Metadata: Metadata{
			Type:         typ,
			Importance:   0.5,
			Valence:      0,
			Confidence:   1,
			CreatedAt:    now,
			LastAccessed: now,
			DecayRate:    0.1,
			tags:         make(map[string]struct{}),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Metadata.normalize()
	return e
}

// Strength derives the entry's current relevance at the given instant:
// base score from importance and confidence, decayed daily, boosted by
// access frequency (diminishing past ten accesses) and emotional intensity.
// Pure read, computed on demand and never cached.
func (e *Entry) Strength(now time.Time) float64 {
	m := &e.Metadata
	base := (m.Importance + m.Confidence) / 2
	days := now.Sub(m.CreatedAt).Seconds() / 86400
	if days < 0 {
		days = 0
	}
	decay := 1 / (1 + m.DecayRate*days)
	access := math.Min(1, float64(m.AccessCount)/10)
	emotional := 1 + math.Abs(m.Valence)*0.2
	return base * decay * (1 + access*0.3) * emotional
}

// UpdateAccess bumps the access statistics. Each bump strictly increases
// Strength at a fixed instant until the access boost saturates.
func (e *Entry) UpdateAccess(now time.Time) {
	e.Metadata.LastAccessed = now
	e.Metadata.AccessCount++
}

// AddTag attaches a tag. Idempotent.
func (e *Entry) AddTag(tag string) {
	e.Metadata.tags[tag] = struct{}{}
}

// RemoveTag detaches a tag. Idempotent.
func (e *Entry) RemoveTag(tag string) {
	delete(e.Metadata.tags, tag)
}

// HasTag reports whether the entry carries the tag.
func (e *Entry) HasTag(tag string) bool {
	_, ok := e.Metadata.tags[tag]
	return ok
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	cp := *e
	cp.Metadata.tags = make(map[string]struct{}, len(e.Metadata.tags))
	for tag := range e.Metadata.tags {
		cp.Metadata.tags[tag] = struct{}{}
	}
	return &cp
}

func (e *Entry) String() string {
	return fmt.Sprintf("Entry(id=%s, type=%s, strength=%.3f)", e.ID, e.Metadata.Type, e.Strength(time.Now()))
}

// Record is the canonical serialized mapping of an entry. It doubles as the
// compatibility-relevant persisted layout shared by every backend; timestamps
// use RFC 3339 with nanoseconds so round-trips are bit-exact.
type Record struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	Type         string   `json:"type"`
	Importance   float64  `json:"importance"`
	Valence      float64  `json:"emotional_valence"`
	Confidence   float64  `json:"confidence"`
	Source       string   `json:"source,omitempty"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"created_at"`
	LastAccessed string   `json:"last_accessed"`
	AccessCount  int      `json:"access_count"`
	DecayRate    float64  `json:"decay_rate"`
}

// ToRecord converts the entry into its canonical serialized mapping.
func (e *Entry) ToRecord() Record {
	return Record{
		ID:           e.ID,
		Content:      e.Content,
		Type:         string(e.Metadata.Type),
		Importance:   e.Metadata.Importance,
		Valence:      e.Metadata.Valence,
		Confidence:   e.Metadata.Confidence,
		Source:       e.Metadata.Source,
		Tags:         e.Metadata.Tags(),
		CreatedAt:    e.Metadata.CreatedAt.Format(timeFormat),
		LastAccessed: e.Metadata.LastAccessed.Format(timeFormat),
		AccessCount:  e.Metadata.AccessCount,
		DecayRate:    e.Metadata.DecayRate,
	}
}

// FromRecord rebuilds an entry from its canonical mapping, restoring the
// access statistics and clamping any out-of-range field.
func FromRecord(rec Record) (*Entry, error) {
	createdAt, err := time.Parse(timeFormat, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	lastAccessed, err := time.Parse(timeFormat, rec.LastAccessed)
	if err != nil {
		return nil, fmt.Errorf("parse last_accessed: %w", err)
	}

	e := &Entry{
		ID:      rec.ID,
		Content: rec.Content,
		Metadata: Metadata{
			Type:         Type(rec.Type),
			Importance:   rec.Importance,
			Valence:      rec.Valence,
			Confidence:   rec.Confidence,
			Source:       rec.Source,
			CreatedAt:    createdAt,
			LastAccessed: lastAccessed,
			AccessCount:  rec.AccessCount,
			DecayRate:    rec.DecayRate,
			tags:         make(map[string]struct{}, len(rec.Tags)),
		},
	}
	for _, tag := range rec.Tags {
		e.Metadata.tags[tag] = struct{}{}
	}
	e.Metadata.normalize()
	return e, nil
}

// MarshalJSON serializes the entry via its canonical record.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToRecord())
}

// UnmarshalJSON rebuilds the entry from its canonical record.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	parsed, err := FromRecord(rec)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

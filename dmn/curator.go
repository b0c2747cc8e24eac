package dmn

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/reverie-ai/reverie/logging"
	"github.com/reverie-ai/reverie/memory"
)

// Strategy names a retrieval source contributing to a cycle's working set.
type Strategy string

const (
	// StrategySemantic scores token overlap against the current context.
	StrategySemantic Strategy = "semantic"
	// StrategyRecency favors recently accessed memories, rank-decayed.
	StrategyRecency Strategy = "recency"
	// StrategyImportance uses raw Strength.
	StrategyImportance Strategy = "importance"
	// StrategyRandom uniformly samples the working set, seeding creativity.
	StrategyRandom Strategy = "random"
	// StrategyCreative restricts token overlap to a 10-30% sweet-spot band,
	// deliberately excluding both near-duplicates and unrelated entries.
	StrategyCreative Strategy = "creative"
)

// StrategyWeights selects and scales the strategies to run for a mode. A
// zero weight disables the strategy entirely.
type StrategyWeights struct {
	Semantic   float64
	Recency    float64
	Importance float64
	Random     float64
	Creative   float64
}

// DefaultWeights is the mode-keyed policy table. PartialWake zeroes semantic
// and importance weight in favor of random and creative association; Default
// runs no retrieval at all.
var DefaultWeights = map[Mode]StrategyWeights{
	ModeActive:      {Semantic: 0.6, Recency: 0.2, Importance: 0.15, Random: 0.05},
	ModePartialWake: {Recency: 0.1, Random: 0.4, Creative: 0.5},
	ModeDefault:     {},
}

// Chunk is one memory surfaced for a cognitive cycle, tagged with the
// strategy that produced it and its blended score.
type Chunk struct {
	MemoryID    string
	Content     string
	Strategy    Strategy
	Score       float64
	Type        memory.Type
	AccessCount int
}

const (
	creativeOverlapMin = 0.10
	creativeOverlapMax = 0.30
)

// Curator selects the working set for each cognitive cycle and flushes
// recent working memory into long-term storage during consolidation. It
// touches memory only through the Store's public operations.
type Curator struct {
	store     *memory.Store
	logger    logging.Logger
	weights   map[Mode]StrategyWeights
	maxChunks int
	threshold float64
	rng       *rand.Rand

	// word-overlap similarity cache; keys are query/content hash pairs
	simCache *ristretto.Cache

	mu    sync.Mutex
	stats CuratorStats
}

// CuratorStats counts retrieval and consolidation activity.
type CuratorStats struct {
	Retrievals      int
	ChunksRetrieved int
	Consolidated    int
	CacheHits       int
	CacheMisses     int
}

// CuratorOption configures a Curator.
type CuratorOption func(*Curator)

// WithMaxChunks bounds the number of chunks surfaced per cycle. Default 8.
func WithMaxChunks(n int) CuratorOption {
	return func(c *Curator) { c.maxChunks = n }
}

// WithRelevanceThreshold sets the minimum score for chunk selection.
func WithRelevanceThreshold(v float64) CuratorOption {
	return func(c *Curator) { c.threshold = v }
}

// WithWeights overrides the mode-keyed strategy weight table.
func WithWeights(w map[Mode]StrategyWeights) CuratorOption {
	return func(c *Curator) { c.weights = w }
}

// WithCuratorLogger sets the logger.
func WithCuratorLogger(l logging.Logger) CuratorOption {
	return func(c *Curator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCuratorRand injects the randomness source used by the random and
// creative strategies, keeping the ranking itself deterministic.
func WithCuratorRand(rng *rand.Rand) CuratorOption {
	return func(c *Curator) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// NewCurator creates a curator over the given store.
func NewCurator(store *memory.Store, opts ...CuratorOption) *Curator {
	c := &Curator{
		store:     store,
		logger:    logging.NoOpLogger{},
		weights:   DefaultWeights,
		maxChunks: 8,
		threshold: 0.3,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Cache failures only cost recomputation, so the error is ignorable.
	c.simCache, _ = ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	return c
}

// RetrieveChunks blends the weighted strategies for the given mode,
// deduplicates by memory id, re-ranks by blended score and truncates to the
// chunk budget. Default mode runs no retrieval and returns nil.
func (c *Curator) RetrieveChunks(cctx CycleContext, mode Mode) []Chunk {
	if mode == ModeDefault {
		return nil
	}

	c.mu.Lock()
	c.stats.Retrievals++
	c.mu.Unlock()

	weights, ok := c.weights[mode]
	if !ok {
		weights = c.weights[ModeActive]
	}
	query := cctx.queryText()

	var chunks []Chunk
	if weights.Semantic > 0 {
		chunks = append(chunks, c.semanticRetrieval(query, weights.Semantic)...)
	}
	if weights.Recency > 0 {
		chunks = append(chunks, c.recencyRetrieval(weights.Recency)...)
	}
	if weights.Importance > 0 {
		chunks = append(chunks, c.importanceRetrieval(weights.Importance)...)
	}
	if weights.Random > 0 {
		chunks = append(chunks, c.randomRetrieval(weights.Random)...)
	}
	if weights.Creative > 0 {
		chunks = append(chunks, c.creativeRetrieval(query, weights.Creative)...)
	}

	ranked := rankChunks(dedupeChunks(chunks), mode)
	if len(ranked) > c.maxChunks {
		ranked = ranked[:c.maxChunks]
	}

	c.mu.Lock()
	c.stats.ChunksRetrieved += len(ranked)
	c.mu.Unlock()

	c.logger.Debug("retrieved chunks", "mode", mode.String(), "count", len(ranked))
	return ranked
}

func (c *Curator) semanticRetrieval(query string, weight float64) []Chunk {
	entries := c.store.Search(memory.Query{Text: query, Limit: c.maxChunks * 2})
	var chunks []Chunk
	for _, e := range entries {
		score := c.similarity(query, e.Content) * weight
		if score < c.threshold*weight {
			continue
		}
		chunks = append(chunks, entryChunk(e, StrategySemantic, score))
	}
	return chunks
}

func (c *Curator) recencyRetrieval(weight float64) []Chunk {
	entries := c.store.Recent(24*time.Hour, c.maxChunks)
	chunks := make([]Chunk, 0, len(entries))
	for i, e := range entries {
		// rank-decayed: most recently accessed scores highest
		score := (1 - float64(i)/float64(len(entries))) * weight
		chunks = append(chunks, entryChunk(e, StrategyRecency, score))
	}
	return chunks
}

func (c *Curator) importanceRetrieval(weight float64) []Chunk {
	now := time.Now()
	entries := c.store.Strongest(c.maxChunks)
	chunks := make([]Chunk, 0, len(entries))
	for _, e := range entries {
		chunks = append(chunks, entryChunk(e, StrategyImportance, e.Strength(now)*weight))
	}
	return chunks
}

func (c *Curator) randomRetrieval(weight float64) []Chunk {
	entries := c.store.Sample(c.maxChunks)
	chunks := make([]Chunk, 0, len(entries))
	for _, e := range entries {
		score := (0.3 + c.rng.Float64()*0.5) * weight
		chunks = append(chunks, entryChunk(e, StrategyRandom, score))
	}
	return chunks
}

// creativeRetrieval surfaces entries whose token overlap with the query
// falls in the sweet-spot band: related enough to associate, distant enough
// to surprise.
func (c *Curator) creativeRetrieval(query string, weight float64) []Chunk {
	queryTokens := memory.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var chunks []Chunk
	for _, e := range c.store.All() {
		ratio := jaccard(queryTokens, memory.Tokenize(e.Content))
		if ratio < creativeOverlapMin || ratio > creativeOverlapMax {
			continue
		}
		score := (creativeOverlapMax - ratio) * weight * (0.8 + c.rng.Float64()*0.4)
		chunks = append(chunks, entryChunk(e, StrategyCreative, score))
	}
	if limit := c.maxChunks / 2; len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks
}

// similarity computes Jaccard word overlap between query and content,
// memoized in the ristretto cache.
func (c *Curator) similarity(query, content string) float64 {
	key := fmt.Sprintf("%x:%x", hash64(query), hash64(content))
	if c.simCache != nil {
		if v, ok := c.simCache.Get(key); ok {
			if f, ok := v.(float64); ok {
				c.mu.Lock()
				c.stats.CacheHits++
				c.mu.Unlock()
				return f
			}
		}
	}
	c.mu.Lock()
	c.stats.CacheMisses++
	c.mu.Unlock()

	sim := jaccard(memory.Tokenize(query), memory.Tokenize(content))
	if c.simCache != nil {
		c.simCache.Set(key, sim, 1)
	}
	return sim
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func entryChunk(e *memory.Entry, strategy Strategy, score float64) Chunk {
	return Chunk{
		MemoryID:    e.ID,
		Content:     e.Content,
		Strategy:    strategy,
		Score:       score,
		Type:        e.Metadata.Type,
		AccessCount: e.Metadata.AccessCount,
	}
}

// dedupeChunks collapses duplicates by memory id, keeping the highest score.
func dedupeChunks(chunks []Chunk) []Chunk {
	best := make(map[string]Chunk, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		existing, seen := best[chunk.MemoryID]
		if !seen {
			order = append(order, chunk.MemoryID)
		}
		if !seen || chunk.Score > existing.Score {
			best[chunk.MemoryID] = chunk
		}
	}
	out := make([]Chunk, 0, len(order))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// rankChunks orders chunks by blended score descending. Pure: no randomness,
// no store access. Partial-wake boosts creative and random sources.
func rankChunks(chunks []Chunk, mode Mode) []Chunk {
	out := append([]Chunk(nil), chunks...)
	if mode == ModePartialWake {
		for i := range out {
			if out[i].Strategy == StrategyCreative || out[i].Strategy == StrategyRandom {
				out[i].Score *= 1.2
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// consolidation keyword tables, checked in order
var (
	episodicKeywords   = []string{"pattern", "connection", "insight", "understanding"}
	semanticKeywords   = []string{"concept", "definition", "principle", "rule"}
	proceduralKeywords = []string{"procedure", "step", "method", "process"}
	importantKeywords  = []string{
		"insight", "discovery", "realization", "understanding", "connection",
		"pattern", "principle", "hypothesis", "theory", "concept",
	}
)

// Consolidate flushes recent working-memory thoughts into long-term storage
// with a derived type classification and importance. Runs in default mode
// only; returns the number of memories written.
func (c *Curator) Consolidate(recentThoughts []string, cctx CycleContext) int {
	count := 0
	for _, thought := range recentThoughts {
		if strings.TrimSpace(thought) == "" {
			continue
		}
		c.store.Store(thought, classifyThought(thought),
			memory.WithImportance(deriveImportance(thought, cctx)),
			memory.WithSource("dmn_consolidation"),
			memory.WithTags("dmn", "consolidated"),
		)
		count++
	}

	c.mu.Lock()
	c.stats.Consolidated += count
	c.mu.Unlock()

	if count > 0 {
		c.logger.Info("consolidated memories", "count", count)
	}
	return count
}

// classifyThought derives the memory type from content keywords.
func classifyThought(thought string) memory.Type {
	lower := strings.ToLower(thought)
	for _, kw := range episodicKeywords {
		if strings.Contains(lower, kw) {
			return memory.TypeEpisodic
		}
	}
	for _, kw := range semanticKeywords {
		if strings.Contains(lower, kw) {
			return memory.TypeSemantic
		}
	}
	for _, kw := range proceduralKeywords {
		if strings.Contains(lower, kw) {
			return memory.TypeProcedural
		}
	}
	return memory.TypeEpisodic
}

// deriveImportance scores a thought from its length, keyword density and
// overlap with the current hypothesis. Clamped to [0.1, 1.0].
func deriveImportance(thought string, cctx CycleContext) float64 {
	importance := 0.5

	words := strings.Fields(thought)
	lengthBonus := float64(len(words)) / 50
	if lengthBonus > 0.2 {
		lengthBonus = 0.2
	}
	importance += lengthBonus

	lower := strings.ToLower(thought)
	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			importance += 0.05
		}
	}

	if cctx.Hypothesis != "" {
		hypoWords := strings.Fields(strings.ToLower(cctx.Hypothesis))
		if len(hypoWords) > 5 {
			hypoWords = hypoWords[:5]
		}
		for _, w := range hypoWords {
			if strings.Contains(lower, w) {
				importance += 0.1
				break
			}
		}
	}

	if importance > 1 {
		importance = 1
	}
	if importance < 0.1 {
		importance = 0.1
	}
	return importance
}

// Stats returns a snapshot of the curator's counters.
func (c *Curator) Stats() CuratorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

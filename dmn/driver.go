package dmn

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/reverie-ai/reverie/logging"
)

// DriverConfig tunes the cognitive cycle loop.
type DriverConfig struct {
	// ActiveCycleLimit is the number of active cycles before a break is
	// forced.
	ActiveCycleLimit int
	// BreakDuration is how long partial-wake lasts before returning to
	// active.
	BreakDuration time.Duration
	// ConsolidationInterval is the wall-clock period between drops into
	// default mode.
	ConsolidationInterval time.Duration
	// MaxWorkingMemory caps the working-memory chunk count.
	MaxWorkingMemory int
	// CycleInterval is the pause between cycles in Run.
	CycleInterval time.Duration
	// DefaultModeCycles is how many cycles default mode runs before
	// waking back to active.
	DefaultModeCycles int
}

// DefaultDriverConfig returns the standard cycle tuning.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		ActiveCycleLimit:      10,
		BreakDuration:         30 * time.Second,
		ConsolidationInterval: 5 * time.Minute,
		MaxWorkingMemory:      20,
		CycleInterval:         500 * time.Millisecond,
		DefaultModeCycles:     10,
	}
}

func (c *DriverConfig) applyDefaults() {
	def := DefaultDriverConfig()
	if c.ActiveCycleLimit <= 0 {
		c.ActiveCycleLimit = def.ActiveCycleLimit
	}
	if c.BreakDuration <= 0 {
		c.BreakDuration = def.BreakDuration
	}
	if c.ConsolidationInterval <= 0 {
		c.ConsolidationInterval = def.ConsolidationInterval
	}
	if c.MaxWorkingMemory <= 0 {
		c.MaxWorkingMemory = def.MaxWorkingMemory
	}
	if c.CycleInterval <= 0 {
		c.CycleInterval = def.CycleInterval
	}
	if c.DefaultModeCycles <= 0 {
		c.DefaultModeCycles = def.DefaultModeCycles
	}
}

// DriverStats is a snapshot of driver counters.
type DriverStats struct {
	TotalCycles        int
	ModeTransitions    int
	ExhaustionEvents   int
	IntrusiveProcessed int
	Consolidated       int
	Uptime             time.Duration
}

// Driver runs the cognitive cycle: it drains intrusive thoughts, applies
// mode transitions, executes the current mode and maintains the working-
// memory load metric. Each Cycle call takes a CycleContext value and
// returns the next one; the driver holds no mutable copy of it.
type Driver struct {
	cfg         DriverConfig
	curator     *Curator
	synthesizer *Synthesizer
	breaks      *BreakManager
	intrusive   *IntrusiveQueue
	logger      logging.Logger
	now         func() time.Time
	rng         *rand.Rand

	mu                sync.Mutex
	stats             DriverStats
	startedAt         time.Time
	lastConsolidation time.Time
	defaultCycles     int
}

// cycleMetricsLogger is satisfied by loggers that record per-cycle metrics,
// like logging.ReverieLogger. The driver upgrades to it when available.
type cycleMetricsLogger interface {
	LogCycle(mode string, cycle int, chunks int, dur time.Duration)
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDriverConfig replaces the cycle tuning. Zero fields keep defaults.
func WithDriverConfig(cfg DriverConfig) DriverOption {
	return func(d *Driver) { d.cfg = cfg }
}

// WithSynthesizer wires thought generation. Without one the driver cycles
// on retrieval alone.
func WithSynthesizer(s *Synthesizer) DriverOption {
	return func(d *Driver) { d.synthesizer = s }
}

// WithBreakManager replaces the default break manager.
func WithBreakManager(m *BreakManager) DriverOption {
	return func(d *Driver) {
		if m != nil {
			d.breaks = m
		}
	}
}

// WithDriverLogger sets the logger.
func WithDriverLogger(l logging.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDriverClock injects the time source.
func WithDriverClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDriverRand injects the randomness source used for fatigue detection.
func WithDriverRand(rng *rand.Rand) DriverOption {
	return func(d *Driver) {
		if rng != nil {
			d.rng = rng
		}
	}
}

// NewDriver creates a driver over the given curator.
func NewDriver(curator *Curator, opts ...DriverOption) *Driver {
	d := &Driver{
		cfg:       DefaultDriverConfig(),
		curator:   curator,
		intrusive: NewIntrusiveQueue(),
		logger:    logging.NoOpLogger{},
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cfg.applyDefaults()
	if d.breaks == nil {
		d.breaks = NewBreakManager(
			WithBreakLogger(d.logger),
			WithBreakRand(d.rng),
			WithBreakDuration(d.cfg.BreakDuration),
		)
	}
	now := d.now()
	d.startedAt = now
	d.lastConsolidation = now
	return d
}

// AddThought queues an intrusive thought for the next cycle. Intensity is
// clamped to 1-10; thoughts above intensity 7 contribute an exhaustion
// signal when drained.
func (d *Driver) AddThought(content string, intensity, difficulty int) {
	d.intrusive.Add(content, intensity, difficulty)
}

// Breaks exposes the break manager, mainly for stats.
func (d *Driver) Breaks() *BreakManager { return d.breaks }

// Cycle executes one cognitive cycle and returns the next context.
func (d *Driver) Cycle(ctx context.Context, cctx CycleContext) CycleContext {
	start := time.Now()
	c := cctx.clone()
	c.CycleCount++
	c.Timestamp = d.now()

	d.processIntrusive(&c)
	d.checkTransitions(&c)

	switch c.Mode {
	case ModeActive:
		d.executeActive(ctx, &c)
	case ModePartialWake:
		d.executePartialWake(ctx, &c)
	case ModeDefault:
		d.executeDefault(&c)
	}

	d.updateWorkingLoad(&c)

	d.mu.Lock()
	d.stats.TotalCycles++
	d.mu.Unlock()

	if ml, ok := d.logger.(cycleMetricsLogger); ok {
		ml.LogCycle(c.Mode.String(), c.CycleCount, len(c.Chunks), time.Since(start))
	}
	return c
}

// Run cycles until the context is cancelled, sleeping CycleInterval between
// cycles. The final context is lost; use Cycle directly to keep it.
func (d *Driver) Run(ctx context.Context, cctx CycleContext) error {
	ticker := time.NewTicker(d.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cctx = d.Cycle(ctx, cctx)
		}
	}
}

func (d *Driver) processIntrusive(c *CycleContext) {
	thoughts := d.intrusive.Drain()
	if len(thoughts) == 0 {
		return
	}
	for _, t := range thoughts {
		c.IntrusiveThoughts = append(c.IntrusiveThoughts, t.Content)
		if t.Disruptive() {
			c.ExhaustionSignals = append(c.ExhaustionSignals, "high_intensity_intrusion")
		}
	}
	d.mu.Lock()
	d.stats.IntrusiveProcessed += len(thoughts)
	d.mu.Unlock()
	d.logger.Debug("processed intrusive thoughts", "count", len(thoughts))
}

func (d *Driver) checkTransitions(c *CycleContext) {
	now := d.now()
	from := c.Mode

	switch {
	case c.Mode == ModeActive &&
		(c.CycleCount%d.cfg.ActiveCycleLimit == 0 ||
			len(c.ExhaustionSignals) > 3 ||
			c.WorkingLoad > 0.8):
		c.Mode = ModePartialWake
		c.LastBreak = now
		c.Chunks = nil
		d.mu.Lock()
		d.stats.ExhaustionEvents++
		d.mu.Unlock()

	case c.Mode == ModePartialWake &&
		!c.LastBreak.IsZero() &&
		now.Sub(c.LastBreak) > d.cfg.BreakDuration:
		c.Mode = ModeActive
		c.ExhaustionSignals = nil

	case c.Mode != ModeDefault &&
		now.Sub(d.consolidationMark()) >= d.cfg.ConsolidationInterval:
		c.Mode = ModeDefault
		c.RecentThoughts = append([]string(nil), c.Chunks...)
		d.mu.Lock()
		d.lastConsolidation = now
		d.defaultCycles = 0
		d.mu.Unlock()

	case c.Mode == ModeDefault && d.defaultDone():
		c.Mode = ModeActive
	}

	if c.Mode != from {
		d.mu.Lock()
		d.stats.ModeTransitions++
		d.mu.Unlock()
		d.logger.Info("mode transition", "from", from.String(), "to", c.Mode.String())
	}
}

func (d *Driver) consolidationMark() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastConsolidation
}

func (d *Driver) defaultDone() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultCycles >= d.cfg.DefaultModeCycles
}

func (d *Driver) executeActive(ctx context.Context, c *CycleContext) {
	chunks := d.curator.RetrieveChunks(*c, ModeActive)
	contents := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, chunk.Content)
	}
	if len(contents) > d.cfg.MaxWorkingMemory {
		contents = contents[:d.cfg.MaxWorkingMemory]
	}
	c.Chunks = contents

	if d.synthesizer != nil {
		insight, err := d.synthesizer.Synthesize(ctx, *c, false)
		if err != nil {
			d.logger.Warn("no thought available this cycle", "error", err)
		} else {
			c.Hypothesis = insight
			c.Chunks = append(c.Chunks, insight)
		}
	}

	d.detectExhaustion(c)
}

func (d *Driver) executePartialWake(ctx context.Context, c *CycleContext) {
	session := d.breaks.Take(ctx, *c)

	chunks := d.curator.RetrieveChunks(*c, ModePartialWake)
	for _, chunk := range chunks {
		c.Chunks = append(c.Chunks, chunk.Content)
	}
	if n := len(session.Associations); n > 0 {
		c.Chunks = append(c.Chunks, session.Associations[0])
	}

	if d.synthesizer != nil {
		insight, err := d.synthesizer.Synthesize(ctx, *c, true)
		if err != nil {
			d.logger.Warn("no thought available this cycle", "error", err)
		} else {
			c.Chunks = append(c.Chunks, insight)
		}
	}
	if len(c.Chunks) > d.cfg.MaxWorkingMemory {
		c.Chunks = c.Chunks[:d.cfg.MaxWorkingMemory]
	}
}

func (d *Driver) executeDefault(c *CycleContext) {
	d.mu.Lock()
	d.defaultCycles++
	d.mu.Unlock()

	if len(c.RecentThoughts) == 0 {
		return
	}
	stored := d.curator.Consolidate(c.RecentThoughts, *c)
	c.RecentThoughts = nil
	d.mu.Lock()
	d.stats.Consolidated += stored
	d.mu.Unlock()
	d.logger.Info("consolidated working memory", "stored", stored)
}

// detectExhaustion appends exhaustion signals for repetitive working
// memory, cycle-limit hits, high load and occasional natural fatigue.
func (d *Driver) detectExhaustion(c *CycleContext) {
	if len(c.Chunks) > 5 {
		recent := c.Chunks[len(c.Chunks)-5:]
		unique := make(map[string]struct{}, len(recent))
		for _, chunk := range recent {
			unique[chunk] = struct{}{}
		}
		if len(unique) < 3 {
			c.ExhaustionSignals = append(c.ExhaustionSignals, "repetitive_thoughts")
		}
	}
	if c.CycleCount%d.cfg.ActiveCycleLimit == 0 {
		c.ExhaustionSignals = append(c.ExhaustionSignals, "active_cycle_limit_reached")
	}
	if c.WorkingLoad > 0.8 {
		c.ExhaustionSignals = append(c.ExhaustionSignals, "high_cognitive_load")
	}
	if d.rng.Float64() < 0.05 {
		c.ExhaustionSignals = append(c.ExhaustionSignals, "natural_fatigue")
	}
}

func (d *Driver) updateWorkingLoad(c *CycleContext) {
	load := float64(len(c.Chunks)) / float64(d.cfg.MaxWorkingMemory)
	if load > 1 {
		load = 1
	}
	c.WorkingLoad = load
	if load > 0.9 {
		c.ExhaustionSignals = append(c.ExhaustionSignals, "working_memory_overload")
	}
}

// Stats returns a snapshot of driver counters.
func (d *Driver) Stats() DriverStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := d.stats
	stats.Uptime = d.now().Sub(d.startedAt)
	return stats
}

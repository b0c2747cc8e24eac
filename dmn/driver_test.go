package dmn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reverie-ai/reverie/logging"
	"github.com/reverie-ai/reverie/memory"
	"github.com/reverie-ai/reverie/model"
)

// metricsLogger records the structured metric calls a ReverieLogger would
// emit, on top of a silent base logger.
type metricsLogger struct {
	logging.NoOpLogger

	mu        sync.Mutex
	cycles    []string // "mode/cycle/chunks"
	generates []string // "provider/success"
}

func (l *metricsLogger) LogCycle(mode string, cycle int, chunks int, dur time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cycles = append(l.cycles, fmt.Sprintf("%s/%d/%d", mode, cycle, chunks))
}

func (l *metricsLogger) LogGenerateCall(provider string, dur time.Duration, success bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generates = append(l.generates, fmt.Sprintf("%s/%t", provider, success))
}

// neverRand yields values that never trigger the random fatigue check.
func neverRand() *rand.Rand {
	// first values of this source stay comfortably above 0.05
	return rand.New(rand.NewSource(42))
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDriver(t *testing.T, opts ...DriverOption) (*Driver, *testClock) {
	t.Helper()
	store := newCuratorStore(t)
	curator := NewCurator(store, WithCuratorRand(rand.New(rand.NewSource(5))))

	clock := &testClock{now: time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)}
	base := []DriverOption{
		WithDriverClock(clock.Now),
		WithDriverRand(neverRand()),
	}
	return NewDriver(curator, append(base, opts...)...), clock
}

func TestDriver_ActiveToPartialWakeOnCycleLimit(t *testing.T) {
	d, _ := newTestDriver(t, WithDriverConfig(DriverConfig{ActiveCycleLimit: 3}))

	c := NewCycleContext()
	c.CycleCount = 2 // next cycle hits the limit
	d.checkTransitions(&c)
	assert.Equal(t, ModeActive, c.Mode)

	c.CycleCount = 3
	d.checkTransitions(&c)
	assert.Equal(t, ModePartialWake, c.Mode)
	assert.False(t, c.LastBreak.IsZero())
	assert.Empty(t, c.Chunks, "working context cleared for the break")
	assert.Equal(t, 1, d.Stats().ExhaustionEvents)
}

func TestDriver_ActiveToPartialWakeOnExhaustion(t *testing.T) {
	d, _ := newTestDriver(t)

	c := NewCycleContext()
	c.CycleCount = 1
	c.ExhaustionSignals = []string{"a", "b", "c", "d"}
	d.checkTransitions(&c)
	assert.Equal(t, ModePartialWake, c.Mode)
}

func TestDriver_ActiveToPartialWakeOnLoad(t *testing.T) {
	d, _ := newTestDriver(t)

	c := NewCycleContext()
	c.CycleCount = 1
	c.WorkingLoad = 0.9
	d.checkTransitions(&c)
	assert.Equal(t, ModePartialWake, c.Mode)
}

func TestDriver_PartialWakeToActiveAfterBreak(t *testing.T) {
	d, clock := newTestDriver(t, WithDriverConfig(DriverConfig{BreakDuration: 10 * time.Second}))

	c := NewCycleContext()
	c.Mode = ModePartialWake
	c.CycleCount = 1
	c.LastBreak = clock.Now()
	c.ExhaustionSignals = []string{"tired"}

	// break not over yet
	clock.Advance(5 * time.Second)
	d.checkTransitions(&c)
	assert.Equal(t, ModePartialWake, c.Mode)

	// break over: back to active, exhaustion cleared
	clock.Advance(6 * time.Second)
	d.checkTransitions(&c)
	assert.Equal(t, ModeActive, c.Mode)
	assert.Empty(t, c.ExhaustionSignals)
}

func TestDriver_ConsolidationTickEntersDefault(t *testing.T) {
	d, clock := newTestDriver(t, WithDriverConfig(DriverConfig{
		ConsolidationInterval: time.Minute,
		ActiveCycleLimit:      1000,
	}))

	c := NewCycleContext()
	c.CycleCount = 1
	c.Chunks = []string{"a thought worth keeping"}

	clock.Advance(61 * time.Second)
	d.checkTransitions(&c)
	require.Equal(t, ModeDefault, c.Mode)
	assert.Equal(t, []string{"a thought worth keeping"}, c.RecentThoughts)

	// the tick fires once per interval, not on every subsequent check
	c2 := NewCycleContext()
	c2.CycleCount = 1
	d.checkTransitions(&c2)
	assert.Equal(t, ModeActive, c2.Mode)
}

func TestDriver_DefaultReturnsToActiveAfterCycles(t *testing.T) {
	d, clock := newTestDriver(t, WithDriverConfig(DriverConfig{
		ConsolidationInterval: time.Minute,
		DefaultModeCycles:     2,
		ActiveCycleLimit:      1000,
	}))

	c := NewCycleContext()
	c.Mode = ModeActive
	c.CycleCount = 1
	clock.Advance(61 * time.Second)
	d.checkTransitions(&c)
	require.Equal(t, ModeDefault, c.Mode)

	ctx := context.Background()
	c = d.Cycle(ctx, c) // default cycle 1
	require.Equal(t, ModeDefault, c.Mode)
	c = d.Cycle(ctx, c) // default cycle 2
	c = d.Cycle(ctx, c) // wakes up
	assert.Equal(t, ModeActive, c.Mode)
}

func TestDriver_DefaultModeConsolidates(t *testing.T) {
	store := newCuratorStore(t)
	curator := NewCurator(store, WithCuratorRand(rand.New(rand.NewSource(5))))
	d := NewDriver(curator, WithDriverRand(neverRand()))

	c := NewCycleContext()
	c.Mode = ModeDefault
	c.RecentThoughts = []string{"an insight about bridges", "a step by step plan"}

	d.executeDefault(&c)
	assert.Equal(t, 2, store.Len())
	assert.Empty(t, c.RecentThoughts, "consolidated thoughts are dropped")
	assert.Equal(t, 2, d.Stats().Consolidated)
}

func TestDriver_IntrusiveThoughtsFeedContext(t *testing.T) {
	d, _ := newTestDriver(t)
	d.AddThought("sudden worry about the deadline", 9, 5)
	d.AddThought("mild curiosity", 2, 1)

	c := NewCycleContext()
	d.processIntrusive(&c)

	assert.Equal(t, []string{"sudden worry about the deadline", "mild curiosity"}, c.IntrusiveThoughts)
	// only the disruptive thought adds an exhaustion signal
	require.Len(t, c.ExhaustionSignals, 1)
	assert.Equal(t, "high_intensity_intrusion", c.ExhaustionSignals[0])
	assert.Equal(t, 2, d.Stats().IntrusiveProcessed)

	// queue drained
	d.processIntrusive(&c)
	assert.Len(t, c.IntrusiveThoughts, 2)
}

func TestDriver_CycleReturnsIsolatedContext(t *testing.T) {
	store := newCuratorStore(t)
	store.Store("seed memory about tides", memory.TypeSemantic, memory.WithImportance(0.9))
	curator := NewCurator(store, WithCuratorRand(rand.New(rand.NewSource(5))))

	synth := NewSynthesizer(model.NewMockGenerator("m"), nil)
	d := NewDriver(curator,
		WithSynthesizer(synth),
		WithDriverRand(neverRand()),
		WithDriverConfig(DriverConfig{ActiveCycleLimit: 100}),
	)

	before := NewCycleContext()
	after := d.Cycle(context.Background(), before)

	assert.Equal(t, 1, after.CycleCount)
	assert.Zero(t, before.CycleCount, "input context unchanged")
	assert.NotEmpty(t, after.Chunks)
	assert.NotEmpty(t, after.Hypothesis, "synthesized insight becomes the hypothesis")

	// chunk slices do not alias
	after.Chunks[0] = "mutated"
	assert.NotEqual(t, before.Chunks, after.Chunks)
}

func TestDriver_SynthesisFailureDegrades(t *testing.T) {
	store := newCuratorStore(t)
	store.Store("seed", memory.TypeEpisodic)
	curator := NewCurator(store, WithCuratorRand(rand.New(rand.NewSource(5))))

	gen := model.NewMockGenerator("m")
	gen.FailWith(errors.New("provider down"))
	d := NewDriver(curator,
		WithSynthesizer(NewSynthesizer(gen, nil)),
		WithDriverRand(neverRand()),
		WithDriverConfig(DriverConfig{ActiveCycleLimit: 100}),
	)

	c := d.Cycle(context.Background(), NewCycleContext())
	// the cycle completes without a new hypothesis
	assert.Equal(t, 1, c.CycleCount)
	assert.Empty(t, c.Hypothesis)
}

func TestDriver_WorkingLoad(t *testing.T) {
	d, _ := newTestDriver(t, WithDriverConfig(DriverConfig{MaxWorkingMemory: 10}))

	c := NewCycleContext()
	c.Chunks = make([]string, 5)
	d.updateWorkingLoad(&c)
	assert.InDelta(t, 0.5, c.WorkingLoad, 1e-9)
	assert.Empty(t, c.ExhaustionSignals)

	c.Chunks = make([]string, 10)
	d.updateWorkingLoad(&c)
	assert.InDelta(t, 1.0, c.WorkingLoad, 1e-9)
	assert.Contains(t, c.ExhaustionSignals, "working_memory_overload")
}

func TestDriver_CycleEmitsMetrics(t *testing.T) {
	ml := &metricsLogger{}
	d, _ := newTestDriver(t,
		WithDriverLogger(ml),
		WithDriverConfig(DriverConfig{ActiveCycleLimit: 100}),
	)

	d.Cycle(context.Background(), NewCycleContext())
	d.Cycle(context.Background(), NewCycleContext())

	require.Len(t, ml.cycles, 2)
	assert.Contains(t, ml.cycles[0], "active/1/")
}

func TestDriver_RunStopsOnCancel(t *testing.T) {
	d, _ := newTestDriver(t, WithDriverConfig(DriverConfig{CycleInterval: 5 * time.Millisecond}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx, NewCycleContext())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, d.Stats().TotalCycles, 0)
}

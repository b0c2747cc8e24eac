// Package reverie provides a high-level façade over the memory store and
// the cognitive cycle engine. Most applications interact with this package
// by:
//  1. Creating a Reverie via New() (optionally overriding the persistence
//     backend, generator and logger)
//  2. Feeding it memories (Remember) and intrusive thoughts (AddThought)
//  3. Driving cycles directly (Cycle) or running the loop (Run)
//
// The façade delegates long-term storage to memory.Store and cognition to
// dmn.Driver while keeping setup concise. All defaults are safe for local
// development; production deployments typically supply a durable backend
// and a structured logger.
package reverie

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/reverie-ai/reverie/config"
	"github.com/reverie-ai/reverie/dmn"
	"github.com/reverie-ai/reverie/logging"
	"github.com/reverie-ai/reverie/memory"
	"github.com/reverie-ai/reverie/model"
	anthropicmodel "github.com/reverie-ai/reverie/model/anthropic"
	openaimodel "github.com/reverie-ai/reverie/model/openai"
	"github.com/reverie-ai/reverie/persistence"
)

// Options configures the Reverie instance.
type Options struct {
	// Backend persists long-term memory. Defaults to no persistence.
	Backend memory.Backend

	// Generator produces new thoughts from working memory. Defaults to a
	// mock generator so cycles run without provider credentials.
	Generator model.Generator

	// Logger defaults to NoOp if nil.
	Logger logging.Logger

	// StoreOptions tune the memory store (capacity, auto-save, worker).
	StoreOptions []memory.StoreOption

	// CuratorOptions tune retrieval (chunk cap, threshold, weights).
	CuratorOptions []dmn.CuratorOption

	// DriverConfig tunes the cycle loop. Zero fields keep defaults.
	DriverConfig dmn.DriverConfig

	// DriverOptions apply after DriverConfig (clock, rand, break manager).
	DriverOptions []dmn.DriverOption
}

// Reverie is the high-level façade aggregating the store and the driver.
type Reverie struct {
	opts   Options
	store  *memory.Store
	driver *dmn.Driver
	cctx   dmn.CycleContext
}

// New creates a Reverie instance with optional overrides. Without a backend
// the store lives purely in memory.
func New(optFns ...func(o *Options)) *Reverie {
	opts := Options{
		Backend:   memory.NullBackend{},
		Generator: model.NewMockGenerator("reverie-mock"),
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	storeOpts := append([]memory.StoreOption{memory.WithLogger(opts.Logger)}, opts.StoreOptions...)
	store := memory.NewStore(opts.Backend, storeOpts...)

	curatorOpts := append([]dmn.CuratorOption{dmn.WithCuratorLogger(opts.Logger)}, opts.CuratorOptions...)
	curator := dmn.NewCurator(store, curatorOpts...)

	synth := dmn.NewSynthesizer(opts.Generator, opts.Logger)
	driverOpts := append([]dmn.DriverOption{
		dmn.WithDriverConfig(opts.DriverConfig),
		dmn.WithSynthesizer(synth),
		dmn.WithDriverLogger(opts.Logger),
	}, opts.DriverOptions...)
	driver := dmn.NewDriver(curator, driverOpts...)

	return &Reverie{
		opts:   opts,
		store:  store,
		driver: driver,
		cctx:   dmn.NewCycleContext(),
	}
}

// NewFromConfig builds a Reverie from a loaded configuration, opening the
// configured backend and generation provider.
func NewFromConfig(cfg *config.Config) (*Reverie, error) {
	backend, err := persistence.Open(cfg.Memory.Backend, cfg.Memory.Path)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	generator, err := buildGenerator(cfg.Model)
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg.Logging)

	r := New(func(o *Options) {
		o.Backend = backend
		o.Generator = generator
		o.Logger = logger
		o.StoreOptions = []memory.StoreOption{
			memory.WithCapacity(cfg.Memory.Capacity),
			memory.WithAutoSave(cfg.Memory.AutoSave),
			memory.WithConsolidationInterval(cfg.Memory.ConsolidationInterval),
		}
		if cfg.Engine.MaxChunksPerCycle > 0 {
			o.CuratorOptions = []dmn.CuratorOption{
				dmn.WithMaxChunks(cfg.Engine.MaxChunksPerCycle),
			}
		}
		o.DriverConfig = dmn.DriverConfig{
			ActiveCycleLimit:      cfg.Engine.ActiveCycleLimit,
			BreakDuration:         cfg.Engine.BreakDuration,
			ConsolidationInterval: cfg.Engine.ConsolidationInterval,
			MaxWorkingMemory:      cfg.Engine.MaxWorkingMemory,
			CycleInterval:         cfg.Engine.CycleInterval,
			DefaultModeCycles:     cfg.Engine.DefaultModeCycles,
		}
	})
	return r, nil
}

func buildGenerator(cfg config.ModelConfig) (model.Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropicmodel.New(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropic.Model(cfg.Name)
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "openai":
		return openaimodel.New(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.Temperature > 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "mock", "":
		return model.NewMockGenerator("reverie-mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func buildLogger(cfg config.LoggingConfig) logging.Logger {
	level := logging.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	format := cfg.Format
	if format == "" {
		format = "text"
	}
	return logging.NewSlogLogger(level, format, false)
}

// Remember stores a memory and returns its id.
func (r *Reverie) Remember(content string, typ memory.Type, opts ...memory.EntryOption) string {
	return r.store.Store(content, typ, opts...)
}

// Recall retrieves a memory by id, bumping its access stats. Returns nil if
// absent.
func (r *Reverie) Recall(id string) *memory.Entry {
	return r.store.Retrieve(id)
}

// Search runs a filtered, ranked query over the store.
func (r *Reverie) Search(q memory.Query) []*memory.Entry {
	return r.store.Search(q)
}

// Strongest returns the k memories with the highest current strength.
func (r *Reverie) Strongest(k int) []*memory.Entry {
	return r.store.Strongest(k)
}

// Recent returns memories accessed within the window.
func (r *Reverie) Recent(within time.Duration, limit int) []*memory.Entry {
	return r.store.Recent(within, limit)
}

// Forget deletes a memory by id.
func (r *Reverie) Forget(id string) bool {
	return r.store.Delete(id)
}

// AddThought queues an intrusive thought for the next cycle.
func (r *Reverie) AddThought(content string, intensity, difficulty int) {
	r.driver.AddThought(content, intensity, difficulty)
}

// Cycle runs one cognitive cycle, advancing the internal context.
func (r *Reverie) Cycle(ctx context.Context) dmn.CycleContext {
	r.cctx = r.driver.Cycle(ctx, r.cctx)
	return r.cctx
}

// Run drives cycles until the context is cancelled.
func (r *Reverie) Run(ctx context.Context) error {
	return r.driver.Run(ctx, r.cctx)
}

// Context returns the current cycle context.
func (r *Reverie) Context() dmn.CycleContext { return r.cctx }

// Store exposes the underlying memory store.
func (r *Reverie) Store() *memory.Store { return r.store }

// Driver exposes the underlying cycle driver.
func (r *Reverie) Driver() *dmn.Driver { return r.driver }

// Statistics merges store and driver counters into one snapshot.
func (r *Reverie) Statistics() map[string]any {
	stats := r.store.Statistics()
	ds := r.driver.Stats()
	stats["cycles"] = ds.TotalCycles
	stats["mode_transitions"] = ds.ModeTransitions
	stats["exhaustion_events"] = ds.ExhaustionEvents
	stats["intrusive_processed"] = ds.IntrusiveProcessed
	stats["consolidated"] = ds.Consolidated
	stats["mode"] = r.cctx.Mode.String()
	return stats
}

// Close flushes and closes the store.
func (r *Reverie) Close() error {
	return r.store.Close()
}

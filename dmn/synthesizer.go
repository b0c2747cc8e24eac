package dmn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reverie-ai/reverie/logging"
	"github.com/reverie-ai/reverie/model"
)

// generateMetricsLogger is satisfied by loggers that record generation call
// latency, like logging.ReverieLogger.
type generateMetricsLogger interface {
	LogGenerateCall(provider string, dur time.Duration, success bool, err error)
}

// Synthesizer turns the current working set into a new thought by calling
// the generation collaborator. It never parses provider wire formats and
// forwards generation failures unchanged; the driver degrades gracefully
// when no thought is available.
type Synthesizer struct {
	generator model.Generator
	logger    logging.Logger
}

// NewSynthesizer creates a synthesizer over the given generator.
func NewSynthesizer(generator model.Generator, logger logging.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Synthesizer{generator: generator, logger: logger}
}

// Synthesize assembles a prompt from the cycle context and asks the
// generator for an insight. creativityBoost loosens the prompt for
// partial-wake free association.
func (s *Synthesizer) Synthesize(ctx context.Context, cctx CycleContext, creativityBoost bool) (string, error) {
	prompt := s.buildPrompt(cctx, creativityBoost)

	start := time.Now()
	insight, err := s.generator.Generate(ctx, prompt)
	if ml, ok := s.logger.(generateMetricsLogger); ok {
		ml.LogGenerateCall(s.generator.Info().Provider, time.Since(start), err == nil, err)
	}
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	insight = strings.TrimSpace(insight)
	if insight == "" {
		return "", fmt.Errorf("synthesize: empty generation")
	}
	s.logger.Debug("synthesized thought", "creative", creativityBoost, "length", len(insight))
	return insight, nil
}

func (s *Synthesizer) buildPrompt(cctx CycleContext, creativityBoost bool) string {
	var b strings.Builder
	if creativityBoost {
		b.WriteString("Free-associate loosely over these fragments and surface one unexpected connection.\n")
	} else {
		b.WriteString("Reason over these fragments and state one concise new insight.\n")
	}
	if cctx.Hypothesis != "" {
		b.WriteString("Current hypothesis: ")
		b.WriteString(cctx.Hypothesis)
		b.WriteString("\n")
	}
	for i, chunk := range cctx.Chunks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, chunk)
	}
	if len(cctx.IntrusiveThoughts) > 0 {
		b.WriteString("Stray thoughts: ")
		b.WriteString(strings.Join(cctx.IntrusiveThoughts, "; "))
		b.WriteString("\n")
	}
	return b.String()
}

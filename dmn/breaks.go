package dmn

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reverie-ai/reverie/logging"
	"github.com/reverie-ai/reverie/model"
)

// BreakType names a partial-wake activity flavor.
type BreakType string

const (
	BreakCreativeAssociation BreakType = "creative_association"
	BreakVirtualWalk         BreakType = "virtual_walk"
	BreakSensoryExploration  BreakType = "sensory_exploration"
	BreakAbstractThinking    BreakType = "abstract_thinking"
	BreakMemoryDrift         BreakType = "memory_drift"
	BreakImaginativePlay     BreakType = "imaginative_play"
)

// BreakSession records one partial-wake break: its type, the activities and
// loose associations produced, and the creativity boost it earned.
type BreakSession struct {
	ID              string
	Type            BreakType
	StartedAt       time.Time
	Duration        time.Duration
	Activities      []string
	Associations    []string
	MoodShift       bool
	CreativityBoost float64
}

// BreakStats summarizes break activity over the manager's lifetime.
type BreakStats struct {
	TotalBreaks       int
	MoodShifts        int
	AssociationsTotal int
	AvgCreativity     float64
	MostUsedType      BreakType
}

// BreakManager schedules and fills partial-wake breaks. Activities come
// from the generator when one is wired; associations are always composed
// locally from small template tables so breaks stay cheap and never block
// on a provider.
type BreakManager struct {
	generator model.Generator // optional
	logger    logging.Logger
	rng       *rand.Rand

	baseDuration time.Duration

	mu         sync.Mutex
	current    *BreakSession
	typeCounts map[BreakType]int
	stats      BreakStats
	boostSum   float64
}

// BreakOption configures a BreakManager.
type BreakOption func(*BreakManager)

// WithBreakGenerator wires a generator for activity text. Without one the
// manager falls back to template activities.
func WithBreakGenerator(g model.Generator) BreakOption {
	return func(m *BreakManager) { m.generator = g }
}

// WithBreakLogger sets the logger.
func WithBreakLogger(l logging.Logger) BreakOption {
	return func(m *BreakManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithBreakRand injects the randomness source.
func WithBreakRand(rng *rand.Rand) BreakOption {
	return func(m *BreakManager) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// WithBreakDuration sets the base break duration.
func WithBreakDuration(d time.Duration) BreakOption {
	return func(m *BreakManager) {
		if d > 0 {
			m.baseDuration = d
		}
	}
}

// NewBreakManager creates a break manager with defaults.
func NewBreakManager(opts ...BreakOption) *BreakManager {
	m := &BreakManager{
		logger:       logging.NoOpLogger{},
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		baseDuration: 30 * time.Second,
		typeCounts:   make(map[BreakType]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// chooseType weights break types by the exhaustion signals present.
// Repetitive thinking favors creative play; heavy load favors low-effort
// sensory drift; memory overload favors walks.
func (m *BreakManager) chooseType(signals []string) BreakType {
	weights := map[BreakType]int{
		BreakCreativeAssociation: 2,
		BreakVirtualWalk:         2,
		BreakSensoryExploration:  1,
		BreakAbstractThinking:    1,
		BreakMemoryDrift:         1,
		BreakImaginativePlay:     1,
	}
	for _, sig := range signals {
		switch {
		case strings.Contains(sig, "repetitive"):
			weights[BreakCreativeAssociation] += 2
			weights[BreakImaginativePlay] += 2
		case strings.Contains(sig, "load"):
			weights[BreakSensoryExploration] += 2
		case strings.Contains(sig, "memory"):
			weights[BreakVirtualWalk] += 2
			weights[BreakMemoryDrift] += 2
		}
	}

	total := 0
	for _, w := range weights {
		total += w
	}
	pick := m.rng.Intn(total)
	for _, bt := range []BreakType{
		BreakCreativeAssociation, BreakVirtualWalk, BreakSensoryExploration,
		BreakAbstractThinking, BreakMemoryDrift, BreakImaginativePlay,
	} {
		pick -= weights[bt]
		if pick < 0 {
			return bt
		}
	}
	return BreakCreativeAssociation
}

// Take runs one break for the given cycle context and returns the session.
// The break's duration stretches with exhaustion, up to 50% longer than the
// base. Generation failures degrade to template activities.
func (m *BreakManager) Take(ctx context.Context, cctx CycleContext) *BreakSession {
	bt := m.chooseType(cctx.ExhaustionSignals)

	exhaustion := float64(len(cctx.ExhaustionSignals)) / 5
	if exhaustion > 1 {
		exhaustion = 1
	}
	duration := time.Duration(float64(m.baseDuration) * (1 + exhaustion*0.5))

	session := &BreakSession{
		ID:        uuid.NewString(),
		Type:      bt,
		StartedAt: time.Now(),
		Duration:  duration,
	}

	session.Activities = m.generateActivities(ctx, bt)
	session.Associations = m.generateAssociations()
	session.MoodShift = m.moodShift(session, cctx)
	session.CreativityBoost = m.creativityBoost(session)

	m.mu.Lock()
	m.current = session
	m.typeCounts[bt]++
	m.stats.TotalBreaks++
	m.stats.AssociationsTotal += len(session.Associations)
	if session.MoodShift {
		m.stats.MoodShifts++
	}
	m.boostSum += session.CreativityBoost
	m.stats.AvgCreativity = m.boostSum / float64(m.stats.TotalBreaks)
	m.mu.Unlock()

	m.logger.Debug("brain break",
		"type", string(bt),
		"activities", len(session.Activities),
		"associations", len(session.Associations),
		"boost", session.CreativityBoost)
	return session
}

func (m *BreakManager) generateActivities(ctx context.Context, bt BreakType) []string {
	if m.generator != nil {
		prompt := fmt.Sprintf(
			"Suggest 3 short, playful %s mental break activities, one per line.",
			strings.ReplaceAll(string(bt), "_", " "))
		text, err := m.generator.Generate(ctx, prompt)
		if err == nil {
			var activities []string
			for _, line := range strings.Split(text, "\n") {
				line = strings.TrimSpace(line)
				if line != "" {
					activities = append(activities, line)
				}
				if len(activities) == 4 {
					break
				}
			}
			if len(activities) > 0 {
				return activities
			}
		} else {
			m.logger.Warn("break activity generation failed, using templates", "error", err)
		}
	}

	templates := activityTemplates[bt]
	n := 3
	if n > len(templates) {
		n = len(templates)
	}
	activities := make([]string, 0, n)
	for _, i := range m.rng.Perm(len(templates))[:n] {
		activities = append(activities, templates[i])
	}
	return activities
}

func (m *BreakManager) generateAssociations() []string {
	count := 3 + m.rng.Intn(4)
	associations := make([]string, 0, count)
	for i := 0; i < count; i++ {
		c1 := breakConcepts[m.rng.Intn(len(breakConcepts))]
		c2 := breakImages[m.rng.Intn(len(breakImages))]
		color := breakColors[m.rng.Intn(len(breakColors))]
		texture := breakTextures[m.rng.Intn(len(breakTextures))]

		var assoc string
		switch m.rng.Intn(4) {
		case 0:
			assoc = fmt.Sprintf("If %s were %s, it would feel like %s", c1, color, texture)
		case 1:
			assoc = fmt.Sprintf("Connecting %s to %s through %s pathways", c1, c2, color)
		case 2:
			assoc = fmt.Sprintf("The %s bridge between %s and %s", texture, c1, c2)
		default:
			assoc = fmt.Sprintf("When %s dreams, it sees %s in %s", c1, c2, color)
		}
		associations = append(associations, assoc)
	}
	return associations
}

// moodShift needs at least two contributing factors to count as achieved.
func (m *BreakManager) moodShift(session *BreakSession, cctx CycleContext) bool {
	factors := 0
	if len(session.Activities) >= 3 {
		factors++
	}
	if len(session.Associations) >= 4 {
		factors++
	}
	if session.Type == BreakCreativeAssociation || session.Type == BreakImaginativePlay {
		factors++
	}
	for _, sig := range cctx.ExhaustionSignals {
		if strings.Contains(sig, "repetitive") && session.Type == BreakCreativeAssociation {
			factors++
			break
		}
	}
	if m.rng.Float64() < 0.7 {
		factors++
	}
	return factors >= 2
}

var breakTypeMultipliers = map[BreakType]float64{
	BreakCreativeAssociation: 1.5,
	BreakImaginativePlay:     1.4,
	BreakAbstractThinking:    1.3,
	BreakSensoryExploration:  1.1,
	BreakVirtualWalk:         1.0,
	BreakMemoryDrift:         0.9,
}

// creativityBoost scales with activity and association counts and the break
// type, capped at 2.0.
func (m *BreakManager) creativityBoost(session *BreakSession) float64 {
	boost := 0.2 +
		float64(len(session.Activities))*0.05 +
		float64(len(session.Associations))*0.03
	if session.MoodShift {
		boost += 0.1
	}
	boost *= breakTypeMultipliers[session.Type] * 1.5
	if boost > 2.0 {
		boost = 2.0
	}
	return boost
}

// Current returns the in-progress break session, or nil.
func (m *BreakManager) Current() *BreakSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stats returns a snapshot of break statistics.
func (m *BreakManager) Stats() BreakStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	best := 0
	for bt, n := range m.typeCounts {
		if n > best {
			best = n
			stats.MostUsedType = bt
		}
	}
	return stats
}

var activityTemplates = map[BreakType][]string{
	BreakCreativeAssociation: {
		"Imagine gravity dancing with moonlight",
		"Picture crystalline blue sound waves carrying forgotten songs",
		"Blend watercolor brushwork with a coffee cup",
		"Transform turning a page into stars rearranging",
	},
	BreakVirtualWalk: {
		"Stroll through a crystal forest where books grow on trees",
		"Follow a glowing orb through a memory palace",
		"Step carefully on musical tiles under cascading colors",
		"Discover a bottle of laughter inside a dewdrop",
	},
	BreakSensoryExploration: {
		"Feel liquid silk made of starlight against your fingertips",
		"Hear wind chimes shimmering in an underwater cave",
		"Taste the warm spiciness of stardust tea",
		"Notice how warmth changes when breathing deepens",
	},
	BreakAbstractThinking: {
		"Contemplate the essence of creativity",
		"Explore how curiosity might look as a dancing flame",
		"Imagine infinity as a butterfly",
		"Ponder the relationship between rhythm and silence",
	},
	BreakMemoryDrift: {
		"Drift back to a summer evening and notice a forgotten detail",
		"Recall the feeling of sand from a distant season",
		"Connect a recent conversation to an old home",
		"Float through seasons changing like a leaf on water",
	},
	BreakImaginativePlay: {
		"Build a bridge of light from woven starlight",
		"Invent a silly game of cloud tag",
		"Role-play a curious sprite at a tea party with clouds",
		"Design a thought painter that captures wonder",
	},
}

var (
	breakConcepts = []string{"gravity", "music", "time", "laughter", "whispers", "shadows"}
	breakImages   = []string{"butterflies", "moonlight", "equations", "memories", "colors", "dreams"}
	breakColors   = []string{"crystalline blue", "warm amber", "deep violet", "soft silver", "bright coral"}
	breakTextures = []string{"velvet", "liquid silk", "feathery", "ethereal", "prismatic"}
)

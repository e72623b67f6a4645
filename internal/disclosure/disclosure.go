// Package disclosure tracks which question sophistication levels a session
// has unlocked, and advances them as expertise is demonstrated.
package disclosure

import (
	"strconv"
	"time"

	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/question"
)

// Level is a disclosure level, aligned 1:1 with sophistication levels.
type Level int

const (
	MinLevel Level = Level(question.MinSophistication)
	MaxLevel Level = Level(question.MaxSophistication)
)

// Criteria gates the unlock of one level. Questions is the number of
// questions that must have been asked at the level below; MinTier and
// MinConfidence are checked against the session's expertise profile.
type Criteria struct {
	Questions     int
	MinTier       expertise.Tier
	MinConfidence float64
}

// Tags returns the human-readable criteria tags for introspection surfaces.
func (c Criteria) Tags() []string {
	return []string{
		"questions:" + strconv.Itoa(c.Questions),
		"tier:" + c.MinTier.String(),
		"confidence:" + strconv.FormatFloat(c.MinConfidence, 'f', 1, 64),
	}
}

// defaultCriteria keys each unlockable level by the level itself.
var defaultCriteria = map[Level]Criteria{
	2: {Questions: 2, MinTier: expertise.TierBeginner, MinConfidence: 0.2},
	3: {Questions: 3, MinTier: expertise.TierIntermediate, MinConfidence: 0.4},
	4: {Questions: 3, MinTier: expertise.TierAdvanced, MinConfidence: 0.6},
	5: {Questions: 4, MinTier: expertise.TierExpert, MinConfidence: 0.8},
}

// State is a session's per-domain unlock ledger. MaxUnlocked never
// decreases within a session.
type State struct {
	SessionID      string        `json:"session_id"`
	Domain         string        `json:"domain"`
	Current        Level         `json:"current"`
	MaxUnlocked    Level         `json:"max_unlocked"`
	QuestionCounts map[Level]int `json:"question_counts"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Controller applies unlock criteria to session states.
type Controller struct {
	enabled     bool
	autoAdvance bool
	allowSkip   bool
	criteria    map[Level]Criteria
	now         func() time.Time
}

// Options configures a Controller.
type Options struct {
	Enabled     bool
	AutoAdvance bool
	AllowSkip   bool
	// Criteria overrides the default unlock table when non-nil.
	Criteria map[Level]Criteria
}

// NewController creates a disclosure controller.
func NewController(opts Options) *Controller {
	criteria := opts.Criteria
	if criteria == nil {
		criteria = defaultCriteria
	}
	return &Controller{
		enabled:     opts.Enabled,
		autoAdvance: opts.AutoAdvance,
		allowSkip:   opts.AllowSkip,
		criteria:    criteria,
		now:         time.Now,
	}
}

// NewState creates the level-1 starting state for a session.
func (c *Controller) NewState(sessionID, domain string) *State {
	return &State{
		SessionID:      sessionID,
		Domain:         domain,
		Current:        MinLevel,
		MaxUnlocked:    MinLevel,
		QuestionCounts: map[Level]int{},
		UpdatedAt:      c.now(),
	}
}

// Advance records one question at the current level and, when auto-advance
// is on and the next level's criteria are satisfied by the profile, promotes
// the session by exactly one level. With AllowSkip set, promotion repeats
// while further levels also qualify. Disabled controllers leave the state
// untouched.
func (c *Controller) Advance(state *State, profile *expertise.Profile) *State {
	if !c.enabled || state == nil {
		return state
	}

	state.QuestionCounts[state.Current]++
	state.UpdatedAt = c.now()

	if !c.autoAdvance {
		return state
	}

	for state.Current < MaxLevel && c.qualifies(state, profile) {
		state.Current++
		if state.Current > state.MaxUnlocked {
			state.MaxUnlocked = state.Current
		}
		if !c.allowSkip {
			break
		}
	}

	return state
}

// Promote raises the session to the given level after external validation.
// Used when auto-advance is disabled. The level is clamped to the valid
// range; MaxUnlocked only ever grows.
func (c *Controller) Promote(state *State, level Level) *State {
	if !c.enabled || state == nil {
		return state
	}
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	state.Current = level
	if level > state.MaxUnlocked {
		state.MaxUnlocked = level
	}
	state.UpdatedAt = c.now()
	return state
}

// CriteriaFor returns the unlock criteria for the given level.
func (c *Controller) CriteriaFor(level Level) (Criteria, bool) {
	crit, ok := c.criteria[level]
	return crit, ok
}

// qualifies reports whether the level above state.Current can be unlocked.
func (c *Controller) qualifies(state *State, profile *expertise.Profile) bool {
	next := state.Current + 1
	crit, ok := c.criteria[next]
	if !ok {
		return false
	}
	if state.QuestionCounts[state.Current] < crit.Questions {
		return false
	}
	if profile == nil {
		return false
	}
	return profile.Tier >= crit.MinTier && profile.Confidence >= crit.MinConfidence
}

// Package expertise scores user responses into an inferred skill profile.
package expertise

import (
	"strings"
	"time"

	"github.com/flowsmith/socratic/internal/question"
)

// Tier is an ordinal expertise level, 1 (novice) through 5 (expert).
type Tier int

const (
	TierNovice Tier = iota + 1
	TierBeginner
	TierIntermediate
	TierAdvanced
	TierExpert
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierNovice:
		return "novice"
	case TierBeginner:
		return "beginner"
	case TierIntermediate:
		return "intermediate"
	case TierAdvanced:
		return "advanced"
	case TierExpert:
		return "expert"
	default:
		return "unknown"
	}
}

// recentWindow bounds the rolling tier history used for consistency.
const recentWindow = 10

// confidenceStep is added per analyzed response, capped at 1.0.
const confidenceStep = 0.1

// Profile is the inferred expertise of one session's user.
type Profile struct {
	Tier          Tier            `json:"tier"`
	Dimensions    map[string]Tier `json:"dimensions"`
	Confidence    float64         `json:"confidence"`
	ResponseCount int             `json:"response_count"`
	Consistency   float64         `json:"consistency"`
	RecentTiers   []Tier          `json:"recent_tiers,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// clone returns a deep copy so callers can hand out profiles without
// exposing shared mutable state.
func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Dimensions = make(map[string]Tier, len(p.Dimensions))
	for k, v := range p.Dimensions {
		cp.Dimensions[k] = v
	}
	cp.RecentTiers = append([]Tier(nil), p.RecentTiers...)
	return &cp
}

// signals are the raw measurements taken from one answer.
type signals struct {
	length   int
	terms    int
	concepts int
}

// Tracker derives expertise profiles from answer text. It holds no session
// state itself; callers own the profile and pass the prior one in.
type Tracker struct {
	enabled bool
	now     func() time.Time
}

// NewTracker creates a tracker. When enabled is false AnalyzeResponse is a
// no-op returning nil.
func NewTracker(enabled bool) *Tracker {
	return &Tracker{enabled: enabled, now: time.Now}
}

// AnalyzeResponse scores the turn's answer against the prior profile and
// returns the updated profile. The prior profile is never mutated. A nil
// result means tracking is disabled, not an error.
func (t *Tracker) AnalyzeResponse(turn question.Turn, prior *Profile) *Profile {
	if !t.enabled {
		return nil
	}

	sig := measure(turn.Answer)
	candidate := tierFor(sig, prior)

	next := prior.clone()
	if next == nil {
		next = &Profile{Dimensions: map[string]Tier{}, Consistency: 1}
	}

	next.Tier = candidate
	next.Dimensions["depth"] = scaleTier(sig.length, 50, 100, 150, 200)
	next.Dimensions["vocabulary"] = scaleTier(sig.terms, 1, 2, 3, 4)
	next.Dimensions["breadth"] = scaleTier(sig.concepts, 1, 2, 3, 4)
	next.ResponseCount++

	next.Confidence += confidenceStep
	if next.Confidence > 1.0 {
		next.Confidence = 1.0
	}

	next.Consistency = consistency(candidate, next.RecentTiers)
	next.RecentTiers = append(next.RecentTiers, candidate)
	if len(next.RecentTiers) > recentWindow {
		next.RecentTiers = next.RecentTiers[len(next.RecentTiers)-recentWindow:]
	}

	next.UpdatedAt = t.now()
	return next
}

// measure extracts the three raw signals from an answer.
func measure(answer string) signals {
	lower := strings.ToLower(answer)

	terms := 0
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			terms++
		}
	}

	concepts := 0
	for _, keywords := range conceptGroups {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				concepts++
				break
			}
		}
	}

	return signals{length: len(answer), terms: terms, concepts: concepts}
}

// tierFor maps signal thresholds to a tier. When no rule fires the tier is
// unchanged from the prior profile, or novice when there is none.
func tierFor(sig signals, prior *Profile) Tier {
	switch {
	case sig.length > 200 && sig.terms > 3 && sig.concepts > 2:
		return TierExpert
	case sig.length > 150 && sig.terms > 2 && sig.concepts > 1:
		return TierAdvanced
	case sig.length > 100 && sig.terms > 1:
		return TierIntermediate
	case sig.length > 50 && sig.terms > 0:
		return TierBeginner
	default:
		if prior != nil {
			return prior.Tier
		}
		return TierNovice
	}
}

// scaleTier maps a raw count onto a tier given four ascending cut points.
func scaleTier(value int, c2, c3, c4, c5 int) Tier {
	switch {
	case value >= c5:
		return TierExpert
	case value >= c4:
		return TierAdvanced
	case value >= c3:
		return TierIntermediate
	case value >= c2:
		return TierBeginner
	default:
		return TierNovice
	}
}

// consistency compares the new tier to the rolling average of recent tiers.
// 1.0 means no deviation; each full tier of deviation costs 0.25.
func consistency(candidate Tier, recent []Tier) float64 {
	if len(recent) == 0 {
		return 1.0
	}
	sum := 0
	for _, r := range recent {
		sum += int(r)
	}
	avg := float64(sum) / float64(len(recent))

	dev := float64(candidate) - avg
	if dev < 0 {
		dev = -dev
	}
	score := 1.0 - dev/4.0
	if score < 0 {
		return 0
	}
	return score
}

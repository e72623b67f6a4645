// Package convmem keeps a bounded in-memory record of conversation turns
// per session and derives aggregate metrics from it. It is pure
// bookkeeping: it never rejects input, it only evicts the oldest entries.
package convmem

import (
	"sync"
	"time"

	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/question"
)

// Defaults for the bounded windows.
const (
	DefaultMaxTurns     = 50
	DefaultMaxSnapshots = 10
)

// Pattern tags detected heuristically from the recent window.
const (
	PatternDomainSwitching = "domain_switching"
	PatternRapidResponses  = "rapid_responses"
	PatternExpertiseGrowth = "expertise_growth"
	PatternStalled         = "stalled"
)

// Context is the aggregated view of one session's conversation.
type Context struct {
	SessionID                 string           `json:"session_id"`
	DominantDomain            string           `json:"dominant_domain"`
	TurnCount                 int              `json:"turn_count"`
	AvgResponseLatency        time.Duration    `json:"avg_response_latency"`
	ExpertiseProgression      []expertise.Tier `json:"expertise_progression"`
	SophisticationProgression []int            `json:"sophistication_progression"`
	Patterns                  []string         `json:"patterns"`
}

// sessionLog is the bounded per-session record.
type sessionLog struct {
	turns     []question.Turn
	snapshots []expertise.Tier
	domains   []string
	levels    []int
	total     int // total recorded turns, survives eviction
}

// Manager owns the per-session logs.
type Manager struct {
	mu           sync.Mutex
	maxTurns     int
	maxSnapshots int
	logs         map[string]*sessionLog
}

// NewManager creates a memory manager with the given window bounds; zero
// values fall back to the defaults.
func NewManager(maxTurns, maxSnapshots int) *Manager {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxSnapshots <= 0 {
		maxSnapshots = DefaultMaxSnapshots
	}
	return &Manager{
		maxTurns:     maxTurns,
		maxSnapshots: maxSnapshots,
		logs:         map[string]*sessionLog{},
	}
}

// RecordTurn appends a turn and its surrounding context to the session log,
// evicting the oldest entries past the window bounds.
func (m *Manager) RecordTurn(sessionID string, turn question.Turn, dc domain.Context, profile *expertise.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[sessionID]
	if log == nil {
		log = &sessionLog{}
		m.logs[sessionID] = log
	}

	log.total++
	log.turns = append(log.turns, turn)
	if len(log.turns) > m.maxTurns {
		log.turns = log.turns[len(log.turns)-m.maxTurns:]
	}

	log.domains = append(log.domains, dc.Name)
	log.levels = append(log.levels, turn.Sophistication)
	if len(log.domains) > m.maxTurns {
		log.domains = log.domains[len(log.domains)-m.maxTurns:]
		log.levels = log.levels[len(log.levels)-m.maxTurns:]
	}

	if profile != nil {
		log.snapshots = append(log.snapshots, profile.Tier)
		if len(log.snapshots) > m.maxSnapshots {
			log.snapshots = log.snapshots[len(log.snapshots)-m.maxSnapshots:]
		}
	}
}

// RecentTurns returns up to n most recent turns for the session, oldest
// first. A copy is returned; the internal log stays private.
func (m *Manager) RecentTurns(sessionID string, n int) []question.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[sessionID]
	if log == nil || n <= 0 {
		return nil
	}
	turns := log.turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]question.Turn(nil), turns...)
}

// Context recomputes and returns the aggregate view for a session.
func (m *Manager) Context(sessionID string) Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	cc := Context{SessionID: sessionID, DominantDomain: domain.GeneralDomain, Patterns: []string{}}
	log := m.logs[sessionID]
	if log == nil {
		return cc
	}

	cc.TurnCount = log.total
	cc.DominantDomain = dominant(log.domains)
	cc.ExpertiseProgression = append([]expertise.Tier(nil), log.snapshots...)
	cc.SophisticationProgression = append([]int(nil), log.levels...)
	cc.AvgResponseLatency = avgLatency(log.turns)
	cc.Patterns = detectPatterns(log, cc.AvgResponseLatency)
	return cc
}

// Forget drops all state for a session.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, sessionID)
}

// dominant returns the most frequent entry, last-seen winning ties.
func dominant(values []string) string {
	if len(values) == 0 {
		return domain.GeneralDomain
	}
	counts := map[string]int{}
	best := values[len(values)-1]
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

// avgLatency averages asked-to-answered time over answered turns.
func avgLatency(turns []question.Turn) time.Duration {
	var sum time.Duration
	n := 0
	for _, t := range turns {
		if t.Answered() && !t.AnsweredAt.IsZero() && t.AnsweredAt.After(t.AskedAt) {
			sum += t.AnsweredAt.Sub(t.AskedAt)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

func detectPatterns(log *sessionLog, avg time.Duration) []string {
	patterns := []string{}

	switches := 0
	for i := 1; i < len(log.domains); i++ {
		if log.domains[i] != log.domains[i-1] {
			switches++
		}
	}
	if switches >= 2 {
		patterns = append(patterns, PatternDomainSwitching)
	}

	if avg > 0 && avg < 5*time.Second && len(log.turns) >= 3 {
		patterns = append(patterns, PatternRapidResponses)
	}

	if n := len(log.snapshots); n >= 2 && log.snapshots[n-1] > log.snapshots[0] {
		patterns = append(patterns, PatternExpertiseGrowth)
	}

	if n := len(log.levels); n >= 5 {
		same := true
		for i := n - 4; i < n; i++ {
			if log.levels[i] != log.levels[n-5] {
				same = false
				break
			}
		}
		if same {
			patterns = append(patterns, PatternStalled)
		}
	}

	return patterns
}

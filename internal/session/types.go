// Package session persists questioning sessions, their turns, and expertise
// snapshots, and enforces the active-session cap with idle expiry.
package session

import (
	"time"

	"github.com/flowsmith/socratic/internal/disclosure"
	"github.com/flowsmith/socratic/internal/expertise"
)

// Session is one questioning conversation with a user.
type Session struct {
	ID           string     `json:"id"`
	Domain       string     `json:"domain"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	State        State      `json:"state"`
}

// Active reports whether the session has not been ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// State is the resumable part of a session, stored as a JSON blob so new
// pipeline components can extend it without schema changes.
type State struct {
	Profile    *expertise.Profile `json:"profile,omitempty"`
	Disclosure *disclosure.State  `json:"disclosure,omitempty"`
}

// Snapshot is a point-in-time record of a session's expertise profile.
type Snapshot struct {
	ID            string                    `json:"id"`
	SessionID     string                    `json:"session_id"`
	Tier          expertise.Tier            `json:"tier"`
	Confidence    float64                   `json:"confidence"`
	Consistency   float64                   `json:"consistency"`
	ResponseCount int                       `json:"response_count"`
	Dimensions    map[string]expertise.Tier `json:"dimensions"`
	TakenAt       time.Time                 `json:"taken_at"`
}

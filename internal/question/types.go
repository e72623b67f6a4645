package question

import "time"

// Turn is one question/answer exchange within a session. Answer and
// AnsweredAt stay zero until the user responds.
type Turn struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer,omitempty"`
	Sophistication int       `json:"sophistication"`
	Domain         string    `json:"domain"`
	AskedAt        time.Time `json:"asked_at"`
	AnsweredAt     time.Time `json:"answered_at,omitempty"`
}

// Answered reports whether the turn has a user answer.
func (t Turn) Answered() bool {
	return t.Answer != ""
}

// AdaptiveQuestion is a base generated question before enrichment.
type AdaptiveQuestion struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	Domain         string            `json:"domain"`
	Sophistication int               `json:"sophistication"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Sophistication bounds. Levels outside this range are clamped on input and
// rejected by the validator on output.
const (
	MinSophistication = 1
	MaxSophistication = 5
)

// ClampLevel forces a sophistication level into the valid range.
func ClampLevel(level int) int {
	if level < MinSophistication {
		return MinSophistication
	}
	if level > MaxSophistication {
		return MaxSophistication
	}
	return level
}

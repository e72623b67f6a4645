package question

import (
	"strings"

	"github.com/flowsmith/socratic/internal/domain"
)

// inappropriateMarkers is the denylist of content markers that cause a
// generated question to be dropped.
var inappropriateMarkers = []string{
	"password",
	"credit card",
	"social security",
	"exploit",
	"nsfw",
}

// Validator holds the pure relevance and content predicates applied to
// generated questions. All methods are synchronous and side-effect free.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRelevance reports whether q fits the current domain context:
// the sophistication must be within [1,5], and either the question's domain
// matches the context name case-insensitively or the question text itself
// contains the domain name.
func (v *Validator) ValidateRelevance(q AdaptiveQuestion, current domain.Context) bool {
	if q.Sophistication < MinSophistication || q.Sophistication > MaxSophistication {
		return false
	}
	if strings.EqualFold(q.Domain, current.Name) {
		return true
	}
	return strings.Contains(strings.ToLower(q.Text), strings.ToLower(current.Name))
}

// FilterInappropriate reports whether q is allowed. False means drop.
func (v *Validator) FilterInappropriate(q AdaptiveQuestion) bool {
	text := strings.ToLower(q.Text)
	for _, marker := range inappropriateMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

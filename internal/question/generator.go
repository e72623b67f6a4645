package question

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/flowsmith/socratic/internal/domain"
)

// maxReferenceRunes bounds the quoted snippet of the previous turn.
const maxReferenceRunes = 120

// recentQuestionWindow bounds how far back non-repetitive selection looks.
const recentQuestionWindow = 5

// tierPhrasings maps each sophistication level to a question template.
// %s is the domain name, which must appear verbatim in every generated
// question so relevance validation can anchor on it.
var tierPhrasings = [MaxSophistication + 1]string{
	"", // unused; levels are 1-based
	"Let's keep it simple: what would you like your %s workflow to do?",
	"Could you describe the main goal you have in mind for your %s workflow?",
	"Which requirements matter most for your %s workflow, and why those?",
	"What constraints, integrations, or edge cases should your %s workflow account for?",
	"How should your %s workflow balance throughput, cost, and failure isolation, and which trade-offs are acceptable?",
}

// categorySeeds are opening questions for well-known workflow categories,
// used on the first turn when the detected domain matches a category.
var categorySeeds = map[string][]string{
	"chatbot": {
		"What kind of conversations do you want your chatbot to have with users?",
		"Who is your target audience for this chatbot?",
		"What specific problems should your chatbot help users solve?",
		"What tone or personality should your chatbot have?",
	},
	"data analysis": {
		"What type of data are you working with?",
		"What insights or patterns are you hoping to discover?",
		"What decisions will this analysis help you make?",
	},
	"RAG workflow": {
		"What kind of documents or knowledge base will you be searching through?",
		"What types of questions do users need to ask about this information?",
		"How current does the information need to be?",
	},
	"content generation": {
		"What type of content do you want to generate?",
		"Who is the intended audience for this content?",
		"What style or tone should the content have?",
	},
}

// conceptOrder fixes the priority in which concepts are matched; the first
// concept found in an answer steers the follow-up.
var conceptOrder = []string{
	"business", "technical", "user_experience", "automation",
	"real_time", "security", "scale",
}

// conceptKeywords map a concept to the answer terms that indicate it.
var conceptKeywords = map[string][]string{
	"business":        {"business", "company", "enterprise", "commercial", "revenue"},
	"technical":       {"api", "database", "integration", "technical", "system"},
	"user_experience": {"user", "experience", "interface", "usability", "design"},
	"automation":      {"automate", "automatic", "workflow", "process", "task"},
	"real_time":       {"real-time", "live", "instant", "immediate", "streaming"},
	"security":        {"secure", "security", "private", "confidential", "protect"},
	"scale":           {"scale", "scalable", "performance", "volume", "growth"},
}

// conceptFollowUps are follow-up questions per identified concept. Selection
// skips questions already asked in the recent history.
var conceptFollowUps = map[string][]string{
	"business": {
		"How does this fit into your business goals?",
		"What's the expected business impact or ROI?",
		"Who are the key stakeholders for this project?",
	},
	"technical": {
		"What existing systems does this need to integrate with?",
		"Are there any technical constraints I should know about?",
		"What's your current technical infrastructure like?",
	},
	"user_experience": {
		"What does a successful user interaction look like?",
		"How tech-savvy are your typical users?",
		"What would make this really valuable for your users?",
	},
	"automation": {
		"What manual processes are you hoping to automate?",
		"How often does this process need to run?",
		"What triggers should start this automation?",
	},
	"real_time": {
		"How quickly do you need responses or results?",
		"What happens if there's a delay in processing?",
		"How will users know when new information is available?",
	},
	"security": {
		"What kind of sensitive information will be handled?",
		"What security or compliance requirements do you have?",
		"Who should have access to this system?",
	},
	"scale": {
		"How many users do you expect?",
		"What's the expected volume of data or requests?",
		"How quickly do you anticipate growth?",
	},
}

// Generator composes base questions deterministically from domain context,
// history, and sophistication. It makes no external calls.
type Generator struct{}

// NewGenerator creates a question generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces a base question. The sophistication level is clamped
// into [1,5]; the domain name always appears verbatim in the text; if the
// history is non-empty, the most recent turn's answer (or question when
// unanswered) is referenced, truncated to a bounded length. Every call
// yields a fresh id.
func (g *Generator) Generate(dc domain.Context, history []Turn, level int) AdaptiveQuestion {
	level = ClampLevel(level)

	var text string
	meta := map[string]string{"tier": strconv.Itoa(level)}

	if len(history) == 0 {
		if seeds, ok := categorySeeds[dc.Name]; ok {
			// Category opener. The seed does not repeat the domain name, so
			// prefix it to keep the validation anchor in the text.
			text = fmt.Sprintf("For your %s workflow: %s", dc.Name, seeds[0])
			meta["seed"] = "category"
		} else {
			text = fmt.Sprintf(tierPhrasings[level], dc.Name)
		}
	} else {
		last := history[len(history)-1]
		ref := last.Answer
		if ref == "" {
			ref = last.Question
		}
		if concept := identifyConcept(last.Answer); concept != "" {
			followUp := selectFollowUp(conceptFollowUps[concept], history)
			text = fmt.Sprintf("You mentioned %q. Thinking about your %s workflow: %s",
				truncateRunes(ref, maxReferenceRunes), dc.Name, followUp)
			meta["concept"] = concept
		} else {
			text = fmt.Sprintf(tierPhrasings[level], dc.Name)
			if ref != "" {
				text = fmt.Sprintf("%s You mentioned %q; how does that shape this?", text, truncateRunes(ref, maxReferenceRunes))
			}
		}
	}

	return AdaptiveQuestion{
		ID:             uuid.NewString(),
		Text:           text,
		Domain:         dc.Name,
		Sophistication: level,
		Metadata:       meta,
	}
}

// identifyConcept returns the highest-priority concept whose keywords appear
// in the answer, or "" when none match.
func identifyConcept(answer string) string {
	text := strings.ToLower(answer)
	if text == "" {
		return ""
	}
	for _, name := range conceptOrder {
		for _, kw := range conceptKeywords[name] {
			if strings.Contains(text, kw) {
				return name
			}
		}
	}
	return ""
}

// selectFollowUp picks the first candidate not asked within the recent
// history window. When every candidate was asked recently, the first one
// repeats.
func selectFollowUp(candidates []string, history []Turn) string {
	recent := history
	if len(recent) > recentQuestionWindow {
		recent = recent[len(recent)-recentQuestionWindow:]
	}
	for _, c := range candidates {
		asked := false
		for _, t := range recent {
			if strings.Contains(strings.ToLower(t.Question), strings.ToLower(c)) {
				asked = true
				break
			}
		}
		if !asked {
			return c
		}
	}
	return candidates[0]
}

// truncateRunes cuts s to at most n runes, appending an ellipsis when
// anything was removed.
func truncateRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}

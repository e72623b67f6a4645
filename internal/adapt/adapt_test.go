package adapt

import (
	"context"
	"strings"
	"testing"

	"github.com/flowsmith/socratic/internal/convmem"
	"github.com/flowsmith/socratic/internal/disclosure"
	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/enrich"
	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/question"
)

// intermediateAnswer is over 100 characters with several technical terms.
const intermediateAnswer = "We need a database integration exposed through a REST api so the system can automate the intake workflow for business users."

func newTestEngine(adaptive bool) (*Engine, *convmem.Manager) {
	memory := convmem.NewManager(convmem.DefaultMaxTurns, convmem.DefaultMaxSnapshots)
	e := NewEngine(
		expertise.NewTracker(true),
		disclosure.NewController(disclosure.Options{Enabled: true, AutoAdvance: true}),
		memory,
		question.NewGenerator(),
		question.NewValidator(),
		enrich.New(nil, enrich.Options{}),
		adaptive,
	)
	return e, memory
}

func answeredTurn(sessionID, answer string) question.Turn {
	t := question.Turn{
		ID:        "t1",
		SessionID: sessionID,
		Question:  "What should the workflow do?",
		Answer:    answer,
		Domain:    "automation",
	}
	return t
}

func TestAdaptQuestionFullSequence(t *testing.T) {
	e, memory := newTestEngine(true)
	dc := domain.Context{Name: "automation", Confidence: 0.8}

	prior := &expertise.Profile{Tier: expertise.TierNovice, Confidence: 0.3, Dimensions: map[string]expertise.Tier{}}
	state := &disclosure.State{
		SessionID:      "s1",
		Domain:         "automation",
		Current:        1,
		MaxUnlocked:    1,
		QuestionCounts: map[disclosure.Level]int{1: 1},
	}

	res := e.AdaptQuestion(context.Background(), Request{
		SessionID:      "s1",
		Turn:           answeredTurn("s1", intermediateAnswer),
		Expertise:      prior,
		Disclosure:     state,
		Sophistication: 1,
		DomainContext:  dc,
	})

	if res.Question == nil {
		t.Fatal("expected a question")
	}
	if res.Expertise == nil || res.Expertise.Tier != expertise.TierIntermediate {
		t.Errorf("expected intermediate expertise, got %+v", res.Expertise)
	}
	if prior.Tier != expertise.TierNovice {
		t.Error("prior profile mutated")
	}

	// Second question at level 1 plus qualifying expertise unlocks level 2.
	if state.Current != 2 {
		t.Errorf("expected disclosure level 2, got %d", state.Current)
	}
	if res.Sophistication != 2 {
		t.Errorf("expected sophistication 2, got %d", res.Sophistication)
	}

	if !strings.Contains(res.Question.Text, "automation") {
		t.Errorf("question does not mention domain: %q", res.Question.Text)
	}
	if !strings.Contains(res.Question.Text, "You mentioned") {
		t.Errorf("question does not reference the last answer: %q", res.Question.Text)
	}
	if res.Question.Sources == nil {
		t.Error("sources must be non-nil even without a provider")
	}

	if cc := memory.Context("s1"); cc.TurnCount != 1 {
		t.Errorf("expected turn recorded in memory, count=%d", cc.TurnCount)
	}
}

func TestAdaptQuestionFixedLevelWhenAdaptiveOff(t *testing.T) {
	e, _ := newTestEngine(false)
	dc := domain.Context{Name: "automation"}

	state := &disclosure.State{
		SessionID:      "s1",
		Domain:         "automation",
		Current:        1,
		MaxUnlocked:    1,
		QuestionCounts: map[disclosure.Level]int{1: 5},
	}

	res := e.AdaptQuestion(context.Background(), Request{
		SessionID:      "s1",
		Turn:           answeredTurn("s1", intermediateAnswer),
		Expertise:      &expertise.Profile{Tier: expertise.TierExpert, Confidence: 0.9},
		Disclosure:     state,
		Sophistication: 3,
		DomainContext:  dc,
	})

	if res.Question == nil {
		t.Fatal("expected a question")
	}
	if res.Question.Sophistication != 3 {
		t.Errorf("expected requested level 3 to be used, got %d", res.Question.Sophistication)
	}
}

func TestAdaptQuestionReturnsNilOnRepeatedRejection(t *testing.T) {
	e, _ := newTestEngine(true)
	// A domain whose name trips the inappropriate-content filter makes every
	// generated question unsafe, forcing the retry and then the nil result.
	dc := domain.Context{Name: "password vault"}

	res := e.AdaptQuestion(context.Background(), Request{
		SessionID:      "s1",
		Turn:           answeredTurn("s1", intermediateAnswer),
		Expertise:      &expertise.Profile{Tier: expertise.TierNovice},
		Disclosure:     &disclosure.State{Current: 1, MaxUnlocked: 1, QuestionCounts: map[disclosure.Level]int{}},
		Sophistication: 1,
		DomainContext:  dc,
	})

	if res.Question != nil {
		t.Fatalf("expected nil question, got %q", res.Question.Text)
	}
	if res.Expertise == nil {
		t.Error("expertise should still be updated on the nil path")
	}
}

func TestAdaptQuestionUnansweredTurnKeepsProfile(t *testing.T) {
	e, _ := newTestEngine(true)
	prior := &expertise.Profile{Tier: expertise.TierAdvanced, Confidence: 0.7}

	res := e.AdaptQuestion(context.Background(), Request{
		SessionID:      "s1",
		Turn:           question.Turn{ID: "t1", SessionID: "s1", Question: "pending", Domain: "general"},
		Expertise:      prior,
		Disclosure:     &disclosure.State{Current: 1, MaxUnlocked: 1, QuestionCounts: map[disclosure.Level]int{}},
		Sophistication: 1,
		DomainContext:  domain.Context{Name: "general"},
	})

	if res.Expertise != prior {
		t.Error("unanswered turn should not produce a new profile")
	}
	if res.Question == nil {
		t.Fatal("expected a question")
	}
}

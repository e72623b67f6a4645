// Package adapt orchestrates the full next-question decision: expertise
// analysis, disclosure advancement, memory recording, generation, validation,
// and enrichment. It is the only place the stateful components interact.
package adapt

import (
	"context"

	"github.com/flowsmith/socratic/internal/convmem"
	"github.com/flowsmith/socratic/internal/disclosure"
	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/enrich"
	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/question"
)

// historyWindow is how many recent turns the generator sees.
const historyWindow = 10

// Request bundles everything the engine needs for one adaptation step.
type Request struct {
	SessionID      string
	Turn           question.Turn
	Expertise      *expertise.Profile
	Disclosure     *disclosure.State
	Sophistication int
	DomainContext  domain.Context
}

// Result is the outcome of one adaptation step. Question is nil when
// validation rejected the generated question twice; the updated expertise
// and sophistication are still returned so session state stays coherent.
type Result struct {
	Question       *enrich.EnrichedQuestion
	Expertise      *expertise.Profile
	Sophistication int
}

// Engine runs the adaptation sequence.
type Engine struct {
	tracker    *expertise.Tracker
	disclosure *disclosure.Controller
	memory     *convmem.Manager
	generator  *question.Generator
	validator  *question.Validator
	enricher   *enrich.Enricher

	adaptiveComplexity bool
}

// NewEngine wires the pipeline components together. With adaptiveComplexity
// off, the requested sophistication level is used as-is and disclosure state
// is recorded but never drives the generated level.
func NewEngine(
	tracker *expertise.Tracker,
	ctrl *disclosure.Controller,
	memory *convmem.Manager,
	generator *question.Generator,
	validator *question.Validator,
	enricher *enrich.Enricher,
	adaptiveComplexity bool,
) *Engine {
	return &Engine{
		tracker:            tracker,
		disclosure:         ctrl,
		memory:             memory,
		generator:          generator,
		validator:          validator,
		enricher:           enricher,
		adaptiveComplexity: adaptiveComplexity,
	}
}

// AdaptQuestion runs one step of the pipeline. It never returns an error:
// component failures degrade inside the components themselves, and the only
// terminal outcome is a nil Question after repeated validation rejection.
func (e *Engine) AdaptQuestion(ctx context.Context, req Request) Result {
	// 1. Analyze the latest answer. A nil candidate (tracking disabled or
	// no answer yet) keeps the prior profile.
	profile := req.Expertise
	if req.Turn.Answered() {
		if candidate := e.tracker.AnalyzeResponse(req.Turn, req.Expertise); candidate != nil {
			profile = candidate
		}
	}

	// 2. Advance disclosure with the candidate expertise.
	state := e.disclosure.Advance(req.Disclosure, profile)

	// 3. Record the turn in conversation memory.
	e.memory.RecordTurn(req.SessionID, req.Turn, req.DomainContext, profile)

	// 4. Pick the generation level and produce the base question.
	level := req.Sophistication
	if e.adaptiveComplexity && state != nil {
		level = int(state.Current)
	}

	history := e.memory.RecentTurns(req.SessionID, historyWindow)
	base := e.generator.Generate(req.DomainContext, history, level)

	// 5. Validate; one retry at the unmodified requested level, then give up.
	if !e.valid(base, req.DomainContext) {
		base = e.generator.Generate(req.DomainContext, history, req.Sophistication)
		if !e.valid(base, req.DomainContext) {
			return Result{Expertise: profile, Sophistication: level}
		}
	}

	// 6. Enrich.
	enriched := e.enricher.Enrich(ctx, base, req.DomainContext)

	return Result{
		Question:       &enriched,
		Expertise:      profile,
		Sophistication: base.Sophistication,
	}
}

func (e *Engine) valid(q question.AdaptiveQuestion, dc domain.Context) bool {
	return e.validator.ValidateRelevance(q, dc) && e.validator.FilterInappropriate(q)
}

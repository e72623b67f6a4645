// Package engine is the questioning facade: it wraps the adaptation pipeline
// with result caching, a circuit breaker, and a session admission cap.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/flowsmith/socratic/internal/adapt"
	"github.com/flowsmith/socratic/internal/config"
	"github.com/flowsmith/socratic/internal/convmem"
	"github.com/flowsmith/socratic/internal/disclosure"
	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/enrich"
	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/question"
	"github.com/flowsmith/socratic/internal/session"
)

var (
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("question generation unavailable")
	// ErrSessionLimit is returned when the active-session cap is reached.
	// Requests over the cap are rejected, never queued.
	ErrSessionLimit = errors.New("active session limit reached")
	// ErrNoPendingQuestion is returned when an answer arrives for a session
	// with no outstanding question.
	ErrNoPendingQuestion = errors.New("no pending question")
)

// liveSession is the in-memory working state of one active session. All
// pipeline state for a session is mutated only under its lock, so turns
// within a session are processed strictly in submission order.
type liveSession struct {
	mu         sync.Mutex
	id         string
	domainName string
	profile    *expertise.Profile
	state      *disclosure.State
	pending    *question.Turn
	lastActive time.Time
}

// Engine is the questioning facade.
type Engine struct {
	cfg      config.Config
	store    *session.Store
	domains  domain.Provider
	pipeline *adapt.Engine
	memory   *convmem.Manager
	ctrl     *disclosure.Controller

	generator *question.Generator
	validator *question.Validator
	enricher  *enrich.Enricher

	cache   *questionCache
	breaker *breaker

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// New builds an engine from configuration. The knowledge provider may be nil
// (enrichment degrades to context-only); the domain provider may be nil
// (general-domain sessions fall back to keyword detection over their recent
// answers).
func New(cfg config.Config, store *session.Store, kp knowledge.Provider, dp domain.Provider) *Engine {
	tracker := expertise.NewTracker(cfg.Flags.ExpertiseTracking)
	ctrl := disclosure.NewController(disclosure.Options{
		Enabled:     cfg.Flags.ProgressiveDisclosure,
		AutoAdvance: cfg.Disclosure.AutoAdvance,
		AllowSkip:   cfg.Disclosure.AllowSkip,
	})
	memory := convmem.NewManager(convmem.DefaultMaxTurns, convmem.DefaultMaxSnapshots)
	generator := question.NewGenerator()
	validator := question.NewValidator()
	enricher := enrich.New(kp, enrich.Options{
		Timeout:           time.Duration(cfg.Enrichment.TimeoutSeconds) * time.Second,
		IncludeWebSearch:  cfg.Enrichment.IncludeWebSearch,
		IncludeMCPServers: cfg.Enrichment.IncludeMCPServers,
		MaxSources:        cfg.Enrichment.MaxSources,
	})

	return &Engine{
		cfg:       cfg,
		store:     store,
		domains:   dp,
		pipeline:  adapt.NewEngine(tracker, ctrl, memory, generator, validator, enricher, cfg.Flags.AdaptiveComplexity),
		memory:    memory,
		ctrl:      ctrl,
		generator: generator,
		validator: validator,
		enricher:  enricher,
		cache:     newQuestionCache(cfg.Cache.MaxEntries),
		breaker:   newBreaker(cfg.Flags.CircuitBreaker, cfg.Breaker.FailureThreshold, time.Duration(cfg.Breaker.CooldownSeconds)*time.Second),
		sessions:  map[string]*liveSession{},
	}
}

// Enabled reports the master questioning switch.
func (e *Engine) Enabled() bool {
	return e.cfg.Flags.Questioning
}

// StartSession admits a new session for a domain, enforcing the active cap.
// Idle sessions past the TTL are expired before admission is decided.
func (e *Engine) StartSession(ctx context.Context, domainName string) (*session.Session, error) {
	if domainName == "" {
		domainName = domain.GeneralDomain
	}

	e.sweepIdle(ctx)

	// The lock spans the store insert so concurrent starts cannot race past
	// the cap between the check and the registration.
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sessions) >= e.cfg.Sessions.MaxActive {
		return nil, ErrSessionLimit
	}

	sess, err := e.store.CreateSession(ctx, domainName)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	e.sessions[sess.ID] = &liveSession{
		id:         sess.ID,
		domainName: domainName,
		state:      e.ctrl.NewState(sess.ID, domainName),
		lastActive: time.Now(),
	}

	return sess, nil
}

// EndSession ends a session and releases its in-memory state.
func (e *Engine) EndSession(ctx context.Context, id string) error {
	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()

	e.memory.Forget(id)
	return e.store.EndSession(ctx, id)
}

// Generate produces an enriched question for the given history and level.
// It is the cache-and-breaker wrapped generation path: a cache hit returns
// the identical stored object without regeneration; an open breaker rejects
// immediately; a validation rejection is a terminal nil and is never cached.
// With the master switch off it returns nil with no side effects.
func (e *Engine) Generate(ctx context.Context, dc domain.Context, history []question.Turn, level int) (*enrich.EnrichedQuestion, error) {
	if !e.cfg.Flags.Questioning || !e.cfg.Flags.QuestionGeneration {
		return nil, nil
	}

	key := cacheKey(dc, history, level)
	if hit, ok := e.cache.get(key); ok {
		return hit, nil
	}

	if !e.breaker.allow() {
		return nil, ErrUnavailable
	}

	base := e.generator.Generate(dc, history, level)
	if !e.validator.ValidateRelevance(base, dc) || !e.validator.FilterInappropriate(base) {
		base = e.generator.Generate(dc, history, level)
		if !e.validator.ValidateRelevance(base, dc) || !e.validator.FilterInappropriate(base) {
			e.breaker.recordFailure()
			return nil, nil
		}
	}
	e.breaker.recordSuccess()

	enriched := e.enricher.Enrich(ctx, base, dc)
	e.cache.put(key, &enriched)
	return &enriched, nil
}

// NextQuestion generates and records the next question for a session at its
// current disclosure level. Returns nil when questioning is disabled or the
// generated question was rejected.
func (e *Engine) NextQuestion(ctx context.Context, sessionID string) (*enrich.EnrichedQuestion, error) {
	if !e.cfg.Flags.Questioning {
		return nil, nil
	}

	live, err := e.live(sessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	dc := e.resolveDomain(ctx, live)
	history, err := e.store.RecentTurns(ctx, sessionID, adaptHistoryWindow)
	if err != nil {
		return nil, err
	}

	q, err := e.Generate(ctx, dc, history, int(live.state.Current))
	if err != nil || q == nil {
		return q, err
	}

	turn := &question.Turn{
		SessionID:      sessionID,
		Question:       q.Text,
		Sophistication: q.Sophistication,
		Domain:         q.Domain,
	}
	if err := e.store.AppendTurn(ctx, turn); err != nil {
		return nil, err
	}
	live.pending = turn
	live.lastActive = time.Now()
	return q, nil
}

// SubmitAnswer records the answer to the pending question and runs one full
// adaptation step, returning the follow-up question (nil when validation
// rejected it) alongside the updated expertise and sophistication. With the
// master switch off it returns an empty result and records nothing.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, answer string) (adapt.Result, error) {
	if !e.cfg.Flags.Questioning {
		return adapt.Result{}, nil
	}

	live, err := e.live(sessionID)
	if err != nil {
		return adapt.Result{}, err
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if live.pending == nil {
		return adapt.Result{}, ErrNoPendingQuestion
	}

	if !e.breaker.allow() {
		return adapt.Result{}, ErrUnavailable
	}

	turn := *live.pending
	turn.Answer = answer
	turn.AnsweredAt = time.Now().UTC()
	if err := e.store.AnswerTurn(ctx, turn.ID, answer); err != nil {
		// The admitted attempt must report an outcome, or a half-open
		// breaker would stay stuck waiting for its trial.
		e.breaker.recordFailure()
		return adapt.Result{}, err
	}

	res := e.pipeline.AdaptQuestion(ctx, adapt.Request{
		SessionID:      sessionID,
		Turn:           turn,
		Expertise:      live.profile,
		Disclosure:     live.state,
		Sophistication: turn.Sophistication,
		DomainContext:  e.resolveDomain(ctx, live),
	})

	if res.Question == nil {
		e.breaker.recordFailure()
	} else {
		e.breaker.recordSuccess()
	}

	live.profile = res.Expertise
	live.pending = nil
	live.lastActive = time.Now()

	if err := e.persist(ctx, live, res); err != nil {
		// Session state persistence is best-effort; the in-memory pipeline
		// state remains authoritative for the live session.
		log.Printf("persisting session %s: %v", sessionID, err)
	}
	return res, nil
}

// Memory returns the conversation context snapshot for a session.
func (e *Engine) Memory(sessionID string) convmem.Context {
	return e.memory.Context(sessionID)
}

// Metrics is a point-in-time view of the facade's shared resources.
type Metrics struct {
	ActiveSessions int    `json:"active_sessions"`
	CacheEntries   int    `json:"cache_entries"`
	BreakerState   string `json:"breaker_state"`
}

// Stats reports facade metrics for health and monitoring surfaces.
func (e *Engine) Stats() Metrics {
	e.mu.Lock()
	active := len(e.sessions)
	e.mu.Unlock()

	return Metrics{
		ActiveSessions: active,
		CacheEntries:   e.cache.len(),
		BreakerState:   e.breaker.currentState().String(),
	}
}

// adaptHistoryWindow mirrors the window the adaptation pipeline reads.
const adaptHistoryWindow = 10

func (e *Engine) live(id string) (*liveSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	live, ok := e.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return live, nil
}

// resolveDomain prefers the session's own domain; detection runs only for
// sessions started on the general domain. Without an external provider the
// session's recent answers are classified by keyword.
func (e *Engine) resolveDomain(ctx context.Context, live *liveSession) domain.Context {
	if live.domainName != "" && live.domainName != domain.GeneralDomain {
		return domain.Context{Name: live.domainName, Confidence: 1.0}
	}
	p := e.domains
	if p == nil {
		p = domain.KeywordProvider{Text: func() string { return e.conversationText(live.id) }}
	}
	return domain.Resolve(ctx, p)
}

// conversationText joins a session's recent answers for keyword detection.
func (e *Engine) conversationText(sessionID string) string {
	turns := e.memory.RecentTurns(sessionID, adaptHistoryWindow)
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Answer != "" {
			parts = append(parts, t.Answer)
		}
	}
	return strings.Join(parts, " ")
}

func (e *Engine) persist(ctx context.Context, live *liveSession, res adapt.Result) error {
	state := session.State{Profile: live.profile, Disclosure: live.state}
	if err := e.store.SaveState(ctx, live.id, state); err != nil {
		return err
	}
	if res.Expertise != nil {
		if err := e.store.SaveSnapshot(ctx, live.id, res.Expertise); err != nil {
			return err
		}
	}
	if res.Question != nil {
		turn := &question.Turn{
			SessionID:      live.id,
			Question:       res.Question.Text,
			Sophistication: res.Question.Sophistication,
			Domain:         res.Question.Domain,
		}
		if err := e.store.AppendTurn(ctx, turn); err != nil {
			return err
		}
		live.pending = turn
	}
	return nil
}

// sweepIdle lazily expires sessions idle past the configured TTL.
func (e *Engine) sweepIdle(ctx context.Context) {
	ttl := time.Duration(e.cfg.Sessions.IdleTTLMinutes) * time.Minute
	if ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-ttl)

	e.mu.Lock()
	var expired []string
	for id, live := range e.sessions {
		if live.lastActive.Before(cutoff) {
			expired = append(expired, id)
			delete(e.sessions, id)
		}
	}
	e.mu.Unlock()

	for _, id := range expired {
		e.memory.Forget(id)
		if err := e.store.EndSession(ctx, id); err != nil {
			log.Printf("expiring session %s: %v", id, err)
		}
	}
	if _, err := e.store.ExpireIdle(ctx, ttl); err != nil {
		log.Printf("expiring idle sessions: %v", err)
	}
}

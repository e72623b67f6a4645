package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flowsmith/socratic/internal/config"
	"github.com/flowsmith/socratic/internal/db"
	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/enrich"
	"github.com/flowsmith/socratic/internal/question"
	"github.com/flowsmith/socratic/internal/session"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	e, _ := newTestEngineWithDB(t, mutate)
	return e
}

func newTestEngineWithDB(t *testing.T, mutate func(*config.Config)) (*Engine, *db.DB) {
	t.Helper()

	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return New(*cfg, session.NewStore(d), nil, nil), d
}

func TestGenerateCacheIdempotence(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()
	dc := domain.Context{Name: "chatbot", Confidence: 0.8}
	history := []question.Turn{{ID: "t1", Question: "q", Answer: "a"}}

	first, err := e.Generate(ctx, dc, history, 2)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if first == nil {
		t.Fatal("expected a question")
	}

	second, err := e.Generate(ctx, dc, history, 2)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if first != second {
		t.Error("expected identical cached object on repeat call")
	}

	// A different level regenerates.
	third, _ := e.Generate(ctx, dc, history, 3)
	if third == first {
		t.Error("different level must not hit the same cache entry")
	}
}

func TestGenerateMasterSwitchOff(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.Flags.Questioning = false })

	q, err := e.Generate(context.Background(), domain.Context{Name: "chatbot"}, nil, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if q != nil {
		t.Error("expected nil question with questioning disabled")
	}
	if e.cache.len() != 0 {
		t.Error("disabled generate must not touch the cache")
	}
}

func TestGenerateRejectionNotCached(t *testing.T) {
	e := newTestEngine(t, nil)

	// The domain name trips the inappropriate-content filter, so every
	// generated question is rejected.
	q, err := e.Generate(context.Background(), domain.Context{Name: "password vault"}, nil, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if q != nil {
		t.Fatal("expected terminal nil on rejection")
	}
	if e.cache.len() != 0 {
		t.Error("negative results must never be cached")
	}
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) {
		c.Breaker.FailureThreshold = 3
		c.Breaker.CooldownSeconds = 30
	})
	ctx := context.Background()
	bad := domain.Context{Name: "password vault"}

	now := time.Now()
	e.breaker.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := e.Generate(ctx, bad, nil, 1); err != nil {
			t.Fatalf("failure %d should not error yet: %v", i+1, err)
		}
	}
	if got := e.breaker.currentState(); got != BreakerOpen {
		t.Fatalf("expected open breaker after 3 failures, got %v", got)
	}

	// Open breaker short-circuits even for a good domain.
	if _, err := e.Generate(ctx, domain.Context{Name: "chatbot"}, nil, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	// After the cooldown one half-open trial is admitted; its success
	// closes the breaker.
	now = now.Add(31 * time.Second)
	q, err := e.Generate(ctx, domain.Context{Name: "chatbot"}, nil, 1)
	if err != nil {
		t.Fatalf("half-open trial: %v", err)
	}
	if q == nil {
		t.Fatal("expected trial to produce a question")
	}
	if got := e.breaker.currentState(); got != BreakerClosed {
		t.Errorf("expected closed breaker after trial success, got %v", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := newBreaker(true, 2, 30*time.Second)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.recordFailure()
	b.recordFailure()
	if b.currentState() != BreakerOpen {
		t.Fatal("expected open breaker")
	}

	now = now.Add(time.Minute)
	if !b.allow() {
		t.Fatal("expected half-open trial to be admitted")
	}
	// Only one trial may be in flight.
	if b.allow() {
		t.Error("second half-open attempt must be rejected")
	}

	b.recordFailure()
	if b.currentState() != BreakerOpen {
		t.Error("expected breaker to reopen after trial failure")
	}
}

func TestSessionCap(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.Sessions.MaxActive = 2 })
	ctx := context.Background()

	a, err := e.StartSession(ctx, "chatbot")
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	if _, err := e.StartSession(ctx, "data analysis"); err != nil {
		t.Fatalf("second session: %v", err)
	}

	if _, err := e.StartSession(ctx, "general"); !errors.Is(err, ErrSessionLimit) {
		t.Fatalf("expected ErrSessionLimit, got %v", err)
	}

	// Ending a session frees a slot.
	if err := e.EndSession(ctx, a.ID); err != nil {
		t.Fatalf("ending session: %v", err)
	}
	if _, err := e.StartSession(ctx, "general"); err != nil {
		t.Errorf("expected admission after slot freed, got %v", err)
	}
}

func TestSessionCapConcurrentAdmission(t *testing.T) {
	e := newTestEngine(t, func(c *config.Config) { c.Sessions.MaxActive = 2 })
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.StartSession(ctx, "general")
			switch {
			case err == nil:
				mu.Lock()
				admitted++
				mu.Unlock()
			case !errors.Is(err, ErrSessionLimit):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted != 2 {
		t.Errorf("expected exactly 2 admissions, got %d", admitted)
	}
	if st := e.Stats(); st.ActiveSessions != 2 {
		t.Errorf("expected 2 active sessions, got %d", st.ActiveSessions)
	}
}

func TestSubmitAnswerStoreFailureReleasesBreaker(t *testing.T) {
	e, d := newTestEngineWithDB(t, nil)
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "chatbot")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := e.NextQuestion(ctx, sess.ID); err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}

	now := time.Now()
	e.breaker.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		e.breaker.recordFailure()
	}
	if e.breaker.currentState() != BreakerOpen {
		t.Fatal("expected open breaker")
	}

	// Delete the pending turn so recording the answer fails while the
	// half-open trial is in flight.
	live, err := e.live(sess.ID)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if _, err := d.Exec(`DELETE FROM turns WHERE id = ?`, live.pending.ID); err != nil {
		t.Fatalf("deleting turn: %v", err)
	}

	now = now.Add(31 * time.Second)
	if _, err := e.SubmitAnswer(ctx, sess.ID, "an answer"); err == nil {
		t.Fatal("expected store error")
	}
	if got := e.breaker.currentState(); got != BreakerOpen {
		t.Fatalf("expected breaker to reopen after failed trial, got %v", got)
	}

	// The breaker must not be stuck half-open: after another cooldown a
	// fresh question/answer round trip succeeds and closes it.
	now = now.Add(31 * time.Second)
	q, err := e.NextQuestion(ctx, sess.ID)
	if err != nil || q == nil {
		t.Fatalf("NextQuestion after recovery: q=%v err=%v", q, err)
	}
	if _, err := e.SubmitAnswer(ctx, sess.ID, "It should automate support conversations for business users."); err != nil {
		t.Fatalf("SubmitAnswer after recovery: %v", err)
	}
	if got := e.breaker.currentState(); got != BreakerClosed {
		t.Errorf("expected closed breaker after recovery, got %v", got)
	}
}

func TestGeneralSessionDomainDetection(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := e.NextQuestion(ctx, sess.ID); err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if _, err := e.SubmitAnswer(ctx, sess.ID,
		"I want a chatbot assistant that holds a conversation and replies to customers."); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	live, err := e.live(sess.ID)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	dc := e.resolveDomain(ctx, live)
	if dc.Name != "chatbot" {
		t.Fatalf("expected chatbot domain detected from answers, got %q", dc.Name)
	}

	q, err := e.NextQuestion(ctx, sess.ID)
	if err != nil || q == nil {
		t.Fatalf("NextQuestion: q=%v err=%v", q, err)
	}
	if q.Domain != "chatbot" {
		t.Errorf("expected question in detected domain, got %q", q.Domain)
	}
}

func TestQuestionAnswerFlow(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	sess, err := e.StartSession(ctx, "chatbot")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	q, err := e.NextQuestion(ctx, sess.ID)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q == nil {
		t.Fatal("expected an opening question")
	}
	if !strings.Contains(q.Text, "chatbot") {
		t.Errorf("question does not mention domain: %q", q.Text)
	}

	res, err := e.SubmitAnswer(ctx, sess.ID,
		"It should automate support conversations through our REST api and database so business users get instant answers.")
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.Question == nil {
		t.Fatal("expected a follow-up question")
	}
	if res.Expertise == nil {
		t.Error("expected an updated expertise profile")
	}

	// State is persisted for resumption.
	stored, err := e.store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.State.Profile == nil {
		t.Error("expected persisted expertise profile")
	}
	if stored.State.Disclosure == nil {
		t.Error("expected persisted disclosure state")
	}

	turns, _ := e.store.RecentTurns(ctx, sess.ID, 0)
	if len(turns) != 2 {
		t.Fatalf("expected 2 recorded turns, got %d", len(turns))
	}
	if !turns[0].Answered() {
		t.Error("first turn should carry the answer")
	}
}

func TestSubmitAnswerWithoutPending(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	sess, _ := e.StartSession(ctx, "general")
	if _, err := e.SubmitAnswer(ctx, sess.ID, "answer"); !errors.Is(err, ErrNoPendingQuestion) {
		t.Errorf("expected ErrNoPendingQuestion, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	e := newTestEngine(t, nil)

	if _, err := e.NextQuestion(context.Background(), "missing"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	e.StartSession(ctx, "general")
	st := e.Stats()
	if st.ActiveSessions != 1 {
		t.Errorf("expected 1 active session, got %d", st.ActiveSessions)
	}
	if st.BreakerState != "closed" {
		t.Errorf("expected closed breaker, got %q", st.BreakerState)
	}
}

func TestCacheEviction(t *testing.T) {
	c := newQuestionCache(2)
	dc := domain.Context{Name: "general"}
	val := &enrich.EnrichedQuestion{}

	k1 := cacheKey(dc, nil, 1)
	k2 := cacheKey(dc, nil, 2)
	k3 := cacheKey(dc, nil, 3)

	c.put(k1, val)
	c.put(k2, val)
	c.put(k3, val)

	if c.len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", c.len())
	}
	if _, ok := c.get(k1); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.get(k3); !ok {
		t.Error("newest entry should survive")
	}
}

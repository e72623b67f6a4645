package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowsmith/socratic/internal/db"
	"github.com/flowsmith/socratic/internal/disclosure"
	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/question"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "chatbot")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated session ID")
	}
	if !sess.Active() {
		t.Error("new session should be active")
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Domain != "chatbot" {
		t.Errorf("expected domain chatbot, got %q", got.Domain)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "data analysis")

	state := State{
		Profile: &expertise.Profile{
			Tier:          expertise.TierAdvanced,
			Confidence:    0.6,
			ResponseCount: 4,
			Dimensions:    map[string]expertise.Tier{"depth": expertise.TierAdvanced},
		},
		Disclosure: &disclosure.State{
			SessionID:   sess.ID,
			Domain:      "data analysis",
			Current:     2,
			MaxUnlocked: 3,
		},
	}
	if err := store.SaveState(ctx, sess.ID, state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.State.Profile == nil || got.State.Profile.Tier != expertise.TierAdvanced {
		t.Errorf("profile not restored: %+v", got.State.Profile)
	}
	if got.State.Disclosure == nil || got.State.Disclosure.MaxUnlocked != 3 {
		t.Errorf("disclosure state not restored: %+v", got.State.Disclosure)
	}
}

func TestSaveStateMissingSession(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveState(context.Background(), "missing", State{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEndSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "general")
	if err := store.EndSession(ctx, sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	got, _ := store.GetSession(ctx, sess.ID)
	if got.Active() {
		t.Error("expected session to be ended")
	}

	// Ending again is a no-op, not an error.
	if err := store.EndSession(ctx, sess.ID); err != nil {
		t.Errorf("second EndSession: %v", err)
	}

	if err := store.EndSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing session, got %v", err)
	}
}

func TestActiveCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.CreateSession(ctx, "general")
	store.CreateSession(ctx, "chatbot")

	if n, _ := store.ActiveCount(ctx); n != 2 {
		t.Errorf("expected 2 active, got %d", n)
	}

	store.EndSession(ctx, a.ID)
	if n, _ := store.ActiveCount(ctx); n != 1 {
		t.Errorf("expected 1 active after ending, got %d", n)
	}
}

func TestExpireIdle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale, _ := store.CreateSession(ctx, "general")
	fresh, _ := store.CreateSession(ctx, "general")

	// Backdate the stale session past the TTL.
	_, err := store.db.ExecContext(ctx,
		`UPDATE sessions SET last_active_at=? WHERE id=?`,
		time.Now().UTC().Add(-time.Hour), stale.ID)
	if err != nil {
		t.Fatalf("backdating session: %v", err)
	}

	n, err := store.ExpireIdle(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("ExpireIdle: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}

	got, _ := store.GetSession(ctx, stale.ID)
	if got.Active() {
		t.Error("stale session should be ended")
	}
	got, _ = store.GetSession(ctx, fresh.ID)
	if !got.Active() {
		t.Error("fresh session should remain active")
	}
}

func TestTurnsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "chatbot")

	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		turn := &question.Turn{
			SessionID:      sess.ID,
			Question:       "q",
			Sophistication: i + 1,
			Domain:         "chatbot",
			AskedAt:        base.Add(time.Duration(i) * time.Second),
		}
		if err := store.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
		if i == 0 {
			if err := store.AnswerTurn(ctx, turn.ID, "it should greet users"); err != nil {
				t.Fatalf("AnswerTurn: %v", err)
			}
		}
	}

	turns, err := store.RecentTurns(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Sophistication != 2 || turns[1].Sophistication != 3 {
		t.Errorf("expected chronological order of newest 2, got %d then %d",
			turns[0].Sophistication, turns[1].Sophistication)
	}

	all, _ := store.RecentTurns(ctx, sess.ID, 0)
	if len(all) != 3 {
		t.Fatalf("expected all 3 turns, got %d", len(all))
	}
	if !all[0].Answered() {
		t.Error("first turn should be answered")
	}
	if all[1].Answered() {
		t.Error("second turn should be unanswered")
	}
}

func TestAnswerTurnMissing(t *testing.T) {
	store := newTestStore(t)

	if err := store.AnswerTurn(context.Background(), "missing", "a"); err == nil {
		t.Error("expected error for missing turn")
	}
}

func TestSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "general")

	for i, tier := range []expertise.Tier{expertise.TierBeginner, expertise.TierIntermediate} {
		p := &expertise.Profile{
			Tier:          tier,
			Confidence:    0.1 * float64(i+1),
			ResponseCount: i + 1,
			Dimensions:    map[string]expertise.Tier{"depth": tier},
		}
		if err := store.SaveSnapshot(ctx, sess.ID, p); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	snaps, err := store.Snapshots(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Tier != expertise.TierBeginner || snaps[1].Tier != expertise.TierIntermediate {
		t.Errorf("unexpected snapshot order: %v then %v", snaps[0].Tier, snaps[1].Tier)
	}
	if snaps[1].Dimensions["depth"] != expertise.TierIntermediate {
		t.Errorf("dimensions not restored: %+v", snaps[1].Dimensions)
	}
}

func TestCascadeOnSessionDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "general")
	store.AppendTurn(ctx, &question.Turn{SessionID: sess.ID, Question: "q", Domain: "general"})

	if _, err := store.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, sess.ID); err != nil {
		t.Fatalf("deleting session: %v", err)
	}

	turns, err := store.RecentTurns(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected turns cascade-deleted, got %d", len(turns))
	}
}

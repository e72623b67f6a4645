package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowsmith/socratic/internal/db"
	"github.com/flowsmith/socratic/internal/expertise"
	"github.com/flowsmith/socratic/internal/question"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Store persists sessions, turns, and expertise snapshots.
type Store struct {
	db *db.DB
}

// NewStore creates a session store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// CreateSession inserts a new active session for a domain.
func (s *Store) CreateSession(ctx context.Context, domain string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:           uuid.NewString(),
		Domain:       domain,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return nil, fmt.Errorf("marshaling session state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, domain, created_at, last_active_at, state)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Domain, sess.CreatedAt, sess.LastActiveAt, string(stateJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	sess := &Session{}
	var stateJSON string
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, domain, created_at, last_active_at, ended_at, state
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Domain, &sess.CreatedAt, &sess.LastActiveAt, &endedAt, &stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	if err := json.Unmarshal([]byte(stateJSON), &sess.State); err != nil {
		return nil, fmt.Errorf("unmarshaling session state: %w", err)
	}
	return sess, nil
}

// SaveState persists the session's resumable state and refreshes activity.
func (s *Store) SaveState(ctx context.Context, id string, state State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state=?, last_active_at=? WHERE id=?`,
		string(stateJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EndSession marks a session as ended. Ending twice is a no-op.
func (s *Store) EndSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at=? WHERE id=? AND ended_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Distinguish missing from already ended.
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ActiveCount returns the number of sessions that have not been ended.
func (s *Store) ActiveCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE ended_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active sessions: %w", err)
	}
	return n, nil
}

// ExpireIdle ends active sessions whose last activity is older than ttl.
// Returns the number of sessions expired.
func (s *Store) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at=? WHERE ended_at IS NULL AND last_active_at < ?`,
		time.Now().UTC(), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("expiring idle sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// AppendTurn records an asked question for a session.
func (s *Store) AppendTurn(ctx context.Context, t *question.Turn) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.AskedAt.IsZero() {
		t.AskedAt = time.Now().UTC()
	}

	var answeredAt any
	if !t.AnsweredAt.IsZero() {
		answeredAt = t.AnsweredAt.UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, question, answer, sophistication, domain, asked_at, answered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.Question, t.Answer, t.Sophistication, t.Domain, t.AskedAt, answeredAt,
	)
	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// AnswerTurn records the user's answer on an existing turn.
func (s *Store) AnswerTurn(ctx context.Context, turnID, answer string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE turns SET answer=?, answered_at=? WHERE id=?`,
		answer, time.Now().UTC(), turnID,
	)
	if err != nil {
		return fmt.Errorf("answering turn: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("turn %s not found", turnID)
	}
	return nil
}

// RecentTurns returns up to limit most recent turns for a session, oldest
// first. limit <= 0 returns all turns.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]question.Turn, error) {
	q := `SELECT id, session_id, question, answer, sophistication, domain, asked_at, answered_at
	      FROM turns WHERE session_id = ? ORDER BY asked_at DESC`
	args := []any{sessionID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var turns []question.Turn
	for rows.Next() {
		var t question.Turn
		var answeredAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Question, &t.Answer,
			&t.Sophistication, &t.Domain, &t.AskedAt, &answeredAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		if answeredAt.Valid {
			t.AnsweredAt = answeredAt.Time
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// SaveSnapshot records a point-in-time expertise profile for a session.
func (s *Store) SaveSnapshot(ctx context.Context, sessionID string, p *expertise.Profile) error {
	dims, err := json.Marshal(p.Dimensions)
	if err != nil {
		return fmt.Errorf("marshaling dimensions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO expertise_snapshots (id, session_id, tier, confidence, consistency, response_count, dimensions, taken_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, int(p.Tier), p.Confidence, p.Consistency,
		p.ResponseCount, string(dims), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Snapshots returns a session's expertise snapshots, oldest first.
func (s *Store) Snapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, tier, confidence, consistency, response_count, dimensions, taken_at
		 FROM expertise_snapshots WHERE session_id = ? ORDER BY taken_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var result []Snapshot
	for rows.Next() {
		var snap Snapshot
		var dims string
		if err := rows.Scan(&snap.ID, &snap.SessionID, &snap.Tier, &snap.Confidence,
			&snap.Consistency, &snap.ResponseCount, &dims, &snap.TakenAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(dims), &snap.Dimensions); err != nil {
			return nil, fmt.Errorf("unmarshaling dimensions: %w", err)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

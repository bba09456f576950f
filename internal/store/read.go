package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sigevent/internal/simtime"
	"github.com/roach88/sigevent/internal/trace"
)

// ErrSessionNotFound is returned when a session id is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// ReadSession returns the stored session with the given id.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.scenario, s.created_seq,
			(SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
		FROM sessions s
		WHERE s.id = ?
	`, id).Scan(&sess.ID, &sess.Scenario, &sess.CreatedSeq, &sess.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all stored sessions ordered by id.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.scenario, s.created_seq, COUNT(e.seq)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Scenario, &sess.CreatedSeq, &sess.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadTrace returns the events of a session ordered by seq.
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadTrace(ctx context.Context, sessionID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, site, handle, signal, time_high, time_low, result, released, error
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (trace.Event, error) {
	var (
		ev     trace.Event
		kind   string
		high   int64
		low    int64
		result int
	)
	err := rows.Scan(&ev.Seq, &kind, &ev.Site, &ev.Handle, &ev.Signal, &high, &low, &result, &ev.Released, &ev.Error)
	if err != nil {
		return trace.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = trace.Kind(kind)
	ev.Time = simtime.New(uint32(high), uint32(low))
	ev.Result = result != 0
	return ev, nil
}

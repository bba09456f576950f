package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sigevent/internal/trace"
)

// Session identifies one stored simulation session.
//
// CreatedSeq is the seq of the session's first event (0 if empty). Events
// is the number of stored events.
type Session struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	CreatedSeq int64  `json:"created_seq"`
	Events     int    `json:"events"`
}

// ErrSessionConflict is returned by WriteTrace when the session id is
// already stored with a different trace.
var ErrSessionConflict = errors.New("session already stored with a different trace")

// WriteTrace stores a session and its events in one transaction.
//
// Writing the same trace again under the same id is a no-op. Writing a
// different trace (other scenario, events or length) under a stored id fails
// with ErrSessionConflict and leaves the stored session untouched.
func (s *Store) WriteTrace(ctx context.Context, sessionID, scenario string, events []trace.Event) error {
	if sessionID == "" {
		return fmt.Errorf("write trace: empty session id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT scenario FROM sessions WHERE id = ?`, sessionID).Scan(&stored)
	switch {
	case err == nil:
		if stored != scenario {
			return fmt.Errorf("%w: %s (scenario %q, not %q)", ErrSessionConflict, sessionID, stored, scenario)
		}
		return sameTrace(ctx, tx, sessionID, events)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("write trace: lookup session: %w", err)
	}

	var createdSeq int64
	if len(events) > 0 {
		createdSeq = events[0].Seq
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, scenario, created_seq)
		VALUES (?, ?, ?)
	`, sessionID, scenario, createdSeq)
	if err != nil {
		return fmt.Errorf("write trace: session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(session_id, seq, kind, site, handle, signal, time_high, time_low, result, released, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write trace: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx,
			sessionID,
			ev.Seq,
			string(ev.Kind),
			ev.Site,
			ev.Handle,
			ev.Signal,
			int64(ev.Time.High),
			int64(ev.Time.Low),
			boolToInt(ev.Result),
			ev.Released,
			ev.Error,
		)
		if err != nil {
			return fmt.Errorf("write trace: event seq=%d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}

// sameTrace checks a stored session's events against events.
func sameTrace(ctx context.Context, tx *sql.Tx, sessionID string, events []trace.Event) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT seq, kind, site, handle, signal, time_high, time_low, result, released, error
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return fmt.Errorf("write trace: query stored events: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return err
		}
		if i >= len(events) || ev != events[i] {
			return fmt.Errorf("%w: %s (differs at seq %d)", ErrSessionConflict, sessionID, ev.Seq)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("write trace: iterate stored events: %w", err)
	}
	if i != len(events) {
		return fmt.Errorf("%w: %s (%d events stored, %d given)", ErrSessionConflict, sessionID, i, len(events))
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

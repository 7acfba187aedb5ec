package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
)

// ReportRepository stores finished attendance sessions.
type ReportRepository struct {
	pool *Pool
}

// NewReportRepository creates a new PostgreSQL attendance report repository
func NewReportRepository(pool *Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

var _ database.SessionWriter = (*ReportRepository)(nil)

// SaveSession stores a session and its entries in one transaction.
// Saving the same session ID again replaces it.
func (r *ReportRepository) SaveSession(ctx context.Context, s *database.StoredSession, entries []database.StoredEntry) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance_sessions WHERE id = $1", s.ID); err != nil {
		return fmt.Errorf("delete previous session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_sessions
			(id, mode, late_deadline, end_deadline, started_at, ended_at, reason, report_files, on_time, late, absent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, s.ID, s.Mode, s.LateDeadline, s.EndDeadline, s.StartedAt, s.EndedAt, s.Reason,
		pq.Array(s.ReportFiles), s.OnTime, s.Late, s.Absent)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance_entries
			(session_id, position, person_name, surname, father_name, faculty, direction, group_name,
			 status, arrival_time, late_time, probability, mean_distance, variance, std_dev, matches)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		_, err := stmt.ExecContext(ctx, s.ID, i, e.PersonName, e.Surname, e.FatherName, e.Faculty,
			e.Direction, e.Group, e.Status, e.ArrivalTime, e.LateTime, e.Probability,
			e.MeanDistance, e.Variance, e.StdDev, e.Matches)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", e.PersonName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Recent returns the most recent sessions, newest first
func (r *ReportRepository) Recent(ctx context.Context, limit int) ([]database.StoredSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, mode, late_deadline, end_deadline, started_at, ended_at, reason, report_files, on_time, late, absent
		FROM attendance_sessions
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []database.StoredSession
	for rows.Next() {
		var s database.StoredSession
		if err := rows.Scan(&s.ID, &s.Mode, &s.LateDeadline, &s.EndDeadline, &s.StartedAt, &s.EndedAt,
			&s.Reason, pq.Array(&s.ReportFiles), &s.OnTime, &s.Late, &s.Absent); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Entries returns the per-person rows of one session in gallery order
func (r *ReportRepository) Entries(ctx context.Context, sessionID string) ([]database.StoredEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, person_name, surname, father_name, faculty, direction, group_name,
			status, arrival_time, late_time, probability, mean_distance, variance, std_dev, matches
		FROM attendance_entries
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []database.StoredEntry
	for rows.Next() {
		var e database.StoredEntry
		var arrival, late sql.NullTime
		if err := rows.Scan(&e.SessionID, &e.PersonName, &e.Surname, &e.FatherName, &e.Faculty,
			&e.Direction, &e.Group, &e.Status, &arrival, &late, &e.Probability, &e.MeanDistance,
			&e.Variance, &e.StdDev, &e.Matches); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if arrival.Valid {
			e.ArrivalTime = &arrival.Time
		}
		if late.Valid {
			e.LateTime = &late.Time
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

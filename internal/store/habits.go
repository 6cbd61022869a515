package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Habit kinds.
const (
	KindDaily  = "daily"
	KindWeekly = "weekly"
)

// DefaultWeeklyTarget is the weekly completion target when none is set.
const DefaultWeeklyTarget = 2

// Habit is a tracked habit belonging to a single user.
type Habit struct {
	ID                   string
	UserID               string
	Name                 string
	Kind                 string // "daily" or "weekly"
	TargetCount          int    // weekly only, minimum 2
	ArchivedAt           *int64
	AccumulatedMomentum  int
	ConsecutiveMissWeeks int
	LastClosedWeek       string // week-end date of the last weekly close, "" if never closed
	CreatedAt            int64
	UpdatedAt            int64
}

// Archived reports whether the habit has been archived.
func (h *Habit) Archived() bool {
	return h.ArchivedAt != nil
}

const habitColumns = `id, user_id, name, kind, target_count, archived_at,
	accumulated_momentum, consecutive_miss_weeks, last_closed_week, created_at, updated_at`

// execer is satisfied by *sql.DB and *sql.Tx, so statement helpers can run
// standalone or inside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// CreateHabit inserts a new habit, assigning a fresh UUID.
func (db *DB) CreateHabit(h *Habit) error {
	now := time.Now().UnixMilli()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Kind == KindWeekly && h.TargetCount == 0 {
		h.TargetCount = DefaultWeeklyTarget
	}
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO habits (id, user_id, name, kind, target_count, archived_at,
			accumulated_momentum, consecutive_miss_weeks, last_closed_week, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, 0, 0, '', ?, ?)
	`, h.ID, h.UserID, h.Name, h.Kind, h.TargetCount, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	return nil
}

// GetHabit returns a habit by ID, or nil if not found.
func (db *DB) GetHabit(id string) (*Habit, error) {
	row := db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

// ListHabits returns all non-archived habits for a user, oldest first.
func (db *DB) ListHabits(userID string) ([]Habit, error) {
	rows, err := db.Query(`
		SELECT `+habitColumns+` FROM habits
		WHERE user_id = ? AND archived_at IS NULL
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()
	return scanHabits(rows)
}

// ListHabitsByKind returns habits of the given kind, oldest first.
// An empty userID scans across all users (used by the sweep). Archived
// habits are excluded unless includeArchived is set.
func (db *DB) ListHabitsByKind(userID, kind string, includeArchived bool) ([]Habit, error) {
	var rows *sql.Rows
	var err error
	switch {
	case userID == "" && includeArchived:
		rows, err = db.Query(`
			SELECT `+habitColumns+` FROM habits WHERE kind = ? ORDER BY created_at`, kind)
	case userID == "":
		rows, err = db.Query(`
			SELECT `+habitColumns+` FROM habits
			WHERE kind = ? AND archived_at IS NULL ORDER BY created_at`, kind)
	case includeArchived:
		rows, err = db.Query(`
			SELECT `+habitColumns+` FROM habits
			WHERE kind = ? AND user_id = ? ORDER BY created_at`, kind, userID)
	default:
		rows, err = db.Query(`
			SELECT `+habitColumns+` FROM habits
			WHERE kind = ? AND user_id = ? AND archived_at IS NULL ORDER BY created_at`, kind, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list habits by kind: %w", err)
	}
	defer rows.Close()
	return scanHabits(rows)
}

// ArchiveHabit marks a habit archived. Archived habits stop accruing
// momentum and drop out of listings and sweeps.
func (db *DB) ArchiveHabit(id string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE habits SET archived_at = ?, updated_at = ? WHERE id = ? AND archived_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("archive habit: %w", err)
	}
	return nil
}

// AdjustAccumulatedMomentum adds delta to a habit's cached running total.
func (db *DB) AdjustAccumulatedMomentum(id string, delta int) error {
	return adjustMomentum(db, id, delta)
}

func adjustMomentum(e execer, id string, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := e.Exec(`
		UPDATE habits SET accumulated_momentum = accumulated_momentum + ?, updated_at = ?
		WHERE id = ?
	`, delta, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("adjust accumulated momentum: %w", err)
	}
	return nil
}

// CloseWeekMet records a weekly close for a habit that reached its target:
// the miss counter resets and the closed week is stamped so a repeated close
// of the same week is a no-op.
func (db *DB) CloseWeekMet(id, weekEnd string) error {
	_, err := db.Exec(`
		UPDATE habits SET consecutive_miss_weeks = 0, last_closed_week = ?, updated_at = ?
		WHERE id = ?
	`, weekEnd, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("close week met: %w", err)
	}
	return nil
}

// CloseWeekMissed records a weekly close for a habit that missed its target.
// The bumped miss counter, the closed-week stamp, the momentum delta, and the
// week-end penalty record commit together; a failure leaves none of them
// applied.
func (db *DB) CloseWeekMissed(r *Record, delta, missWeeks int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("close week missed: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE habits SET consecutive_miss_weeks = ?, last_closed_week = ?, updated_at = ?
		WHERE id = ?
	`, missWeeks, r.Date, time.Now().UnixMilli(), r.HabitID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("close week missed: %w", err)
	}
	if err := adjustMomentum(tx, r.HabitID, delta); err != nil {
		tx.Rollback()
		return err
	}
	if err := upsertRecord(tx, r); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("close week missed: %w", err)
	}
	return nil
}

// SumAccumulatedMomentum returns the sum of accumulated momentum across a
// user's non-archived habits.
func (db *DB) SumAccumulatedMomentum(userID string) (int, error) {
	var total int
	err := db.QueryRow(`
		SELECT COALESCE(SUM(accumulated_momentum), 0) FROM habits
		WHERE user_id = ? AND archived_at IS NULL
	`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum accumulated momentum: %w", err)
	}
	return total, nil
}

func scanHabit(row *sql.Row) (*Habit, error) {
	var h Habit
	var archivedAt sql.NullInt64
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Kind, &h.TargetCount, &archivedAt,
		&h.AccumulatedMomentum, &h.ConsecutiveMissWeeks, &h.LastClosedWeek, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if archivedAt.Valid {
		h.ArchivedAt = &archivedAt.Int64
	}
	return &h, nil
}

func scanHabits(rows *sql.Rows) ([]Habit, error) {
	var habits []Habit
	for rows.Next() {
		var h Habit
		var archivedAt sql.NullInt64
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.Kind, &h.TargetCount, &archivedAt,
			&h.AccumulatedMomentum, &h.ConsecutiveMissWeeks, &h.LastClosedWeek, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		if archivedAt.Valid {
			h.ArchivedAt = &archivedAt.Int64
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is a single habit completion record. Dates are calendar dates in
// YYYY-MM-DD form with no time component; (habit_id, date) is the natural
// key and carries a unique constraint.
type Record struct {
	ID        int64
	HabitID   string
	UserID    string
	Date      string
	Completed int // non-negative; daily habits use 0/1
	Momentum  int // value computed for that date or the week ending on it
	CreatedAt int64
	UpdatedAt int64
}

const recordColumns = `id, habit_id, user_id, date, completed, momentum, created_at, updated_at`

// GetRecord returns the record for (habitID, date), or nil if none exists.
func (db *DB) GetRecord(habitID, date string) (*Record, error) {
	row := db.QueryRow(`
		SELECT `+recordColumns+` FROM habit_records WHERE habit_id = ? AND date = ?
	`, habitID, date)
	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

// GetRecordsInRange returns records for a habit with from <= date <= to,
// ordered by date ascending.
func (db *DB) GetRecordsInRange(habitID, from, to string) ([]Record, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM habit_records
		WHERE habit_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, habitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get records in range: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecordsThrough returns all records for a habit dated on or before the
// given date, ordered by date ascending.
func (db *DB) ListRecordsThrough(habitID, through string) ([]Record, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM habit_records
		WHERE habit_id = ? AND date <= ?
		ORDER BY date
	`, habitID, through)
	if err != nil {
		return nil, fmt.Errorf("list records through: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetMostRecentRecordBefore returns the latest record strictly before the
// given date, or nil if the habit has no earlier records.
func (db *DB) GetMostRecentRecordBefore(habitID, date string) (*Record, error) {
	row := db.QueryRow(`
		SELECT `+recordColumns+` FROM habit_records
		WHERE habit_id = ? AND date < ?
		ORDER BY date DESC LIMIT 1
	`, habitID, date)
	r, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("most recent record before: %w", err)
	}
	return r, nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

// UpsertRecord inserts the record or, if one already exists for
// (habit_id, date), updates its completed and momentum values in place.
// The unique constraint on the natural key is the serialization point, so
// concurrent upserts resolve last-write-wins.
func (db *DB) UpsertRecord(r *Record) error {
	return upsertRecord(db, r)
}

func upsertRecord(q queryRower, r *Record) error {
	now := time.Now().UnixMilli()
	// RETURNING yields the row's real id on both paths; LastInsertId would
	// report a stale rowid after DO UPDATE.
	err := q.QueryRow(`
		INSERT INTO habit_records (habit_id, user_id, date, completed, momentum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, date) DO UPDATE SET
			completed = excluded.completed,
			momentum = excluded.momentum,
			updated_at = excluded.updated_at
		RETURNING id
	`, r.HabitID, r.UserID, r.Date, r.Completed, r.Momentum, now, now).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	r.UpdatedAt = now
	return nil
}

// ApplyRecord upserts a record and shifts the habit's cached momentum total
// by delta in one transaction, so a failure leaves neither side applied.
func (db *DB) ApplyRecord(r *Record, delta int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("apply record: %w", err)
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
		return fmt.Errorf("apply record: %w", err)
	}
	return nil
}

// SumCompletedInRange returns the sum of raw completed values for a habit
// with from <= date <= to.
func (db *DB) SumCompletedInRange(habitID, from, to string) (int, error) {
	var total int
	err := db.QueryRow(`
		SELECT COALESCE(SUM(completed), 0) FROM habit_records
		WHERE habit_id = ? AND date >= ? AND date <= ?
	`, habitID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum completed in range: %w", err)
	}
	return total, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.HabitID, &r.UserID, &r.Date, &r.Completed, &r.Momentum,
		&r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.HabitID, &r.UserID, &r.Date, &r.Completed, &r.Momentum,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

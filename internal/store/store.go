// Package store persists user preferences, schedules, question history and
// daily action markers in SQLite with merge-on-write semantics.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"strings"
	"time"

	"dsamentor/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the mentor bot.
type DB struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			user_id INTEGER PRIMARY KEY,
			difficulties TEXT NOT NULL,
			topics TEXT NOT NULL,
			companies TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS schedules (
			user_id INTEGER PRIMARY KEY,
			practice_local TEXT NOT NULL,
			reminder_local TEXT NOT NULL,
			deadline_local TEXT NOT NULL,
			practice_utc TEXT NOT NULL,
			reminder_utc TEXT NOT NULL,
			deadline_utc TEXT NOT NULL,
			timezone TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS question_log (
			user_id INTEGER NOT NULL,
			title_key TEXT NOT NULL,
			original_title TEXT NOT NULL,
			status TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, title_key)
		)`,

		`CREATE TABLE IF NOT EXISTS action_markers (
			user_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			acted_on TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, kind)
		)`,

		`CREATE TABLE IF NOT EXISTS streaks (
			user_id INTEGER PRIMARY KEY,
			streak INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_schedules_practice ON schedules(practice_utc)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_reminder ON schedules(reminder_utc)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_deadline ON schedules(deadline_utc)`,
		`CREATE INDEX IF NOT EXISTS idx_question_log_status ON question_log(user_id, status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// GetPreferences returns the user's saved preferences, or nil if the user
// never completed setup.
func (db *DB) GetPreferences(ctx context.Context, userID int64) (*model.UserPreferences, error) {
	row := db.QueryRowContext(ctx, `
		SELECT difficulties, topics, companies, updated_at
		FROM preferences WHERE user_id = ?`, userID)

	var diffs, topics, companies string
	p := model.UserPreferences{UserID: userID}
	err := row.Scan(&diffs, &topics, &companies, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw string
		dst *[]string
	}{{diffs, &p.Difficulties}, {topics, &p.Topics}, {companies, &p.Companies}} {
		if err := json.Unmarshal([]byte(pair.raw), pair.dst); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return &p, nil
}

// SetPreferences overwrites the user's preferences atomically.
func (db *DB) SetPreferences(ctx context.Context, p *model.UserPreferences) error {
	diffs, err := json.Marshal(p.Difficulties)
	if err != nil {
		return err
	}
	topics, err := json.Marshal(p.Topics)
	if err != nil {
		return err
	}
	companies, err := json.Marshal(p.Companies)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, difficulties, topics, companies, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			difficulties = excluded.difficulties,
			topics = excluded.topics,
			companies = excluded.companies,
			updated_at = excluded.updated_at`,
		p.UserID, string(diffs), string(topics), string(companies), p.UpdatedAt)
	return err
}

// GetSchedule returns the user's reminder schedule, or nil if unset.
func (db *DB) GetSchedule(ctx context.Context, userID int64) (*model.ReminderSchedule, error) {
	row := db.QueryRowContext(ctx, `
		SELECT practice_local, reminder_local, deadline_local,
		       practice_utc, reminder_utc, deadline_utc, timezone, created_at
		FROM schedules WHERE user_id = ?`, userID)

	s := model.ReminderSchedule{UserID: userID}
	err := row.Scan(&s.PracticeLocal, &s.ReminderLocal, &s.DeadlineLocal,
		&s.PracticeUTC, &s.ReminderUTC, &s.DeadlineUTC, &s.Timezone, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetSchedule overwrites the user's schedule atomically.
func (db *DB) SetSchedule(ctx context.Context, s *model.ReminderSchedule) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO schedules (user_id, practice_local, reminder_local, deadline_local,
			practice_utc, reminder_utc, deadline_utc, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			practice_local = excluded.practice_local,
			reminder_local = excluded.reminder_local,
			deadline_local = excluded.deadline_local,
			practice_utc = excluded.practice_utc,
			reminder_utc = excluded.reminder_utc,
			deadline_utc = excluded.deadline_utc,
			timezone = excluded.timezone,
			created_at = excluded.created_at`,
		s.UserID, s.PracticeLocal, s.ReminderLocal, s.DeadlineLocal,
		s.PracticeUTC, s.ReminderUTC, s.DeadlineUTC, s.Timezone, s.CreatedAt)
	return err
}

// UsersWithUTCTime returns users whose stored time for the sweep kind equals
// the given UTC "HH:MM" minute.
func (db *DB) UsersWithUTCTime(ctx context.Context, kind model.SweepKind, hhmm string) ([]int64, error) {
	col := "deadline_utc"
	switch kind {
	case model.SweepDelivery:
		col = "practice_utc"
	case model.SweepReminder:
		col = "reminder_utc"
	}

	rows, err := db.QueryContext(ctx, `SELECT user_id FROM schedules WHERE `+col+` = ?`, hhmm)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// GetLastActionDate returns the "YYYY-MM-DD" on which the sweep kind last
// acted for the user, or "" if it never did.
func (db *DB) GetLastActionDate(ctx context.Context, userID int64, kind model.SweepKind) (string, error) {
	row := db.QueryRowContext(ctx, `
		SELECT acted_on FROM action_markers WHERE user_id = ? AND kind = ?`, userID, kind)

	var date string
	err := row.Scan(&date)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return date, nil
}

// SetLastActionDate records that the sweep kind acted for the user on date.
func (db *DB) SetLastActionDate(ctx context.Context, userID int64, kind model.SweepKind, date string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO action_markers (user_id, kind, acted_on, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, kind) DO UPDATE SET
			acted_on = excluded.acted_on,
			updated_at = excluded.updated_at`,
		userID, kind, date, time.Now())
	return err
}

// SetQuestionStatus upserts the per-user status of a question. A resolved
// row (done or missed) is never downgraded back to pending, and resolved
// rows keep their final status on repeated writes.
func (db *DB) SetQuestionStatus(ctx context.Context, userID int64, title string, status model.QuestionStatus) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO question_log (user_id, title_key, original_title, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, title_key) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at
		WHERE question_log.status = 'pending'`,
		userID, titleKey(title), title, status, time.Now())
	return err
}

// titleKey sanitizes a question title into a stable lookup key, preserving
// the original title separately for display. Over-long keys keep a hash of
// the full title so two titles sharing a prefix never share a row.
func titleKey(title string) string {
	k := strings.NewReplacer(".", "_", "/", "_").Replace(title)
	if len(k) > 100 {
		k = fmt.Sprintf("%s_%08x", k[:100], crc32.ChecksumIEEE([]byte(title)))
	}
	return k
}

// ResolvedTitles returns the set of question titles the user has already
// settled as done or missed.
func (db *DB) ResolvedTitles(ctx context.Context, userID int64) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT original_title FROM question_log
		WHERE user_id = ? AND status IN ('done', 'missed')`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	titles := make(map[string]struct{})
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles[t] = struct{}{}
	}
	return titles, rows.Err()
}

// QuestionHistory returns the user's full question log, newest first.
func (db *DB) QuestionHistory(ctx context.Context, userID int64) ([]model.QuestionState, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT original_title, status, updated_at FROM question_log
		WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []model.QuestionState
	for rows.Next() {
		s := model.QuestionState{UserID: userID}
		if err := rows.Scan(&s.Title, &s.Status, &s.UpdatedAt); err != nil {
			return nil, err
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

// GetStreak returns the user's current streak, zero if none recorded.
func (db *DB) GetStreak(ctx context.Context, userID int64) (int, error) {
	row := db.QueryRowContext(ctx, `SELECT streak FROM streaks WHERE user_id = ?`, userID)

	var streak int
	err := row.Scan(&streak)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return streak, nil
}

// IncrementStreak bumps the user's streak and returns the new value.
func (db *DB) IncrementStreak(ctx context.Context, userID int64) (int, error) {
	_, err := db.ExecContext(ctx, `
		INSERT INTO streaks (user_id, streak, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			streak = streaks.streak + 1,
			updated_at = excluded.updated_at`,
		userID, time.Now())
	if err != nil {
		return 0, err
	}
	return db.GetStreak(ctx, userID)
}

// ResetStreak zeroes the user's streak.
func (db *DB) ResetStreak(ctx context.Context, userID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO streaks (user_id, streak, updated_at)
		VALUES (?, 0, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			streak = 0,
			updated_at = excluded.updated_at`,
		userID, time.Now())
	return err
}

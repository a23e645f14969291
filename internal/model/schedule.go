package model

import (
	"errors"
	"time"

	"dsamentor/internal/clock"
)

// Minimum gaps enforced when building a schedule, in minutes.
const (
	MinSolveWindow    = 60 // practice -> deadline
	MinReminderOffset = 30 // practice -> reminder
)

var (
	// ErrDeadlineTooClose means the deadline is under MinSolveWindow minutes
	// after practice time.
	ErrDeadlineTooClose = errors.New("deadline must be at least one hour after practice time")
	// ErrReminderOutsideWindow means the reminder does not lie strictly
	// between practice (+MinReminderOffset) and the deadline.
	ErrReminderOutsideWindow = errors.New("reminder must be between practice time and deadline")
)

// ReminderSchedule holds the three daily times both as entered in the user's
// zone (display) and as canonical UTC minute-of-day (sweep matching).
type ReminderSchedule struct {
	UserID int64 `json:"user_id"`

	PracticeLocal string `json:"practice_local"`
	ReminderLocal string `json:"reminder_local"`
	DeadlineLocal string `json:"deadline_local"`

	PracticeUTC string `json:"practice_utc"`
	ReminderUTC string `json:"reminder_utc"`
	DeadlineUTC string `json:"deadline_utc"`

	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// NewReminderSchedule validates the three canonical local times and converts
// them to UTC. The gap invariants are checked in local minute-of-day space
// with day rollover, so a deadline past midnight is a valid window.
func NewReminderSchedule(userID int64, practice, reminder, deadline string, zone *time.Location, now time.Time) (*ReminderSchedule, error) {
	solveWindow, err := clock.MinutesBetween(practice, deadline)
	if err != nil {
		return nil, err
	}
	if solveWindow < MinSolveWindow {
		return nil, ErrDeadlineTooClose
	}

	toReminder, err := clock.MinutesBetween(practice, reminder)
	if err != nil {
		return nil, err
	}
	toDeadline, err := clock.MinutesBetween(reminder, deadline)
	if err != nil {
		return nil, err
	}
	// Reminder must come at least MinReminderOffset after practice and
	// strictly before the deadline. A reminder "after" the deadline shows up
	// as toDeadline wrapping close to a full day, which the window check
	// catches because toReminder would then exceed solveWindow.
	if toReminder < MinReminderOffset || toReminder >= solveWindow || toDeadline <= 0 {
		return nil, ErrReminderOutsideWindow
	}

	practiceUTC, err := clock.ToUTC(practice, zone, now)
	if err != nil {
		return nil, err
	}
	reminderUTC, err := clock.ToUTC(reminder, zone, now)
	if err != nil {
		return nil, err
	}
	deadlineUTC, err := clock.ToUTC(deadline, zone, now)
	if err != nil {
		return nil, err
	}

	return &ReminderSchedule{
		UserID:        userID,
		PracticeLocal: practice,
		ReminderLocal: reminder,
		DeadlineLocal: deadline,
		PracticeUTC:   practiceUTC,
		ReminderUTC:   reminderUTC,
		DeadlineUTC:   deadlineUTC,
		Timezone:      zone.String(),
		CreatedAt:     now,
	}, nil
}

// UTCTimeFor returns the stored UTC minute for the given sweep kind.
func (s *ReminderSchedule) UTCTimeFor(kind SweepKind) string {
	switch kind {
	case SweepDelivery:
		return s.PracticeUTC
	case SweepReminder:
		return s.ReminderUTC
	default:
		return s.DeadlineUTC
	}
}

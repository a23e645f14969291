package model

import "time"

// QuestionStatus tracks the lifecycle of a delivered question for one user.
type QuestionStatus string

const (
	StatusPending QuestionStatus = "pending"
	StatusDone    QuestionStatus = "done"
	StatusMissed  QuestionStatus = "missed"
)

// QuestionRecord is an immutable catalog entry. Title is the natural key;
// Topics and Companies hold the raw comma-joined tag text from the catalog.
type QuestionRecord struct {
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Topics     string `json:"topics"`
	Companies  string `json:"companies"`
}

// QuestionState is the per-user status of a single question.
type QuestionState struct {
	UserID    int64          `json:"user_id"`
	Title     string         `json:"title"`
	Status    QuestionStatus `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Resolved reports whether the question is permanently settled for the user.
func (s QuestionStatus) Resolved() bool {
	return s == StatusDone || s == StatusMissed
}

// SweepKind identifies one of the three daily sweeps.
type SweepKind string

const (
	SweepDelivery SweepKind = "delivery"
	SweepReminder SweepKind = "reminder"
	SweepDeadline SweepKind = "deadline"
)

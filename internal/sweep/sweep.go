// Package sweep runs the three daily jobs: question delivery at practice
// time, a nudge at reminder time, and expiry at the deadline. Each sweep
// matches users by UTC minute-of-day and is idempotent per calendar day.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dsamentor/internal/matcher"
	"dsamentor/internal/metrics"
	"dsamentor/internal/model"
	"dsamentor/internal/session"
)

// Storage is the slice of the store the engine needs.
type Storage interface {
	UsersWithUTCTime(ctx context.Context, kind model.SweepKind, hhmm string) ([]int64, error)
	GetLastActionDate(ctx context.Context, userID int64, kind model.SweepKind) (string, error)
	SetLastActionDate(ctx context.Context, userID int64, kind model.SweepKind, date string) error
	SetQuestionStatus(ctx context.Context, userID int64, title string, status model.QuestionStatus) error
	ResetStreak(ctx context.Context, userID int64) error
}

// Matcher selects eligible questions for a user.
type Matcher interface {
	Match(ctx context.Context, userID int64) ([]model.QuestionRecord, error)
}

// Notifier delivers outbound messages.
type Notifier interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Engine drives the minute ticker and the three sweeps.
type Engine struct {
	store    Storage
	matcher  Matcher
	notifier Notifier
	guard    *session.Guard
	current  *session.Current
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running map[model.SweepKind]bool
}

func NewEngine(store Storage, m Matcher, notifier Notifier, guard *session.Guard, current *session.Current, interval time.Duration, logger zerolog.Logger) *Engine {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Engine{
		store:    store,
		matcher:  m,
		notifier: notifier,
		guard:    guard,
		current:  current,
		logger:   logger.With().Str("component", "sweep").Logger(),
		interval: interval,
		now:      time.Now,
		running:  make(map[model.SweepKind]bool),
	}
}

// Run ticks until the context is cancelled. Each tick launches the three
// sweeps concurrently; a sweep still busy from a previous tick is skipped.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info().Dur("interval", e.interval).Msg("sweep engine started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("sweep engine stopped")
			return
		case <-ticker.C:
			for _, kind := range []model.SweepKind{model.SweepDelivery, model.SweepReminder, model.SweepDeadline} {
				go e.RunSweep(ctx, kind)
			}
		}
	}
}

// RunSweep executes one sweep for the current UTC minute. Exported so tests
// and a manual trigger can run a sweep directly.
func (e *Engine) RunSweep(ctx context.Context, kind model.SweepKind) {
	e.mu.Lock()
	if e.running[kind] {
		e.mu.Unlock()
		metrics.IncSweepRun(string(kind), "overlap")
		return
	}
	e.running[kind] = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running[kind] = false
		e.mu.Unlock()
	}()

	now := e.now().UTC()
	hhmm := now.Format("15:04")
	today := now.Format("2006-01-02")

	users, err := e.store.UsersWithUTCTime(ctx, kind, hhmm)
	if err != nil {
		e.logger.Error().Err(err).Str("kind", string(kind)).Msg("user query failed")
		metrics.IncSweepRun(string(kind), "error")
		return
	}
	if len(users) == 0 {
		return
	}

	log := e.logger.With().Str("kind", string(kind)).Str("minute", hhmm).Logger()
	log.Info().Int("users", len(users)).Msg("sweep matched users")

	failed := 0
	for _, userID := range users {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweep interrupted")
			return
		default:
		}

		last, err := e.store.GetLastActionDate(ctx, userID, kind)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("marker read failed")
			failed++
			continue
		}
		if last == today {
			continue
		}

		acted, err := e.processUser(ctx, kind, userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("sweep user failed")
			failed++
			continue
		}
		if !acted {
			continue
		}

		if err := e.store.SetLastActionDate(ctx, userID, kind, today); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("marker write failed")
			failed++
		}
	}

	if failed > 0 {
		metrics.IncSweepRun(string(kind), "partial")
	} else {
		metrics.IncSweepRun(string(kind), "ok")
	}
}

// processUser runs the user's slice of the sweep. acted reports whether a
// real action happened; silent skips leave no marker so the day stays open.
func (e *Engine) processUser(ctx context.Context, kind model.SweepKind, userID int64) (acted bool, err error) {
	switch kind {
	case model.SweepDelivery:
		return e.deliver(ctx, userID)
	case model.SweepReminder:
		return e.remind(ctx, userID)
	default:
		return e.expire(ctx, userID)
	}
}

// deliver picks a question for the user and sends it, recording pending
// state before the send so /done and /missed can resolve it.
func (e *Engine) deliver(ctx context.Context, userID int64) (bool, error) {
	release := e.guard.LockFetch(userID)
	defer release()

	eligible, err := e.matcher.Match(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, matcher.ErrNoPreferences):
		// Scheduled but never configured; nothing sensible to send.
		e.logger.Debug().Int64("user_id", userID).Msg("delivery skipped, no preferences")
		return false, nil
	case errors.Is(err, matcher.ErrNoMatch):
		// Advisory only; no question went out, so the day stays undelivered.
		return false, e.notifier.Send(ctx, userID,
			"No unsolved questions match your filters today. Try widening them with /setup.")
	default:
		return false, err
	}

	q := eligible[rand.Intn(len(eligible))]

	if err := e.store.SetQuestionStatus(ctx, userID, q.Title, model.StatusPending); err != nil {
		return false, err
	}
	e.current.Set(userID, q.Title)

	text := fmt.Sprintf(
		"🎯 Today's practice question:\n\n<b>%s</b>\nDifficulty: %s\nTopics: %s\n\nReply /done when you solve it, or /missed to give up.",
		q.Title, q.Difficulty, q.Topics)
	if err := e.notifier.Send(ctx, userID, text); err != nil {
		return false, err
	}

	metrics.IncQuestionDelivered("schedule")
	return true, nil
}

// remind nudges the user if their question is still pending. Users who
// already resolved it are skipped without a message or a marker.
func (e *Engine) remind(ctx context.Context, userID int64) (bool, error) {
	title, ok := e.current.Get(userID)
	if !ok {
		return false, nil
	}

	text := fmt.Sprintf("⏰ Reminder: <b>%s</b> is still waiting. Your deadline is coming up.", title)
	if err := e.notifier.Send(ctx, userID, text); err != nil {
		return false, err
	}
	return true, nil
}

// expire marks an unresolved question missed, resets the streak and tells
// the user. A user with nothing pending is left alone entirely.
func (e *Engine) expire(ctx context.Context, userID int64) (bool, error) {
	release := e.guard.LockFetch(userID)
	defer release()

	title, ok := e.current.Pop(userID)
	if !ok {
		return false, nil
	}

	if err := e.store.SetQuestionStatus(ctx, userID, title, model.StatusMissed); err != nil {
		// Keep the pending entry so a later run can settle it.
		e.current.Set(userID, title)
		return false, err
	}
	if err := e.store.ResetStreak(ctx, userID); err != nil {
		return false, err
	}
	metrics.IncQuestionResolved(string(model.StatusMissed))

	text := fmt.Sprintf("⌛ Deadline passed. <b>%s</b> was marked missed and your streak was reset.", title)
	if err := e.notifier.Send(ctx, userID, text); err != nil {
		return false, err
	}
	return true, nil
}

// Package session serializes per-user activity: a fetch mutex so concurrent
// question requests for the same user never race, a wizard busy flag so a
// fetch and a setup dialog cannot interleave, and the in-memory map of each
// user's currently pending question title.
package session

import (
	"errors"
	"sync"
)

var (
	// ErrFetchInProgress means another question fetch for the user is running.
	ErrFetchInProgress = errors.New("question fetch already in progress")
	// ErrWizardActive means the user is inside a setup or reminder dialog.
	ErrWizardActive = errors.New("setup dialog in progress")
)

// Guard hands out one mutex per user. Mutexes are created on first use and
// never removed; the per-user footprint is a few words.
type Guard struct {
	mu      sync.Mutex
	fetches map[int64]*userLock
	wizards map[int64]bool
}

type userLock struct {
	sem chan struct{}
}

func NewGuard() *Guard {
	return &Guard{
		fetches: make(map[int64]*userLock),
		wizards: make(map[int64]bool),
	}
}

func (g *Guard) lockFor(userID int64) *userLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.fetches[userID]
	if !ok {
		l = &userLock{sem: make(chan struct{}, 1)}
		g.fetches[userID] = l
	}
	return l
}

// TryAcquireFetch attempts to take the user's fetch lock without blocking.
// It fails when a fetch is already running or a wizard is active. On success
// the caller must invoke the returned release function exactly once.
func (g *Guard) TryAcquireFetch(userID int64) (release func(), err error) {
	g.mu.Lock()
	busy := g.wizards[userID]
	g.mu.Unlock()
	if busy {
		return nil, ErrWizardActive
	}

	l := g.lockFor(userID)
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	default:
		return nil, ErrFetchInProgress
	}
}

// LockFetch blocks until the user's fetch lock is available. Used by the
// sweeps, which must not drop a user just because a manual fetch is running.
func (g *Guard) LockFetch(userID int64) (release func()) {
	l := g.lockFor(userID)
	l.sem <- struct{}{}
	return func() { <-l.sem }
}

// BeginWizard marks the user as busy in a dialog. It fails if a wizard is
// already active or a fetch currently holds the lock.
func (g *Guard) BeginWizard(userID int64) error {
	release, err := g.TryAcquireFetch(userID)
	if err != nil {
		return err
	}
	release()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.wizards[userID] {
		return ErrWizardActive
	}
	g.wizards[userID] = true
	return nil
}

// EndWizard clears the busy flag. Safe to call when no wizard is active.
func (g *Guard) EndWizard(userID int64) {
	g.mu.Lock()
	delete(g.wizards, userID)
	g.mu.Unlock()
}

// WizardActive reports whether the user is inside a dialog.
func (g *Guard) WizardActive(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wizards[userID]
}

// Current tracks each user's pending question title in memory. The table is
// rebuilt organically after a restart: the next delivery repopulates it.
type Current struct {
	mu     sync.RWMutex
	titles map[int64]string
}

func NewCurrent() *Current {
	return &Current{titles: make(map[int64]string)}
}

// Get returns the user's pending title, if any.
func (c *Current) Get(userID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.titles[userID]
	return t, ok
}

// Set records the user's pending title, replacing any previous one.
func (c *Current) Set(userID int64, title string) {
	c.mu.Lock()
	c.titles[userID] = title
	c.mu.Unlock()
}

// Pop removes and returns the user's pending title.
func (c *Current) Pop(userID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.titles[userID]
	if ok {
		delete(c.titles, userID)
	}
	return t, ok
}

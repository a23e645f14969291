package bot

import "sync"

type dialogStep string

const (
	stepNone dialogStep = "none"

	// /setup flow
	stepDifficulty dialogStep = "difficulty"
	stepTopics     dialogStep = "topics"
	stepCompanies  dialogStep = "companies"

	// /setreminder flow
	stepPractice dialogStep = "practice"
	stepDeadline dialogStep = "deadline"
	stepReminder dialogStep = "reminder"
)

// setupDraft accumulates wizard answers; nothing is persisted until the
// final step completes.
type setupDraft struct {
	Difficulties []string
	Topics       []string
	Companies    []string
}

type scheduleDraft struct {
	Practice string // normalized HH:MM, local
	Deadline string
}

type userState struct {
	Step  dialogStep
	Setup setupDraft
	Sched scheduleDraft
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*userState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*userState)}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &userState{Step: stepNone}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}

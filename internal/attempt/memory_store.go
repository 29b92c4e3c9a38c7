package attempt

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu         sync.Mutex
	startTimes map[string]time.Time
	answers    map[string]map[string]string
	completed  map[string]bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		startTimes: make(map[string]time.Time),
		answers:    make(map[string]map[string]string),
		completed:  make(map[string]bool),
	}
}

func (s *MemoryStore) StartTime(quizID uuid.UUID, studentID int) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.startTimes[startTimeKey(quizID, studentID)]
	return t, ok, nil
}

func (s *MemoryStore) SaveStartTime(quizID uuid.UUID, studentID int, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTimes[startTimeKey(quizID, studentID)] = t
	return nil
}

func (s *MemoryStore) Answers(quizID uuid.UUID, studentID int) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.answers[answersKey(quizID, studentID)]
	out := make(map[string]string, len(saved))
	for k, v := range saved {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SaveAnswers(quizID uuid.UUID, studentID int, answers map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[string]string, len(answers))
	for k, v := range answers {
		saved[k] = v
	}
	s.answers[answersKey(quizID, studentID)] = saved
	return nil
}

func (s *MemoryStore) ClearAttempt(quizID uuid.UUID, studentID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.startTimes, startTimeKey(quizID, studentID))
	delete(s.answers, answersKey(quizID, studentID))
	return nil
}

func (s *MemoryStore) Completed(quizID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[completedKey(quizID)], nil
}

func (s *MemoryStore) SetCompleted(quizID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[completedKey(quizID)] = true
	return nil
}

// HasAttemptState reports whether any per-attempt key survives for the pair.
// Test helper.
func (s *MemoryStore) HasAttemptState(quizID uuid.UUID, studentID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, hasStart := s.startTimes[startTimeKey(quizID, studentID)]
	_, hasAnswers := s.answers[answersKey(quizID, studentID)]
	return hasStart || hasAnswers
}

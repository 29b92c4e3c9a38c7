package attempt

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the durable key-value persistence contract backing one exam
// client's attempt state. The contract is read-if-present-else-initialize,
// write-on-every-mutation, delete-on-terminal-transition: start time and
// answers survive a page reload, and the completed marker blocks re-entry
// after a successful submission.
type Store interface {
	// StartTime returns the persisted attempt start time, if any.
	StartTime(quizID uuid.UUID, studentID int) (time.Time, bool, error)
	SaveStartTime(quizID uuid.UUID, studentID int, t time.Time) error

	// Answers returns the persisted answer map, empty if none was saved.
	Answers(quizID uuid.UUID, studentID int) (map[string]string, error)
	SaveAnswers(quizID uuid.UUID, studentID int, answers map[string]string) error

	// ClearAttempt removes the start time and answers for the attempt.
	ClearAttempt(quizID uuid.UUID, studentID int) error

	// Completed reports whether the completed marker for the quiz is set.
	Completed(quizID uuid.UUID) (bool, error)
	SetCompleted(quizID uuid.UUID) error
}

func startTimeKey(quizID uuid.UUID, studentID int) string {
	return fmt.Sprintf("quiz_%s_student_%d_startTime", quizID, studentID)
}

func answersKey(quizID uuid.UUID, studentID int) string {
	return fmt.Sprintf("quiz_%s_student_%d_answers", quizID, studentID)
}

func completedKey(quizID uuid.UUID) string {
	return fmt.Sprintf("completed_quiz_%s", quizID)
}

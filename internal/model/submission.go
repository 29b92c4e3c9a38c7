package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission represents one student's persisted pass through one quiz.
// The (quiz_id, student_id) pair is unique — the server-side one-attempt
// enforcement point.
type Submission struct {
	ID          uuid.UUID `json:"id"`
	QuizID      uuid.UUID `json:"quiz_id"`
	StudentID   int       `json:"student_id"`
	Score       float64   `json:"score"`
	MaxScore    int       `json:"max_score"`
	StartedAt   time.Time `json:"started_at"`
	SubmittedAt time.Time `json:"submitted_at"`
	AutoSubmit  bool      `json:"auto_submit"`
}

// QuizStats is the per-quiz aggregate maintained by the stats worker.
type QuizStats struct {
	QuizID          uuid.UUID `json:"quiz_id"`
	SubmissionCount int       `json:"submission_count"`
	TotalScore      float64   `json:"total_score"`
	TotalMaxScore   int       `json:"total_max_score"`
	AverageScore    float64   `json:"average_score"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SubmissionAnswer is one graded answer row within a submission.
type SubmissionAnswer struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	Selected     string    `json:"selected"`
	Correct      bool      `json:"correct"`
	MarksAwarded int       `json:"marks_awarded"`
}

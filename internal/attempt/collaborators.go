package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/somaedu/soma-backend/internal/model"
)

// Sentinel errors crossing the collaborator boundary. Handlers map these to
// wire error codes.
var (
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrInvalidPIN         = errors.New("invalid quiz PIN")
	ErrDuplicateAttempt   = errors.New("student already submitted this quiz")
	ErrRegistrationFailed = errors.New("student registration failed")
	ErrQuizLoadFailed     = errors.New("quiz questions could not be loaded")
	ErrSubmissionFailed   = errors.New("submission could not be persisted")
	ErrQuizClosed         = errors.New("quiz due date has passed")
	ErrAttemptBlocked     = errors.New("attempt is blocked by a prior submission")
	ErrInvalidPhase       = errors.New("operation not valid in current phase")
	ErrSubmitInFlight     = errors.New("a submission is already in flight")
	ErrUnknownQuestion    = errors.New("question does not belong to this quiz")
)

// QuestionSource provides read-only access to a quiz's ordered question list.
// pin is checked only for quizzes that require one; sources return
// ErrInvalidPIN when it does not match and ErrQuizNotFound for unknown or
// unpublished quizzes.
type QuestionSource interface {
	Questions(ctx context.Context, quizID uuid.UUID, pin string) ([]model.QuestionForStudent, error)
}

// SubmissionRequest packages a finished attempt for the sink.
type SubmissionRequest struct {
	QuizID     uuid.UUID
	StudentID  int
	Answers    map[string]string
	StartedAt  time.Time
	AutoSubmit bool
}

// SubmissionSink durably persists a finished attempt. It re-checks the
// one-attempt constraint server-side and returns ErrDuplicateAttempt on a
// repeat submission.
type SubmissionSink interface {
	Submit(ctx context.Context, req SubmissionRequest) (*model.Submission, error)
}

// IdentityRegistrar exchanges a student's name for a durable student ID.
// Registration is idempotent: the same name maps to the same ID.
type IdentityRegistrar interface {
	Register(ctx context.Context, firstName, lastName string) (int, error)
}

// PriorSubmissionChecker reports whether a student (identified by name, since
// no durable ID exists before registration) already submitted the quiz.
type PriorSubmissionChecker interface {
	HasSubmitted(ctx context.Context, quizID uuid.UUID, firstName, lastName string) (bool, error)
}

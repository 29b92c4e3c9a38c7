package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/config"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/repository"
	"github.com/somaedu/soma-backend/internal/response"
)

// SubmissionService grades finished attempts in RAM against the Redis answer
// key and persists results. Implements the attempt package's SubmissionSink.
type SubmissionService struct {
	submissionRepo *repository.SubmissionRepository
	quizService    *QuizService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	quizService *QuizService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		quizService:    quizService,
		rdb:            rdb,
		log:            log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit grades the attempt's answers against the cached answer key, inserts
// the submission row, and queues graded answer rows for async persistence.
// Returns attempt.ErrDuplicateAttempt when the (quiz, student) pair already
// has a submission.
func (s *SubmissionService) Submit(ctx context.Context, req attempt.SubmissionRequest) (*model.Submission, error) {
	answerKey, err := s.quizService.GetAnswerKey(ctx, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attempt.ErrSubmissionFailed, err)
	}
	marks, err := s.quizService.GetMarks(ctx, req.QuizID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attempt.ErrSubmissionFailed, err)
	}

	graded, score, maxScore := gradeAnswers(answerKey, marks, req.Answers)

	submission := &model.Submission{
		QuizID:      req.QuizID,
		StudentID:   req.StudentID,
		Score:       score,
		MaxScore:    maxScore,
		StartedAt:   req.StartedAt,
		SubmittedAt: time.Now(),
		AutoSubmit:  req.AutoSubmit,
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return nil, attempt.ErrDuplicateAttempt
		}
		return nil, fmt.Errorf("%w: %v", attempt.ErrSubmissionFailed, err)
	}

	// Queue graded answer rows for the persistence worker. The submission
	// row is already durable, so a queue hiccup loses detail, not the score.
	for i := range graded {
		graded[i].SubmissionID = submission.ID
		payload, _ := json.Marshal(graded[i])
		if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
			s.log.Error().Err(err).
				Str("submission_id", submission.ID.String()).
				Msg("Failed to queue answer row")
			break
		}
	}

	// Queue the score event so the stats worker can fold it into the quiz
	// aggregates without touching the hot path.
	scorePayload, _ := json.Marshal(map[string]interface{}{
		"quiz_id":    req.QuizID.String(),
		"student_id": req.StudentID,
		"score":      score,
		"max_score":  maxScore,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, scorePayload).Err(); err != nil {
		s.log.Error().Err(err).
			Str("quiz_id", req.QuizID.String()).
			Msg("Failed to queue score event")
	}

	s.log.Info().
		Str("quiz_id", req.QuizID.String()).
		Int("student_id", req.StudentID).
		Float64("score", score).
		Int("max_score", maxScore).
		Bool("auto", req.AutoSubmit).
		Msg("Attempt submitted and graded")

	return submission, nil
}

// gradeAnswers scores a student's answer map against the answer key with
// per-question marks weighting. Unanswered questions score zero.
func gradeAnswers(answerKey, marks, answers map[string]string) ([]model.SubmissionAnswer, float64, int) {
	var score float64
	maxScore := 0
	graded := make([]model.SubmissionAnswer, 0, len(answers))
	for qID, correctAns := range answerKey {
		qMarks, _ := strconv.Atoi(marks[qID])
		maxScore += qMarks

		selected, answered := answers[qID]
		if !answered {
			continue
		}

		questionID, err := uuid.Parse(qID)
		if err != nil {
			continue
		}

		correct := selected == correctAns
		awarded := 0
		if correct {
			awarded = qMarks
			score += float64(qMarks)
		}
		graded = append(graded, model.SubmissionAnswer{
			QuestionID:   questionID,
			Selected:     selected,
			Correct:      correct,
			MarksAwarded: awarded,
		})
	}
	return graded, score, maxScore
}

// HasSubmitted reports whether a submission exists for the given quiz and
// student ID.
func (s *SubmissionService) HasSubmitted(ctx context.Context, quizID uuid.UUID, studentID int) (bool, error) {
	return s.submissionRepo.Exists(ctx, quizID, studentID)
}

// ListResults retrieves paginated graded submissions for a quiz. tutorID
// scopes the list to the tutor's roster; 0 (super-admin) lists all.
func (s *SubmissionService) ListResults(ctx context.Context, quizID uuid.UUID, tutorID, page, perPage int) ([]repository.SubmissionResult, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	results, total, err := s.submissionRepo.ListByQuiz(ctx, quizID, tutorID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if results == nil {
		results = []repository.SubmissionResult{}
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}
	return results, pagination, nil
}

// GetStats retrieves the worker-maintained aggregate row for a quiz.
func (s *SubmissionService) GetStats(ctx context.Context, quizID uuid.UUID) (*model.QuizStats, error) {
	return s.submissionRepo.GetStats(ctx, quizID)
}

// GetResultDetail retrieves one submission with its graded answer rows.
func (s *SubmissionService) GetResultDetail(ctx context.Context, quizID uuid.UUID, studentID int) (*model.Submission, []model.SubmissionAnswer, error) {
	submission, err := s.submissionRepo.GetByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, nil, err
	}
	answers, err := s.submissionRepo.ListAnswers(ctx, submission.ID)
	if err != nil {
		return nil, nil, err
	}
	if answers == nil {
		answers = []model.SubmissionAnswer{}
	}
	return submission, answers, nil
}

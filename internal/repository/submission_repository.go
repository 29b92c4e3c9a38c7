package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/somaedu/soma-backend/internal/model"
)

// ErrDuplicateSubmission marks a second submission for the same
// (quiz, student) pair. This constraint is the server-side one-attempt
// enforcement point.
var ErrDuplicateSubmission = errors.New("submission already exists for this quiz and student")

// SubmissionResult combines student data with their submission for reports.
type SubmissionResult struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	StudentID    int       `json:"student_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Score        float64   `json:"score"`
	MaxScore     int       `json:"max_score"`
	StartedAt    time.Time `json:"started_at"`
	SubmittedAt  time.Time `json:"submitted_at"`
	AutoSubmit   bool      `json:"auto_submit"`
}

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a submission row. Returns ErrDuplicateSubmission when the
// (quiz_id, student_id) pair already has one.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (quiz_id, student_id, score, max_score, started_at, submitted_at, auto_submit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (quiz_id, student_id) DO NOTHING
		 RETURNING id`,
		s.QuizID, s.StudentID, s.Score, s.MaxScore, s.StartedAt, s.SubmittedAt, s.AutoSubmit,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// The conflict clause swallowed the insert.
		return ErrDuplicateSubmission
	}
	return err
}

// Exists reports whether a submission exists for the pair.
func (r *SubmissionRepository) Exists(ctx context.Context, quizID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE quiz_id = $1 AND student_id = $2)`,
		quizID, studentID).Scan(&exists)
	return exists, err
}

// ExistsByName reports whether a submission exists for a quiz by a student
// with the given name. Used by the pre-entry prior-submission check, which
// runs before the student has a durable ID.
func (r *SubmissionRepository) ExistsByName(ctx context.Context, quizID uuid.UUID, firstName, lastName string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM submissions sub
			JOIN students s ON s.id = sub.student_id
			WHERE sub.quiz_id = $1 AND s.first_name = $2 AND s.last_name = $3
		 )`,
		quizID, firstName, lastName).Scan(&exists)
	return exists, err
}

// GetByQuizAndStudent retrieves the submission for a quiz-student pair.
func (r *SubmissionRepository) GetByQuizAndStudent(ctx context.Context, quizID uuid.UUID, studentID int) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, student_id, score, max_score, started_at, submitted_at, auto_submit
		 FROM submissions
		 WHERE quiz_id = $1 AND student_id = $2`, quizID, studentID,
	).Scan(&s.ID, &s.QuizID, &s.StudentID, &s.Score, &s.MaxScore, &s.StartedAt, &s.SubmittedAt, &s.AutoSubmit)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByQuiz retrieves student results for a quiz with pagination. A non-zero
// tutorID restricts rows to students on that tutor's roster.
func (r *SubmissionRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID, tutorID, page, perPage int) ([]SubmissionResult, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := `
		FROM submissions sub
		JOIN students s ON sub.student_id = s.id
		WHERE sub.quiz_id = $1
	`
	args := []any{quizID}

	if tutorID != 0 {
		args = append(args, tutorID)
		baseQuery += fmt.Sprintf(
			" AND EXISTS(SELECT 1 FROM tutor_students ts WHERE ts.student_id = s.id AND ts.tutor_id = $%d)",
			len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT sub.id, s.id, s.first_name, s.last_name,
			sub.score, sub.max_score, sub.started_at, sub.submitted_at, sub.auto_submit
		` + baseQuery + `
		ORDER BY s.last_name, s.first_name
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SubmissionResult
	for rows.Next() {
		var sr SubmissionResult
		if err := rows.Scan(&sr.SubmissionID, &sr.StudentID, &sr.FirstName, &sr.LastName,
			&sr.Score, &sr.MaxScore, &sr.StartedAt, &sr.SubmittedAt, &sr.AutoSubmit); err != nil {
			return nil, 0, err
		}
		results = append(results, sr)
	}
	return results, total, rows.Err()
}

// ListAnswers retrieves the graded answer rows for one submission.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]model.SubmissionAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT submission_id, question_id, selected, correct, marks_awarded
		 FROM submission_answers
		 WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.SubmissionAnswer
	for rows.Next() {
		var a model.SubmissionAnswer
		if err := rows.Scan(&a.SubmissionID, &a.QuestionID, &a.Selected, &a.Correct, &a.MarksAwarded); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// GetStats retrieves the aggregate row the stats worker maintains for a quiz.
// A quiz with no submissions yields a zero-valued row.
func (r *SubmissionRepository) GetStats(ctx context.Context, quizID uuid.UUID) (*model.QuizStats, error) {
	stats := &model.QuizStats{QuizID: quizID}
	err := r.pool.QueryRow(ctx,
		`SELECT submission_count, total_score, total_max_score, updated_at
		 FROM quiz_stats
		 WHERE quiz_id = $1`, quizID,
	).Scan(&stats.SubmissionCount, &stats.TotalScore, &stats.TotalMaxScore, &stats.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats, nil
		}
		return nil, err
	}
	if stats.SubmissionCount > 0 {
		stats.AverageScore = stats.TotalScore / float64(stats.SubmissionCount)
	}
	return stats, nil
}

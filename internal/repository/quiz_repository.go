package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/somaedu/soma-backend/internal/model"
)

// QuizRepository handles quiz data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, tutor_id, time_limit_minutes, due_at, pin, pin_required,
	status, question_count, created_at, updated_at`

func scanQuiz(row interface{ Scan(...any) error }, q *model.Quiz) error {
	return row.Scan(&q.ID, &q.Title, &q.TutorID, &q.TimeLimitMinutes, &q.DueAt,
		&q.PIN, &q.PINRequired, &q.Status, &q.QuestionCount, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+quizColumns+`
		 FROM quizzes
		 WHERE id = $1`, id)
	if err := scanQuiz(row, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts a new quiz.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, tutor_id, time_limit_minutes, due_at, pin, pin_required, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		q.Title, q.TutorID, q.TimeLimitMinutes, q.DueAt, q.PIN, q.PINRequired, q.Status,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update modifies a quiz's editable fields.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes
		 SET title = $1, time_limit_minutes = $2, due_at = $3, pin = $4, pin_required = $5, updated_at = NOW()
		 WHERE id = $6`,
		q.Title, q.TimeLimitMinutes, q.DueAt, q.PIN, q.PINRequired, q.ID)
	return err
}

// UpdateStatus changes a quiz's lifecycle status.
func (r *QuizRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuizStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes a quiz. Questions cascade via FK.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

// ListByTutorPaginated retrieves a tutor's quizzes, newest first. tutorID 0
// (super-admin) lists all quizzes.
func (r *QuizRepository) ListByTutorPaginated(ctx context.Context, tutorID, limit, offset int) ([]model.Quiz, int, error) {
	countQuery := `SELECT COUNT(*) FROM quizzes`
	listQuery := `SELECT ` + quizColumns + ` FROM quizzes`
	var args []any
	if tutorID != 0 {
		countQuery += ` WHERE tutor_id = $1`
		listQuery += ` WHERE tutor_id = $1`
		args = append(args, tutorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery += ` ORDER BY created_at DESC`
	if tutorID != 0 {
		listQuery += ` LIMIT $2 OFFSET $3`
	} else {
		listQuery += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := scanQuiz(rows, &q); err != nil {
			return nil, 0, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, total, rows.Err()
}

// ListPublished retrieves all published quizzes (cache prewarm on startup).
func (r *QuizRepository) ListPublished(ctx context.Context) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quizColumns+`
		 FROM quizzes
		 WHERE status = $1`, model.QuizStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := scanQuiz(rows, &q); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/somaedu/soma-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByQuiz retrieves all questions for a quiz, ordered by order_num.
func (r *QuestionRepository) ListByQuiz(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, prompt, options, correct_option, marks, image_url, order_num
		 FROM questions
		 WHERE quiz_id = $1
		 ORDER BY order_num`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Prompt, &q.Options, &q.CorrectOption,
			&q.Marks, &q.ImageURL, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, prompt, options, correct_option, marks, image_url, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		q.QuizID, q.Prompt, q.Options, q.CorrectOption, q.Marks, q.ImageURL, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceAll atomically swaps a quiz's question set inside one transaction.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quizID); err != nil {
			return err
		}
		for i := range questions {
			q := &questions[i]
			if err := tx.QueryRow(ctx,
				`INSERT INTO questions (quiz_id, prompt, options, correct_option, marks, image_url, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id`,
				quizID, q.Prompt, q.Options, q.CorrectOption, q.Marks, q.ImageURL, q.OrderNum,
			).Scan(&q.ID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE quizzes SET question_count = $1, updated_at = NOW() WHERE id = $2`,
			len(questions), quizID); err != nil {
			return err
		}
		return nil
	})
}

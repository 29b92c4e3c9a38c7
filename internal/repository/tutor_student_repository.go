package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TutorStudentRepository handles the tutor-student roster relation.
type TutorStudentRepository struct {
	pool *pgxpool.Pool
}

// NewTutorStudentRepository creates a new TutorStudentRepository.
func NewTutorStudentRepository(pool *pgxpool.Pool) *TutorStudentRepository {
	return &TutorStudentRepository{pool: pool}
}

// Link attaches a student to a tutor's roster. Idempotent.
func (r *TutorStudentRepository) Link(ctx context.Context, tutorID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tutor_students (tutor_id, student_id)
		 VALUES ($1, $2)
		 ON CONFLICT (tutor_id, student_id) DO NOTHING`,
		tutorID, studentID)
	return err
}

// Unlink removes a student from a tutor's roster.
func (r *TutorStudentRepository) Unlink(ctx context.Context, tutorID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM tutor_students WHERE tutor_id = $1 AND student_id = $2`,
		tutorID, studentID)
	return err
}

// IsLinked reports whether a student is on a tutor's roster.
func (r *TutorStudentRepository) IsLinked(ctx context.Context, tutorID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM tutor_students WHERE tutor_id = $1 AND student_id = $2)`,
		tutorID, studentID).Scan(&exists)
	return exists, err
}

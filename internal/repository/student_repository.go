package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/somaedu/soma-backend/internal/model"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, created_at, updated_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.FirstName, &s.LastName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetOrCreateByName returns the student with the given name, inserting a row
// if none exists. The upsert keeps registration idempotent so a page reload
// maps the same name back to the same durable ID.
func (r *StudentRepository) GetOrCreateByName(ctx context.Context, firstName, lastName string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (first_name, last_name)
		 VALUES ($1, $2)
		 ON CONFLICT (first_name, last_name) DO UPDATE SET updated_at = NOW()
		 RETURNING id, first_name, last_name, created_at, updated_at`,
		firstName, lastName,
	).Scan(&s.ID, &s.FirstName, &s.LastName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByName retrieves a student by exact name match.
func (r *StudentRepository) GetByName(ctx context.Context, firstName, lastName string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, created_at, updated_at
		 FROM students WHERE first_name = $1 AND last_name = $2`,
		firstName, lastName,
	).Scan(&s.ID, &s.FirstName, &s.LastName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListPaginated retrieves students with pagination. When tutorID is non-zero
// the list is restricted to that tutor's roster.
func (r *StudentRepository) ListPaginated(ctx context.Context, tutorID, limit, offset int) ([]model.Student, int, error) {
	countQuery := `SELECT COUNT(*) FROM students s`
	listQuery := `SELECT s.id, s.first_name, s.last_name, s.created_at, s.updated_at FROM students s`
	var args []any
	if tutorID != 0 {
		join := ` JOIN tutor_students ts ON ts.student_id = s.id AND ts.tutor_id = $1`
		countQuery += join
		listQuery += join
		args = append(args, tutorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery += ` ORDER BY s.last_name, s.first_name`
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

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

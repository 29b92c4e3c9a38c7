package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/somaedu/soma-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("tutor with this email already exists")

// TutorRepository handles tutor account data access.
type TutorRepository struct {
	pool *pgxpool.Pool
}

// NewTutorRepository creates a new TutorRepository.
func NewTutorRepository(pool *pgxpool.Pool) *TutorRepository {
	return &TutorRepository{pool: pool}
}

// GetByID retrieves a tutor by ID.
func (r *TutorRepository) GetByID(ctx context.Context, id int) (*model.Tutor, error) {
	t := &model.Tutor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, created_at, updated_at
		 FROM tutors WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.Role, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByEmail retrieves a tutor by their unique email.
func (r *TutorRepository) GetByEmail(ctx context.Context, email string) (*model.Tutor, error) {
	t := &model.Tutor{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role, created_at, updated_at
		 FROM tutors WHERE email = $1`, email,
	).Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.Role, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new tutor account.
func (r *TutorRepository) Create(ctx context.Context, t *model.Tutor) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tutors (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.Email, t.PasswordHash, t.Role,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Update modifies a tutor account. An empty password hash leaves the stored
// hash untouched.
func (r *TutorRepository) Update(ctx context.Context, t *model.Tutor) error {
	var err error
	if t.PasswordHash == "" {
		_, err = r.pool.Exec(ctx,
			`UPDATE tutors SET name = $1, email = $2, role = $3, updated_at = NOW() WHERE id = $4`,
			t.Name, t.Email, t.Role, t.ID)
	} else {
		_, err = r.pool.Exec(ctx,
			`UPDATE tutors SET name = $1, email = $2, role = $3, password_hash = $4, updated_at = NOW() WHERE id = $5`,
			t.Name, t.Email, t.Role, t.PasswordHash, t.ID)
	}
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Delete removes a tutor account.
func (r *TutorRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tutors WHERE id = $1`, id)
	return err
}

// List retrieves all tutor accounts.
func (r *TutorRepository) List(ctx context.Context) ([]model.Tutor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, password_hash, role, created_at, updated_at
		 FROM tutors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tutors []model.Tutor
	for rows.Next() {
		var t model.Tutor
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.Role, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tutors = append(tutors, t)
	}
	return tutors, rows.Err()
}

// isUniqueViolation reports whether err is PostgreSQL error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package service

import (
	"context"
	"errors"

	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/repository"
)

// dummyPasswordHash is a valid bcrypt hash of a throwaway string, compared
// against when the email is unknown so both failure paths cost the same.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TutorService handles tutor account management (super-admin scope).
type TutorService struct {
	tutorRepo   *repository.TutorRepository
	authService *AuthService
}

// NewTutorService creates a new TutorService.
func NewTutorService(tutorRepo *repository.TutorRepository, authService *AuthService) *TutorService {
	return &TutorService{tutorRepo: tutorRepo, authService: authService}
}

// Login verifies credentials and issues a JWT.
func (s *TutorService) Login(ctx context.Context, email, password string) (*model.TutorLoginResponse, error) {
	tutor, err := s.tutorRepo.GetByEmail(ctx, email)
	if err != nil {
		// Burn a bcrypt comparison so unknown emails take as long as bad
		// passwords.
		_ = s.authService.CheckPassword(dummyPasswordHash, password)
		return nil, ErrInvalidCredentials
	}

	if err := s.authService.CheckPassword(tutor.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.authService.GenerateTutorToken(tutor.ID, tutor.Role)
	if err != nil {
		return nil, err
	}

	return &model.TutorLoginResponse{Token: token, Tutor: *tutor}, nil
}

// GetByID retrieves a tutor account.
func (s *TutorService) GetByID(ctx context.Context, id int) (*model.Tutor, error) {
	return s.tutorRepo.GetByID(ctx, id)
}

// List retrieves all tutor accounts.
func (s *TutorService) List(ctx context.Context) ([]model.Tutor, error) {
	tutors, err := s.tutorRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if tutors == nil {
		tutors = []model.Tutor{}
	}
	return tutors, nil
}

// Create registers a new tutor account with a hashed password.
func (s *TutorService) Create(ctx context.Context, req *model.CreateTutorRequest) (*model.Tutor, error) {
	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	tutor := &model.Tutor{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.TutorRole(req.Role),
	}
	if err := s.tutorRepo.Create(ctx, tutor); err != nil {
		return nil, err
	}
	return tutor, nil
}

// Update modifies a tutor account. An empty password keeps the current hash.
func (s *TutorService) Update(ctx context.Context, id int, req *model.UpdateTutorRequest) (*model.Tutor, error) {
	tutor, err := s.tutorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tutor.Name = req.Name
	tutor.Email = req.Email
	tutor.Role = model.TutorRole(req.Role)
	if req.Password != "" {
		hash, err := s.authService.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		tutor.PasswordHash = hash
	} else {
		tutor.PasswordHash = ""
	}

	if err := s.tutorRepo.Update(ctx, tutor); err != nil {
		return nil, err
	}
	return s.tutorRepo.GetByID(ctx, id)
}

// Delete removes a tutor account. Self-deletion is rejected.
func (s *TutorService) Delete(ctx context.Context, id, callerID int) error {
	if id == callerID {
		return errors.New("cannot delete your own account")
	}
	return s.tutorRepo.Delete(ctx, id)
}

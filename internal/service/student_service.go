package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/repository"
	"github.com/somaedu/soma-backend/internal/response"
)

// StudentService handles student registration and roster management. It
// implements the attempt package's IdentityRegistrar and
// PriorSubmissionChecker.
type StudentService struct {
	studentRepo    *repository.StudentRepository
	submissionRepo *repository.SubmissionRepository
	rosterRepo     *repository.TutorStudentRepository
	log            zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(
	studentRepo *repository.StudentRepository,
	submissionRepo *repository.SubmissionRepository,
	rosterRepo *repository.TutorStudentRepository,
	log zerolog.Logger,
) *StudentService {
	return &StudentService{
		studentRepo:    studentRepo,
		submissionRepo: submissionRepo,
		rosterRepo:     rosterRepo,
		log:            log.With().Str("component", "student_service").Logger(),
	}
}

// Register exchanges a student's name for a durable ID. Idempotent: the same
// (first_name, last_name) pair always yields the same ID, so a client that
// re-registers after a reload recovers its identity.
func (s *StudentService) Register(ctx context.Context, firstName, lastName string) (int, error) {
	student, err := s.studentRepo.GetOrCreateByName(ctx, firstName, lastName)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", attempt.ErrRegistrationFailed, err)
	}
	return student.ID, nil
}

// HasSubmitted reports whether a student with the given name already
// submitted the quiz. The lookup is by name since no durable ID exists
// before registration.
func (s *StudentService) HasSubmitted(ctx context.Context, quizID uuid.UUID, firstName, lastName string) (bool, error) {
	return s.submissionRepo.ExistsByName(ctx, quizID, firstName, lastName)
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// List retrieves students, scoped to a tutor's roster unless tutorID is 0.
func (s *StudentService) List(ctx context.Context, tutorID, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	students, total, err := s.studentRepo.ListPaginated(ctx, tutorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if students == nil {
		students = []model.Student{}
	}

	totalPages := (total + perPage - 1) / perPage
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}
	return students, pagination, nil
}

// LinkToRoster attaches a student to a tutor's roster. Idempotent.
func (s *StudentService) LinkToRoster(ctx context.Context, tutorID, studentID int) error {
	if _, err := s.studentRepo.GetByID(ctx, studentID); err != nil {
		return err
	}
	return s.rosterRepo.Link(ctx, tutorID, studentID)
}

// UnlinkFromRoster detaches a student from a tutor's roster.
func (s *StudentService) UnlinkFromRoster(ctx context.Context, tutorID, studentID int) error {
	return s.rosterRepo.Unlink(ctx, tutorID, studentID)
}

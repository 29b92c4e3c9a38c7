package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates the possible states of a quiz.
type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "DRAFT"
	QuizStatusPublished QuizStatus = "PUBLISHED"
	QuizStatusArchived  QuizStatus = "ARCHIVED"
)

// Quiz represents a quiz entity.
type Quiz struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	TutorID          int        `json:"tutor_id"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	DueAt            time.Time  `json:"due_at"`
	PIN              string     `json:"pin,omitempty"`
	PINRequired      bool       `json:"pin_required"`
	Status           QuizStatus `json:"status"`
	QuestionCount    int        `json:"question_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateQuizRequest is the payload for creating a new quiz.
type CreateQuizRequest struct {
	Title            string    `json:"title" binding:"required,min=3,max=255"`
	TimeLimitMinutes int       `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	DueAt            time.Time `json:"due_at" binding:"required"`
	PIN              string    `json:"pin" binding:"omitempty,min=4,max=20"`
}

// UpdateQuizRequest is the payload for updating an existing draft quiz.
type UpdateQuizRequest struct {
	Title            string     `json:"title" binding:"omitempty,min=3,max=255"`
	TimeLimitMinutes int        `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	DueAt            *time.Time `json:"due_at" binding:"omitempty"`
	PIN              *string    `json:"pin" binding:"omitempty,max=20"`
}

// QuizPayload is the Redis-cached payload served to exam clients (no correct
// answers).
type QuizPayload struct {
	QuizID           uuid.UUID            `json:"quiz_id"`
	Title            string               `json:"title"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	DueAt            time.Time            `json:"due_at"`
	Questions        []QuestionForStudent `json:"questions"`
}

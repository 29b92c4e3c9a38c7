package model

import "time"

// TutorRole distinguishes regular tutors from the super-admin.
type TutorRole string

const (
	RoleTutor      TutorRole = "TUTOR"
	RoleSuperAdmin TutorRole = "SUPER_ADMIN"
)

// Tutor represents a tutor or super-admin account.
type Tutor struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         TutorRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TutorLoginRequest is the payload for tutor authentication.
type TutorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// TutorLoginResponse is returned after successful tutor login.
type TutorLoginResponse struct {
	Token string `json:"token"`
	Tutor Tutor  `json:"tutor"`
}

// CreateTutorRequest is the payload for creating a tutor account (super-admin
// only).
type CreateTutorRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Role     string `json:"role" binding:"required,oneof=TUTOR SUPER_ADMIN"`
}

// UpdateTutorRequest is the payload for updating a tutor account.
type UpdateTutorRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
	Role     string `json:"role" binding:"required,oneof=TUTOR SUPER_ADMIN"`
}

// LinkStudentRequest is the payload for attaching a student to a tutor's
// roster.
type LinkStudentRequest struct {
	StudentID int `json:"student_id" binding:"required"`
}

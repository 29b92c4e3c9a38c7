package model

import "time"

// Student represents an exam taker. Students are registered by name at quiz
// entry; registration is idempotent on (first_name, last_name).
type Student struct {
	ID        int       `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterStudentRequest is the payload for registering a student identity at
// quiz entry. PIN is checked against the quiz when the quiz requires one.
type RegisterStudentRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	PIN       string `json:"pin" binding:"omitempty,max=20"`
}

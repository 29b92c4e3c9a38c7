package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice quiz question. Options hold
// between 2 and 8 answer strings; CorrectOption must equal one of them.
type Question struct {
	ID            uuid.UUID `json:"id"`
	QuizID        uuid.UUID `json:"quiz_id"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption string    `json:"correct_option"`
	Marks         int       `json:"marks"`
	ImageURL      *string   `json:"image_url,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// QuestionForStudent is a question without the correct answer, served to exam
// clients.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	Marks    int       `json:"marks"`
	ImageURL *string   `json:"image_url,omitempty"`
	OrderNum int       `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question to a quiz.
type AddQuestionRequest struct {
	Prompt        string   `json:"prompt" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,max=8,dive,required,max=500"`
	CorrectOption string   `json:"correct_option" binding:"required,max=500"`
	Marks         int      `json:"marks" binding:"required,min=1"`
	ImageURL      *string  `json:"image_url" binding:"omitempty,max=500"`
	OrderNum      int      `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a quiz's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/somaedu/soma-backend/internal/middleware"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/response"
	"github.com/somaedu/soma-backend/internal/service"
	"github.com/somaedu/soma-backend/internal/validator"
)

// QuizHandler handles quiz management endpoints.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// ownerFilter returns the tutor ID to scope queries by; super-admins see
// everything (filter 0).
func ownerFilter(c *gin.Context) (int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, false
	}
	if claims.Role == model.RoleSuperAdmin {
		return 0, true
	}
	return claims.UserID, true
}

func parseQuizID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// ListQuizzes godoc
// GET /api/v1/tutor/quizzes
// Lists quizzes with pagination. Super-admins see all; tutors see their own.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	quizzes, pagination, err := h.quizService.ListByTutor(c.Request.Context(), tutorID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, pagination)
}

// GetQuiz godoc
// GET /api/v1/tutor/quizzes/:quiz_id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if tutorID != 0 && quiz.TutorID != tutorID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// CreateQuiz godoc
// POST /api/v1/tutor/quizzes
// Creates a new draft quiz.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz := &model.Quiz{
		Title:            req.Title,
		TutorID:          claims.UserID,
		TimeLimitMinutes: req.TimeLimitMinutes,
		DueAt:            req.DueAt,
		PIN:              req.PIN,
	}

	if err := h.quizService.Create(c.Request.Context(), quiz); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// UpdateQuiz godoc
// PUT /api/v1/tutor/quizzes/:quiz_id
// Updates a draft quiz.
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	var req model.UpdateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	existing, err := h.quizService.GetByID(c.Request.Context(), quizID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.TimeLimitMinutes != 0 {
		existing.TimeLimitMinutes = req.TimeLimitMinutes
	}
	if req.DueAt != nil {
		existing.DueAt = *req.DueAt
	}
	if req.PIN != nil {
		existing.PIN = *req.PIN
	}

	if err := h.quizService.Update(c.Request.Context(), tutorID, existing); err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": existing})
}

// DeleteQuiz godoc
// DELETE /api/v1/tutor/quizzes/:quiz_id
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), quizID, tutorID); err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// PublishQuiz godoc
// POST /api/v1/tutor/quizzes/:quiz_id/publish
// Publishes a quiz: caches payload + answer key to Redis, changes status.
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	if err := h.quizService.Publish(c.Request.Context(), quizID, tutorID); err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.QuizStatusPublished})
}

// ArchiveQuiz godoc
// POST /api/v1/tutor/quizzes/:quiz_id/archive
// Archives a published quiz and evicts its cache.
func (h *QuizHandler) ArchiveQuiz(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	if err := h.quizService.Archive(c.Request.Context(), quizID, tutorID); err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.QuizStatusArchived})
}

// ListQuestions godoc
// GET /api/v1/tutor/quizzes/:quiz_id/questions
// Lists a quiz's questions with answer keys (tutor view).
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	questions, err := h.quizService.ListQuestions(c.Request.Context(), tutorID, quizID)
	if err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/tutor/quizzes/:quiz_id/questions
// Appends a question to a draft quiz.
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.quizService.AddQuestion(c.Request.Context(), tutorID, quizID, &req)
	if err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/tutor/quizzes/:quiz_id/questions
// Replaces a draft quiz's entire question set in one transaction.
func (h *QuizHandler) ReplaceQuestions(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.quizService.ReplaceQuestions(c.Request.Context(), tutorID, quizID, &req); err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(req.Questions)})
}

// failQuizError maps quiz service domain errors to wire responses.
func failQuizError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotQuizOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizOwner)
	case errors.Is(err, service.ErrQuizNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotDraft)
	case errors.Is(err, service.ErrQuizNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	case errors.Is(err, service.ErrBadAnswerKey):
		response.Fail(c, http.StatusBadRequest, response.ErrBadAnswerKey)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/somaedu/soma-backend/internal/response"
	"github.com/somaedu/soma-backend/internal/service"
)

// ReportHandler serves graded submission results to tutors.
type ReportHandler struct {
	submissionService *service.SubmissionService
	quizService       *service.QuizService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(submissionService *service.SubmissionService, quizService *service.QuizService) *ReportHandler {
	return &ReportHandler{
		submissionService: submissionService,
		quizService:       quizService,
	}
}

// ListResults godoc
// GET /api/v1/tutor/quizzes/:quiz_id/results
// Lists graded submissions for a quiz. Tutors see only their roster.
func (h *ReportHandler) ListResults(c *gin.Context) {
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

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	results, pagination, err := h.submissionService.ListResults(c.Request.Context(), quizID, tutorID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	// Aggregates are best-effort; the list is still useful without them.
	stats, err := h.submissionService.GetStats(c.Request.Context(), quizID)
	if err != nil {
		stats = nil
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{
		"results": results,
		"stats":   stats,
	}, pagination)
}

// GetResultDetail godoc
// GET /api/v1/tutor/quizzes/:quiz_id/results/:student_id
// Returns one submission with its graded answer rows.
func (h *ReportHandler) GetResultDetail(c *gin.Context) {
	tutorID, ok := ownerFilter(c)
	if !ok {
		return
	}
	quizID, ok := parseQuizID(c)
	if !ok {
		return
	}

	studentID, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
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

	submission, answers, err := h.submissionService.GetResultDetail(c.Request.Context(), quizID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"submission": submission,
		"answers":    answers,
	})
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/response"
	"github.com/somaedu/soma-backend/internal/service"
	"github.com/somaedu/soma-backend/internal/validator"
)

// sidCookieName identifies one exam client across reloads. The sid scopes
// the client's durable attempt state in Redis.
const sidCookieName = "soma_sid"

// AttemptHandler drives quiz attempts over HTTP. All routes are public and
// rate-limited; identity comes from the registration step, not from auth.
type AttemptHandler struct {
	manager     *attempt.Manager
	quizService *service.QuizService
	log         zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(manager *attempt.Manager, quizService *service.QuizService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		manager:     manager,
		quizService: quizService,
		log:         log.With().Str("component", "attempt_handler").Logger(),
	}
}

// clientSID returns the caller's client sid, minting one (and setting the
// cookie) on first contact. An X-Client-ID header overrides the cookie so
// non-browser clients can pin their identity.
func clientSID(c *gin.Context) string {
	if sid := c.GetHeader("X-Client-ID"); sid != "" {
		return sid
	}
	if sid, err := c.Cookie(sidCookieName); err == nil && sid != "" {
		return sid
	}
	sid := uuid.New().String()
	c.SetCookie(sidCookieName, sid, int((365 * 24 * time.Hour).Seconds()), "/", "", false, true)
	return sid
}

// controller resolves the live controller for the caller and quiz, creating
// one in the ENTRY phase when none exists yet.
func (h *AttemptHandler) controller(c *gin.Context) (*attempt.Controller, bool) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	meta, err := h.quizService.AttemptMeta(c.Request.Context(), quizID)
	if err != nil {
		failAttemptError(c, err)
		return nil, false
	}

	return h.manager.GetOrCreate(clientSID(c), meta), true
}

// Entry godoc
// GET /api/v1/quizzes/:quiz_id/entry
// Opens (or resumes) an attempt and reports its phase plus quiz metadata.
func (h *AttemptHandler) Entry(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	phase, err := ctrl.BeginEntry()
	if err != nil && !errors.Is(err, attempt.ErrAttemptBlocked) && !errors.Is(err, attempt.ErrQuizClosed) {
		failAttemptError(c, err)
		return
	}

	quiz := ctrl.Quiz()
	response.Success(c, http.StatusOK, gin.H{
		"phase":              phase,
		"quiz_id":            quiz.QuizID,
		"title":              quiz.Title,
		"time_limit_minutes": quiz.TimeLimitMinutes,
		"due_at":             quiz.DueAt,
		"pin_required":       quiz.PINRequired,
	})
}

// CheckPrior godoc
// POST /api/v1/quizzes/:quiz_id/check
// Reports whether this name already submitted. Fails open: a check error
// does not block entry.
func (h *AttemptHandler) CheckPrior(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.CheckPriorSubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	blocked, err := ctrl.CheckPriorSubmission(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"phase":   ctrl.Phase(),
		"blocked": blocked,
	})
}

// Start godoc
// POST /api/v1/quizzes/:quiz_id/start
// Registers the student, loads questions, and moves the attempt to
// IN_PROGRESS. Resuming a live attempt returns the preserved state.
func (h *AttemptHandler) Start(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.RegisterStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	identity := attempt.Identity{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PIN:       req.PIN,
	}
	if err := ctrl.StartAttempt(c.Request.Context(), identity); err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":     ctrl.State(time.Now()),
		"questions": ctrl.Questions(),
	})
}

// Answer godoc
// POST /api/v1/quizzes/:quiz_id/answer
// Records one answer choice. Idempotent; re-selecting overwrites.
func (h *AttemptHandler) Answer(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := ctrl.SelectAnswer(questionID, req.Selected); err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": ctrl.State(time.Now())})
}

// Navigate godoc
// POST /api/v1/quizzes/:quiz_id/navigate
// Moves between questions. Movement clamps at both ends.
func (h *AttemptHandler) Navigate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	switch req.Direction {
	case "next":
		ctrl.Next()
	case "prev":
		ctrl.Prev()
	case "jump":
		ctrl.JumpTo(req.Index)
	}

	response.Success(c, http.StatusOK, gin.H{"state": ctrl.State(time.Now())})
}

// Review godoc
// POST /api/v1/quizzes/:quiz_id/review
// Enters or exits the review screen.
func (h *AttemptHandler) Review(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.ReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var err error
	if req.Mode == "enter" {
		err = ctrl.EnterReview()
	} else {
		err = ctrl.ExitReview()
	}
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": ctrl.State(time.Now())})
}

// Submit godoc
// POST /api/v1/quizzes/:quiz_id/submit
// Finalizes the attempt from the review screen. At most one submission
// reaches the sink per attempt.
func (h *AttemptHandler) Submit(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	submission, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":     ctrl.State(time.Now()),
		"score":     submission.Score,
		"max_score": submission.MaxScore,
	})
}

// State godoc
// GET /api/v1/quizzes/:quiz_id/state
// Returns a snapshot of the attempt for rendering.
func (h *AttemptHandler) State(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": ctrl.State(time.Now())})
}

// failAttemptError maps attempt package sentinel errors to wire error codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attempt.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, attempt.ErrQuizClosed):
		response.Fail(c, http.StatusGone, response.ErrQuizClosed)
	case errors.Is(err, attempt.ErrInvalidPIN):
		response.Fail(c, http.StatusForbidden, response.ErrInvalidPIN)
	case errors.Is(err, attempt.ErrAttemptBlocked), errors.Is(err, attempt.ErrDuplicateAttempt):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, attempt.ErrRegistrationFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrRegistrationFailed)
	case errors.Is(err, attempt.ErrQuizLoadFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrQuizLoadFailed)
	case errors.Is(err, attempt.ErrSubmissionFailed):
		response.Fail(c, http.StatusInternalServerError, response.ErrSubmissionFailed)
	case errors.Is(err, attempt.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, attempt.ErrInvalidPhase):
		response.Fail(c, http.StatusConflict, response.ErrInvalidPhase)
	case errors.Is(err, attempt.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

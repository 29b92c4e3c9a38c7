package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/response"
	"github.com/somaedu/soma-backend/internal/service"
	ws "github.com/somaedu/soma-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket. The same controller
// instance backs the HTTP routes, so a client may mix transports freely.
type WSHandler struct {
	manager     *attempt.Manager
	quizService *service.QuizService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *attempt.Manager, quizService *service.QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:     manager,
		quizService: quizService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/quizzes/:quiz_id/stream
// Upgrades to WebSocket for low-latency answer saving and state pushes.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	meta, err := h.quizService.AttemptMeta(c.Request.Context(), quizID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	sid := clientSID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctrl := h.manager.GetOrCreate(sid, meta)

	wsLog := h.log.With().
		Str("sid", sid).
		Str("quiz_id", quizID.String()).
		Logger()

	wsLog.Info().Msg("Attempt stream connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, ctrl, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, ctrl, &msg)
		case ws.ActionReview:
			h.handleReview(conn, ctrl, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, ctrl, c)
		case ws.ActionState:
			writeState(conn, ctrl)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "", "unknown action: "+string(msg.Action))
		}
	}
}

func writeState(conn *websocket.Conn, ctrl *attempt.Controller) {
	ws.WriteTyped(conn, ws.StateResponse{
		Event: ws.EventState,
		State: ctrl.State(time.Now()),
	})
}

func writeAttemptError(conn *websocket.Conn, err error) {
	ws.WriteError(conn, string(wsErrCode(err)), err.Error())
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, ctrl *attempt.Controller, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, string(response.ErrInvalidID), "invalid q_id format")
		return
	}
	if msg.Selected == "" {
		ws.WriteError(conn, string(response.ErrValidation), "selected is required")
		return
	}

	if err := ctrl.SelectAnswer(questionID, msg.Selected); err != nil {
		writeAttemptError(conn, err)
		return
	}
	writeState(conn, ctrl)
}

func (h *WSHandler) handleNavigate(conn *websocket.Conn, ctrl *attempt.Controller, msg *ws.RequestPayload) {
	switch msg.Direction {
	case "next":
		ctrl.Next()
	case "prev":
		ctrl.Prev()
	case "jump":
		ctrl.JumpTo(msg.Index)
	default:
		ws.WriteError(conn, string(response.ErrValidation), "direction must be next, prev, or jump")
		return
	}
	writeState(conn, ctrl)
}

func (h *WSHandler) handleReview(conn *websocket.Conn, ctrl *attempt.Controller, msg *ws.RequestPayload) {
	var err error
	switch msg.Mode {
	case "enter":
		err = ctrl.EnterReview()
	case "exit":
		err = ctrl.ExitReview()
	default:
		ws.WriteError(conn, string(response.ErrValidation), "mode must be enter or exit")
		return
	}
	if err != nil {
		writeAttemptError(conn, err)
		return
	}
	writeState(conn, ctrl)
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, ctrl *attempt.Controller, c *gin.Context) {
	submission, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		writeAttemptError(conn, err)
		return
	}

	wsLog.Info().
		Float64("score", submission.Score).
		Int("max_score", submission.MaxScore).
		Msg("Attempt submitted over stream")

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:    ws.EventSubmitted,
		Score:    submission.Score,
		MaxScore: submission.MaxScore,
	})
}

// wsErrCode maps attempt sentinel errors to wire error codes for the stream.
func wsErrCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, attempt.ErrQuizNotFound):
		return response.ErrNotFound
	case errors.Is(err, attempt.ErrQuizClosed):
		return response.ErrQuizClosed
	case errors.Is(err, attempt.ErrInvalidPIN):
		return response.ErrInvalidPIN
	case errors.Is(err, attempt.ErrAttemptBlocked), errors.Is(err, attempt.ErrDuplicateAttempt):
		return response.ErrAlreadySubmitted
	case errors.Is(err, attempt.ErrRegistrationFailed):
		return response.ErrRegistrationFailed
	case errors.Is(err, attempt.ErrQuizLoadFailed):
		return response.ErrQuizLoadFailed
	case errors.Is(err, attempt.ErrSubmissionFailed):
		return response.ErrSubmissionFailed
	case errors.Is(err, attempt.ErrSubmitInFlight):
		return response.ErrSubmitInFlight
	case errors.Is(err, attempt.ErrInvalidPhase):
		return response.ErrInvalidPhase
	case errors.Is(err, attempt.ErrUnknownQuestion):
		return response.ErrValidation
	default:
		return response.ErrInternal
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/somaedu/soma-backend/internal/middleware"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/response"
	"github.com/somaedu/soma-backend/internal/service"
	"github.com/somaedu/soma-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	tutorService *service.TutorService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tutorService *service.TutorService) *AuthHandler {
	return &AuthHandler{tutorService: tutorService}
}

// Login godoc
// POST /api/v1/auth/login
// Authenticates a tutor and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.TutorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.tutorService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated tutor.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	tutor, err := h.tutorService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tutor": tutor})
}

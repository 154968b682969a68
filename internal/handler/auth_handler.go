package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/campus-admin-backend/internal/middleware"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/response"
	"github.com/stemsi/campus-admin-backend/internal/service"
	"github.com/stemsi/campus-admin-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// POST /api/login
// Validates username + password against the configured admin, returns JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, claims, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.JSON(c, http.StatusOK, model.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// Me godoc
// GET /api/me
// Returns the identity carried by the caller's token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"username":  claims.Username,
		"role":      claims.Role,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

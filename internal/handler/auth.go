package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
	"github.com/cleberrangel/brickrate-api/internal/middleware"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/service"
	"github.com/cleberrangel/brickrate-api/internal/websocket"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	estimates   *service.EstimateService
	sessions    *middleware.SessionMiddleware
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService, estimates *service.EstimateService, sessions *middleware.SessionMiddleware) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		estimates:   estimates,
		sessions:    sessions,
	}
}

// Signup cadastra um novo usuário e já abre a sessão
func (h *AuthHandler) Signup(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	if !middleware.ValidatePassword(req.Password) {
		badRequest(c, fmt.Sprintf("Senha deve ter entre %d e %d caracteres", middleware.MinPasswordLength, middleware.MaxPasswordBytes), "INVALID_PASSWORD", nil)
		return
	}

	user, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logger.Audit(c.Request.Context(), logger.AuditEvent{
			Action:   logger.AuditActionSignup,
			UserID:   req.Email,
			Resource: "auth",
			ClientIP: c.ClientIP(),
			Success:  false,
			Error:    err.Error(),
		})
		respondError(c, err)
		return
	}

	metrics.Get().IncrementSignup()
	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionSignup,
		UserID:   user.Identity,
		Resource: "auth",
		ClientIP: c.ClientIP(),
		Success:  true,
	})

	h.carryState(c, middleware.ClientID(c), middleware.SessionClientID(user.SessionID))
	h.sessions.SetSessionCookie(c, user.SessionID)
	c.JSON(http.StatusCreated, h.sessionResponse(c, user, "Account created"))
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			logger.Audit(c.Request.Context(), logger.AuditEvent{
				Action:   logger.AuditActionLoginFailed,
				UserID:   req.Email,
				Resource: "auth",
				ClientIP: c.ClientIP(),
				Success:  false,
				Error:    "invalid credentials",
			})
			metrics.Get().IncrementLogin(false)
		}
		respondError(c, err)
		return
	}

	metrics.Get().IncrementLogin(true)
	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionLogin,
		UserID:   user.Identity,
		Resource: "auth",
		ClientIP: c.ClientIP(),
		Success:  true,
	})

	h.carryState(c, middleware.ClientID(c), middleware.SessionClientID(user.SessionID))
	h.sessions.SetSessionCookie(c, user.SessionID)
	c.JSON(http.StatusOK, h.sessionResponse(c, user, "Welcome, "+user.DisplayName+"!"))
}

// Logout encerra a sessão atual
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := h.sessions.SessionID(c)
	user := middleware.CurrentUser(c)

	if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	identity := ""
	if user != nil {
		identity = user.Identity
	}
	logger.Audit(c.Request.Context(), logger.AuditEvent{
		Action:   logger.AuditActionLogout,
		UserID:   identity,
		Resource: "auth",
		ClientIP: c.ClientIP(),
		Success:  true,
	})

	h.carryState(c, middleware.ClientID(c), middleware.AnonymousClientID(c))
	h.sessions.ClearSessionCookie(c)
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "Logged out",
	})
}

// Me retorna o usuário da sessão atual (exige RequireAuth)
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, model.ErrSessionNotFound)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(c, user, "Welcome, "+user.DisplayName+"!"))
}

// carryState leva a última estimativa do identificador antigo para o novo,
// para que "estimar, logar, salvar" funcione
func (h *AuthHandler) carryState(c *gin.Context, from, to string) {
	if h.estimates == nil {
		return
	}
	if h.estimates.Adopt(from, to) {
		logger.FromGin(c).Debug().
			Str("from", from).
			Str("to", to).
			Msg("Estado de trabalho transferido")
	}
}

func (h *AuthHandler) bindCredentials(c *gin.Context) (model.CredentialsRequest, bool) {
	var req model.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email e senha são obrigatórios", "INVALID_INPUT", err)
		return req, false
	}

	req.Email = middleware.SanitizeEmail(req.Email)
	req.Password = middleware.SanitizePassword(req.Password)

	if !middleware.ValidateEmail(req.Email) {
		badRequest(c, "Email inválido", "INVALID_EMAIL", nil)
		return req, false
	}
	if req.Password == "" {
		badRequest(c, "Senha obrigatória", "INVALID_PASSWORD", nil)
		return req, false
	}

	return req, true
}

func (h *AuthHandler) sessionResponse(c *gin.Context, user *service.User, message string) gin.H {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}

	return gin.H{
		"success": true,
		"message": message,
		"user": gin.H{
			"email":        user.Identity,
			"display_name": user.DisplayName,
			"logged_in_at": user.LoggedInAt,
		},
		"session_id": user.SessionID,
		"ws_url":     websocket.BuildWebSocketURL(scheme+"://"+c.Request.Host+"/ws/voice", user.SessionID),
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/model"
)

// respondError mapeia erros de domínio para status HTTP e o envelope padrão
func respondError(c *gin.Context, err error) {
	status, code, message := classifyError(err)

	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error().Err(err).Str("code", code).Msg("Erro ao processar requisição")
	}

	c.JSON(status, model.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, model.ErrNotLoggedIn):
		return http.StatusUnauthorized, "NOT_LOGGED_IN", "Please login to save quotes"
	case errors.Is(err, model.ErrLoginRequired):
		return http.StatusUnauthorized, "LOGIN_REQUIRED", "Login required"
	case errors.Is(err, model.ErrSessionNotFound):
		return http.StatusUnauthorized, "SESSION_INVALID", err.Error()
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error()
	case errors.Is(err, model.ErrUserAlreadyExists):
		return http.StatusConflict, "USER_EXISTS", err.Error()
	case errors.Is(err, model.ErrNoEstimate):
		return http.StatusConflict, "NO_ESTIMATE", "Run an estimate first"
	case errors.Is(err, model.ErrQuoteNotFound):
		return http.StatusNotFound, "QUOTE_NOT_FOUND", err.Error()
	case errors.Is(err, model.ErrDeliveryNotFound):
		return http.StatusNotFound, "DELIVERY_NOT_FOUND", err.Error()
	case errors.Is(err, model.ErrQueueFull):
		return http.StatusServiceUnavailable, "QUEUE_FULL", "Fila de entregas cheia, tente novamente"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "REQUEST_CANCELLED", "Requisição cancelada ou expirada"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Erro interno do servidor"
	}
}

// badRequest responde 400 com detalhes de validação
func badRequest(c *gin.Context, message, code string, err error) {
	resp := model.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

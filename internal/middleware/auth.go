package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/model"
)

// AuthConfig contém o token administrativo aceito pelas rotas de debug
type AuthConfig struct {
	TokenAPI string
}

// BearerAuth exige "Authorization: Bearer {token}" igual ao TokenAPI
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	expected := []byte(cfg.TokenAPI)

	return func(c *gin.Context) {
		token, reason := bearerToken(c.GetHeader("Authorization"))
		if reason == "" && subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			reason = "token inválido"
		}

		if reason != "" {
			logger.Audit(c.Request.Context(), logger.AuditEvent{
				Action:   logger.AuditActionAdminDenied,
				Resource: "debug",
				ClientIP: c.ClientIP(),
				Method:   c.Request.Method,
				Path:     c.Request.URL.Path,
				Success:  false,
				Error:    reason,
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Success: false,
				Error:   reason,
				Code:    "UNAUTHORIZED",
			})
			return
		}

		c.Next()
	}
}

// bearerToken extrai o token; reason vem preenchido quando o header é inválido
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", "header Authorization ausente"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "formato inválido, esperado: Bearer {token}"
	}
	return strings.TrimSpace(parts[1]), ""
}

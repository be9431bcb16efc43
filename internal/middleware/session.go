package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/service"
)

const (
	// HeaderSessionID permite enviar a sessão sem cookie (CLI, testes)
	HeaderSessionID = "X-Session-ID"
	// HeaderClientID identifica um cliente anônimo entre requisições
	HeaderClientID = "X-Client-ID"

	ctxUser      = "user"
	ctxSessionID = "session_id"
	ctxClientID  = "client_id"
)

// SessionResolver resolve um ID de sessão para o usuário logado
type SessionResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*service.User, error)
}

// SessionConfig contains configuration for session cookies
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieHTTPOnly bool
	Duration       time.Duration
}

// SessionMiddleware resolve a sessão e a identidade do cliente em cada requisição
type SessionMiddleware struct {
	config   SessionConfig
	resolver SessionResolver
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(resolver SessionResolver, config SessionConfig) *SessionMiddleware {
	if config.CookieName == "" {
		config.CookieName = "session_id"
	}
	if config.Duration == 0 {
		config.Duration = service.DefaultSessionTTL
	}
	return &SessionMiddleware{config: config, resolver: resolver}
}

// SessionID extrai a sessão do cookie, do header X-Session-ID ou da query (websocket)
func (m *SessionMiddleware) SessionID(c *gin.Context) string {
	if id, err := c.Cookie(m.config.CookieName); err == nil && id != "" {
		return id
	}
	if id := c.GetHeader(HeaderSessionID); id != "" {
		return id
	}
	return c.Query("session_id")
}

// Optional resolve a sessão quando existir; requisições anônimas seguem normalmente
func (m *SessionMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.resolve(c)
		c.Next()
	}
}

// RequireAuth middleware that requires authentication
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxUser); !ok {
			m.resolve(c)
		}

		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Sessão inválida ou expirada",
				"code":    "SESSION_INVALID",
			})
			return
		}

		c.Next()
	}
}

// SetSessionCookie grava o cookie de sessão
func (m *SessionMiddleware) SetSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		m.config.CookieName,
		sessionID,
		int(m.config.Duration.Seconds()),
		"/",
		m.config.CookieDomain,
		m.config.CookieSecure,
		m.config.CookieHTTPOnly,
	)
}

// ClearSessionCookie remove o cookie de sessão
func (m *SessionMiddleware) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		m.config.CookieName,
		"",
		-1,
		"/",
		m.config.CookieDomain,
		m.config.CookieSecure,
		m.config.CookieHTTPOnly,
	)
}

func (m *SessionMiddleware) resolve(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := m.SessionID(c)

	var user *service.User
	if sessionID != "" {
		u, err := m.resolver.CurrentUser(ctx, sessionID)
		if err == nil {
			user = u
		} else {
			logger.Get(ctx).Debug().Err(err).Msg("Sessão não resolvida")
		}
	}

	clientID := resolveClientID(c, user)
	ctx = logger.WithClientID(ctx, clientID)

	if user != nil {
		c.Set(ctxUser, user)
		c.Set(ctxSessionID, user.SessionID)
		c.Set("user_id", user.Identity)
		ctx = logger.WithUser(ctx, user.Identity)
	} else {
		c.Set(ctxUser, (*service.User)(nil))
	}

	c.Set(ctxClientID, clientID)
	c.Request = c.Request.WithContext(ctx)
}

// resolveClientID: sessão quando logado, senão X-Client-ID, senão IP
func resolveClientID(c *gin.Context, user *service.User) string {
	if user != nil {
		return SessionClientID(user.SessionID)
	}
	return AnonymousClientID(c)
}

// SessionClientID é o identificador de cliente de uma sessão logada
func SessionClientID(sessionID string) string {
	return "session:" + sessionID
}

// AnonymousClientID identifica a requisição ignorando a sessão: X-Client-ID, senão IP
func AnonymousClientID(c *gin.Context) string {
	if id := SanitizeID(c.GetHeader(HeaderClientID)); id != "" {
		return "client:" + id
	}
	return "ip:" + c.ClientIP()
}

// CurrentUser retorna o usuário logado da requisição, ou nil
func CurrentUser(c *gin.Context) *service.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*service.User)
	return user
}

// ClientID retorna o identificador do cliente resolvido para a requisição
func ClientID(c *gin.Context) string {
	if v, ok := c.Get(ctxClientID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return resolveClientID(c, CurrentUser(c))
}

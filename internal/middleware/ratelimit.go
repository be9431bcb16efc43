package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/metrics"
)

// RateLimiter limita requisições por cliente com token bucket
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter cria um limitador de perMinute requisições por minuto por cliente
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

// Allow consome um token do cliente
func (r *RateLimiter) Allow(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cl, ok := r.limiters[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[clientID] = cl
	}
	cl.lastSeen = now

	r.evictIdle(now)

	return cl.limiter.AllowN(now, 1)
}

// evictIdle descarta limitadores sem uso; chamado com o lock adquirido
func (r *RateLimiter) evictIdle(now time.Time) {
	for id, cl := range r.limiters {
		if now.Sub(cl.lastSeen) > r.idleTTL {
			delete(r.limiters, id)
		}
	}
}

// Size retorna quantos clientes estão sendo rastreados
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Middleware aplica o limite por ClientID (exige SessionMiddleware antes)
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := ClientID(c)
		if !r.Allow(clientID) {
			metrics.Get().IncrementRateLimited()
			logger.FromGin(c).Warn().Str("client_id", clientID).Msg("Rate limit excedido")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Muitas requisições, tente novamente em instantes",
				"code":    "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

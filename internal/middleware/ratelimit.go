package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/campus-admin-backend/internal/response"
)

// staleAfter is how long an idle client is remembered.
const staleAfter = 3 * time.Minute

// RateLimiter is a per-IP fixed-window limiter: each client gets rate
// requests per interval. Used on the login route.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      int
	interval  time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type visitor struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per minute).
// A non-positive rate disables limiting.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		allowed, retryAfter := rl.allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > staleAfter {
		rl.sweep(now)
	}

	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.windowStart) >= rl.interval {
		v = &visitor{windowStart: now}
		rl.visitors[ip] = v
	}

	if v.count >= rl.rate {
		return false, rl.interval - now.Sub(v.windowStart)
	}
	v.count++
	return true, 0
}

// sweep drops idle visitors; must be called with mu held.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.windowStart) > staleAfter {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-client token bucket keyed by IP: buckets refill at
// `rate` tokens per second and cap at `burst`.
type RateLimiter struct {
	mu      sync.Mutex
	rate    int
	burst   int
	buckets map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

func NewRateLimiter(rate, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate,
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		now := time.Now()
		b, ok := rl.buckets[ip]
		if !ok {
			b = &bucket{tokens: rl.burst, last: now}
			rl.buckets[ip] = b
		}

		b.tokens += int(now.Sub(b.last).Seconds()) * rl.rate
		if b.tokens > rl.burst {
			b.tokens = rl.burst
		}
		b.last = now

		if b.tokens <= 0 {
			rl.mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		b.tokens--
		rl.mu.Unlock()

		c.Next()
	}
}

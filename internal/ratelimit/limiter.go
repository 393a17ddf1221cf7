package ratelimit

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"transcriber/internal/redis"
)

// Limiter applies a fixed-window per-IP request cap. When a redis client is
// provided the window counters live there so multiple instances share one
// budget; otherwise an in-process map is used.
type Limiter struct {
	requests int
	window   time.Duration
	cache    *redis.Client

	mu     sync.Mutex
	local  map[string]*windowEntry
	lastGC time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// New builds a limiter allowing requests per window for each client IP.
func New(requests int, window time.Duration, cache *redis.Client) *Limiter {
	if requests <= 0 {
		requests = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		requests: requests,
		window:   window,
		cache:    cache,
		local:    make(map[string]*windowEntry),
		lastGC:   time.Now(),
	}
}

// Middleware rejects over-limit clients with 429 before the handler runs.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, please retry later"})
			return
		}
		c.Next()
	}
}

// Allow records one hit for the request's client IP and reports whether it
// is still within budget.
func (l *Limiter) Allow(c *gin.Context) bool {
	ip := c.ClientIP()
	if l.cache != nil {
		count, err := l.cache.Hit(c.Request.Context(), "ratelimit:"+ip, l.window)
		if err == nil {
			return count <= int64(l.requests)
		}
		// Redis being down must not take the endpoint down with it.
		log.Printf("rate limiter cache error, falling back to local counters: %v", err)
	}
	return l.allowLocal(ip)
}

func (l *Limiter) allowLocal(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.window {
		for key, entry := range l.local {
			if now.After(entry.resetAt) {
				delete(l.local, key)
			}
		}
		l.lastGC = now
	}

	entry, ok := l.local[ip]
	if !ok || now.After(entry.resetAt) {
		l.local[ip] = &windowEntry{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	entry.count++
	return entry.count <= l.requests
}

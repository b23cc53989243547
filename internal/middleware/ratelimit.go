package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/hivecrm/contactbook/internal/adapter/cache"
)

// RateLimiter throttles requests per route and client. With a counter store
// it uses fixed windows shared across replicas; without one it degrades to an
// in-process token bucket.
type RateLimiter struct {
	counters cache.CounterStore
	requests int
	window   time.Duration

	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing `requests` per `window` for each
// route+client pair. counters may be nil.
func NewRateLimiter(counters cache.CounterStore, requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		return nil
	}
	burst := requests / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		counters: counters,
		requests: requests,
		window:   window,
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		clients:  make(map[string]*clientLimiter),
	}
}

// Handler returns the gin middleware enforcing throttling behaviour.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := route + "|" + c.ClientIP()

		if !r.allow(c, key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"error_description": "Too many requests. Please slow down.",
			})
			return
		}

		c.Next()
	}
}

func (r *RateLimiter) allow(c *gin.Context, key string) bool {
	if r.counters != nil {
		count, err := r.counters.Incr(c.Request.Context(), "ratelimit:"+key, r.window)
		if err != nil {
			// Counter backend down: fail open rather than reject traffic.
			return true
		}
		return count <= int64(r.requests)
	}
	return r.getLimiter(key).Allow()
}

func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(r.limit, r.burst)
	r.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	r.cleanupLocked(now)
	return limiter
}

func (r *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range r.clients {
		if now.Sub(entry.lastSeen) > 5*r.window {
			delete(r.clients, key)
		}
	}
}

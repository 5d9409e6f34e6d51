package http

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"workday/internal/cache"
)

const (
	rateWindow     = time.Minute
	maxRateClients = 10000
)

// rateLimiter implements a fixed-window limiter per client IP. Client
// entries expire with the window and are bounded by an LRU.
type rateLimiter struct {
	limit   int
	mu      sync.Mutex
	clients *cache.LRUCache[*clientInfo]
	now     func() time.Time
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		clients: cache.NewLRUCache[*clientInfo](maxRateClients, 2*rateWindow),
		now:     time.Now,
	}
}

// allow checks if a request from the given client should be allowed.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients.Get(clientIP)
	if !exists || now.Sub(client.windowStart) > rateWindow {
		rl.clients.Set(clientIP, &clientInfo{windowStart: now, requests: 1})
		return true
	}

	client.requests++
	if client.requests > rl.limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

// rateLimit rejects clients over the limit with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(extractClientIP(r), &s.metrics) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

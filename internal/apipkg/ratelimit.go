package api

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces spec.md §4.7's per-minute limit on write-producing
// endpoints, keyed by client address. It wraps the whole router; status
// endpoints are exempt because Middleware passes GET and OPTIONS
// requests through without consuming a token.
type RateLimiter struct {
	requestsPerMinute int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		limiters:          make(map[string]*rate.Limiter),
	}
}

// Middleware rejects with 429 once a client address exceeds the
// configured per-minute budget. GET requests pass through untouched —
// status and list endpoints are exempt per spec.md §4.7.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.limiterFor(clientKey(r)).Allow() {
			RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.limiters[key]
	if !ok {
		every := rate.Limit(float64(rl.requestsPerMinute) / 60.0)
		lim = rate.NewLimiter(every, rl.requestsPerMinute)
		rl.limiters[key] = lim
	}
	return lim
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

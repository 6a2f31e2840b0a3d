package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"thesis-portal/internal/config"
)

// RateLimiter limits requests per client IP with a token bucket
type RateLimiter struct {
	enabled  bool
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
	mu       sync.Mutex
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter allowing cfg.Requests per cfg.Duration
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		enabled:  cfg.Enabled,
		burst:    max(cfg.Requests, 1),
		visitors: make(map[string]*visitor),
	}
	if cfg.Duration > 0 {
		rl.limit = rate.Limit(float64(rl.burst) / cfg.Duration.Seconds())
	} else {
		rl.limit = rate.Inf
	}
	return rl
}

// Limit rate limits requests based on IP address
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.limiterFor(getIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			respondWithError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// EvictIdle forgets clients not seen for longer than idle and returns how many were removed
func (rl *RateLimiter) EvictIdle(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// getIP gets the client IP address from the request
func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

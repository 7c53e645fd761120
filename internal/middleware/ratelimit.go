package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a sliding-window log per key: a request is admitted while
// fewer than max requests were admitted in the preceding window.
type RateLimiter struct {
	mu     sync.Mutex
	times  map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{times: make(map[string][]time.Time), max: max, window: window, now: time.Now}
}

func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-r.window)
	slice := r.times[key]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= r.max {
		r.times[key] = slice
		return false
	}
	r.times[key] = append(slice, now)
	return true
}

// clientIP is the host part of RemoteAddr. Forwarding headers are honoured only
// where chi's RealIP has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit answers 429 once a client exceeds its budget. It keys on the
// authenticated user when one is on the context, otherwise on the client IP.
// Mounted both before and after authentication it limits anonymous callers per
// IP and signed-in callers per user.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if userID := GetUserID(r.Context()); userID != "" {
				key = "u:" + userID
			}
			if !limiter.Allow(key) {
				writeJSONError(w, http.StatusTooManyRequests, "too many requests", "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillpost/quillpost/pkg/slogx"
)

// RateLimitConfig defines the token-bucket parameters for a limiter profile.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Limiter profiles for the different endpoint classes.
var (
	// StrictLimit guards credential-bearing endpoints (login, publish).
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit covers public write endpoints such as signup.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit covers pages and health probes.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
)

// KeyExtractor derives the grouping key a request is limited under.
type KeyExtractor func(*http.Request) string

// IPKey extracts the client IP, honoring proxy headers before RemoteAddr.
func IPKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPAndFormFieldKey groups by client IP plus a form field such as "username",
// so an attacker cannot spread a brute-force attempt across addresses
// without also rotating the target account.
func IPAndFormFieldKey(field string) KeyExtractor {
	return func(r *http.Request) string {
		key := IPKey(r)
		if err := r.ParseForm(); err == nil {
			if v := r.FormValue(field); v != "" {
				key += ":" + v
			}
		}
		return key
	}
}

// RateLimitByIP limits requests per client IP.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, IPKey)
}

// RateLimitByIPAndFormField limits requests per client IP + form field value.
func RateLimitByIPAndFormField(cfg RateLimitConfig, field string) Middleware {
	return RateLimit(cfg, IPAndFormFieldKey(field))
}

// RateLimit builds a middleware enforcing cfg per extracted key.
func RateLimit(cfg RateLimitConfig, key KeyExtractor) Middleware {
	perSecond := float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()
	rl := &keyedLimiter{
		rate:        rate.Limit(perSecond),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			k := key(r)
			if k == "" {
				// No key means no bucket; let the request through rather
				// than sharing one global bucket across all clients.
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.get(k)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				log.Warn("rate limit exceeded", "key", k)
				WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Error:            "rate_limited",
					ErrorDescription: "Too many requests, slow down",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// keyedLimiter keeps one token bucket per key with periodic cleanup of idle
// buckets so ephemeral keys do not accumulate forever.
type keyedLimiter struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func (rl *keyedLimiter) get(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

func (rl *keyedLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) < 5*time.Minute {
		return
	}
	rl.lastCleanup = time.Now()

	// A limiter with a full bucket has been idle for at least a window.
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

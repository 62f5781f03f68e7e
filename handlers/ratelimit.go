package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/conduit-http/conduit/engine"
)

// RateLimitConfig configures the RateLimit interceptor.
type RateLimitConfig struct {
	// Rate is the sustained request rate per key, in requests per second.
	Rate float64

	// Burst is the maximum burst size per key.
	Burst int

	// KeyFunc derives the limiter key from a request. The default uses
	// the X-Forwarded-For header (the engine sees no transport-level
	// peer address), falling back to a single shared key.
	KeyFunc func(*engine.Request) string

	// CleanupInterval is how often idle limiters are pruned (default: 1m).
	CleanupInterval time.Duration

	// MaxIdle removes limiters idle longer than this (default: 5m).
	MaxIdle time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns an interceptor that applies per-key token-bucket rate
// limiting. Requests over the limit short-circuit with a 429 response
// carrying a Retry-After header.
func RateLimit(cfg RateLimitConfig) engine.Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(req *engine.Request) string {
			if fwd := req.Header("X-Forwarded-For"); fwd != "" {
				return fwd
			}
			return "global"
		}
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(req *engine.Request) (*engine.Response, error) {
		key := keyFunc(req)

		mu.Lock()
		now := time.Now()

		// Lazy cleanup of expired limiters.
		if now.Sub(lastCleanup) >= cleanupInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > maxIdle {
					delete(limiters, k)
				}
			}
			lastCleanup = now
		}

		entry, ok := limiters[key]
		if !ok {
			entry = &limiterEntry{
				limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
			}
			limiters[key] = entry
		}
		entry.lastSeen = now
		mu.Unlock()

		if !entry.limiter.Allow() {
			resp := engine.NewResponseStatus("Too Many Requests", http.StatusTooManyRequests)
			resp.SetHeader("Retry-After", strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64))
			return resp, nil
		}

		return nil, nil
	}
}

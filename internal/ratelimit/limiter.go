// Package ratelimit provides token bucket rate limiting middleware.
package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	// RequestsPerSecond is the rate limit (tokens added per second).
	RequestsPerSecond float64
	// BurstSize is the maximum number of tokens (burst capacity).
	BurstSize int
	// Logger for rate limit events.
	Logger *slog.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10.0,
		BurstSize:         20,
		Logger:            slog.Default(),
	}
}

// Limiter provides HTTP rate limiting middleware backed by a token bucket.
type Limiter struct {
	config  Config
	limiter *rate.Limiter
}

// New creates a new rate limiter with the given configuration.
func New(config Config) *Limiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10.0
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 20
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Limiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.BurstSize),
	}
}

// Middleware returns an HTTP middleware that applies rate limiting.
func (l *Limiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservation := l.limiter.Reserve()
		delay := reservation.Delay()
		allowed := reservation.OK() && delay == 0

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.config.BurstSize))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining()))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !allowed {
			// Do not consume a token for a rejected request.
			reservation.Cancel()

			retryAfter := int(math.Ceil(delay.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			l.config.Logger.Warn("rate limit exceeded",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Duration("retry_after", delay),
			)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		next(w, r)
	}
}

// Remaining returns the current number of available tokens.
func (l *Limiter) Remaining() int {
	tokens := l.limiter.Tokens()
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

// Limit returns the burst limit.
func (l *Limiter) Limit() int {
	return l.config.BurstSize
}

// Rate returns the refill rate in tokens per second.
func (l *Limiter) Rate() float64 {
	return l.config.RequestsPerSecond
}

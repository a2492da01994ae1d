package ratelimit

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func doRequest(limiter *Limiter) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	w := httptest.NewRecorder()
	limiter.Middleware(okHandler)(w, req)
	return w
}

func TestNewAppliesDefaults(t *testing.T) {
	limiter := New(Config{Logger: testLogger()})

	if limiter.Rate() != 10.0 {
		t.Errorf("Rate() = %v, want 10.0", limiter.Rate())
	}
	if limiter.Limit() != 20 {
		t.Errorf("Limit() = %d, want 20", limiter.Limit())
	}
}

func TestMiddlewareAllowsWithinBurst(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 1.0,
		BurstSize:         3,
		Logger:            testLogger(),
	})

	for i := 0; i < 3; i++ {
		w := doRequest(limiter)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestMiddlewareBlocksOverBurst(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 0.1, // slow refill so the bucket stays empty
		BurstSize:         2,
		Logger:            testLogger(),
	})

	doRequest(limiter)
	doRequest(limiter)

	w := doRequest(limiter)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "rate limit exceeded" {
		t.Errorf("error = %v, want rate limit exceeded", body["error"])
	}
}

func TestMiddlewareRefills(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 100.0,
		BurstSize:         1,
		Logger:            testLogger(),
	})

	if w := doRequest(limiter); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := doRequest(limiter); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	time.Sleep(20 * time.Millisecond)

	if w := doRequest(limiter); w.Code != http.StatusOK {
		t.Errorf("status after refill = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 10.0,
		BurstSize:         5,
		Logger:            testLogger(),
	})

	w := doRequest(limiter)

	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got == "" {
		t.Error("X-RateLimit-Remaining not set")
	}
	if got := w.Header().Get("X-RateLimit-Reset"); got == "" {
		t.Error("X-RateLimit-Reset not set")
	}
}

func TestConcurrentRequests(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 0.1,
		BurstSize:         10,
		Logger:            testLogger(),
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := doRequest(limiter)
			if w.Code == http.StatusOK {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("allowed = %d, want 10", allowed)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.RequestsPerSecond != 10.0 {
		t.Errorf("RequestsPerSecond = %v, want 10.0", config.RequestsPerSecond)
	}
	if config.BurstSize != 20 {
		t.Errorf("BurstSize = %d, want 20", config.BurstSize)
	}
}

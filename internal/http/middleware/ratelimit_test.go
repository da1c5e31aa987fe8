package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedEngine(rps float64, burst int) *gin.Engine {
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyByIP())
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func doPing(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	r := limitedEngine(100, 5)
	for i := 0; i < 5; i++ {
		if rec := doPing(r, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	r := limitedEngine(0.001, 1)

	if rec := doPing(r, ""); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec := doPing(r, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec.Body.String() != "Rate limit exceeded. Please retry shortly." {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestRateLimiter_BucketsByClientIP(t *testing.T) {
	r := limitedEngine(0.001, 1)

	if rec := doPing(r, "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Fatalf("first client: status = %d", rec.Code)
	}
	// A different client gets its own bucket.
	if rec := doPing(r, "10.0.0.2:1234"); rec.Code != http.StatusOK {
		t.Fatalf("second client: status = %d", rec.Code)
	}
	// The first client's bucket is exhausted.
	if rec := doPing(r, "10.0.0.1:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first client again: status = %d", rec.Code)
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:10.0.0.1")
	time.Sleep(5 * time.Millisecond)

	// Force the opportunistic GC threshold.
	rl.mu.Lock()
	rl.cleanupN = 4999
	rl.mu.Unlock()
	rl.getVisitor("ip:10.0.0.2")

	rl.mu.Lock()
	_, stale := rl.visitors["ip:10.0.0.1"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle visitor should have been evicted")
	}
}

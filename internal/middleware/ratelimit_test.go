package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRateLimitRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(rps, burst))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func doPing(r *gin.Engine, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	r := newRateLimitRouter(1, 3)

	for i := 0; i < 3; i++ {
		if code := doPing(r, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	// Refill is effectively zero within the test, so the burst is the cap.
	r := newRateLimitRouter(0.001, 2)

	doPing(r, "10.0.0.1:1234")
	doPing(r, "10.0.0.1:1234")
	if code := doPing(r, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", code)
	}
}

func TestRateLimit_ClientsAreIsolated(t *testing.T) {
	r := newRateLimitRouter(0.001, 1)

	if code := doPing(r, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", code)
	}
	if code := doPing(r, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("first client: expected 429, got %d", code)
	}
	// A different IP has its own bucket.
	if code := doPing(r, "10.0.0.2:1234"); code != http.StatusOK {
		t.Fatalf("second client: expected 200, got %d", code)
	}
}

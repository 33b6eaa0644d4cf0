package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestRateLimit_AllowsThenBlocks(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := rateLimit(60, 2, c.now)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("want 200 got %d", rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 429 {
		t.Fatalf("want 429 got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After=%q", rr.Header().Get("Retry-After"))
	}

	// another client has its own bucket
	other := httptest.NewRequest("GET", "/", nil)
	other.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != 200 {
		t.Fatalf("other client want 200 got %d", rr.Code)
	}

	c.t = c.t.Add(1100 * time.Millisecond)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != 200 {
		t.Fatalf("want 200 after refill got %d", rr2.Code)
	}
}

func TestRateLimit_DisabledAndSweep(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if h := RateLimit(0, 1)(ok); h == nil {
		t.Fatal("nil handler")
	}

	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newLimiter(1, 1, time.Minute, c.now)
	l.allow("a")
	c.t = c.t.Add(2 * time.Minute)
	l.allow("b")
	if _, found := l.m["a"]; found {
		t.Fatal("idle bucket should be swept")
	}
}

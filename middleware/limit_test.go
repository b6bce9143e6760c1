package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/MrEthical07/goSecretQ/internal/rate"
)

func (f *stepFixture) withLimiter(l AttemptLimiter) {
	opts := f.opts
	opts.Limiter = l
	f.mux = http.NewServeMux()
	NewStepHandler(f.engine, f.sessions, opts).Register(f.mux)
}

func TestWrongAnswersAreThrottled(t *testing.T) {
	f := newStepFixture(t)
	f.withLimiter(NewAttemptLimiter(f.rdb, AttemptLimitConfig{MaxAttempts: 2, Window: time.Minute}))
	if _, err := f.engine.CreateCredential(context.Background(), "u1", "Pet?", "Rex"); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	sess := f.newSession(t, "u1", nil)

	wrong := url.Values{"secret_answer": {"cat"}}
	for i := 0; i < 2; i++ {
		if rr := f.do(t, http.MethodPost, "/secret-question", sess, wrong, nil); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rr.Code)
		}
	}

	rr := f.do(t, http.MethodPost, "/secret-question", sess, url.Values{"secret_answer": {"Rex"}}, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the limit is reached, got %d", rr.Code)
	}
	if markerCookie(rr) != nil {
		t.Fatal("throttled request must not issue a marker")
	}

	// Rendering the challenge is not throttled.
	if rr := f.do(t, http.MethodGet, "/secret-question", sess, nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("expected challenge to render, got %d", rr.Code)
	}
}

func TestCorrectAnswerResetsAttempts(t *testing.T) {
	f := newStepFixture(t)
	lim := rate.New(f.rdb, rate.Config{MaxAttempts: 3, Window: time.Minute})
	f.withLimiter(lim)
	if _, err := f.engine.CreateCredential(context.Background(), "u1", "Pet?", "Rex"); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	sess := f.newSession(t, "u1", nil)

	f.do(t, http.MethodPost, "/secret-question", sess, url.Values{"secret_answer": {"cat"}}, nil)
	if n, err := lim.Attempts(context.Background(), "u1"); err != nil || n != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d %v", n, err)
	}

	rr := f.do(t, http.MethodPost, "/secret-question", sess, url.Values{"secret_answer": {"Rex"}}, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected success, got %d", rr.Code)
	}
	if n, err := lim.Attempts(context.Background(), "u1"); err != nil || n != 0 {
		t.Fatalf("expected attempts cleared, got %d %v", n, err)
	}
}

func TestIPThrottleIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	f := newStepFixture(t)
	f.withLimiter(NewAttemptLimiter(f.rdb, AttemptLimitConfig{
		MaxAttempts:      100,
		Window:           time.Minute,
		EnableIPThrottle: true,
		IPMaxAttempts:    2,
	}))
	if _, err := f.engine.CreateCredential(context.Background(), "u1", "Pet?", "Rex"); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	sess := f.newSession(t, "u1", nil)

	want := []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}
	for i, code := range want {
		header := http.Header{"X-Forwarded-For": {fmt.Sprintf("10.0.0.%d", i)}}
		rr := f.do(t, http.MethodPost, "/secret-question", sess, url.Values{"secret_answer": {"cat"}}, header)
		if rr.Code != code {
			t.Fatalf("attempt %d: expected %d, got %d", i+1, code, rr.Code)
		}
	}
}

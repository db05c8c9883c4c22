package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := map[int]bool{200: false, 404: false, 408: true, 429: true, 500: true, 503: true}
	for code, want := range cases {
		if got := IsRetryableHTTPStatus(code); got != want {
			t.Fatalf("status %d: got=%v want=%v", code, got, want)
		}
	}
}

func TestRetryAfterDurationCapsAtMax(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "120")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("got=%v", got)
	}
	if got := RetryAfterDuration(nil, time.Second, 0); got != time.Second {
		t.Fatalf("fallback got=%v", got)
	}
}

func TestBackoffStaysWithinJitterBounds(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		d := Backoff(attempt, 100*time.Millisecond, time.Second)
		if d < 0 || d > 1200*time.Millisecond {
			t.Fatalf("attempt %d out of range: %v", attempt, d)
		}
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatalf("expected context error")
	}
}

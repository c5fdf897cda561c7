package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsRetryableGenerationError(t *testing.T) {
	if IsRetryableGenerationError(nil) {
		t.Fatalf("nil error should not be retryable")
	}
	if IsRetryableGenerationError(context.DeadlineExceeded) {
		t.Fatalf("deadline expiry should not be retryable")
	}
	if !IsRetryableGenerationError(errors.New("api error: 429 rate limit exceeded")) {
		t.Fatalf("rate limit should be retryable")
	}
	if IsRetryableGenerationError(errors.New("invalid request: missing field")) {
		t.Fatalf("client error should not be retryable")
	}
}

func TestExponentialBackoffCap(t *testing.T) {
	base := 100 * time.Millisecond
	capDur := 700 * time.Millisecond
	if got := ExponentialBackoff(0, base, capDur); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(10, base, capDur); got != capDur {
		t.Fatalf("attempt 10 = %v, want %v", got, capDur)
	}
}

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
		{401, false},
		{404, false},
		{408, true},
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

func TestExponentialBackoffCap(t *testing.T) {
	base := 100 * time.Millisecond
	capDur := 700 * time.Millisecond
	if got := ExponentialBackoff(0, base, capDur); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(2, base, capDur); got != 400*time.Millisecond {
		t.Fatalf("attempt 2 = %v, want %v", got, 400*time.Millisecond)
	}
	if got := ExponentialBackoff(10, base, capDur); got != capDur {
		t.Fatalf("attempt 10 = %v, want %v", got, capDur)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(int) (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("flaky")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	err := Retry(context.Background(), Policy{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, func(int) (bool, error) {
		calls++
		return false, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("Retry() = %v after %d calls, want permanent error after 1", err, calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, Policy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, func(int) (bool, error) {
		return true, errors.New("unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry() error = %v, want %v", err, context.Canceled)
	}
}

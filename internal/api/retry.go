package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is how many times a rate-limited request is sent
	DefaultMaxAttempts = 3
	// DefaultFallbackWait applies when Retry-After is missing or unparseable
	DefaultFallbackWait = 5 * time.Second
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning early with ctx.Err() on cancellation
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRateLimited reports whether resp is a rate-limit answer.
// 429 is the primary signal; GitHub's secondary limits arrive as 403 with
// Retry-After or an exhausted X-RateLimit-Remaining.
func IsRateLimited(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("Retry-After") != "" ||
			resp.Header.Get("X-RateLimit-Remaining") == "0"
	}
	return false
}

// Retrier resends a request while the server answers with a rate limit.
//
// States: send attempt n -> (not limited) done | (limited, n < MaxAttempts)
// wait then n+1 | (limited, n == MaxAttempts) done with the last response.
// The last response is handed back as-is so the caller decides how to fail.
type Retrier struct {
	MaxAttempts  int
	FallbackWait time.Duration
	Sleep        SleepFunc

	// OnWait is called before each wait with the attempt that was limited
	OnWait func(attempt int, wait time.Duration)
}

// NewRetrier returns a Retrier with the default budget and real sleeping
func NewRetrier() *Retrier {
	return &Retrier{
		MaxAttempts:  DefaultMaxAttempts,
		FallbackWait: DefaultFallbackWait,
		Sleep:        Sleep,
	}
}

// Do calls send until a response is not rate limited or the attempt budget
// runs out. Transport errors are returned immediately without retry.
func (r *Retrier) Do(ctx context.Context, send func(context.Context) (*http.Response, error)) (*http.Response, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		resp, err := send(ctx)
		if err != nil {
			return nil, err
		}
		if !IsRateLimited(resp) || attempt >= maxAttempts {
			return resp, nil
		}

		wait := r.WaitFor(resp)
		discard(resp)

		if r.OnWait != nil {
			r.OnWait(attempt, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// WaitFor returns the server-advised wait for a limited response
func (r *Retrier) WaitFor(resp *http.Response) time.Duration {
	fallback := r.FallbackWait
	if fallback <= 0 {
		fallback = DefaultFallbackWait
	}
	return ParseRetryAfter(resp.Header.Get("Retry-After"), fallback)
}

// ParseRetryAfter reads an integer-seconds Retry-After value
func ParseRetryAfter(value string, fallback time.Duration) time.Duration {
	secs, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// discard drains a little of the body so the connection can be reused
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

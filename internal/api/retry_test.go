package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleep captures requested waits without sleeping
type recordSleep struct {
	waits []time.Duration
}

func (r *recordSleep) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestRetrier(rec *recordSleep) *Retrier {
	return &Retrier{MaxAttempts: 3, FallbackWait: 5 * time.Second, Sleep: rec.sleep}
}

const emptySearch = `{"total_count":0,"incomplete_results":false,"items":[]}`

func TestSearchRepositories_RetriesAfterRateLimit(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"total_count":1,"items":[{"full_name":"cli/cli","description":null,"stargazers_count":5}]}`))
	}))
	defer srv.Close()

	rec := &recordSleep{}
	c := NewClient(WithBaseURL(srv.URL), WithRetrier(newTestRetrier(rec)))

	got, err := c.SearchRepositories(context.Background(), "cli", 100, 1)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "cli/cli", got.Items[0].FullName)
	assert.Nil(t, got.Items[0].Description)
	assert.EqualValues(t, 2, attempts.Load())
	assert.Equal(t, []time.Duration{2 * time.Second}, rec.waits)
}

func TestSearchRepositories_GivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer srv.Close()

	rec := &recordSleep{}
	var notified []int
	retrier := newTestRetrier(rec)
	retrier.OnWait = func(attempt int, wait time.Duration) { notified = append(notified, attempt) }
	c := NewClient(WithBaseURL(srv.URL), WithRetrier(retrier))

	_, err := c.SearchRepositories(context.Background(), "cli", 100, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.EqualValues(t, 3, attempts.Load())
	// no wait after the final attempt
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, rec.waits)
	assert.Equal(t, []int{1, 2}, notified)
}

func TestSearchRepositories_SecondaryRateLimit(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(emptySearch))
	}))
	defer srv.Close()

	rec := &recordSleep{}
	c := NewClient(WithBaseURL(srv.URL), WithRetrier(newTestRetrier(rec)))

	_, err := c.SearchRepositories(context.Background(), "cli", 100, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, attempts.Load())
	assert.Equal(t, []time.Duration{time.Second}, rec.waits)
}

func TestSearchRepositories_OtherStatusNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"message":"Validation Failed"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	rec := &recordSleep{}
	c := NewClient(WithBaseURL(srv.URL), WithRetrier(newTestRetrier(rec)))

	_, err := c.SearchRepositories(context.Background(), "cli", 100, 1)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "Validation Failed")
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.EqualValues(t, 1, attempts.Load())
	assert.Empty(t, rec.waits)
}

func TestSearchRepositories_CancelDuringWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewRetrier()
	retrier.OnWait = func(int, time.Duration) { cancel() }
	c := NewClient(WithBaseURL(srv.URL), WithRetrier(retrier))

	start := time.Now()
	_, err := c.SearchRepositories(ctx, "cli", 100, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestSearchRepositories_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.SearchRepositories(context.Background(), "cli", 100, 1)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseRetryAfter(t *testing.T) {
	fallback := 5 * time.Second
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"3", 3 * time.Second},
		{" 10 ", 10 * time.Second},
		{"0", 0},
		{"", fallback},
		{"soon", fallback},
		{"-4", fallback},
		{"1.5", fallback},
		{"Wed, 21 Oct 2015 07:28:00 GMT", fallback},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRetryAfter(tt.value, fallback), "value %q", tt.value)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		want   bool
	}{
		{"429", http.StatusTooManyRequests, nil, true},
		{"403 with retry-after", http.StatusForbidden, map[string]string{"Retry-After": "60"}, true},
		{"403 quota spent", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, true},
		{"403 forbidden", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "12"}, false},
		{"200", http.StatusOK, nil, false},
		{"503", http.StatusServiceUnavailable, map[string]string{"Retry-After": "60"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.header {
				resp.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IsRateLimited(resp))
		})
	}
}

func TestRetrier_TransportErrorNotRetried(t *testing.T) {
	rec := &recordSleep{}
	calls := 0
	boom := errors.New("connection reset")

	_, err := newTestRetrier(rec).Do(context.Background(), func(context.Context) (*http.Response, error) {
		calls++
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestSleep_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

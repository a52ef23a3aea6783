package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return MarkTransient(eris.New("flaky"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := eris.New("not found")
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-transient errors must not be retried")
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		return MarkTransient(eris.New("still down"), 500)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, BaseDelay: 50 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		cancel()
		return MarkTransient(eris.New("down"), 503)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchReturnsValue(t *testing.T) {
	calls := 0
	got, err := Fetch(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", MarkTransient(eris.New("retry me"), 429)
		}
		return "(512) 555-0100", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "(512) 555-0100", got)
}

func TestCustomRetryablePredicate(t *testing.T) {
	calls := 0
	p := fastPolicy()
	p.Retryable = func(err error) bool { return true }
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return eris.New("anything goes")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestOnRetryHookInvoked(t *testing.T) {
	var attempts []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }
	_ = Do(context.Background(), p, func(ctx context.Context) error {
		return MarkTransient(eris.New("down"), 502)
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("validation failed")))
	assert.True(t, IsTransient(MarkTransient(eris.New("429"), 429)))
	assert.True(t, IsTransient(eris.New("dial tcp: i/o timeout")))
	assert.True(t, IsTransient(eris.Wrap(MarkTransient(eris.New("inner"), 503), "outer")))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), "%d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, RetryableStatus(code), "%d", code)
	}
}

func TestDelayCapped(t *testing.T) {
	p := Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 2 * time.Second, Jitter: 0}.normalized()
	assert.Equal(t, 2*time.Second, p.delay(10))
}

func TestWaitHookReplacesBackoffSleep(t *testing.T) {
	var waits []int
	p := fastPolicy()
	p.Wait = func(_ context.Context, attempt int) error {
		waits = append(waits, attempt)
		return nil
	}

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return MarkTransient(eris.New("flaky"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, waits, "hook receives zero-based attempts")
}

func TestWaitHookErrorStopsRetries(t *testing.T) {
	p := fastPolicy()
	p.Wait = func(ctx context.Context, _ int) error {
		return context.Canceled
	}

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		calls++
		return MarkTransient(eris.New("flaky"), 503)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "a failed wait ends the retry loop")
}

package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy bounds how often and how long a runtime retries a call.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

var (
	geminiRetry     = retryPolicy{attempts: 3, base: 500 * time.Millisecond, max: 4 * time.Second}
	openRouterRetry = retryPolicy{attempts: 3, base: 500 * time.Millisecond, max: 4 * time.Second}
	ollamaRetry     = retryPolicy{attempts: 2, base: 200 * time.Millisecond, max: time.Second}
)

// do invokes call until it succeeds, fails with a non-retryable error or
// the attempts are used up. Rate limits honor Retry-After; everything else
// backs off exponentially with jitter, capped at p.max.
func (p retryPolicy) do(ctx context.Context, call func() error) error {
	backoff := p.base
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := call()
		if err == nil {
			return nil
		}
		wait, retry := retryDelay(err)
		if !retry || attempt >= p.attempts {
			return err
		}
		if wait <= 0 {
			wait = withJitter(backoff)
			if p.max > 0 && wait > p.max {
				wait = p.max
			}
			backoff *= 2
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

func retryDelay(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	var se *ServerError
	if errors.As(err, &se) {
		return 0, true
	}
	return 0, isRetryableNetErr(err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// retryAfter reads a Retry-After header given as seconds or an HTTP date.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d.Truncate(time.Second)
		}
	}
	return 0
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}

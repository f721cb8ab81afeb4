package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Policy controls the retry loop. A zero MaxAttempts means one try.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// AttemptInfo describes a single attempt outcome.
type AttemptInfo struct {
	Attempt int
	Method  string
	URL     string
	Status  int
	Err     error
	Wait    time.Duration
}

// Observer receives attempt telemetry. It is only called for attempts
// that will be retried.
type Observer func(info AttemptInfo)

// Do wraps an HTTP request with lightweight retries for transport
// errors, 429s and 5xx responses, honoring Retry-After. The request is
// rebuilt per attempt so its body and context are fresh. The final
// response is returned as-is even when it carries a retryable status.
func Do(ctx context.Context, client *http.Client, build func() (*http.Request, error), p Policy, obs Observer) (*http.Response, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			if attempt == maxAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			notify(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Err: err})
		} else {
			if !retryableStatus(resp.StatusCode) || attempt == maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait > 0 {
				notify(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode, Wait: wait})
				if err := sleep(ctx, wait); err != nil {
					return nil, err
				}
				continue
			}
			notify(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode})
		}

		// Linear backoff with jitter
		jitter := time.Duration(rand.Intn(100)) * time.Millisecond
		if err := sleep(ctx, baseDelay*time.Duration(attempt)+jitter); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("httpx: exhausted retries")
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// retryAfter reads the Retry-After header in either seconds or
// HTTP-date form; zero means no usable header.
func retryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func notify(obs Observer, info AttemptInfo) {
	if obs != nil {
		obs(info)
	}
}

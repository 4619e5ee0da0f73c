package retry

import (
	"context"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultBaseDelay = 100 * time.Millisecond
	DefaultMaxDelay  = 30 * time.Second
)

// Policy configures Do. A zero MaxRetries means a single attempt.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewPolicy returns a policy with the default delays.
func NewPolicy(maxRetries int) Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}

		if !IsRetryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt < p.MaxRetries {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(p.Delay(attempt)):
			}
		}
	}
	if p.MaxRetries == 0 {
		return zero, lastErr
	}
	return zero, &ExhaustedError{Attempts: p.MaxRetries + 1, Err: lastErr}
}

// ExhaustedError wraps the last error once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return "max retries exceeded: " + e.Err.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error is worth another attempt: S3 throttling,
// 5xx responses, and truncated or timed-out transfers.
func IsRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException", "InternalError":
			return true
		}
		if httpErr, ok := apiErr.(interface{ HTTPStatusCode() int }); ok {
			code := httpErr.HTTPStatusCode()
			return code >= 500 && code < 600
		}
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Delay is exponential backoff with ±25% jitter, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	base := float64(p.BaseDelay)
	delay := base * math.Pow(2.0, float64(attempt))

	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	delay += jitter

	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	return time.Duration(delay)
}

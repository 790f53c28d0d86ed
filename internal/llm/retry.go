package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"resumegen-api/internal/shared/telemetry"
)

const defaultRetryDelay = 300 * time.Millisecond

type retryingClient struct {
	base     Client
	attempts int
	delay    time.Duration
}

// WithRetry retries transient provider failures. Streams are only retried when
// the failure happened before the first delta reached the caller.
func WithRetry(base Client, attempts int, delay time.Duration) Client {
	if base == nil {
		return nil
	}
	if attempts < 1 {
		attempts = 1
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return retryingClient{base: base, attempts: attempts, delay: delay}
}

func (r retryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	var (
		resp Response
		err  error
	)
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err = r.base.Complete(ctx, req)
		if err == nil || !ShouldRetry(err) || attempt == r.attempts {
			return resp, err
		}
		if werr := r.wait(ctx, attempt, err); werr != nil {
			return Response{}, werr
		}
	}
	return resp, err
}

func (r retryingClient) Stream(ctx context.Context, req Request, onDelta func(string) error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		delivered := false
		err = r.base.Stream(ctx, req, func(delta string) error {
			delivered = true
			return onDelta(delta)
		})
		if err == nil || delivered || !ShouldRetry(err) || attempt == r.attempts {
			return err
		}
		if werr := r.wait(ctx, attempt, err); werr != nil {
			return werr
		}
	}
	return err
}

func (r retryingClient) wait(ctx context.Context, attempt int, cause error) error {
	telemetry.Warn("llm.retry", map[string]any{
		"attempt": attempt,
		"error":   cause,
	})
	t := time.NewTimer(r.delay * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShouldRetry reports whether err looks like a transient transport or provider failure.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == 529
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "overloaded_error") || strings.Contains(msg, "server_error") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof")
}

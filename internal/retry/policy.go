// Package retry provides the backoff and error-classification policy for
// transfer attempts.
//
// The policy is pure and stateless: Delay maps an attempt number to a wait
// duration and Classify maps an error to retryable or fatal. Execution is
// delegated to sethvargo/go-retry through the Backoff adapter, so the policy
// itself stays inspectable and exactly testable.
package retry

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMaxRetries = 3

	MinMaxRetries = 1
	MaxMaxRetries = 10
)

// StatusCoder is implemented by transport errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// Policy decides how long to wait between attempts and which errors are
// worth retrying at all.
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// NewPolicy returns a Policy with defaults, clamping maxRetries to [1, 10].
func NewPolicy(maxRetries int) Policy {
	if maxRetries < MinMaxRetries {
		maxRetries = MinMaxRetries
	}
	if maxRetries > MaxMaxRetries {
		maxRetries = MaxMaxRetries
	}
	return Policy{
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxRetries: maxRetries,
	}
}

// Delay returns the backoff before retry number attempt (0-indexed):
// min(base * 2^attempt, max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// IsRetryable classifies an error. Transient network conditions and server
// overload are retryable; client errors, malformed input and anything
// unrecognized are fatal so the pipeline fails fast instead of looping on an
// unknown condition.
func (p Policy) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// HTTP status from the media server.
	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		switch {
		case status == http.StatusTooManyRequests:
			return true
		case status >= 500:
			return true
		default:
			return false
		}
	}

	// Timeouts, including context deadlines on a single request.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// DNS resolution failures.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Connection-level failures.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ENOTCONN) {
		return true
	}

	// TLS handshake failures.
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}

	return false
}

// Backoff adapts the policy to a go-retry Backoff: the n-th call waits
// Delay(n) and the budget stops after MaxRetries retries.
func (p Policy) Backoff() retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= p.MaxRetries {
			return 0, true
		}
		d := p.Delay(attempt)
		attempt++
		return d, false
	})
}

// Do runs fn with this policy: fn is retried on retryable errors until the
// budget is exhausted. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.Backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if p.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

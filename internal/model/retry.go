package model

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
)

// failureKind is the transient error category of a failed attempt.
type failureKind int

const (
	failureFatal failureKind = iota
	failureRateLimit
	failureConnection
	failureAPI
	failureTimeout
	failureAuth
	failureUnavailable
)

func (k failureKind) String() string {
	switch k {
	case failureRateLimit:
		return "rate_limit"
	case failureConnection:
		return "connection"
	case failureAPI:
		return "api"
	case failureTimeout:
		return "timeout"
	case failureAuth:
		return "authentication"
	case failureUnavailable:
		return "service_unavailable"
	default:
		return "fatal"
	}
}

// classify maps an attempt error to its category. failureFatal errors are
// not retried.
func classify(err error) failureKind {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return failureRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return failureAuth
		case http.StatusServiceUnavailable:
			return failureUnavailable
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return failureTimeout
		default:
			return failureAPI
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return failureTimeout
		}
		return failureConnection
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return failureConnection
	}

	return failureFatal
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
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

// rateLimitJitter returns 1 to 10 seconds.
func rateLimitJitter() time.Duration {
	return time.Duration(1+rand.IntN(10)) * time.Second
}

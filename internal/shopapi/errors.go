package shopapi

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransport means no answer came back: connection refused, timeout,
// cancelled context or an open circuit breaker.
var ErrTransport = errors.New("shop API unreachable")

// RemoteError is a non-2xx answer from the shop API.
type RemoteError struct {
	Status  int
	Message string
	Code    string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("shop API %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("shop API %d: %s", e.Status, e.Message)
}

// abandonedError is a request cut short by its caller's context. It unwraps
// to ErrTransport, the context error and the transport error.
type abandonedError struct {
	ctxErr error
	err    error
}

func (e *abandonedError) Error() string {
	return fmt.Sprintf("%v: %v", ErrTransport, e.err)
}

func (e *abandonedError) Unwrap() []error {
	return []error{ErrTransport, e.ctxErr, e.err}
}

// transportError wraps err, marking it abandoned when ctx is already done.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &abandonedError{ctxErr: ctxErr, err: err}
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// abandonedByCaller reports whether err only says the caller stopped waiting.
func abandonedByCaller(err error) bool {
	var ab *abandonedError
	return errors.As(err, &ab)
}

// IsNotFound reports whether err is a 404 from the shop API.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == 404
}

// countsAgainstBreaker: remote rejections prove the shop is alive, only 5xx
// and transport failures trip the breaker.
func countsAgainstBreaker(err error) bool {
	if abandonedByCaller(err) {
		return false
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status >= 500
	}
	return true
}

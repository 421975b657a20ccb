package workflow

import (
	"context"
	"errors"
)

// maxAttempts bounds FirstSuccess to a primary attempt and one fallback.
const maxAttempts = 2

var errNoAttempts = errors.New("no attempts")

// Attempt is one way of carrying out an operation.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess runs attempts in order and returns the result and name of
// the first that succeeds. A fallback only runs after the previous attempt
// failed, and at most one fallback runs. When every attempt fails the last
// error is returned. onFail, if set, sees each failure.
func FirstSuccess[T any](ctx context.Context, attempts []Attempt[T], onFail func(name string, err error)) (T, string, error) {
	var zero T
	if len(attempts) > maxAttempts {
		attempts = attempts[:maxAttempts]
	}
	lastErr := errNoAttempts
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		v, err := a.Run(ctx)
		if err == nil {
			return v, a.Name, nil
		}
		lastErr = err
		if onFail != nil {
			onFail(a.Name, err)
		}
	}
	return zero, "", lastErr
}

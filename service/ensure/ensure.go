// Package ensure implements the check-then-create contract shared by every
// provisioning step: query existing state immediately before acting and
// treat a pre-existing match as success, never as an error.
package ensure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

// Resource looks the resource up and creates it only when absent. The
// returned bool reports whether a create happened; a pre-existing match is
// returned as-is.
func Resource[T any](ctx context.Context, find func(context.Context) (T, bool, error), create func(context.Context) (T, error)) (T, bool, error) {
	res, found, err := find(ctx)
	if err != nil || found {
		return res, false, err
	}
	res, err = create(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res, true, nil
}

// Present is Resource for steps whose existence check is a plain boolean,
// such as role assignments and permission grants.
func Present(ctx context.Context, exists func(context.Context) (bool, error), create func(context.Context) error) (bool, error) {
	found, err := exists(ctx)
	if err != nil || found {
		return false, err
	}
	if err := create(ctx); err != nil {
		return false, err
	}
	return true, nil
}

var errNotVisible = errors.New("resource not yet visible")

// WaitVisible polls check until it reports the resource, bounding the total
// wait instead of sleeping a fixed settle delay. The directory and the
// authorization store are eventually consistent after creates and updates.
func WaitVisible(ctx context.Context, clk clock.Clock, interval, maxWait time.Duration, check func(context.Context) (bool, error)) error {
	attempts := int(maxWait / interval)
	if attempts < 1 {
		attempts = 1
	}
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			visible, err := check(ctx)
			if err != nil {
				return err
			}
			if !visible {
				return errNotVisible
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, errNotVisible)
		},
		Attempts: attempts,
		Delay:    interval,
		Clock:    clk,
		Stop:     ctx.Done(),
	})
	if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
		return fmt.Errorf("gave up after %s: %w", maxWait, retry.LastError(err))
	}
	return err
}

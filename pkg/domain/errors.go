package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery         = errors.New("query is empty")
	ErrNotFound           = errors.New("not found")
	ErrServiceUnavailable = errors.New("upstream service unavailable")
	ErrTimeout            = errors.New("upstream service timed out")
	ErrInvalidMapping     = errors.New("invalid url mapping table")
)

// UpstreamError wraps a failed external call so callers can tell a deadline
// from any other failure with errors.Is.
func UpstreamError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrServiceUnavailable, err)
}

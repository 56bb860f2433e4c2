package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/circuitbreaker"
)

// NameSource is anything that can list a class roster.
type NameSource interface {
	FetchNames(ctx context.Context, className string) ([]string, error)
}

// GuardedRoster bounds every roster query by a timeout and stops calling
// the database while the breaker is open.
type GuardedRoster struct {
	source  NameSource
	breaker *circuitbreaker.Breaker
	timeout time.Duration
}

// NewGuardedRoster wraps source. A nil breaker disables the breaker;
// a zero timeout disables the timeout.
func NewGuardedRoster(source NameSource, breaker *circuitbreaker.Breaker, timeout time.Duration) *GuardedRoster {
	return &GuardedRoster{source: source, breaker: breaker, timeout: timeout}
}

// IsRosterFailure reports whether err means the database misbehaved, as
// opposed to a bad request or a canceled caller.
func IsRosterFailure(err error) bool {
	return shared.IsExternalService(err) || errors.Is(err, context.DeadlineExceeded)
}

// FetchNames implements NameSource.
func (g *GuardedRoster) FetchNames(ctx context.Context, className string) ([]string, error) {
	var names []string
	fetch := func(ctx context.Context) error {
		qctx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		var err error
		names, err = g.source.FetchNames(qctx, className)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return shared.WrapError("roster", "FetchNames", shared.ErrTimeout, "roster query timed out", err)
		}
		return err
	}

	if g.breaker == nil {
		return names, fetch(ctx)
	}

	err := g.breaker.Execute(ctx, fetch)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, shared.WrapError("roster", "FetchNames", shared.ErrServiceUnavailable, "roster database is failing, retry later", err)
	}
	return names, err
}

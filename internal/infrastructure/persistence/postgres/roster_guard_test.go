package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/circuitbreaker"
)

type stubSource struct {
	calls       int
	err         error
	hasDeadline bool
	block       bool
}

func (s *stubSource) FetchNames(ctx context.Context, _ string) ([]string, error) {
	s.calls++
	_, s.hasDeadline = ctx.Deadline()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return []string{"Ann", "Bob"}, nil
}

func TestGuardedRoster_PassesThrough(t *testing.T) {
	src := &stubSource{}
	g := NewGuardedRoster(src, nil, time.Second)

	names, err := g.FetchNames(context.Background(), "7A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bob"}, names)
	assert.True(t, src.hasDeadline)

	_, err = NewGuardedRoster(src, nil, 0).FetchNames(context.Background(), "7A")
	require.NoError(t, err)
	assert.False(t, src.hasDeadline)
}

func TestGuardedRoster_Timeout(t *testing.T) {
	g := NewGuardedRoster(&stubSource{block: true}, nil, 10*time.Millisecond)

	_, err := g.FetchNames(context.Background(), "7A")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrTimeout)
	assert.True(t, shared.IsExternalService(err))
}

func TestGuardedRoster_BreakerOpens(t *testing.T) {
	src := &stubSource{err: shared.WrapError("roster", "FetchNames", shared.ErrServiceUnavailable, "query roster", errors.New("conn refused"))}
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
		IsFailure:        IsRosterFailure,
	})
	g := NewGuardedRoster(src, breaker, 0)

	for i := 0; i < 2; i++ {
		_, err := g.FetchNames(context.Background(), "7A")
		require.Error(t, err)
	}
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err := g.FetchNames(context.Background(), "7A")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, 2, src.calls)
}

func TestGuardedRoster_BadRequestKeepsBreakerClosed(t *testing.T) {
	src := &stubSource{err: shared.ErrRosterClassEmpty}
	breaker := circuitbreaker.New(circuitbreaker.Settings{FailureThreshold: 1, IsFailure: IsRosterFailure})
	g := NewGuardedRoster(src, breaker, 0)

	_, err := g.FetchNames(context.Background(), " ")
	assert.ErrorIs(t, err, shared.ErrRosterClassEmpty)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

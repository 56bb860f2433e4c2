package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type gauge struct {
	mu      sync.Mutex
	running bool
}

func (g *gauge) SetTimerRunning(running bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = running
}

func (g *gauge) get() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func waitDone(t *testing.T, c *Countdown) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not finish")
	}
}

func TestCountdown_RunsToCompletion(t *testing.T) {
	pub := &recordingPublisher{}
	g := &gauge{}
	completed := make(chan Status, 1)

	c := NewCountdown(CountdownConfig{
		TickInterval: 5 * time.Millisecond,
		Publisher:    pub,
		Recorder:     g,
		OnComplete:   func(s Status) { completed <- s },
	})

	require.NoError(t, c.Start(context.Background(), "s-1", "EXPERT_GROUPS", 20*time.Millisecond))
	assert.True(t, c.Status().Running)

	waitDone(t, c)

	select {
	case s := <-completed:
		assert.Equal(t, "EXPERT_GROUPS", s.Phase)
		assert.Equal(t, time.Duration(0), s.Remaining)
	case <-time.After(time.Second):
		t.Fatal("OnComplete not called")
	}

	assert.Equal(t, []shared.EventType{
		shared.EventTimerStarted,
		shared.EventTimerTicked,
		shared.EventTimerTicked,
		shared.EventTimerTicked,
		shared.EventTimerCompleted,
	}, pub.types())

	remaining, running := c.Remaining()
	assert.False(t, running)
	assert.Zero(t, remaining)
	assert.False(t, g.get())
}

func TestCountdown_Stop(t *testing.T) {
	pub := &recordingPublisher{}
	called := false
	c := NewCountdown(CountdownConfig{
		TickInterval: time.Hour,
		Publisher:    pub,
		OnComplete:   func(Status) { called = true },
	})

	require.NoError(t, c.Start(context.Background(), "s-1", "TEACHING", 10*time.Minute))
	assert.ErrorIs(t, c.Start(context.Background(), "s-1", "TEACHING", time.Minute), shared.ErrTimerAlreadyRunning)

	require.NoError(t, c.Stop())

	remaining, running := c.Remaining()
	assert.False(t, running)
	assert.Equal(t, 10*time.Minute, remaining)
	assert.False(t, called)
	assert.Equal(t, []shared.EventType{shared.EventTimerStarted, shared.EventTimerStopped}, pub.types())

	assert.ErrorIs(t, c.Stop(), shared.ErrTimerNotRunning)
}

func TestCountdown_ConcurrentStopPublishesOnce(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCountdown(CountdownConfig{TickInterval: time.Hour, Publisher: pub})

	require.NoError(t, c.Start(context.Background(), "s-1", "TEACHING", 10*time.Minute))

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Stop()
		}()
	}
	wg.Wait()
	close(errs)

	stopped := 0
	for err := range errs {
		if err == nil {
			stopped++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrTimerNotRunning)
	}
	assert.Equal(t, 1, stopped)
	assert.Equal(t, []shared.EventType{shared.EventTimerStarted, shared.EventTimerStopped}, pub.types())
}

func TestCountdown_StopAfterFinalTick(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCountdown(CountdownConfig{TickInterval: time.Hour, Publisher: pub})

	require.NoError(t, c.Start(context.Background(), "s-1", "EXPERT_GROUPS", time.Hour))

	// The final tick has claimed the run while its goroutine is still alive.
	remaining, ok := c.advance()
	require.True(t, ok)
	require.Zero(t, remaining)

	assert.ErrorIs(t, c.Stop(), shared.ErrTimerNotRunning)
	assert.NotContains(t, pub.types(), shared.EventTimerStopped)

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	cancel()
	waitDone(t, c)

	require.NoError(t, c.Start(context.Background(), "s-1", "TEACHING", time.Minute))
	require.NoError(t, c.Stop())
}

func TestCountdown_ContextCancel(t *testing.T) {
	c := NewCountdown(CountdownConfig{TickInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, c.Start(ctx, "s-1", "EXPERT_GROUPS", time.Minute))
	cancel()
	waitDone(t, c)

	_, running := c.Remaining()
	assert.False(t, running)

	require.NoError(t, c.Start(context.Background(), "s-1", "TEACHING", time.Minute))
	require.NoError(t, c.Stop())
}

func TestCountdown_RejectsNonPositiveDuration(t *testing.T) {
	c := NewCountdown(CountdownConfig{})

	assert.ErrorIs(t, c.Start(context.Background(), "s-1", "TEACHING", 0), shared.ErrTimerNoDuration)
	assert.Nil(t, c.Done())
}

func TestFormatRemaining(t *testing.T) {
	cases := map[time.Duration]string{
		15 * time.Minute:                "15:00",
		10*time.Minute - time.Second:    "9:59",
		65 * time.Second:                "1:05",
		1500 * time.Millisecond:         "0:01",
		0:                               "0:00",
		-3 * time.Second:                "0:00",
		120*time.Minute + 7*time.Second: "120:07",
	}
	for d, want := range cases {
		assert.Equal(t, want, FormatRemaining(d), d.String())
	}
}

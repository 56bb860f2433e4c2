// Package scheduler runs the phase countdown shown to the class during the
// expert and teaching phases.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// DefaultTickInterval is the production countdown resolution.
const DefaultTickInterval = time.Second

// TimerRecorder receives countdown state for metrics.
type TimerRecorder interface {
	SetTimerRunning(running bool)
}

// ══════════════════════════════════════════════════════════════════════════════
// COUNTDOWN
// ══════════════════════════════════════════════════════════════════════════════

// Countdown is a single cancelable countdown. It never touches session
// state: it only publishes timer events and calls OnComplete.
type Countdown struct {
	mu sync.Mutex

	tick       time.Duration
	publisher  shared.EventPublisher
	log        *logger.Logger
	recorder   TimerRecorder
	onComplete func(Status)

	running   bool
	ending    bool // the current run is being stopped or has hit zero
	sessionID string
	phase     string
	total     time.Duration
	remaining time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

// CountdownConfig contains configuration for Countdown.
type CountdownConfig struct {
	// TickInterval defaults to DefaultTickInterval. Each tick subtracts
	// one interval from the remaining time.
	TickInterval time.Duration

	Publisher shared.EventPublisher
	Logger    *logger.Logger
	Recorder  TimerRecorder

	// OnComplete runs on the countdown goroutine when time runs out.
	OnComplete func(Status)
}

// Status is a point-in-time view of the countdown.
type Status struct {
	Running   bool          `json:"running"`
	SessionID string        `json:"session_id,omitempty"`
	Phase     string        `json:"phase,omitempty"`
	Total     time.Duration `json:"total"`
	Remaining time.Duration `json:"remaining"`
}

// Display returns Remaining formatted as m:ss.
func (s Status) Display() string {
	return FormatRemaining(s.Remaining)
}

// NewCountdown creates an idle countdown.
func NewCountdown(config CountdownConfig) *Countdown {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Publisher == nil {
		config.Publisher = shared.NopPublisher{}
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	return &Countdown{
		tick:       config.TickInterval,
		publisher:  config.Publisher,
		log:        config.Logger.With(logger.Component("countdown")),
		recorder:   config.Recorder,
		onComplete: config.OnComplete,
	}
}

// Start begins counting down duration for the given session phase.
// The countdown also stops when ctx is canceled.
func (c *Countdown) Start(ctx context.Context, sessionID, phase string, duration time.Duration) error {
	if duration <= 0 {
		return shared.ErrTimerNoDuration
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return shared.ErrTimerAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.ending = false
	c.sessionID = sessionID
	c.phase = phase
	c.total = duration
	c.remaining = duration
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.setRunning(true)
	c.publish(shared.EventTimerStarted, duration)
	c.log.Info("countdown started",
		logger.SessionID(sessionID),
		logger.Phase(phase),
		logger.Duration("duration", duration),
	)

	go c.run(runCtx, cancel, done)
	return nil
}

// Stop cancels a running countdown and waits for its goroutine to exit.
func (c *Countdown) Stop() error {
	c.mu.Lock()
	if !c.running || c.ending {
		c.mu.Unlock()
		return shared.ErrTimerNotRunning
	}
	c.ending = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done

	status := c.Status()
	c.publish(shared.EventTimerStopped, status.Remaining)
	c.log.Info("countdown stopped",
		logger.Phase(status.Phase),
		logger.String("remaining", status.Display()),
	)
	return nil
}

// Remaining returns the time left and whether the countdown is running.
func (c *Countdown) Remaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.running
}

// Status returns the current countdown state.
func (c *Countdown) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Running:   c.running,
		SessionID: c.sessionID,
		Phase:     c.phase,
		Total:     c.total,
		Remaining: c.remaining,
	}
}

// Done returns a channel closed when the current run ends, or nil when
// the countdown was never started.
func (c *Countdown) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOP
// ══════════════════════════════════════════════════════════════════════════════

func (c *Countdown) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	completed := false
	defer func() {
		cancel()

		c.mu.Lock()
		c.running = false
		status := Status{SessionID: c.sessionID, Phase: c.phase, Total: c.total, Remaining: c.remaining}
		c.mu.Unlock()

		c.setRunning(false)
		close(done)

		if completed && c.onComplete != nil {
			c.onComplete(status)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining, ok := c.advance()
			if !ok {
				return
			}
			if remaining > 0 {
				c.publish(shared.EventTimerTicked, remaining)
				continue
			}

			completed = true
			c.publish(shared.EventTimerCompleted, 0)
			c.log.Info("countdown completed", logger.Phase(c.Status().Phase))
			return
		}
	}
}

// advance subtracts one tick. ok is false when Stop has already claimed
// the run. The final tick claims the run itself, so a late Stop reports
// ErrTimerNotRunning instead of publishing timer.stopped.
func (c *Countdown) advance() (remaining time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ending {
		return c.remaining, false
	}
	c.remaining -= c.tick
	if c.remaining <= 0 {
		c.remaining = 0
		c.ending = true
	}
	return c.remaining, true
}

func (c *Countdown) publish(eventType shared.EventType, remaining time.Duration) {
	c.mu.Lock()
	sessionID, phase, total := c.sessionID, c.phase, c.total
	c.mu.Unlock()

	event := shared.NewTimerEvent(eventType, sessionID, phase, remaining, total)
	if err := c.publisher.Publish(event); err != nil {
		c.log.Warn("failed to publish timer event",
			logger.String("event_type", string(eventType)),
			logger.Err(err),
		)
	}
}

func (c *Countdown) setRunning(running bool) {
	if c.recorder != nil {
		c.recorder.SetTimerRunning(running)
	}
}

// FormatRemaining renders d as m:ss, truncating to whole seconds.
// Negative values render as 0:00.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

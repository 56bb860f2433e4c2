package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// START TIMER
// ══════════════════════════════════════════════════════════════════════════════

// StartTimerCommand starts the countdown for the current phase.
type StartTimerCommand struct {
	// Duration overrides the configured phase duration when non-zero.
	// It must lie within MinPhaseMinutes..MaxPhaseMinutes.
	Duration time.Duration
}

// StartTimerResult describes the started countdown.
type StartTimerResult struct {
	Phase    jigsaw.Phase
	Duration time.Duration
}

// StartTimerHandler handles StartTimerCommand.
type StartTimerHandler struct {
	deps Dependencies
}

// Handle picks the duration from the phase (expert or teaching) and starts
// the countdown on the long-lived base context.
func (h *StartTimerHandler) Handle(ctx context.Context, cmd StartTimerCommand) (StartTimerResult, error) {
	if h.deps.Timer == nil {
		return StartTimerResult{}, fmt.Errorf("start_timer: %w", shared.ErrTimerUnavailable)
	}
	if cmd.Duration != 0 && !validTimerOverride(cmd.Duration) {
		return StartTimerResult{}, fmt.Errorf("start_timer: %w", shared.ErrDurationOutOfRange)
	}

	var (
		result    StartTimerResult
		sessionID string
	)
	err := h.deps.Store.View(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		result.Phase = s.Phase()
		switch s.Phase() {
		case jigsaw.PhaseExpertGroups:
			result.Duration = s.ExpertDuration()
		case jigsaw.PhaseTeaching:
			result.Duration = s.TeachingDuration()
		default:
			return shared.ErrTimerWrongPhase
		}
		return nil
	})
	if err != nil {
		return StartTimerResult{}, fmt.Errorf("start_timer: %w", err)
	}
	if cmd.Duration != 0 {
		result.Duration = cmd.Duration
	}

	if err := h.deps.Timer.Start(h.deps.BaseContext, sessionID, result.Phase.String(), result.Duration); err != nil {
		return StartTimerResult{}, fmt.Errorf("start_timer: %w", err)
	}
	return result, nil
}

func validTimerOverride(d time.Duration) bool {
	return d >= MinPhaseMinutes*time.Minute && d <= MaxPhaseMinutes*time.Minute
}

// ══════════════════════════════════════════════════════════════════════════════
// STOP TIMER
// ══════════════════════════════════════════════════════════════════════════════

// StopTimerCommand stops the running countdown.
type StopTimerCommand struct{}

// StopTimerHandler handles StopTimerCommand.
type StopTimerHandler struct {
	deps Dependencies
}

// Handle executes the command.
func (h *StopTimerHandler) Handle(_ context.Context, _ StopTimerCommand) error {
	if h.deps.Timer == nil {
		return fmt.Errorf("stop_timer: %w", shared.ErrTimerUnavailable)
	}
	if err := h.deps.Timer.Stop(); err != nil {
		return fmt.Errorf("stop_timer: %w", err)
	}
	return nil
}

package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE GROUPS
// ══════════════════════════════════════════════════════════════════════════════

// GenerateGroupsCommand assigns topics and builds home groups.
type GenerateGroupsCommand struct {
	// AllowSmall skips the 2-topic / 4-student gate. Generation still
	// does nothing when topics or students are empty.
	AllowSmall bool
}

// GenerateGroupsResult describes one generation run.
type GenerateGroupsResult struct {
	Generated  bool
	Phase      jigsaw.Phase
	GroupSizes []int
	Groups     []jigsaw.Group
}

// GenerateGroupsHandler handles GenerateGroupsCommand.
type GenerateGroupsHandler struct {
	deps Dependencies
}

// Handle executes the command.
func (h *GenerateGroupsHandler) Handle(ctx context.Context, cmd GenerateGroupsCommand) (*GenerateGroupsResult, error) {
	var (
		result                   GenerateGroupsResult
		sessionID                string
		topicCount, studentCount int
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		if !cmd.AllowSmall && !s.CanGenerate() {
			return shared.ErrNotEnoughMembers
		}
		sessionID = s.ID()
		result.Generated = s.GenerateGroups()
		result.Phase = s.Phase()
		result.Groups = s.Groups()
		result.GroupSizes = jigsaw.GroupSizes(result.Groups)
		topicCount, studentCount = len(s.Topics()), len(s.Students())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate_groups: %w", err)
	}
	if !result.Generated {
		return &result, nil
	}

	h.deps.Recorder.RecordGeneration(result.GroupSizes)
	h.deps.publish(shared.NewGroupsGeneratedEvent(sessionID, topicCount, studentCount, result.GroupSizes))
	h.deps.Logger.Info("home groups generated",
		logger.SessionID(sessionID),
		logger.Int("topics", topicCount),
		logger.Int("students", studentCount),
		logger.Any("group_sizes", result.GroupSizes),
	)

	return &result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SET PHASE
// ══════════════════════════════════════════════════════════════════════════════

// SetPhaseCommand moves the session to another phase.
type SetPhaseCommand struct {
	Phase string
}

// Validate parses the phase name.
func (c SetPhaseCommand) Validate() (jigsaw.Phase, error) {
	phase, ok := jigsaw.ParsePhase(c.Phase)
	if !ok {
		return "", shared.ErrUnknownPhase
	}
	return phase, nil
}

// SetPhaseHandler handles SetPhaseCommand. A running countdown is stopped
// whenever the phase actually changes.
type SetPhaseHandler struct {
	deps Dependencies
}

// Handle executes the command.
func (h *SetPhaseHandler) Handle(ctx context.Context, cmd SetPhaseCommand) (jigsaw.PhaseChange, error) {
	phase, err := cmd.Validate()
	if err != nil {
		return jigsaw.PhaseChange{}, fmt.Errorf("set_phase: %w", err)
	}

	var (
		change    jigsaw.PhaseChange
		sessionID string
	)
	err = h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		change = s.SetPhase(phase)
		return nil
	})
	if err != nil {
		return jigsaw.PhaseChange{}, fmt.Errorf("set_phase: %w", err)
	}

	if change.From == change.To {
		return change, nil
	}

	h.deps.stopTimer()
	h.deps.Recorder.RecordPhaseChange(change.From.String(), change.To.String())
	h.deps.publish(shared.NewPhaseChangedEvent(sessionID, change.From.String(), change.To.String(), change.GroupsReplaced))
	h.deps.Logger.Info("phase changed",
		logger.SessionID(sessionID),
		logger.String("from", change.From.String()),
		logger.String("to", change.To.String()),
		logger.Bool("groups_replaced", change.GroupsReplaced),
	)

	return change, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET SESSION
// ══════════════════════════════════════════════════════════════════════════════

// ResetSessionCommand returns the session to SETUP and clears all content.
type ResetSessionCommand struct {
	// Confirmed must be true when the session is in TEACHING.
	Confirmed bool
}

// ResetSessionHandler handles ResetSessionCommand.
type ResetSessionHandler struct {
	deps Dependencies
}

// Handle executes the command and returns the phase the session was in.
func (h *ResetSessionHandler) Handle(ctx context.Context, cmd ResetSessionCommand) (jigsaw.Phase, error) {
	var (
		previous  jigsaw.Phase
		sessionID string
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		if s.Phase() == jigsaw.PhaseTeaching && !cmd.Confirmed {
			return shared.ErrResetNotConfirmed
		}
		sessionID = s.ID()
		previous = s.Reset()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reset_session: %w", err)
	}

	h.deps.stopTimer()
	h.deps.Recorder.RecordReset()
	h.deps.publish(shared.NewSessionResetEvent(sessionID, previous.String()))
	h.deps.Logger.Info("session reset", logger.SessionID(sessionID), logger.String("previous_phase", previous.String()))

	return previous, nil
}

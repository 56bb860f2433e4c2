package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// Duration bounds accepted by ConfigureSession, in minutes.
const (
	MinPhaseMinutes = 1
	MaxPhaseMinutes = 120
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURE SESSION
// ══════════════════════════════════════════════════════════════════════════════

// ConfigureSessionCommand changes the main topic and phase durations.
// Nil fields are left unchanged.
type ConfigureSessionCommand struct {
	MainTopic       *string
	ExpertMinutes   *int
	TeachingMinutes *int
}

// Validate checks duration bounds.
func (c ConfigureSessionCommand) Validate() error {
	for _, m := range []*int{c.ExpertMinutes, c.TeachingMinutes} {
		if m != nil && (*m < MinPhaseMinutes || *m > MaxPhaseMinutes) {
			return shared.ErrDurationOutOfRange
		}
	}
	return nil
}

// SessionSettings is the state after ConfigureSession.
type SessionSettings struct {
	MainTopic        string
	ExpertDuration   time.Duration
	TeachingDuration time.Duration
}

// ConfigureSessionHandler handles ConfigureSessionCommand.
type ConfigureSessionHandler struct {
	deps Dependencies
}

// Handle executes the command.
func (h *ConfigureSessionHandler) Handle(ctx context.Context, cmd ConfigureSessionCommand) (SessionSettings, error) {
	if err := cmd.Validate(); err != nil {
		return SessionSettings{}, fmt.Errorf("configure_session: %w", err)
	}

	var (
		settings  SessionSettings
		sessionID string
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		if cmd.MainTopic != nil {
			s.SetMainTopic(*cmd.MainTopic)
		}
		if cmd.ExpertMinutes != nil {
			s.SetExpertDuration(time.Duration(*cmd.ExpertMinutes) * time.Minute)
		}
		if cmd.TeachingMinutes != nil {
			s.SetTeachingDuration(time.Duration(*cmd.TeachingMinutes) * time.Minute)
		}
		settings = SessionSettings{
			MainTopic:        s.MainTopic(),
			ExpertDuration:   s.ExpertDuration(),
			TeachingDuration: s.TeachingDuration(),
		}
		return nil
	})
	if err != nil {
		return SessionSettings{}, fmt.Errorf("configure_session: %w", err)
	}

	h.deps.publish(shared.NewSettingsChangedEvent(sessionID, settings.MainTopic, settings.ExpertDuration, settings.TeachingDuration))
	h.deps.Logger.Debug("session configured",
		logger.SessionID(sessionID),
		logger.Duration("expert", settings.ExpertDuration),
		logger.Duration("teaching", settings.TeachingDuration),
	)

	return settings, nil
}

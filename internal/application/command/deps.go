// Package command contains write operations (CQRS - Commands) on the jigsaw session.
//
// Every handler follows the same shape: validate the command, run exactly one
// Store.Update, then record metrics, publish events and log outside the lock.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Recorder receives session metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordGeneration(groupSizes []int)
	RecordPhaseChange(from, to string)
	RecordReset()
	RecordRosterImport(success bool)
}

// RosterSource returns the student names of a class.
type RosterSource interface {
	FetchNames(ctx context.Context, className string) ([]string, error)
}

// Timer is the phase countdown. *scheduler.Countdown implements it.
type Timer interface {
	Start(ctx context.Context, sessionID, phase string, duration time.Duration) error
	Stop() error
}

// Dependencies are shared by all command handlers.
type Dependencies struct {
	Store     jigsaw.Store
	Publisher shared.EventPublisher
	Recorder  Recorder
	Logger    *logger.Logger

	// Roster is optional; ImportRoster fails with ErrRosterUnavailable without it.
	Roster RosterSource

	// Timer is optional; StartTimer fails with ErrTimerUnavailable without it.
	Timer Timer

	// BaseContext outlives requests and is used for the countdown.
	BaseContext context.Context
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	return d
}

// publish sends events in order; failures are logged and never fail the command.
func (d Dependencies) publish(events ...shared.Event) {
	for _, e := range events {
		if err := d.Publisher.Publish(e); err != nil {
			d.Logger.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.Err(err),
			)
		}
	}
}

// stopTimer stops a running countdown, ignoring "not running".
func (d Dependencies) stopTimer() {
	if d.Timer == nil {
		return
	}
	if err := d.Timer.Stop(); err != nil && !errors.Is(err, shared.ErrTimerNotRunning) {
		d.Logger.Warn("failed to stop countdown", logger.Err(err))
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordGeneration([]int)          {}
func (nopRecorder) RecordPhaseChange(string, string) {}
func (nopRecorder) RecordReset()                     {}
func (nopRecorder) RecordRosterImport(bool)          {}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS BUNDLE
// ══════════════════════════════════════════════════════════════════════════════

// Handlers groups every command handler for wiring into transports.
type Handlers struct {
	AddTopic       *AddTopicHandler
	UpdateTopic    *UpdateTopicHandler
	RemoveTopic    *RemoveTopicHandler
	AddStudent     *AddStudentHandler
	RemoveStudent  *RemoveStudentHandler
	ImportStudents *ImportStudentsHandler
	ImportRoster   *ImportRosterHandler
	GenerateGroups *GenerateGroupsHandler
	SetPhase       *SetPhaseHandler
	ResetSession   *ResetSessionHandler
	Configure      *ConfigureSessionHandler
	StartTimer     *StartTimerHandler
	StopTimer      *StopTimerHandler
}

// NewHandlers creates all command handlers over the same dependencies.
func NewHandlers(deps Dependencies) *Handlers {
	deps = deps.withDefaults()
	return &Handlers{
		AddTopic:       &AddTopicHandler{deps: deps},
		UpdateTopic:    &UpdateTopicHandler{deps: deps},
		RemoveTopic:    &RemoveTopicHandler{deps: deps},
		AddStudent:     &AddStudentHandler{deps: deps},
		RemoveStudent:  &RemoveStudentHandler{deps: deps},
		ImportStudents: &ImportStudentsHandler{deps: deps},
		ImportRoster:   &ImportRosterHandler{deps: deps},
		GenerateGroups: &GenerateGroupsHandler{deps: deps},
		SetPhase:       &SetPhaseHandler{deps: deps},
		ResetSession:   &ResetSessionHandler{deps: deps},
		Configure:      &ConfigureSessionHandler{deps: deps},
		StartTimer:     &StartTimerHandler{deps: deps},
		StopTimer:      &StopTimerHandler{deps: deps},
	}
}

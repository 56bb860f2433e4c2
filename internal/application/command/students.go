package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentCommand adds one student by name.
type AddStudentCommand struct {
	Name string
}

// Validate validates the command.
func (c AddStudentCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.ErrEmptyName
	}
	return nil
}

// AddStudentHandler handles AddStudentCommand.
type AddStudentHandler struct {
	deps Dependencies
}

// Handle executes the command and returns the created student.
func (h *AddStudentHandler) Handle(ctx context.Context, cmd AddStudentCommand) (jigsaw.Student, error) {
	if err := cmd.Validate(); err != nil {
		return jigsaw.Student{}, fmt.Errorf("add_student: %w", err)
	}

	added, err := importNames(ctx, h.deps, []string{cmd.Name})
	if err != nil {
		return jigsaw.Student{}, fmt.Errorf("add_student: %w", err)
	}
	if len(added) == 0 {
		return jigsaw.Student{}, fmt.Errorf("add_student: %w", shared.ErrEmptyName)
	}
	return added[0], nil
}

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// ImportStudentsCommand adds many students at once. Names and Text are
// combined; Text is split on commas and newlines.
type ImportStudentsCommand struct {
	Names []string
	Text  string
}

// names returns the trimmed non-empty names of the command.
func (c ImportStudentsCommand) names() []string {
	out := make([]string, 0, len(c.Names))
	for _, n := range c.Names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return append(out, jigsaw.ParseNames(c.Text)...)
}

// Validate validates the command.
func (c ImportStudentsCommand) Validate() error {
	if len(c.names()) == 0 {
		return shared.ErrEmptyName
	}
	return nil
}

// ImportStudentsHandler handles ImportStudentsCommand.
type ImportStudentsHandler struct {
	deps Dependencies
}

// Handle executes the command and returns the students that were added.
func (h *ImportStudentsHandler) Handle(ctx context.Context, cmd ImportStudentsCommand) ([]jigsaw.Student, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("import_students: %w", err)
	}

	added, err := importNames(ctx, h.deps, cmd.names())
	if err != nil {
		return nil, fmt.Errorf("import_students: %w", err)
	}
	return added, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// ImportRosterCommand imports the students of a class from the school roster.
type ImportRosterCommand struct {
	ClassName string
}

// Validate validates the command.
func (c ImportRosterCommand) Validate() error {
	if strings.TrimSpace(c.ClassName) == "" {
		return shared.ErrRosterClassEmpty
	}
	return nil
}

// ImportRosterHandler handles ImportRosterCommand.
type ImportRosterHandler struct {
	deps Dependencies
}

// Handle fetches the class list and adds it to the session.
// An empty class adds nobody and is not an error.
func (h *ImportRosterHandler) Handle(ctx context.Context, cmd ImportRosterCommand) ([]jigsaw.Student, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("import_roster: %w", err)
	}
	if h.deps.Roster == nil {
		return nil, fmt.Errorf("import_roster: %w", shared.ErrRosterUnavailable)
	}

	names, err := h.deps.Roster.FetchNames(ctx, cmd.ClassName)
	if err != nil {
		h.deps.Recorder.RecordRosterImport(false)
		h.deps.Logger.Error("roster fetch failed",
			logger.String("class", cmd.ClassName),
			logger.Err(err),
		)
		return nil, fmt.Errorf("import_roster: %w", err)
	}
	h.deps.Recorder.RecordRosterImport(true)

	if len(names) == 0 {
		return []jigsaw.Student{}, nil
	}

	added, err := importNames(ctx, h.deps, names)
	if err != nil {
		return nil, fmt.Errorf("import_roster: %w", err)
	}

	h.deps.Logger.Info("roster imported",
		logger.String("class", cmd.ClassName),
		logger.Int("students", len(added)),
	)
	return added, nil
}

// importNames adds names in one Update and publishes one event.
func importNames(ctx context.Context, deps Dependencies, names []string) ([]jigsaw.Student, error) {
	var (
		added     []jigsaw.Student
		total     int
		sessionID string
	)
	err := deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		added = s.ImportStudents(names)
		total = len(s.Students())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return added, nil
	}

	ids := make([]string, len(added))
	for i, st := range added {
		ids[i] = st.ID
	}
	deps.publish(shared.NewStudentsChangedEvent(shared.EventStudentsAdded, sessionID, ids, total))
	deps.Logger.Debug("students added",
		logger.SessionID(sessionID),
		logger.Int("added", len(added)),
		logger.Int("total", total),
	)
	return added, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// RemoveStudentCommand removes a student from the roster and from all groups.
type RemoveStudentCommand struct {
	StudentID string
}

// RemoveStudentHandler handles RemoveStudentCommand.
type RemoveStudentHandler struct {
	deps Dependencies
}

// Handle executes the command.
func (h *RemoveStudentHandler) Handle(ctx context.Context, cmd RemoveStudentCommand) error {
	var (
		total     int
		sessionID string
	)
	err := h.deps.Store.Update(ctx, func(s *jigsaw.Session) error {
		sessionID = s.ID()
		if _, ok := s.RemoveStudent(cmd.StudentID); !ok {
			return shared.ErrStudentNotFound
		}
		total = len(s.Students())
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove_student: %w", err)
	}

	h.deps.publish(shared.NewStudentsChangedEvent(shared.EventStudentRemoved, sessionID, []string{cmd.StudentID}, total))
	h.deps.Logger.Info("student removed", logger.SessionID(sessionID), logger.StudentID(cmd.StudentID))

	return nil
}

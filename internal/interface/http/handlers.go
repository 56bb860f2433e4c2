package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/application/command"
	"github.com/alem-hub/jigsaw-mixer/internal/application/query"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Jigsaw Mixer API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":   "/health",
			"session":  "/api/v1/session",
			"topics":   "/api/v1/topics",
			"students": "/api/v1/students",
			"timer":    "/api/v1/timer",
			"metrics":  "/metrics",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSession handles GET /api/v1/session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSession == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Session query not configured")
		return
	}

	view, err := s.deps.GetSession.Handle(r.Context(), query.GetSessionQuery{})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type settingsRequest struct {
	MainTopic       *string `json:"main_topic"`
	ExpertMinutes   *int    `json:"expert_minutes"`
	TeachingMinutes *int    `json:"teaching_minutes"`
}

type settingsResponse struct {
	MainTopic       string `json:"main_topic"`
	ExpertMinutes   int    `json:"expert_minutes"`
	TeachingMinutes int    `json:"teaching_minutes"`
}

// handleConfigure handles PUT /api/v1/session/settings
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !s.decode(w, r, &req) {
		return
	}

	settings, err := s.deps.Commands.Configure.Handle(r.Context(), command.ConfigureSessionCommand{
		MainTopic:       req.MainTopic,
		ExpertMinutes:   req.ExpertMinutes,
		TeachingMinutes: req.TeachingMinutes,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		MainTopic:       settings.MainTopic,
		ExpertMinutes:   int(settings.ExpertDuration / time.Minute),
		TeachingMinutes: int(settings.TeachingDuration / time.Minute),
	})
}

type generateRequest struct {
	AllowSmall bool `json:"allow_small"`
}

type generateResponse struct {
	Generated  bool           `json:"generated"`
	Phase      string         `json:"phase"`
	GroupSizes []int          `json:"group_sizes"`
	Groups     []jigsaw.Group `json:"groups"`
}

// handleGenerate handles POST /api/v1/session/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Commands.GenerateGroups.Handle(r.Context(), command.GenerateGroupsCommand{AllowSmall: req.AllowSmall})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Generated:  res.Generated,
		Phase:      res.Phase.String(),
		GroupSizes: res.GroupSizes,
		Groups:     res.Groups,
	})
}

type phaseRequest struct {
	Phase string `json:"phase"`
}

type phaseResponse struct {
	From           string `json:"from"`
	To             string `json:"to"`
	GroupsReplaced bool   `json:"groups_replaced"`
}

// handleSetPhase handles POST /api/v1/session/phase
func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if !s.decode(w, r, &req) {
		return
	}

	change, err := s.deps.Commands.SetPhase.Handle(r.Context(), command.SetPhaseCommand{Phase: req.Phase})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phaseResponse{
		From:           change.From.String(),
		To:             change.To.String(),
		GroupsReplaced: change.GroupsReplaced,
	})
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// handleReset handles POST /api/v1/session/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.decode(w, r, &req) {
		return
	}

	previous, err := s.deps.Commands.ResetSession.Handle(r.Context(), command.ResetSessionCommand{Confirmed: req.Confirm})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"previous_phase": previous.String(),
		"phase":          jigsaw.PhaseSetup.String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type topicRequest struct {
	Title string `json:"title"`
}

// handleAddTopic handles POST /api/v1/topics
func (s *Server) handleAddTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if !s.decode(w, r, &req) {
		return
	}

	topic, err := s.deps.Commands.AddTopic.Handle(r.Context(), command.AddTopicCommand{Title: req.Title})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

// handleUpdateTopic handles PATCH /api/v1/topics/{id}
func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	var patch jigsaw.TopicPatch
	if !s.decode(w, r, &patch) {
		return
	}

	topic, err := s.deps.Commands.UpdateTopic.Handle(r.Context(), command.UpdateTopicCommand{
		TopicID: r.PathValue("id"),
		Patch:   patch,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// handleRemoveTopic handles DELETE /api/v1/topics/{id}
func (s *Server) handleRemoveTopic(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Commands.RemoveTopic.Handle(r.Context(), command.RemoveTopicCommand{TopicID: r.PathValue("id")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type studentRequest struct {
	Name string `json:"name"`
}

type importRequest struct {
	Names []string `json:"names"`
	Text  string   `json:"text"`
}

type rosterRequest struct {
	Class string `json:"class"`
}

// handleAddStudent handles POST /api/v1/students
func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if !s.decode(w, r, &req) {
		return
	}

	st, err := s.deps.Commands.AddStudent.Handle(r.Context(), command.AddStudentCommand{Name: req.Name})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// handleImportStudents handles POST /api/v1/students/import
func (s *Server) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decode(w, r, &req) {
		return
	}

	added, err := s.deps.Commands.ImportStudents.Handle(r.Context(), command.ImportStudentsCommand{
		Names: req.Names,
		Text:  req.Text,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// handleImportRoster handles POST /api/v1/students/roster
func (s *Server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if !s.decode(w, r, &req) {
		return
	}

	added, err := s.deps.Commands.ImportRoster.Handle(r.Context(), command.ImportRosterCommand{ClassName: req.Class})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

// handleRemoveStudent handles DELETE /api/v1/students/{id}
func (s *Server) handleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Commands.RemoveStudent.Handle(r.Context(), command.RemoveStudentCommand{StudentID: r.PathValue("id")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// TIMER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type timerRequest struct {
	// Seconds overrides the phase duration when non-zero.
	Seconds int `json:"seconds"`
}

type timerResponse struct {
	Phase   string `json:"phase"`
	Seconds int64  `json:"seconds"`
}

// handleStartTimer handles POST /api/v1/timer/start
func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !s.decode(w, r, &req) {
		return
	}
	// Checked before the multiplication, which overflows for huge values.
	if req.Seconds < 0 || req.Seconds > command.MaxPhaseMinutes*60 {
		s.writeDomainError(w, r, shared.ErrDurationOutOfRange)
		return
	}

	res, err := s.deps.Commands.StartTimer.Handle(r.Context(), command.StartTimerCommand{
		Duration: time.Duration(req.Seconds) * time.Second,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, timerResponse{
		Phase:   res.Phase.String(),
		Seconds: int64(res.Duration / time.Second),
	})
}

// handleStopTimer handles POST /api/v1/timer/stop
func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Commands.StopTimer.Handle(r.Context(), command.StopTimerCommand{}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// writeDomainError maps domain error kinds to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.String("path", r.URL.Path), logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("path", r.URL.Path), logger.Err(err))
	}

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}
	writeJSONError(w, status, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrResetNotConfirmed):
		return http.StatusConflict, "confirmation_required"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case shared.IsExternalService(err):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

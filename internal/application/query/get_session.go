// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SESSION QUERY
// Возвращает полное представление занятия для отображения: темы, учеников
// с назначенными темами, текущие группы с именами участников и таймер.
// ══════════════════════════════════════════════════════════════════════════════

// UnassignedLabel показывается вместо темы, если ученику она не назначена
// или назначенная тема удалена.
const UnassignedLabel = "unassigned"

// TimerStatus сообщает состояние обратного отсчёта.
// *scheduler.Countdown реализует этот интерфейс.
type TimerStatus interface {
	Remaining() (time.Duration, bool)
}

// GetSessionQuery не имеет параметров: занятие одно на процесс.
type GetSessionQuery struct{}

// SessionView - DTO с полным состоянием занятия.
type SessionView struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Настройки
	// ─────────────────────────────────────────────────────────────────────────

	ID              string `json:"id"`
	Phase           string `json:"phase"`
	MainTopic       string `json:"main_topic"`
	ExpertMinutes   int    `json:"expert_minutes"`
	TeachingMinutes int    `json:"teaching_minutes"`
	CanGenerate     bool   `json:"can_generate"`

	// ─────────────────────────────────────────────────────────────────────────
	// Содержимое
	// ─────────────────────────────────────────────────────────────────────────

	Topics   []jigsaw.Topic `json:"topics"`
	Students []StudentView  `json:"students"`
	Groups   []GroupView    `json:"groups"`

	// Timer - nil, если таймер не настроен.
	Timer *TimerView `json:"timer,omitempty"`
}

// StudentView - ученик с названием назначенной темы.
type StudentView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TopicID    string `json:"topic_id,omitempty"`
	TopicTitle string `json:"topic_title"`
	TopicColor string `json:"topic_color,omitempty"`
}

// GroupView - группа с разрешёнными именами участников.
type GroupView struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Name       string        `json:"name"`
	TopicID    string        `json:"topic_id,omitempty"`
	TopicTitle string        `json:"topic_title,omitempty"`
	Members    []StudentView `json:"members"`
}

// Size возвращает количество участников.
func (g GroupView) Size() int {
	return len(g.Members)
}

// TimerView - состояние обратного отсчёта.
type TimerView struct {
	Running          bool  `json:"running"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// GetSessionHandler обрабатывает GetSessionQuery.
type GetSessionHandler struct {
	store jigsaw.Store
	timer TimerStatus
}

// NewGetSessionHandler создаёт обработчик. timer может быть nil.
func NewGetSessionHandler(store jigsaw.Store, timer TimerStatus) *GetSessionHandler {
	return &GetSessionHandler{store: store, timer: timer}
}

// Handle выполняет запрос.
func (h *GetSessionHandler) Handle(ctx context.Context, _ GetSessionQuery) (*SessionView, error) {
	var view SessionView
	err := h.store.View(ctx, func(s *jigsaw.Session) error {
		view = buildView(s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get_session: %w", err)
	}

	if h.timer != nil {
		remaining, running := h.timer.Remaining()
		view.Timer = &TimerView{
			Running:          running,
			RemainingSeconds: int64(remaining / time.Second),
		}
	}

	return &view, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func buildView(s *jigsaw.Session) SessionView {
	topics := s.Topics()
	students := s.Students()
	groups := s.Groups()

	topicByID := make(map[string]jigsaw.Topic, len(topics))
	for _, t := range topics {
		topicByID[t.ID] = t
	}

	studentViews := make([]StudentView, len(students))
	byID := make(map[string]StudentView, len(students))
	for i, st := range students {
		sv := StudentView{ID: st.ID, Name: st.Name, TopicTitle: UnassignedLabel}
		if t, ok := topicByID[st.AssignedTopicID]; ok && st.AssignedTopicID != "" {
			sv.TopicID, sv.TopicTitle, sv.TopicColor = t.ID, t.Title, t.Color
		}
		studentViews[i] = sv
		byID[st.ID] = sv
	}

	groupViews := make([]GroupView, len(groups))
	for i, g := range groups {
		gv := GroupView{
			ID:      g.ID,
			Kind:    string(g.Kind),
			Name:    g.Name,
			TopicID: g.TopicID,
			Members: make([]StudentView, 0, len(g.StudentIDs)),
		}
		if t, ok := topicByID[g.TopicID]; ok {
			gv.TopicTitle = t.Title
		}
		for _, id := range g.StudentIDs {
			if sv, ok := byID[id]; ok {
				gv.Members = append(gv.Members, sv)
			}
		}
		groupViews[i] = gv
	}

	return SessionView{
		ID:              s.ID(),
		Phase:           s.Phase().String(),
		MainTopic:       s.MainTopic(),
		ExpertMinutes:   int(s.ExpertDuration() / time.Minute),
		TeachingMinutes: int(s.TeachingDuration() / time.Minute),
		CanGenerate:     s.CanGenerate(),
		Topics:          topics,
		Students:        studentViews,
		Groups:          groupViews,
	}
}

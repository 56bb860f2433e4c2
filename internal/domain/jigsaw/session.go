package jigsaw

import (
	"math/rand/v2"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultExpertDuration - длительность экспертной фазы по умолчанию.
	DefaultExpertDuration = 15 * time.Minute

	// DefaultTeachingDuration - длительность фазы обучения по умолчанию.
	DefaultTeachingDuration = 10 * time.Minute

	// MinTopicsToGenerate и MinStudentsToGenerate - порог, при котором
	// интерфейс разрешает распределение.
	MinTopicsToGenerate   = 2
	MinStudentsToGenerate = 4
)

// Session - агрегат одного занятия: темы, ученики, группы, снимок
// домашних групп, текущий этап и настройки таймеров.
//
// Все операции тотальны: неизвестные идентификаторы и пустой ввод
// молча игнорируются. Session не потокобезопасна, синхронизацию
// обеспечивает Store.
type Session struct {
	id        string
	mainTopic string
	state     State

	expertDuration   time.Duration
	teachingDuration time.Duration

	shuffler Shuffler
	newID    IDGenerator
	factory  GroupFactory
}

// Option настраивает Session.
type Option func(*Session)

// WithShuffler задаёт источник случайности для назначения тем.
func WithShuffler(sh Shuffler) Option {
	return func(s *Session) {
		if sh != nil {
			s.shuffler = sh
		}
	}
}

// WithRand использует r как источник перемешивания.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		return func(*Session) {}
	}
	return WithShuffler(r)
}

// WithIDGenerator задаёт генератор идентификаторов тем, учеников и групп.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Session) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithGroupNames задаёт префиксы имён домашних и экспертных групп.
func WithGroupNames(homePrefix, expertPrefix string) Option {
	return func(s *Session) {
		if homePrefix != "" {
			s.factory.HomePrefix = homePrefix
		}
		if expertPrefix != "" {
			s.factory.ExpertPrefix = expertPrefix
		}
	}
}

// WithDurations задаёт длительности экспертной фазы и фазы обучения.
func WithDurations(expert, teaching time.Duration) Option {
	return func(s *Session) {
		s.expertDuration = expert
		s.teachingDuration = teaching
	}
}

// NewSession создаёт пустую сессию в этапе SETUP.
func NewSession(opts ...Option) *Session {
	s := &Session{
		state:            State{Phase: PhaseSetup},
		expertDuration:   DefaultExpertDuration,
		teachingDuration: DefaultTeachingDuration,
		shuffler:         globalShuffler{},
		newID:            SequentialIDs("id"),
		factory:          DefaultGroupFactory(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.factory.NewID = s.newID
	s.id = s.newID()
	return s
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors (возвращают копии)
// ─────────────────────────────────────────────────────────────────────────────

// ID возвращает идентификатор сессии.
func (s *Session) ID() string { return s.id }

// Phase возвращает текущий этап.
func (s *Session) Phase() Phase { return s.state.Phase }

// MainTopic возвращает общую тему занятия.
func (s *Session) MainTopic() string { return s.mainTopic }

// ExpertDuration возвращает длительность экспертной фазы.
func (s *Session) ExpertDuration() time.Duration { return s.expertDuration }

// TeachingDuration возвращает длительность фазы обучения.
func (s *Session) TeachingDuration() time.Duration { return s.teachingDuration }

// Topics возвращает копию списка тем.
func (s *Session) Topics() []Topic {
	return append([]Topic(nil), s.state.Topics...)
}

// Students возвращает копию списка учеников.
func (s *Session) Students() []Student {
	return append([]Student(nil), s.state.Students...)
}

// Groups возвращает глубокую копию текущих групп.
func (s *Session) Groups() []Group {
	return cloneGroups(s.state.Groups)
}

// HomeSnapshot возвращает глубокую копию снимка домашних групп.
func (s *Session) HomeSnapshot() []Group {
	return cloneGroups(s.state.HomeSnapshot)
}

// Topic ищет тему по идентификатору.
func (s *Session) Topic(id string) (Topic, bool) {
	for _, t := range s.state.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// TopicOf возвращает назначенную ученику тему. Ссылка на удалённую
// тему считается отсутствием назначения.
func (s *Session) TopicOf(studentID string) (Topic, bool) {
	for _, st := range s.state.Students {
		if st.ID == studentID {
			if st.AssignedTopicID == "" {
				return Topic{}, false
			}
			return s.Topic(st.AssignedTopicID)
		}
	}
	return Topic{}, false
}

// CanGenerate сообщает, достаточно ли тем и учеников для распределения.
func (s *Session) CanGenerate() bool {
	return len(s.state.Topics) >= MinTopicsToGenerate && len(s.state.Students) >= MinStudentsToGenerate
}

// ─────────────────────────────────────────────────────────────────────────────
// Setup
// ─────────────────────────────────────────────────────────────────────────────

// SetMainTopic задаёт общую тему занятия.
func (s *Session) SetMainTopic(text string) {
	s.mainTopic = strings.TrimSpace(text)
}

// SetExpertDuration задаёт длительность экспертной фазы. Границы проверяет вызывающий.
func (s *Session) SetExpertDuration(d time.Duration) {
	s.expertDuration = d
}

// SetTeachingDuration задаёт длительность фазы обучения. Границы проверяет вызывающий.
func (s *Session) SetTeachingDuration(d time.Duration) {
	s.teachingDuration = d
}

// AddTopic добавляет тему с цветом palette[len(topics) mod len(palette)].
// Пустой заголовок игнорируется.
func (s *Session) AddTopic(title string) (Topic, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Topic{}, false
	}

	t := Topic{
		ID:    s.newID(),
		Title: title,
		Color: ColorFor(len(s.state.Topics)),
	}
	s.state.Topics = append(s.state.Topics, t)
	return t, true
}

// UpdateTopic сливает patch с темой id. Неизвестный id - no-op.
func (s *Session) UpdateTopic(id string, patch TopicPatch) (Topic, bool) {
	for i, t := range s.state.Topics {
		if t.ID == id {
			s.state.Topics[i] = patch.apply(t)
			return s.state.Topics[i], true
		}
	}
	return Topic{}, false
}

// RemoveTopic удаляет тему. Назначения учеников не очищаются:
// ссылки на удалённую тему читаются как "не назначено".
func (s *Session) RemoveTopic(id string) (Topic, bool) {
	for i, t := range s.state.Topics {
		if t.ID == id {
			s.state.Topics = append(s.state.Topics[:i:i], s.state.Topics[i+1:]...)
			return t, true
		}
	}
	return Topic{}, false
}

// AddStudent добавляет ученика. Пустое имя игнорируется.
func (s *Session) AddStudent(name string) (Student, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Student{}, false
	}

	st := Student{ID: s.newID(), Name: name}
	s.state.Students = append(s.state.Students, st)
	return st, true
}

// ImportStudents добавляет учеников списком, пропуская пустые имена.
func (s *Session) ImportStudents(names []string) []Student {
	added := make([]Student, 0, len(names))
	for _, name := range names {
		if st, ok := s.AddStudent(name); ok {
			added = append(added, st)
		}
	}
	return added
}

// RemoveStudent удаляет ученика и убирает его из текущих групп и снимка,
// чтобы каждая ссылка в группах указывала на существующего ученика.
func (s *Session) RemoveStudent(id string) (Student, bool) {
	for i, st := range s.state.Students {
		if st.ID == id {
			s.state.Students = append(s.state.Students[:i:i], s.state.Students[i+1:]...)
			s.state.Groups = withoutMember(s.state.Groups, id)
			s.state.HomeSnapshot = withoutMember(s.state.HomeSnapshot, id)
			return st, true
		}
	}
	return Student{}, false
}

func withoutMember(groups []Group, studentID string) []Group {
	for gi := range groups {
		ids := groups[gi].StudentIDs
		for i, id := range ids {
			if id == studentID {
				groups[gi].StudentIDs = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
	return groups
}

// ─────────────────────────────────────────────────────────────────────────────
// Grouping
// ─────────────────────────────────────────────────────────────────────────────

// GenerateGroups назначает темы, строит домашние группы, сохраняет снимок
// и переводит сессию в HOME_GROUPS. Без тем или учеников - no-op (false).
func (s *Session) GenerateGroups() bool {
	if len(s.state.Topics) == 0 || len(s.state.Students) == 0 {
		return false
	}

	assigned := AssignTopics(s.state.Students, s.state.Topics, s.shuffler)
	homeGroups := PartitionHomeGroups(assigned, s.state.Topics, s.factory)

	s.state.Students = assigned
	s.state.Groups = homeGroups
	s.state.HomeSnapshot = cloneGroups(homeGroups)
	s.state.Phase = PhaseHomeGroups
	return true
}

// SetPhase выполняет переход по правилам Transition.
func (s *Session) SetPhase(to Phase) PhaseChange {
	next, change := Transition(s.state, to, s.factory)
	s.state = next
	return change
}

// Reset возвращает сессию в SETUP: очищает общую тему, темы, учеников,
// группы и снимок. Длительности таймеров сохраняются.
func (s *Session) Reset() Phase {
	previous := s.state.Phase
	s.mainTopic = ""
	s.state = State{Phase: PhaseSetup}
	return previous
}

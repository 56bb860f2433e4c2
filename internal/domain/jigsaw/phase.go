package jigsaw

import (
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// PHASE
// ══════════════════════════════════════════════════════════════════════════════

// Phase - этап занятия.
type Phase string

const (
	// PhaseSetup - подготовка: темы и список учеников.
	PhaseSetup Phase = "SETUP"
	// PhaseHomeGroups - ученики видят свои домашние группы и темы.
	PhaseHomeGroups Phase = "HOME_GROUPS"
	// PhaseExpertGroups - работа в экспертных группах.
	PhaseExpertGroups Phase = "EXPERT_GROUPS"
	// PhaseTeaching - возврат в домашние группы и взаимное обучение.
	PhaseTeaching Phase = "TEACHING"
)

// AllPhases возвращает этапы в порядке прохождения.
func AllPhases() []Phase {
	return []Phase{PhaseSetup, PhaseHomeGroups, PhaseExpertGroups, PhaseTeaching}
}

// IsValid проверяет, что этап известен.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseSetup, PhaseHomeGroups, PhaseExpertGroups, PhaseTeaching:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление этапа.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase разбирает этап без учёта регистра ("expert_groups", "Teaching").
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.IsValid()
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

// State - часть сессии, которой управляет машина этапов.
type State struct {
	Topics       []Topic
	Students     []Student
	Groups       []Group
	HomeSnapshot []Group
	Phase        Phase
}

// PhaseChange описывает результат перехода.
type PhaseChange struct {
	From           Phase
	To             Phase
	GroupsReplaced bool
}

// Transition - чистая функция перехода (state, phase) -> state.
//
//   - вход в EXPERT_GROUPS из другого этапа пересобирает экспертные группы;
//   - EXPERT_GROUPS -> TEACHING восстанавливает снимок домашних групп, если он не пуст;
//   - любой другой переход меняет только этап.
//
// Неизвестный этап оставляет состояние без изменений.
func Transition(s State, to Phase, factory GroupFactory) (State, PhaseChange) {
	change := PhaseChange{From: s.Phase, To: to}
	if !to.IsValid() {
		change.To = s.Phase
		return s, change
	}

	switch {
	case to == PhaseExpertGroups && s.Phase != PhaseExpertGroups:
		s.Groups = ProjectExpertGroups(s.Students, s.Topics, factory)
		change.GroupsReplaced = true

	case to == PhaseTeaching && s.Phase == PhaseExpertGroups && len(s.HomeSnapshot) > 0:
		s.Groups = cloneGroups(s.HomeSnapshot)
		change.GroupsReplaced = true
	}

	s.Phase = to
	return s, change
}

package jigsaw

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// ══════════════════════════════════════════════════════════════════════════════
// IDENTIFIERS
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator выдаёт новый уникальный идентификатор.
// В продакшене это uuid.NewString, в тестах - SequentialIDs.
type IDGenerator func() string

// SequentialIDs возвращает генератор идентификаторов вида "<prefix>-1", "<prefix>-2", ...
func SequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC
// ══════════════════════════════════════════════════════════════════════════════

// TopicColors - фиксированная палитра цветов тем. Цвет выбирается
// циклически по количеству уже созданных тем.
var TopicColors = []string{
	"#ef4444", // red-500
	"#f97316", // orange-500
	"#eab308", // yellow-500
	"#22c55e", // green-500
	"#06b6d4", // cyan-500
	"#3b82f6", // blue-500
	"#a855f7", // purple-500
	"#ec4899", // pink-500
}

// ColorFor возвращает цвет палитры для темы с порядковым номером index.
func ColorFor(index int) string {
	if index < 0 {
		index = -index
	}
	return TopicColors[index%len(TopicColors)]
}

// Topic - экспертная тема, которую изучает одна экспертная группа.
type Topic struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Color               string `json:"color"`
	MaterialURL         string `json:"material_url,omitempty"`
	MaterialDescription string `json:"material_description,omitempty"`
}

// TopicPatch содержит частичное обновление темы. nil-поля не меняются.
type TopicPatch struct {
	Title               *string `json:"title,omitempty"`
	MaterialURL         *string `json:"material_url,omitempty"`
	MaterialDescription *string `json:"material_description,omitempty"`
}

// apply сливает патч с темой. Пустой заголовок игнорируется.
func (p TopicPatch) apply(t Topic) Topic {
	if p.Title != nil {
		if title := strings.TrimSpace(*p.Title); title != "" {
			t.Title = title
		}
	}
	if p.MaterialURL != nil {
		t.MaterialURL = strings.TrimSpace(*p.MaterialURL)
	}
	if p.MaterialDescription != nil {
		t.MaterialDescription = *p.MaterialDescription
	}
	return t
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - участник занятия.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// AssignedTopicID пуст до первого распределения и перезаписывается
	// при каждом запуске. Ссылка на удалённую тему читается как "не назначено".
	AssignedTopicID string `json:"assigned_topic_id,omitempty"`
}

// HasTopic возвращает true, если студенту назначена тема topicID.
func (s Student) HasTopic(topicID string) bool {
	return s.AssignedTopicID != "" && s.AssignedTopicID == topicID
}

// ParseNames разбивает ввод списка учеников по запятым и переводам строк,
// обрезает пробелы и отбрасывает пустые имена.
func ParseNames(input string) []string {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP
// ══════════════════════════════════════════════════════════════════════════════

// GroupKind определяет тип группы.
type GroupKind string

const (
	// GroupHome - домашняя группа (по одному эксперту на тему).
	GroupHome GroupKind = "HOME"
	// GroupExpert - экспертная группа (все участники с одной темой).
	GroupExpert GroupKind = "EXPERT"
)

// Group - домашняя или экспертная группа.
type Group struct {
	ID         string    `json:"id"`
	Kind       GroupKind `json:"kind"`
	TopicID    string    `json:"topic_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	StudentIDs []string  `json:"student_ids"`
}

// Size возвращает количество участников группы.
func (g Group) Size() int {
	return len(g.StudentIDs)
}

// Contains проверяет, состоит ли студент в группе.
func (g Group) Contains(studentID string) bool {
	for _, id := range g.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// clone возвращает глубокую копию группы.
func (g Group) clone() Group {
	ids := make([]string, len(g.StudentIDs))
	copy(ids, g.StudentIDs)
	g.StudentIDs = ids
	return g
}

func cloneGroups(groups []Group) []Group {
	if groups == nil {
		return nil
	}
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g.clone()
	}
	return out
}

// GroupSizes возвращает размеры групп в исходном порядке.
func GroupSizes(groups []Group) []int {
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = g.Size()
	}
	return sizes
}

// GroupFactory создаёт группы: выдаёт идентификаторы и имена.
type GroupFactory struct {
	NewID IDGenerator

	// HomePrefix - префикс имени домашней группы ("Home Group 1").
	HomePrefix string

	// ExpertPrefix - префикс имени экспертной группы ("Expert Group: Title").
	ExpertPrefix string
}

// DefaultGroupFactory возвращает фабрику с английскими именами групп.
func DefaultGroupFactory(newID IDGenerator) GroupFactory {
	return GroupFactory{
		NewID:        newID,
		HomePrefix:   "Home Group",
		ExpertPrefix: "Expert Group",
	}
}

func (f GroupFactory) id() string {
	if f.NewID == nil {
		return ""
	}
	return f.NewID()
}

// home создаёт пустую домашнюю группу с номером index (с нуля).
func (f GroupFactory) home(index int) Group {
	return Group{
		ID:         f.id(),
		Kind:       GroupHome,
		Name:       fmt.Sprintf("%s %d", f.HomePrefix, index+1),
		StudentIDs: []string{},
	}
}

// expert создаёт пустую экспертную группу для темы.
func (f GroupFactory) expert(t Topic) Group {
	return Group{
		ID:         f.id(),
		Kind:       GroupExpert,
		TopicID:    t.ID,
		Name:       fmt.Sprintf("%s: %s", f.ExpertPrefix, t.Title),
		StudentIDs: []string{},
	}
}

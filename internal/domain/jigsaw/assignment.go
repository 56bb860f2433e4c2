package jigsaw

import (
	"math/rand/v2"
)

// Shuffler переставляет n элементов через swap. *rand.Rand из math/rand/v2
// удовлетворяет этому интерфейсу, что позволяет подставлять seed в тестах.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// globalShuffler использует общий генератор math/rand/v2.
type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// NewSeededShuffler возвращает детерминированный Shuffler.
func NewSeededShuffler(seed uint64) Shuffler {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// AssignTopics назначает каждому студенту ровно одну тему.
//
// Список студентов копируется и случайно перемешивается, затем студент
// на позиции i получает topics[i mod len(topics)]. Количество студентов
// на любые две темы отличается не больше чем на единицу.
//
// Если один из списков пуст, возвращается исходный список без изменений.
// Входной срез никогда не модифицируется.
func AssignTopics(students []Student, topics []Topic, shuffler Shuffler) []Student {
	if len(students) == 0 || len(topics) == 0 {
		return students
	}
	if shuffler == nil {
		shuffler = globalShuffler{}
	}

	shuffled := make([]Student, len(students))
	copy(shuffled, students)
	shuffler.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for i := range shuffled {
		shuffled[i].AssignedTopicID = topics[i%len(topics)].ID
	}

	return shuffled
}

// TopicCounts возвращает количество студентов на каждую тему.
// Студенты с неизвестной темой не учитываются.
func TopicCounts(students []Student, topics []Topic) map[string]int {
	counts := make(map[string]int, len(topics))
	for _, t := range topics {
		counts[t.ID] = 0
	}
	for _, s := range students {
		if _, ok := counts[s.AssignedTopicID]; ok {
			counts[s.AssignedTopicID]++
		}
	}
	return counts
}

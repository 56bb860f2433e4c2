package jigsaw

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTopics(n int) []Topic {
	topics := make([]Topic, n)
	for i := range topics {
		topics[i] = Topic{ID: fmt.Sprintf("t%d", i+1), Title: fmt.Sprintf("Topic %d", i+1), Color: ColorFor(i)}
	}
	return topics
}

func makeStudents(n int) []Student {
	students := make([]Student, n)
	for i := range students {
		students[i] = Student{ID: fmt.Sprintf("s%d", i+1), Name: fmt.Sprintf("Student %d", i+1)}
	}
	return students
}

func TestAssignTopics_Balanced(t *testing.T) {
	cases := []struct{ students, topics int }{
		{8, 4}, {5, 2}, {3, 5}, {13, 4}, {1, 1}, {30, 7},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_students_%d_topics", tc.students, tc.topics), func(t *testing.T) {
			topics := makeTopics(tc.topics)
			assigned := AssignTopics(makeStudents(tc.students), topics, NewSeededShuffler(7))
			require.Len(t, assigned, tc.students)

			counts := TopicCounts(assigned, topics)
			minCount, maxCount := tc.students, 0
			for _, c := range counts {
				minCount = min(minCount, c)
				maxCount = max(maxCount, c)
			}
			assert.LessOrEqual(t, maxCount-minCount, 1)

			for _, s := range assigned {
				assert.NotEmpty(t, s.AssignedTopicID)
			}
		})
	}
}

func TestAssignTopics_KeepsIdentities(t *testing.T) {
	students := makeStudents(10)
	assigned := AssignTopics(students, makeTopics(3), NewSeededShuffler(1))

	seen := make(map[string]string)
	for _, s := range assigned {
		seen[s.ID] = s.Name
	}
	for _, s := range students {
		assert.Equal(t, s.Name, seen[s.ID])
	}
}

func TestAssignTopics_DoesNotMutateInput(t *testing.T) {
	students := makeStudents(4)
	AssignTopics(students, makeTopics(2), NewSeededShuffler(3))

	for i, s := range students {
		assert.Equal(t, fmt.Sprintf("s%d", i+1), s.ID)
		assert.Empty(t, s.AssignedTopicID)
	}
}

func TestAssignTopics_EmptyInputIsNoop(t *testing.T) {
	students := makeStudents(3)

	assert.Equal(t, students, AssignTopics(students, nil, nil))
	assert.Empty(t, AssignTopics(nil, makeTopics(2), nil))
}

func TestAssignTopics_SeededIsDeterministic(t *testing.T) {
	topics := makeTopics(3)
	a := AssignTopics(makeStudents(9), topics, NewSeededShuffler(99))
	b := AssignTopics(makeStudents(9), topics, NewSeededShuffler(99))

	assert.Equal(t, a, b)
}

func TestParseNames(t *testing.T) {
	got := ParseNames("Alice, Bob\nCarol,,\r\n  \nDave  ")
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, got)
	assert.Empty(t, ParseNames(" , \n "))
}

func TestColorFor_Cycles(t *testing.T) {
	assert.Equal(t, TopicColors[0], ColorFor(0))
	assert.Equal(t, TopicColors[0], ColorFor(len(TopicColors)))
	assert.Equal(t, TopicColors[3], ColorFor(len(TopicColors)+3))
}

func TestAssignTopics_ShufflesOrder(t *testing.T) {
	students := makeStudents(20)
	ids := func(list []Student) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.ID
		}
		return out
	}

	first := ids(AssignTopics(students, makeTopics(4), NewSeededShuffler(1)))
	second := ids(AssignTopics(students, makeTopics(4), NewSeededShuffler(2)))

	assert.NotEqual(t, ids(students), first)
	assert.NotEqual(t, first, second)
	assert.ElementsMatch(t, ids(students), first)
}

package jigsaw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partitionFor(t *testing.T, studentCount, topicCount int, seed uint64) ([]Student, []Topic, []Group) {
	t.Helper()
	topics := makeTopics(topicCount)
	students := AssignTopics(makeStudents(studentCount), topics, NewSeededShuffler(seed))
	groups := PartitionHomeGroups(students, topics, DefaultGroupFactory(SequentialIDs("g")))
	return students, topics, groups
}

func assertCoverage(t *testing.T, students []Student, groups []Group) {
	t.Helper()
	seen := make(map[string]int)
	for _, g := range groups {
		for _, id := range g.StudentIDs {
			seen[id]++
		}
	}
	require.Len(t, seen, len(students))
	for _, s := range students {
		assert.Equal(t, 1, seen[s.ID], "student %s", s.ID)
	}
}

func topicsInGroup(students []Student, g Group) map[string]int {
	byID := make(map[string]string, len(students))
	for _, s := range students {
		byID[s.ID] = s.AssignedTopicID
	}
	out := make(map[string]int)
	for _, id := range g.StudentIDs {
		out[byID[id]]++
	}
	return out
}

func TestHomeGroupCount(t *testing.T) {
	assert.Equal(t, 2, HomeGroupCount(8, 4))
	assert.Equal(t, 2, HomeGroupCount(5, 2))
	assert.Equal(t, 1, HomeGroupCount(3, 5))
	assert.Equal(t, 3, HomeGroupCount(13, 4))
	assert.Equal(t, 1, HomeGroupCount(0, 3))
	assert.Equal(t, 0, HomeGroupCount(5, 0))
}

func TestPartitionHomeGroups_EvenSplit(t *testing.T) {
	students, topics, groups := partitionFor(t, 8, 4, 11)

	require.Len(t, groups, 2)
	assertCoverage(t, students, groups)
	for _, g := range groups {
		assert.Equal(t, 4, g.Size())
		counts := topicsInGroup(students, g)
		for _, topic := range topics {
			assert.Equal(t, 1, counts[topic.ID], "group %s topic %s", g.Name, topic.ID)
		}
	}
}

func TestPartitionHomeGroups_Surplus(t *testing.T) {
	students, _, groups := partitionFor(t, 5, 2, 5)

	require.Len(t, groups, 2)
	assertCoverage(t, students, groups)
	assert.Equal(t, []int{3, 2}, GroupSizes(groups))
}

func TestPartitionHomeGroups_MoreTopicsThanStudents(t *testing.T) {
	students, _, groups := partitionFor(t, 3, 5, 2)

	require.Len(t, groups, 1)
	assertCoverage(t, students, groups)
	assert.Equal(t, 3, groups[0].Size())
	assert.Len(t, topicsInGroup(students, groups[0]), 3)
}

func TestPartitionHomeGroups_RemainderGoesToSmallest(t *testing.T) {
	students, _, groups := partitionFor(t, 13, 4, 8)

	assertCoverage(t, students, groups)
	assert.Equal(t, []int{5, 4, 4}, GroupSizes(groups))

	_, _, groups = partitionFor(t, 7, 3, 8)
	assert.Equal(t, []int{4, 3}, GroupSizes(groups))
}

func TestPartitionHomeGroups_SpreadsTopics(t *testing.T) {
	students, topics, groups := partitionFor(t, 30, 7, 21)

	assertCoverage(t, students, groups)
	for _, g := range groups {
		counts := topicsInGroup(students, g)
		for _, topic := range topics {
			assert.GreaterOrEqual(t, counts[topic.ID], 1, "group %s lacks topic %s", g.Name, topic.ID)
		}
	}
}

func TestPartitionHomeGroups_PopsFromBucketEnd(t *testing.T) {
	topics := makeTopics(2)
	students := []Student{
		{ID: "s1", AssignedTopicID: "t1"},
		{ID: "s2", AssignedTopicID: "t2"},
		{ID: "s3", AssignedTopicID: "t1"},
		{ID: "s4", AssignedTopicID: "t2"},
	}

	groups := PartitionHomeGroups(students, topics, DefaultGroupFactory(SequentialIDs("g")))

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"s3", "s4"}, groups[0].StudentIDs)
	assert.Equal(t, []string{"s1", "s2"}, groups[1].StudentIDs)
	assert.Equal(t, "Home Group 1", groups[0].Name)
	assert.Equal(t, "Home Group 2", groups[1].Name)
	assert.Equal(t, GroupHome, groups[0].Kind)
	assert.Equal(t, "g-1", groups[0].ID)
}

func TestPartitionHomeGroups_UnassignedStudentsStillPlaced(t *testing.T) {
	topics := makeTopics(2)
	students := []Student{
		{ID: "s1", AssignedTopicID: "t1"},
		{ID: "s2", AssignedTopicID: "t1"},
		{ID: "s3", AssignedTopicID: "t1"},
		{ID: "s4", AssignedTopicID: "t1"},
		{ID: "s5", AssignedTopicID: "deleted"},
	}

	groups := PartitionHomeGroups(students, topics, DefaultGroupFactory(nil))

	assertCoverage(t, students, groups)
	assert.Equal(t, []string{"s4", "s2", "s5"}, groups[0].StudentIDs)
	assert.Equal(t, []string{"s3", "s1"}, groups[1].StudentIDs)
}

func TestPartitionHomeGroups_EmptyInput(t *testing.T) {
	factory := DefaultGroupFactory(nil)
	assert.Nil(t, PartitionHomeGroups(nil, makeTopics(2), factory))
	assert.Nil(t, PartitionHomeGroups(makeStudents(2), nil, factory))
}

func TestProjectExpertGroups(t *testing.T) {
	topics := makeTopics(3)
	students := []Student{
		{ID: "s1", AssignedTopicID: "t2"},
		{ID: "s2", AssignedTopicID: "t1"},
		{ID: "s3", AssignedTopicID: "t2"},
		{ID: "s4"},
	}

	groups := ProjectExpertGroups(students, topics, DefaultGroupFactory(nil))

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"s2"}, groups[0].StudentIDs)
	assert.Equal(t, []string{"s1", "s3"}, groups[1].StudentIDs)
	assert.Empty(t, groups[2].StudentIDs)
	assert.Equal(t, "Expert Group: Topic 2", groups[1].Name)
	assert.Equal(t, "t2", groups[1].TopicID)
	assert.Equal(t, GroupExpert, groups[1].Kind)
}

func TestHomeGroupCount_Formula(t *testing.T) {
	for s := 0; s <= 60; s++ {
		for topics := 1; topics <= 9; topics++ {
			assert.Equal(t, max(1, s/topics), HomeGroupCount(s, topics), "S=%d T=%d", s, topics)
		}
	}
}

func TestPartitionHomeGroups_Properties(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42} {
		for s := 1; s <= 60; s++ {
			for topicCount := 1; topicCount <= 9; topicCount++ {
				students, _, groups := partitionFor(t, s, topicCount, seed)

				require.Len(t, groups, max(1, s/topicCount), "S=%d T=%d seed=%d", s, topicCount, seed)
				assertCoverage(t, students, groups)

				sizes := GroupSizes(groups)
				smallest, largest := sizes[0], sizes[0]
				for _, size := range sizes {
					smallest = min(smallest, size)
					largest = max(largest, size)
				}
				assert.Positive(t, smallest, "S=%d T=%d seed=%d", s, topicCount, seed)
				assert.LessOrEqual(t, largest-smallest, topicCount, "S=%d T=%d seed=%d", s, topicCount, seed)
			}
		}
	}
}

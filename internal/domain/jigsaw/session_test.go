package jigsaw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, topics []string, students []string) *Session {
	t.Helper()
	s := NewSession(
		WithIDGenerator(SequentialIDs("id")),
		WithShuffler(NewSeededShuffler(42)),
	)
	for _, title := range topics {
		_, ok := s.AddTopic(title)
		require.True(t, ok)
	}
	s.ImportStudents(students)
	return s
}

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession(WithIDGenerator(SequentialIDs("id")))

	assert.Equal(t, "id-1", s.ID())
	assert.Equal(t, PhaseSetup, s.Phase())
	assert.Equal(t, 15*time.Minute, s.ExpertDuration())
	assert.Equal(t, 10*time.Minute, s.TeachingDuration())
	assert.Empty(t, s.Topics())
	assert.Empty(t, s.Students())
	assert.Empty(t, s.Groups())
}

func TestSession_AddTopic(t *testing.T) {
	s := NewSession(WithIDGenerator(SequentialIDs("id")))

	first, ok := s.AddTopic("  Photosynthesis ")
	require.True(t, ok)
	assert.Equal(t, "Photosynthesis", first.Title)
	assert.Equal(t, TopicColors[0], first.Color)

	_, ok = s.AddTopic("   ")
	assert.False(t, ok)

	second, _ := s.AddTopic("Respiration")
	assert.Equal(t, TopicColors[1], second.Color)
	assert.Len(t, s.Topics(), 2)
}

func TestSession_UpdateTopic(t *testing.T) {
	s := newTestSession(t, []string{"A"}, nil)
	topic := s.Topics()[0]

	url := "https://example.org/a.pdf"
	blank := " "
	updated, ok := s.UpdateTopic(topic.ID, TopicPatch{Title: &blank, MaterialURL: &url})
	require.True(t, ok)
	assert.Equal(t, "A", updated.Title)
	assert.Equal(t, url, updated.MaterialURL)
	assert.Equal(t, topic.Color, updated.Color)

	_, ok = s.UpdateTopic("missing", TopicPatch{MaterialURL: &url})
	assert.False(t, ok)
}

func TestSession_RemoveTopicLeavesDanglingAssignment(t *testing.T) {
	s := newTestSession(t, []string{"A", "B"}, []string{"Ann", "Bob", "Cid", "Dan"})
	require.True(t, s.GenerateGroups())

	removed := s.Topics()[0]
	_, ok := s.RemoveTopic(removed.ID)
	require.True(t, ok)

	for _, st := range s.Students() {
		if st.AssignedTopicID == removed.ID {
			_, found := s.TopicOf(st.ID)
			assert.False(t, found)
		}
	}

	_, ok = s.RemoveTopic(removed.ID)
	assert.False(t, ok)
}

func TestSession_RemoveStudentPrunesGroups(t *testing.T) {
	s := newTestSession(t, []string{"A", "B"}, []string{"Ann", "Bob", "Cid", "Dan"})
	require.True(t, s.GenerateGroups())

	victim := s.Students()[0]
	_, ok := s.RemoveStudent(victim.ID)
	require.True(t, ok)

	for _, g := range s.Groups() {
		assert.False(t, g.Contains(victim.ID))
	}
	for _, g := range s.HomeSnapshot() {
		assert.False(t, g.Contains(victim.ID))
	}
	assert.Len(t, s.Students(), 3)

	_, ok = s.RemoveStudent("missing")
	assert.False(t, ok)
}

func TestSession_ImportStudentsSkipsBlanks(t *testing.T) {
	s := NewSession()
	added := s.ImportStudents([]string{"Ann", "  ", "", "Bob "})

	require.Len(t, added, 2)
	assert.Equal(t, "Bob", added[1].Name)
	assert.Len(t, s.Students(), 2)
}

func TestSession_GenerateGroups(t *testing.T) {
	s := newTestSession(t, []string{"A", "B", "C", "D"},
		[]string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"})

	require.True(t, s.CanGenerate())
	require.True(t, s.GenerateGroups())

	assert.Equal(t, PhaseHomeGroups, s.Phase())
	assert.Equal(t, []int{4, 4}, GroupSizes(s.Groups()))
	assert.Equal(t, s.Groups(), s.HomeSnapshot())
	for _, st := range s.Students() {
		_, ok := s.TopicOf(st.ID)
		assert.True(t, ok)
	}
}

func TestSession_GenerateGroupsNoopWhenEmpty(t *testing.T) {
	s := newTestSession(t, nil, []string{"Ann"})

	assert.False(t, s.CanGenerate())
	assert.False(t, s.GenerateGroups())
	assert.Equal(t, PhaseSetup, s.Phase())
	assert.Empty(t, s.Groups())
}

func TestSession_ExpertPhaseAndRestore(t *testing.T) {
	s := newTestSession(t, []string{"A", "B"}, []string{"Ann", "Bob", "Cid", "Dan", "Eve"})
	require.True(t, s.GenerateGroups())
	home := s.Groups()

	change := s.SetPhase(PhaseExpertGroups)
	assert.True(t, change.GroupsReplaced)
	assert.Equal(t, PhaseHomeGroups, change.From)

	expert := s.Groups()
	require.Len(t, expert, 2)
	assert.Equal(t, GroupExpert, expert[0].Kind)
	assert.Equal(t, 5, expert[0].Size()+expert[1].Size())

	again := s.SetPhase(PhaseExpertGroups)
	assert.False(t, again.GroupsReplaced)
	assert.Equal(t, expert, s.Groups())

	back := s.SetPhase(PhaseTeaching)
	assert.True(t, back.GroupsReplaced)
	assert.Equal(t, home, s.Groups())
	assert.Equal(t, PhaseTeaching, s.Phase())
}

func TestSession_TeachingWithoutSnapshotKeepsGroups(t *testing.T) {
	s := newTestSession(t, []string{"A", "B"}, []string{"Ann", "Bob"})

	s.SetPhase(PhaseExpertGroups)
	expert := s.Groups()
	change := s.SetPhase(PhaseTeaching)

	assert.False(t, change.GroupsReplaced)
	assert.Equal(t, expert, s.Groups())
}

func TestSession_SetPhaseUnknownIsNoop(t *testing.T) {
	s := newTestSession(t, []string{"A"}, []string{"Ann"})

	change := s.SetPhase(Phase("LUNCH"))

	assert.Equal(t, PhaseSetup, change.To)
	assert.Equal(t, PhaseSetup, s.Phase())
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	s := newTestSession(t, []string{"A", "B"}, []string{"Ann", "Bob", "Cid", "Dan"})
	require.True(t, s.GenerateGroups())

	groups := s.Groups()
	groups[0].StudentIDs[0] = "tampered"

	assert.NotEqual(t, "tampered", s.Groups()[0].StudentIDs[0])
	assert.NotEqual(t, "tampered", s.HomeSnapshot()[0].StudentIDs[0])
}

func TestSession_Reset(t *testing.T) {
	for _, phase := range AllPhases() {
		t.Run(phase.String(), func(t *testing.T) {
			s := newTestSession(t, []string{"A", "B"}, []string{"Ann", "Bob", "Cid", "Dan"})
			s.SetMainTopic("Cells")
			s.SetExpertDuration(5 * time.Minute)
			if phase != PhaseSetup {
				require.True(t, s.GenerateGroups())
				s.SetPhase(phase)
			}

			prev := s.Reset()

			assert.Equal(t, phase, prev)
			assert.Equal(t, PhaseSetup, s.Phase())
			assert.Empty(t, s.Topics())
			assert.Empty(t, s.Students())
			assert.Empty(t, s.Groups())
			assert.Empty(t, s.HomeSnapshot())
			assert.Empty(t, s.MainTopic())
			assert.Equal(t, 5*time.Minute, s.ExpertDuration())
		})
	}
}

func TestParsePhase(t *testing.T) {
	p, ok := ParsePhase(" expert_groups ")
	assert.True(t, ok)
	assert.Equal(t, PhaseExpertGroups, p)

	_, ok = ParsePhase("recess")
	assert.False(t, ok)
}

package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/persistence/memory"
)

type stubTimer struct {
	remaining time.Duration
	running   bool
}

func (t stubTimer) Remaining() (time.Duration, bool) { return t.remaining, t.running }

func newSession(t *testing.T) *jigsaw.Session {
	t.Helper()
	s := jigsaw.NewSession(
		jigsaw.WithIDGenerator(jigsaw.SequentialIDs("id")),
		jigsaw.WithShuffler(jigsaw.NewSeededShuffler(7)),
	)
	s.SetMainTopic("Ecosystems")
	s.AddTopic("Forests")
	s.AddTopic("Oceans")
	s.ImportStudents([]string{"Ann", "Bob", "Cid", "Dan", "Eve"})
	return s
}

func TestGetSession_BeforeGeneration(t *testing.T) {
	h := NewGetSessionHandler(memory.NewSessionStore(newSession(t)), nil)

	view, err := h.Handle(context.Background(), GetSessionQuery{})
	require.NoError(t, err)

	assert.Equal(t, "SETUP", view.Phase)
	assert.Equal(t, "Ecosystems", view.MainTopic)
	assert.Equal(t, 15, view.ExpertMinutes)
	assert.Equal(t, 10, view.TeachingMinutes)
	assert.True(t, view.CanGenerate)
	assert.Len(t, view.Topics, 2)
	require.Len(t, view.Students, 5)
	for _, st := range view.Students {
		assert.Equal(t, UnassignedLabel, st.TopicTitle)
	}
	assert.Empty(t, view.Groups)
	assert.Nil(t, view.Timer)
}

func TestGetSession_ResolvesGroupMembers(t *testing.T) {
	s := newSession(t)
	require.True(t, s.GenerateGroups())
	h := NewGetSessionHandler(memory.NewSessionStore(s), stubTimer{remaining: 95 * time.Second, running: true})

	view, err := h.Handle(context.Background(), GetSessionQuery{})
	require.NoError(t, err)

	assert.Equal(t, "HOME_GROUPS", view.Phase)
	require.Len(t, view.Groups, 2)
	total := 0
	for _, g := range view.Groups {
		assert.Equal(t, "HOME", g.Kind)
		for _, m := range g.Members {
			assert.NotEqual(t, UnassignedLabel, m.TopicTitle)
			assert.NotEmpty(t, m.Name)
		}
		total += g.Size()
	}
	assert.Equal(t, 5, total)

	require.NotNil(t, view.Timer)
	assert.True(t, view.Timer.Running)
	assert.EqualValues(t, 95, view.Timer.RemainingSeconds)
}

func TestGetSession_ExpertGroupsCarryTopicTitle(t *testing.T) {
	s := newSession(t)
	require.True(t, s.GenerateGroups())
	s.SetPhase(jigsaw.PhaseExpertGroups)
	h := NewGetSessionHandler(memory.NewSessionStore(s), nil)

	view, err := h.Handle(context.Background(), GetSessionQuery{})
	require.NoError(t, err)

	require.Len(t, view.Groups, 2)
	titles := []string{view.Groups[0].TopicTitle, view.Groups[1].TopicTitle}
	assert.ElementsMatch(t, []string{"Forests", "Oceans"}, titles)
	for _, g := range view.Groups {
		for _, m := range g.Members {
			assert.Equal(t, g.TopicID, m.TopicID)
		}
	}
}

func TestGetSession_DanglingTopicReadsUnassigned(t *testing.T) {
	s := newSession(t)
	require.True(t, s.GenerateGroups())
	removed := s.Topics()[0]
	_, ok := s.RemoveTopic(removed.ID)
	require.True(t, ok)
	h := NewGetSessionHandler(memory.NewSessionStore(s), nil)

	view, err := h.Handle(context.Background(), GetSessionQuery{})
	require.NoError(t, err)

	assert.False(t, view.CanGenerate)
	unassigned := 0
	for _, st := range view.Students {
		if st.TopicTitle == UnassignedLabel {
			unassigned++
			assert.Empty(t, st.TopicID)
		}
	}
	assert.Positive(t, unassigned)
}

func TestGetSession_CancelledContext(t *testing.T) {
	h := NewGetSessionHandler(memory.NewSessionStore(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Handle(ctx, GetSessionQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

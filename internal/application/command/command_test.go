package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/jigsaw-mixer/internal/domain/jigsaw"
	"github.com/alem-hub/jigsaw-mixer/internal/domain/shared"
	"github.com/alem-hub/jigsaw-mixer/internal/infrastructure/persistence/memory"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

type fixture struct {
	store    *memory.SessionStore
	events   *eventLog
	recorder *fakeRecorder
	roster   *fakeRoster
	timer    *fakeTimer
	h        *Handlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewSessionStore(jigsaw.NewSession(
			jigsaw.WithIDGenerator(jigsaw.SequentialIDs("id")),
			jigsaw.WithShuffler(jigsaw.NewSeededShuffler(1)),
		)),
		events:   &eventLog{},
		recorder: &fakeRecorder{},
		roster:   &fakeRoster{classes: map[string][]string{}},
		timer:    &fakeTimer{},
	}
	f.h = NewHandlers(Dependencies{
		Store:     f.store,
		Publisher: f.events,
		Recorder:  f.recorder,
		Roster:    f.roster,
		Timer:     f.timer,
	})
	return f
}

func (f *fixture) seed(t *testing.T, topics int, names ...string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < topics; i++ {
		_, err := f.h.AddTopic.Handle(ctx, AddTopicCommand{Title: string(rune('A' + i))})
		require.NoError(t, err)
	}
	if len(names) > 0 {
		_, err := f.h.ImportStudents.Handle(ctx, ImportStudentsCommand{Names: names})
		require.NoError(t, err)
	}
}

func (f *fixture) session(t *testing.T) (phase jigsaw.Phase, topics []jigsaw.Topic, students []jigsaw.Student, groups []jigsaw.Group) {
	t.Helper()
	require.NoError(t, f.store.View(context.Background(), func(s *jigsaw.Session) error {
		phase, topics, students, groups = s.Phase(), s.Topics(), s.Students(), s.Groups()
		return nil
	}))
	return
}

type eventLog struct {
	mu     sync.Mutex
	events []shared.Event
}

func (l *eventLog) Publish(e shared.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) last() shared.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}

type fakeRecorder struct {
	generations int
	phases      []string
	resets      int
	imports     []bool
}

func (r *fakeRecorder) RecordGeneration([]int)            { r.generations++ }
func (r *fakeRecorder) RecordPhaseChange(from, to string) { r.phases = append(r.phases, from+">"+to) }
func (r *fakeRecorder) RecordReset()                      { r.resets++ }
func (r *fakeRecorder) RecordRosterImport(ok bool)        { r.imports = append(r.imports, ok) }

type fakeRoster struct {
	classes map[string][]string
	err     error
}

func (r *fakeRoster) FetchNames(_ context.Context, className string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.classes[className], nil
}

type fakeTimer struct {
	running  bool
	phase    string
	duration time.Duration
	stops    int
}

func (t *fakeTimer) Start(_ context.Context, _, phase string, d time.Duration) error {
	if t.running {
		return shared.ErrTimerAlreadyRunning
	}
	t.running, t.phase, t.duration = true, phase, d
	return nil
}

func (t *fakeTimer) Stop() error {
	if !t.running {
		return shared.ErrTimerNotRunning
	}
	t.running = false
	t.stops++
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TOPICS & STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

func TestAddTopic(t *testing.T) {
	f := newFixture(t)

	topic, err := f.h.AddTopic.Handle(context.Background(), AddTopicCommand{Title: " Volcanoes "})
	require.NoError(t, err)
	assert.Equal(t, "Volcanoes", topic.Title)
	assert.Equal(t, shared.EventTopicAdded, f.events.last().EventType())

	_, err = f.h.AddTopic.Handle(context.Background(), AddTopicCommand{Title: "  "})
	assert.ErrorIs(t, err, shared.ErrEmptyTitle)
	assert.True(t, shared.IsValidation(err))
}

func TestUpdateAndRemoveTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic, err := f.h.AddTopic.Handle(ctx, AddTopicCommand{Title: "Rivers"})
	require.NoError(t, err)

	desc := "Read pages 4-9"
	updated, err := f.h.UpdateTopic.Handle(ctx, UpdateTopicCommand{
		TopicID: topic.ID,
		Patch:   jigsaw.TopicPatch{MaterialDescription: &desc},
	})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.MaterialDescription)

	_, err = f.h.UpdateTopic.Handle(ctx, UpdateTopicCommand{TopicID: "nope"})
	assert.True(t, shared.IsNotFound(err))

	require.NoError(t, f.h.RemoveTopic.Handle(ctx, RemoveTopicCommand{TopicID: topic.ID}))
	assert.True(t, shared.IsNotFound(f.h.RemoveTopic.Handle(ctx, RemoveTopicCommand{TopicID: topic.ID})))
	assert.Equal(t, shared.EventTopicRemoved, f.events.last().EventType())
}

func TestImportStudents_NamesAndText(t *testing.T) {
	f := newFixture(t)

	added, err := f.h.ImportStudents.Handle(context.Background(), ImportStudentsCommand{
		Names: []string{"Ann", " "},
		Text:  "Bob, Cid\nDan",
	})
	require.NoError(t, err)
	require.Len(t, added, 4)
	assert.Equal(t, "Dan", added[3].Name)

	e := f.events.last()
	assert.Equal(t, shared.EventStudentsAdded, e.EventType())
	assert.Equal(t, 4, e.Payload()["student_count"])

	_, err = f.h.ImportStudents.Handle(context.Background(), ImportStudentsCommand{Text: " ,\n"})
	assert.ErrorIs(t, err, shared.ErrEmptyName)
}

func TestAddAndRemoveStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.h.AddStudent.Handle(ctx, AddStudentCommand{Name: "Eve"})
	require.NoError(t, err)
	assert.Equal(t, "Eve", st.Name)

	_, err = f.h.AddStudent.Handle(ctx, AddStudentCommand{})
	assert.ErrorIs(t, err, shared.ErrEmptyName)

	require.NoError(t, f.h.RemoveStudent.Handle(ctx, RemoveStudentCommand{StudentID: st.ID}))
	assert.ErrorIs(t, f.h.RemoveStudent.Handle(ctx, RemoveStudentCommand{StudentID: st.ID}), shared.ErrStudentNotFound)
}

func TestImportRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.roster.classes["7B"] = []string{"Ann", "Bob", "Cid"}

	added, err := f.h.ImportRoster.Handle(ctx, ImportRosterCommand{ClassName: "7B"})
	require.NoError(t, err)
	assert.Len(t, added, 3)

	added, err = f.h.ImportRoster.Handle(ctx, ImportRosterCommand{ClassName: "9Z"})
	require.NoError(t, err)
	assert.Empty(t, added)

	f.roster.err = shared.WrapError("roster", "FetchNames", shared.ErrServiceUnavailable, "query roster", errors.New("down"))
	_, err = f.h.ImportRoster.Handle(ctx, ImportRosterCommand{ClassName: "7B"})
	assert.True(t, shared.IsExternalService(err))
	assert.Equal(t, []bool{true, true, false}, f.recorder.imports)

	_, err = f.h.ImportRoster.Handle(ctx, ImportRosterCommand{})
	assert.ErrorIs(t, err, shared.ErrRosterClassEmpty)
}

func TestImportRoster_NotConfigured(t *testing.T) {
	h := NewHandlers(Dependencies{Store: memory.NewSessionStore(nil)})

	_, err := h.ImportRoster.Handle(context.Background(), ImportRosterCommand{ClassName: "7B"})
	assert.ErrorIs(t, err, shared.ErrRosterUnavailable)
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUPING
// ══════════════════════════════════════════════════════════════════════════════

func TestGenerateGroups(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 4, "s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8")

	res, err := f.h.GenerateGroups.Handle(context.Background(), GenerateGroupsCommand{})
	require.NoError(t, err)

	assert.True(t, res.Generated)
	assert.Equal(t, jigsaw.PhaseHomeGroups, res.Phase)
	assert.Equal(t, []int{4, 4}, res.GroupSizes)
	assert.Equal(t, 1, f.recorder.generations)
	assert.Equal(t, shared.EventGroupsGenerated, f.events.last().EventType())
}

func TestGenerateGroups_Gate(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2, "Ann", "Bob")

	_, err := f.h.GenerateGroups.Handle(context.Background(), GenerateGroupsCommand{})
	assert.ErrorIs(t, err, shared.ErrNotEnoughMembers)

	res, err := f.h.GenerateGroups.Handle(context.Background(), GenerateGroupsCommand{AllowSmall: true})
	require.NoError(t, err)
	assert.True(t, res.Generated)
	assert.Equal(t, []int{2}, res.GroupSizes)
}

func TestGenerateGroups_EmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2)

	res, err := f.h.GenerateGroups.Handle(context.Background(), GenerateGroupsCommand{AllowSmall: true})
	require.NoError(t, err)
	assert.False(t, res.Generated)
	assert.Equal(t, jigsaw.PhaseSetup, res.Phase)
	assert.Zero(t, f.recorder.generations)
}

func TestSetPhase_FullCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 2, "Ann", "Bob", "Cid", "Dan", "Eve")
	_, err := f.h.GenerateGroups.Handle(ctx, GenerateGroupsCommand{})
	require.NoError(t, err)
	_, _, _, home := f.session(t)

	change, err := f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "expert_groups"})
	require.NoError(t, err)
	assert.True(t, change.GroupsReplaced)

	_, err = f.h.StartTimer.Handle(ctx, StartTimerCommand{})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, f.timer.duration)

	again, err := f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "EXPERT_GROUPS"})
	require.NoError(t, err)
	assert.False(t, again.GroupsReplaced)
	assert.True(t, f.timer.running)

	_, err = f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "TEACHING"})
	require.NoError(t, err)
	assert.False(t, f.timer.running)

	phase, _, _, groups := f.session(t)
	assert.Equal(t, jigsaw.PhaseTeaching, phase)
	assert.Equal(t, home, groups)
	assert.Equal(t, []string{"HOME_GROUPS>EXPERT_GROUPS", "EXPERT_GROUPS>TEACHING"}, f.recorder.phases)

	_, err = f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "lunch"})
	assert.ErrorIs(t, err, shared.ErrUnknownPhase)
}

func TestResetSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, 2, "Ann", "Bob", "Cid", "Dan")
	_, err := f.h.GenerateGroups.Handle(ctx, GenerateGroupsCommand{})
	require.NoError(t, err)
	_, err = f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "EXPERT_GROUPS"})
	require.NoError(t, err)
	_, err = f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "TEACHING"})
	require.NoError(t, err)

	_, err = f.h.ResetSession.Handle(ctx, ResetSessionCommand{})
	assert.ErrorIs(t, err, shared.ErrResetNotConfirmed)
	assert.True(t, shared.IsConflict(err))

	prev, err := f.h.ResetSession.Handle(ctx, ResetSessionCommand{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, jigsaw.PhaseTeaching, prev)

	phase, topics, students, groups := f.session(t)
	assert.Equal(t, jigsaw.PhaseSetup, phase)
	assert.Empty(t, topics)
	assert.Empty(t, students)
	assert.Empty(t, groups)
	assert.Equal(t, 1, f.recorder.resets)
	assert.Equal(t, shared.EventSessionReset, f.events.last().EventType())

	_, err = f.h.ResetSession.Handle(ctx, ResetSessionCommand{})
	assert.NoError(t, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS & TIMER
// ══════════════════════════════════════════════════════════════════════════════

func TestConfigureSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	topic, expert := "Ecosystems", 20

	settings, err := f.h.Configure.Handle(ctx, ConfigureSessionCommand{MainTopic: &topic, ExpertMinutes: &expert})
	require.NoError(t, err)
	assert.Equal(t, "Ecosystems", settings.MainTopic)
	assert.Equal(t, 20*time.Minute, settings.ExpertDuration)
	assert.Equal(t, 10*time.Minute, settings.TeachingDuration)

	for _, bad := range []int{0, 121, -5} {
		m := bad
		_, err := f.h.Configure.Handle(ctx, ConfigureSessionCommand{TeachingMinutes: &m})
		assert.ErrorIs(t, err, shared.ErrDurationOutOfRange)
	}
}

func TestStartTimer_Phases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.h.StartTimer.Handle(ctx, StartTimerCommand{})
	assert.ErrorIs(t, err, shared.ErrTimerWrongPhase)

	f.seed(t, 2, "Ann", "Bob", "Cid", "Dan")
	_, err = f.h.GenerateGroups.Handle(ctx, GenerateGroupsCommand{})
	require.NoError(t, err)
	_, err = f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "TEACHING"})
	require.NoError(t, err)

	res, err := f.h.StartTimer.Handle(ctx, StartTimerCommand{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, jigsaw.PhaseTeaching, res.Phase)
	assert.Equal(t, 90*time.Second, f.timer.duration)

	_, err = f.h.StartTimer.Handle(ctx, StartTimerCommand{})
	assert.ErrorIs(t, err, shared.ErrTimerAlreadyRunning)

	require.NoError(t, f.h.StopTimer.Handle(ctx, StopTimerCommand{}))
	assert.ErrorIs(t, f.h.StopTimer.Handle(ctx, StopTimerCommand{}), shared.ErrTimerNotRunning)
}

func TestStartTimer_OverrideOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, 2, "Ann", "Bob", "Cid", "Dan")
	_, err := f.h.GenerateGroups.Handle(ctx, GenerateGroupsCommand{})
	require.NoError(t, err)
	_, err = f.h.SetPhase.Handle(ctx, SetPhaseCommand{Phase: "EXPERT_GROUPS"})
	require.NoError(t, err)

	for _, d := range []time.Duration{-time.Minute, 30 * time.Second, 121 * time.Minute} {
		_, err := f.h.StartTimer.Handle(ctx, StartTimerCommand{Duration: d})
		assert.ErrorIs(t, err, shared.ErrDurationOutOfRange, "duration %s", d)
	}
	assert.False(t, f.timer.running)

	res, err := f.h.StartTimer.Handle(ctx, StartTimerCommand{Duration: 120 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 120*time.Minute, res.Duration)
}

func TestTimer_NotConfigured(t *testing.T) {
	h := NewHandlers(Dependencies{Store: memory.NewSessionStore(nil)})

	_, err := h.StartTimer.Handle(context.Background(), StartTimerCommand{})
	assert.ErrorIs(t, err, shared.ErrTimerUnavailable)
	assert.ErrorIs(t, h.StopTimer.Handle(context.Background(), StopTimerCommand{}), shared.ErrTimerUnavailable)
}

package calendar

import (
	"errors"
	"sync"
	"testing"

	"agendo/cmd/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	events map[string]*entity.Event

	failNext bool
	entered  chan struct{} // closed when a store call begins, if set
	release  chan struct{} // store calls wait on this, if set
	once     sync.Once
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[string]*entity.Event)}
}

func (s *fakeStore) Commit(ev *entity.Event) error {
	return s.apply(nil, ev)
}

func (s *fakeStore) Replace(removeIDs []string, ev *entity.Event) error {
	return s.apply(removeIDs, ev)
}

func (s *fakeStore) apply(removeIDs []string, ev *entity.Event) error {
	if s.entered != nil {
		s.once.Do(func() { close(s.entered) })
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("store unavailable")
	}
	for _, id := range removeIDs {
		delete(s.events, id)
	}
	s.events[ev.ID] = ev
	return nil
}

func (s *fakeStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for id := range s.events {
		out = append(out, id)
	}
	return out
}

func TestSubmitCleanCommitsImmediately(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)

	candidate := event("c", 1, "2024-05-01T11:00:00Z", "2024-05-01T12:00:00Z")
	existing := []*entity.Event{
		event("a", 1, "2024-05-01T10:00:00Z", "2024-05-01T11:00:00Z"), // touches, no overlap
	}

	conflicts, err := r.Submit(candidate, false, existing)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.ElementsMatch(t, []string{"c"}, store.ids())
	assert.Nil(t, r.Pending())
}

func TestSubmitConflictedParksCandidate(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)

	existing := []*entity.Event{
		event("a", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z"),
	}
	candidate := event("c", 1, "2024-05-01T09:30:00Z", "2024-05-01T10:30:00Z")

	conflicts, err := r.Submit(candidate, false, existing)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "a", conflicts[0].ID)

	// Nothing persisted while the conflict is pending.
	assert.Empty(t, store.ids())
	require.NotNil(t, r.Pending())
	assert.Equal(t, "c", r.Pending().Candidate.ID)
}

func TestResolveReplace(t *testing.T) {
	store := newFakeStore()
	existing := []*entity.Event{
		event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z"),
		event("e2", 1, "2024-05-01T10:00:00Z", "2024-05-01T11:30:00Z"),
	}
	for _, ev := range existing {
		store.events[ev.ID] = ev
	}

	r := NewResolver(store)
	candidate := event("c", 1, "2024-05-01T09:30:00Z", "2024-05-01T10:30:00Z")
	conflicts, err := r.Submit(candidate, false, existing)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)

	resolved, err := r.Resolve(ActionReplace)
	require.NoError(t, err)
	assert.Equal(t, "c", resolved.Candidate.ID)

	// The whole conflict set is gone, the candidate is committed.
	assert.ElementsMatch(t, []string{"c"}, store.ids())
	assert.Nil(t, r.Pending())
}

func TestResolveReschedule(t *testing.T) {
	store := newFakeStore()
	e1 := event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")
	store.events["e1"] = e1

	r := NewResolver(store)
	candidate := event("c", 1, "2024-05-01T09:30:00Z", "2024-05-01T10:30:00Z")
	_, err := r.Submit(candidate, false, []*entity.Event{e1})
	require.NoError(t, err)

	_, err = r.Resolve(ActionReschedule)
	require.NoError(t, err)

	// Committed set unchanged, candidate discarded.
	assert.ElementsMatch(t, []string{"e1"}, store.ids())
	assert.Nil(t, r.Pending())
}

func TestResolveWithoutPending(t *testing.T) {
	r := NewResolver(newFakeStore())
	_, err := r.Resolve(ActionReplace)
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestDismissEqualsReschedule(t *testing.T) {
	store := newFakeStore()
	e1 := event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")
	store.events["e1"] = e1

	r := NewResolver(store)
	candidate := event("c", 1, "2024-05-01T09:30:00Z", "2024-05-01T10:30:00Z")
	_, err := r.Submit(candidate, false, []*entity.Event{e1})
	require.NoError(t, err)

	r.Dismiss()
	assert.Nil(t, r.Pending())
	assert.ElementsMatch(t, []string{"e1"}, store.ids())

	_, err = r.Resolve(ActionReplace)
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestNewSubmissionSupersedesPending(t *testing.T) {
	store := newFakeStore()
	e1 := event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")
	store.events["e1"] = e1

	r := NewResolver(store)
	first := event("c1", 1, "2024-05-01T09:30:00Z", "2024-05-01T10:30:00Z")
	_, err := r.Submit(first, false, []*entity.Event{e1})
	require.NoError(t, err)
	require.NotNil(t, r.Pending())

	// A clean second submission replaces the stale pending state wholesale.
	second := event("c2", 1, "2024-05-01T12:00:00Z", "2024-05-01T13:00:00Z")
	conflicts, err := r.Submit(second, false, []*entity.Event{e1})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Nil(t, r.Pending())
	assert.ElementsMatch(t, []string{"e1", "c2"}, store.ids())
}

func TestReplaceFailureKeepsPendingForRetry(t *testing.T) {
	store := newFakeStore()
	e1 := event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")
	store.events["e1"] = e1

	r := NewResolver(store)
	candidate := event("c", 1, "2024-05-01T09:30:00Z", "2024-05-01T10:30:00Z")
	_, err := r.Submit(candidate, false, []*entity.Event{e1})
	require.NoError(t, err)

	store.failNext = true
	_, err = r.Resolve(ActionReplace)
	require.Error(t, err)

	// Committed set untouched, conflict set still held: retry is possible
	// without re-deriving it.
	assert.ElementsMatch(t, []string{"e1"}, store.ids())
	require.NotNil(t, r.Pending())

	_, err = r.Resolve(ActionReplace)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c"}, store.ids())
	assert.Nil(t, r.Pending())
}

func TestSubmitEditExcludesSelf(t *testing.T) {
	store := newFakeStore()
	e1 := event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")
	store.events["e1"] = e1

	r := NewResolver(store)

	// Editing e1 with unchanged bounds must not conflict with itself.
	edited := event("e1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")
	edited.Title = "renamed"
	conflicts, err := r.Submit(edited, true, []*entity.Event{e1})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Equal(t, "renamed", store.events["e1"].Title)
}

func TestBusyRejectsConcurrentWork(t *testing.T) {
	store := newFakeStore()
	store.entered = make(chan struct{})
	store.release = make(chan struct{})

	r := NewResolver(store)
	first := event("c1", 1, "2024-05-01T09:00:00Z", "2024-05-01T10:00:00Z")

	done := make(chan error, 1)
	go func() {
		_, err := r.Submit(first, false, nil)
		done <- err
	}()
	<-store.entered

	// While the first commit is in flight every transition is rejected.
	_, err := r.Submit(event("c2", 1, "2024-05-01T11:00:00Z", "2024-05-01T12:00:00Z"), false, nil)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = r.Resolve(ActionReplace)
	assert.ErrorIs(t, err, ErrBusy)

	close(store.release)
	require.NoError(t, <-done)
	assert.ElementsMatch(t, []string{"c1"}, store.ids())
}

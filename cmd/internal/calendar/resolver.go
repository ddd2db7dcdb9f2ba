package calendar

import (
	"errors"
	"sync"

	"agendo/cmd/internal/domain/entity"
)

// Store is the persistence boundary the resolver commits through. Commit
// inserts or updates the candidate; Replace must apply the removals and
// the write atomically, so a failure leaves the committed set untouched.
type Store interface {
	Commit(event *entity.Event) error
	Replace(removeIDs []string, event *entity.Event) error
}

var (
	ErrNoPending = errors.New("no pending conflict")
	ErrBusy      = errors.New("resolution already in flight")
)

type Action string

const (
	ActionReplace    Action = "replace"
	ActionReschedule Action = "reschedule"
)

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionReplace, ActionReschedule:
		return Action(s), true
	}
	return "", false
}

// PendingConflict holds a submitted candidate between overlap detection
// and the user's replace/reschedule choice. IsUpdate records whether the
// candidate edits an existing event rather than creating a new one.
type PendingConflict struct {
	Candidate *entity.Event
	IsUpdate  bool
	Conflicts []*entity.Event
}

// Resolver is the per-user conflict state machine. It is either editing
// (no pending conflict) or conflicted (exactly one held candidate); a new
// submission supersedes whatever was pending, never merges with it. While
// a commit is in flight the resolver is busy and rejects further
// transitions instead of queueing them.
type Resolver struct {
	store Store

	mu      sync.Mutex
	pending *PendingConflict
	busy    bool
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Submit runs overlap detection for the candidate against the user's
// committed events. With an empty conflict set the candidate is committed
// immediately and (nil, nil) is returned; otherwise the candidate is
// parked and the conflict set returned with nothing persisted.
func (r *Resolver) Submit(candidate *entity.Event, isUpdate bool, existing []*entity.Event) ([]*entity.Event, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	// A fresh submission discards any stale pending conflict wholesale.
	r.pending = nil

	probe := Candidate{
		BeginsAt: candidate.BeginsAt,
		EndsAt:   candidate.EndsAt,
		UserID:   candidate.UserID,
	}
	if isUpdate {
		probe.ExcludeID = candidate.ID
	}

	conflicts := FindOverlaps(probe, existing)
	if len(conflicts) > 0 {
		r.pending = &PendingConflict{Candidate: candidate, IsUpdate: isUpdate, Conflicts: conflicts}
		r.mu.Unlock()
		return conflicts, nil
	}

	r.busy = true
	r.mu.Unlock()

	err := r.store.Commit(candidate)

	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
	return nil, err
}

// Resolve applies the user's choice to the pending conflict. Replace
// removes the entire conflict set and commits the candidate in one store
// call; if that call fails the pending conflict is kept so a retry does
// not have to re-derive it. Reschedule discards the candidate and returns
// to editing without touching the store.
func (r *Resolver) Resolve(action Action) (*PendingConflict, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	if r.pending == nil {
		r.mu.Unlock()
		return nil, ErrNoPending
	}
	p := r.pending

	if action == ActionReschedule {
		r.pending = nil
		r.mu.Unlock()
		return p, nil
	}

	r.busy = true
	r.mu.Unlock()

	removeIDs := make([]string, len(p.Conflicts))
	for i, ev := range p.Conflicts {
		removeIDs[i] = ev.ID
	}
	err := r.store.Replace(removeIDs, p.Candidate)

	r.mu.Lock()
	r.busy = false
	if err == nil {
		r.pending = nil
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return p, nil
}

// Dismiss drops the pending conflict, if any. Closing the conflict dialog
// and choosing reschedule are the same transition.
func (r *Resolver) Dismiss() {
	r.mu.Lock()
	if !r.busy {
		r.pending = nil
	}
	r.mu.Unlock()
}

// Pending returns the held conflict, or nil when the resolver is editing.
func (r *Resolver) Pending() *PendingConflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

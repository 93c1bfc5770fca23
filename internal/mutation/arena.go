package mutation

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/clinicapi"
)

// ErrNotStaged is returned by Commit/Rollback for an id with no captured
// inverse, which indicates a protocol misuse by the caller.
var ErrNotStaged = errors.New("mutation: no staged change for appointment")

// errMissing marks an optimistic apply against an id the arena does not
// hold; the coordinator translates it to the stale-entity path.
var errMissing = errors.New("mutation: appointment not in arena")

// inverse is the captured pre-mutation state of one event. prior == nil
// records that the rollback should remove the id (unused today: creates are
// never applied optimistically).
type inverse struct {
	prior *clinicapi.Appointment
}

// Arena is the explicit overlay store for optimistic mutations: the cached
// events of the active calendar window plus, per in-flight mutation, the
// exact inverse needed to roll its effect back. The arena is the only thing
// the render surface reads events from, so an optimistic apply is visible on
// the same tick as the gesture, strictly before the remote call dispatches.
type Arena struct {
	mu       sync.Mutex
	events   map[uuid.UUID]clinicapi.Appointment
	inverses map[uuid.UUID]inverse
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		events:   make(map[uuid.UUID]clinicapi.Appointment),
		inverses: make(map[uuid.UUID]inverse),
	}
}

// Load replaces the canonical event set, typically when a window fetch
// settles. Captured inverses survive: a confirmed refetch racing an
// unsettled mutation must not orphan its rollback.
func (a *Arena) Load(events []clinicapi.Appointment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = make(map[uuid.UUID]clinicapi.Appointment, len(events))
	for _, ev := range events {
		a.events[ev.ID] = ev
	}
}

// Get returns one event.
func (a *Arena) Get(id uuid.UUID) (clinicapi.Appointment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ev, ok := a.events[id]
	return ev, ok
}

// Snapshot returns the events ordered by start time, ready for render.
func (a *Arena) Snapshot() []clinicapi.Appointment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]clinicapi.Appointment, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Apply stages an optimistic in-place change to one event, capturing the
// prior value as the inverse. The change must be settled with Commit or
// Rollback before the next Apply on the same id.
func (a *Arena) Apply(id uuid.UUID, change func(*clinicapi.Appointment)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ev, ok := a.events[id]
	if !ok {
		return errMissing
	}
	if _, staged := a.inverses[id]; staged {
		return ErrMutationInFlight
	}
	prior := ev
	a.inverses[id] = inverse{prior: &prior}
	change(&ev)
	a.events[id] = ev
	return nil
}

// Remove stages an optimistic removal.
func (a *Arena) Remove(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	ev, ok := a.events[id]
	if !ok {
		return errMissing
	}
	if _, staged := a.inverses[id]; staged {
		return ErrMutationInFlight
	}
	prior := ev
	a.inverses[id] = inverse{prior: &prior}
	delete(a.events, id)
	return nil
}

// Commit confirms a staged change: the inverse is discarded and the
// optimistic value becomes the arena's truth until the next refetch.
func (a *Arena) Commit(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, staged := a.inverses[id]; !staged {
		return ErrNotStaged
	}
	delete(a.inverses, id)
	return nil
}

// Rollback restores the exact pre-mutation state of a staged change.
func (a *Arena) Rollback(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	inv, staged := a.inverses[id]
	if !staged {
		return ErrNotStaged
	}
	delete(a.inverses, id)
	if inv.prior == nil {
		delete(a.events, id)
		return nil
	}
	a.events[id] = *inv.prior
	return nil
}

// Discard drops an event and any staged inverse without restoring it, for
// targets that turned out not to exist server-side anymore.
func (a *Arena) Discard(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inverses, id)
	delete(a.events, id)
}

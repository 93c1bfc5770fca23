// Package calendarview drives the appointment calendar: it derives request
// keys from the visible date window and the doctor filter, fetches event
// sets through the caching layer, and runs the tri-state appointment editor
// modal. Events are handed to the render surface unmodified; the server is
// the source of truth for doctor-scoped visibility, so a filter change
// always refetches instead of filtering stale data client-side.
package calendarview

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/fetch"
)

// AllDoctors is the doctor filter value that scopes to every doctor.
const AllDoctors = "all"

// WindowKey identifies one distinct event-set request: a visible range plus
// a doctor scope.
type WindowKey struct {
	Start    time.Time
	End      time.Time
	DoctorID string
}

// Encode renders the key canonically. Times are normalized to UTC so the
// same window produces the same key regardless of the caller's zone.
func (k WindowKey) Encode() string {
	doctor := k.DoctorID
	if doctor == "" {
		doctor = AllDoctors
	}
	return strings.Join([]string{
		k.Start.UTC().Format(time.RFC3339),
		k.End.UTC().Format(time.RFC3339),
		doctor,
	}, "|")
}

// DecodeWindowKey parses a key produced by Encode.
func DecodeWindowKey(s string) (WindowKey, bool) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return WindowKey{}, false
	}
	start, err1 := time.Parse(time.RFC3339, parts[0])
	end, err2 := time.Parse(time.RFC3339, parts[1])
	if err1 != nil || err2 != nil {
		return WindowKey{}, false
	}
	return WindowKey{Start: start, End: end, DoctorID: parts[2]}, true
}

// EventStore receives settled event sets and serves render snapshots. When a
// controller is given one, every settlement flows into it and Events reads
// back through it, so an overlay store can splice optimistic changes into
// what the surface renders.
type EventStore interface {
	Load(events []clinicapi.Appointment)
	Snapshot() []clinicapi.Appointment
}

// Controller keeps the calendar's event set in sync with the visible window
// and doctor filter. A fetch is issued only when the derived key differs
// from the last issued one, so pure re-renders cost nothing; a change racing
// an in-flight fetch supersedes it.
type Controller struct {
	loader *fetch.Loader[[]clinicapi.Appointment]
	ctx    context.Context

	mu          sync.Mutex
	rangeStart  time.Time
	rangeEnd    time.Time
	doctorID    string
	lastIssued  string
	lastSettled string
	store       EventStore
	events      []clinicapi.Appointment
	loadErr     error
}

// NewController wires the controller to the shared event cache.
func NewController(ctx context.Context, cache *fetch.Cache[[]clinicapi.Appointment], fn fetch.FetchFunc[[]clinicapi.Appointment]) *Controller {
	c := &Controller{ctx: ctx, doctorID: AllDoctors}
	c.loader = fetch.NewLoader(cache, fn, c)
	return c
}

// SetEventStore routes settled event sets through store. Call it before the
// first OnRangeChange so no settlement lands outside the store.
func (c *Controller) SetEventStore(store EventStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
}

// OnRangeChange is the calendar surface's notification that the visible
// date window moved.
func (c *Controller) OnRangeChange(start, end time.Time) {
	c.mu.Lock()
	c.rangeStart = start
	c.rangeEnd = end
	c.mu.Unlock()
	c.refresh()
}

// SetDoctorFilter scopes the calendar to one doctor, or AllDoctors. A filter
// change alone still refetches: visibility rules are applied server-side.
func (c *Controller) SetDoctorFilter(doctorID string) {
	if doctorID == "" {
		doctorID = AllDoctors
	}
	c.mu.Lock()
	c.doctorID = doctorID
	c.mu.Unlock()
	c.refresh()
}

// refresh issues a fetch when the derived key changed since the last issue.
func (c *Controller) refresh() {
	c.mu.Lock()
	if c.rangeStart.IsZero() || c.rangeEnd.IsZero() {
		c.mu.Unlock()
		return
	}
	key := WindowKey{Start: c.rangeStart, End: c.rangeEnd, DoctorID: c.doctorID}.Encode()
	if key == c.lastIssued {
		c.mu.Unlock()
		return
	}
	c.lastIssued = key
	c.mu.Unlock()

	c.loader.Request(c.ctx, key)
}

// Reload drops the cache entry for the active window and refetches it. The
// mutation coordinator calls this after a settlement to reconcile with
// canonical server state.
func (c *Controller) Reload() { c.loader.Refresh(c.ctx) }

// ActiveKey returns the key of the window currently on screen.
func (c *Controller) ActiveKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastIssued
}

// DoctorFilter returns the current doctor scope.
func (c *Controller) DoctorFilter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doctorID
}

// SettledKey returns the key of the last window that settled, with data or
// with an error. It trails ActiveKey while a fetch is in flight.
func (c *Controller) SettledKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSettled
}

// OnData implements fetch.Handler.
func (c *Controller) OnData(key string, events []clinicapi.Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
	c.loadErr = nil
	c.lastSettled = key
	if c.store != nil {
		c.store.Load(events)
	}
}

// OnError implements fetch.Handler. The issued key is forgotten so the next
// window notification retries the fetch even when the key is unchanged.
func (c *Controller) OnError(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadErr = err
	c.lastSettled = key
	c.lastIssued = ""
}

// Events returns the event set for the most recently settled window. With an
// event store bound it reads the store's snapshot, which carries any staged
// optimistic changes; otherwise the events come back exactly as the server
// returned them.
func (c *Controller) Events() []clinicapi.Appointment {
	c.mu.Lock()
	store := c.store
	events := c.events
	c.mu.Unlock()
	if store != nil {
		return store.Snapshot()
	}
	return events
}

// Err returns the inline error state for the calendar region.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

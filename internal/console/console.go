// Package console assembles the standalone pieces into one working unit:
// the query-state store, the list and calendar controllers, the optimistic
// overlay arena, and the mutation coordinator, all sharing the same caches
// and the same clinic API client. Settled calendar windows flow into the
// arena and the calendar surface reads back through it, so a staged
// optimistic change is visible on the same tick as the gesture and a
// rollback disappears the moment it settles.
package console

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/calendarview"
	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/fetch"
	"github.com/clinicdesk/console/internal/listview"
	"github.com/clinicdesk/console/internal/mutation"
	"github.com/clinicdesk/console/internal/querystate"
)

// API is the slice of the clinic client the console consumes. Satisfied by
// *clinicapi.Client.
type API interface {
	ListPatients(ctx context.Context, rawQuery string) (clinicapi.PatientPage, error)
	ListAppointments(ctx context.Context, start, end time.Time, doctorID string) ([]clinicapi.Appointment, error)
	mutation.API
}

// Options tunes an assembly.
type Options struct {
	// CacheTTL bounds how long fetched pages and windows are served without
	// a new request. Non-positive falls back to one minute.
	CacheTTL time.Duration
	// Notify receives the coordinator's user-visible messages.
	Notify func(msg string)
}

// Console is one operator's assembled session state.
type Console struct {
	ListState *querystate.Store
	Lists     *listview.Controller
	Calendar  *calendarview.Controller
	Modal     *calendarview.Modal
	Arena     *mutation.Arena
	Mutations *mutation.Coordinator

	listCache  *fetch.Cache[clinicapi.PatientPage]
	eventCache *fetch.Cache[[]clinicapi.Appointment]
}

// New wires a console over api. The list controller issues the request for
// initial immediately; the calendar waits for its first OnRangeChange.
func New(ctx context.Context, api API, initial querystate.QueryState, opts Options, logger zerolog.Logger) *Console {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	c := &Console{
		ListState:  querystate.NewStore(initial),
		Modal:      calendarview.NewModal(),
		Arena:      mutation.NewArena(),
		listCache:  fetch.NewCache[clinicapi.PatientPage](ttl),
		eventCache: fetch.NewCache[[]clinicapi.Appointment](ttl),
	}

	c.Calendar = calendarview.NewController(ctx, c.eventCache, func(ctx context.Context, key string) ([]clinicapi.Appointment, error) {
		win, ok := calendarview.DecodeWindowKey(key)
		if !ok {
			return nil, fmt.Errorf("console: malformed window key %q", key)
		}
		return api.ListAppointments(ctx, win.Start, win.End, win.DoctorID)
	})
	c.Calendar.SetEventStore(c.Arena)

	c.Lists = listview.NewController(ctx, c.ListState, c.listCache, func(ctx context.Context, key string) (clinicapi.PatientPage, error) {
		return api.ListPatients(ctx, key)
	})

	c.Mutations = mutation.NewCoordinator(api, c.Arena, mutation.Hooks{
		ReloadCalendar:  c.Calendar.Reload,
		InvalidateLists: c.listCache.Clear,
		Notify:          opts.Notify,
	}, logger)

	return c
}

// OnRemoteChange reacts to a change broadcast from another console: cached
// list pages are dropped and the active calendar window is refetched, so
// both regions converge on the other writer's state.
func (c *Console) OnRemoteChange() {
	c.listCache.Clear()
	c.Calendar.Reload()
}

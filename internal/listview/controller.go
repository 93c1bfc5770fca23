// Package listview binds a headless table render surface to the address
// bar's QueryState and the caching fetch layer. It is the only place the
// 0-based/1-based page conversion happens, in both directions.
package listview

import (
	"context"
	"sync"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/fetch"
	"github.com/clinicdesk/console/internal/querystate"
)

// SortState is the table's current sort column and direction. The zero value
// means unsorted.
type SortState struct {
	Column string
	Dir    querystate.SortDir
}

// Controller keeps a server-paginated, sortable, searchable table in
// lockstep with a querystate.Store. Every effective QueryState write issues
// exactly one request through the fetch layer, keyed on the canonical
// encoding of the full tuple; responses for superseded keys never reach the
// rows the surface renders.
type Controller struct {
	store  *querystate.Store
	loader *fetch.Loader[clinicapi.PatientPage]
	ctx    context.Context

	mu        sync.Mutex
	rows      []clinicapi.Patient
	pageCount int
	loadErr   error
	settled   bool
}

// NewController wires the controller to the store and the shared cache and
// issues the request for the store's current state.
func NewController(ctx context.Context, store *querystate.Store, cache *fetch.Cache[clinicapi.PatientPage], fn fetch.FetchFunc[clinicapi.PatientPage]) *Controller {
	c := &Controller{store: store, ctx: ctx}
	c.loader = fetch.NewLoader(cache, fn, c)
	store.Subscribe(func(s querystate.QueryState) {
		c.loader.Request(c.ctx, s.Key())
	})
	c.loader.Request(ctx, store.Current().Key())
	return c
}

// OnData implements fetch.Handler.
func (c *Controller) OnData(_ string, page clinicapi.PatientPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = page.Patients
	c.pageCount = page.Pagination.TotalPages
	c.loadErr = nil
	c.settled = true
}

// OnError implements fetch.Handler. The error is exposed as an inline state
// for the data region; the previous rows stay in place.
func (c *Controller) OnError(_ string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadErr = err
	c.settled = true
}

// Settled reports whether any request has settled yet, with data or with an
// error. Headless callers poll it instead of rendering a loading state.
func (c *Controller) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

// Rows returns the rows for the most recently settled request.
func (c *Controller) Rows() []clinicapi.Patient {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Err returns the inline error state, nil when the last fetch succeeded.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// PageCount returns the server-reported number of pages, 0 before the first
// settlement.
func (c *Controller) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageCount
}

// CurrentPage is the 1-based page shown to the operator.
func (c *Controller) CurrentPage() int { return c.store.Current().Page }

// PageIndex is the 0-based index the tabular state object works with.
// Page is invariantly >= 1, so the index is never negative.
func (c *Controller) PageIndex() int { return c.store.Current().Page - 1 }

// PageSize is the rows-per-page the size selector shows.
func (c *Controller) PageSize() int { return c.store.Current().Limit }

// SortState returns the current sort column and direction.
func (c *Controller) SortState() SortState {
	s := c.store.Current()
	return SortState{Column: s.SortBy, Dir: s.SortDir}
}

// CanPrev reports whether a previous page exists.
func (c *Controller) CanPrev() bool { return c.store.Current().Page > 1 }

// CanNext reports whether a next page exists.
func (c *Controller) CanNext() bool { return c.store.Current().Page < c.PageCount() }

// First navigates to page 1.
func (c *Controller) First() { c.goTo(1) }

// Prev navigates one page back.
func (c *Controller) Prev() { c.goTo(c.store.Current().Page - 1) }

// Next navigates one page forward.
func (c *Controller) Next() { c.goTo(c.store.Current().Page + 1) }

// Last navigates to the final page.
func (c *Controller) Last() { c.goTo(c.PageCount()) }

// goTo clamps the 1-based target to [1, pageCount] and replaces the state.
// Landing on the current page is a no-op inside the store, so boundary
// presses issue no request.
func (c *Controller) goTo(page int) {
	if page < 1 {
		page = 1
	}
	if count := c.PageCount(); count > 0 && page > count {
		page = count
	}
	c.store.Replace(c.store.Current().WithPage(page))
}

// ToggleSort cycles the sort state of a header column:
// unsorted -> ascending -> descending -> unsorted. Toggling a different
// column starts that column at ascending and drops the previous one.
func (c *Controller) ToggleSort(column string) {
	s := c.store.Current()
	switch {
	case s.SortBy != column:
		c.store.Replace(s.WithSort(column, querystate.SortAsc))
	case s.SortDir == querystate.SortAsc:
		c.store.Replace(s.WithSort(column, querystate.SortDesc))
	default:
		c.store.Replace(s.WithoutSort())
	}
}

// SetPageSize changes the rows-per-page. The page reset to 1 happens inside
// the same QueryState write; observers never see two sequential navigations.
func (c *Controller) SetPageSize(limit int) {
	c.store.Replace(c.store.Current().WithLimit(limit))
}

// SetSearch installs a new search term, resetting to page 1 and superseding
// any in-flight request for the unfiltered key.
func (c *Controller) SetSearch(term string) {
	c.store.Replace(c.store.Current().WithSearch(term))
}

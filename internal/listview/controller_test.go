package listview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/fetch"
	"github.com/clinicdesk/console/internal/querystate"
)

// seedPages pre-populates the cache so every request settles synchronously
// from a cache hit and the tests stay free of goroutine timing.
func seedPages(cache *fetch.Cache[clinicapi.PatientPage], totalPages int, states ...querystate.QueryState) {
	for _, s := range states {
		cache.Put(s.Key(), clinicapi.PatientPage{
			Patients:   []clinicapi.Patient{{ID: uuid.New(), LastName: "row for " + s.Key()}},
			Pagination: clinicapi.Pagination{TotalPages: totalPages},
		})
	}
}

func newTestController(t *testing.T, initial querystate.QueryState, cache *fetch.Cache[clinicapi.PatientPage]) (*Controller, *querystate.Store) {
	t.Helper()
	store := querystate.NewStore(initial)
	c := NewController(context.Background(), store, cache, func(context.Context, string) (clinicapi.PatientPage, error) {
		t.Error("unexpected remote fetch; seed the cache for every key the test touches")
		return clinicapi.PatientPage{}, nil
	})
	return c, store
}

func TestInitialRequestUsesStoreState(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	initial := querystate.Default().WithPage(3)
	seedPages(cache, 5, initial)

	c, _ := newTestController(t, initial, cache)

	if c.PageCount() != 5 {
		t.Fatalf("PageCount() = %d, want 5", c.PageCount())
	}
	if len(c.Rows()) != 1 {
		t.Fatalf("Rows() = %d rows, want 1", len(c.Rows()))
	}
}

func TestPageIndexConversion(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	initial := querystate.Default().WithPage(3)
	seedPages(cache, 5, initial)

	c, _ := newTestController(t, initial, cache)

	if c.CurrentPage() != 3 {
		t.Fatalf("CurrentPage() = %d, want 3", c.CurrentPage())
	}
	if c.PageIndex() != 2 {
		t.Fatalf("PageIndex() = %d, want 2", c.PageIndex())
	}
}

func TestNavigationClamps(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	first := querystate.Default()
	last := querystate.Default().WithPage(3)
	second := querystate.Default().WithPage(2)
	seedPages(cache, 3, first, second, last)

	c, store := newTestController(t, first, cache)

	// Prev on page 1 stays put and issues no state change.
	c.Prev()
	if store.Current().Page != 1 {
		t.Fatalf("Prev on first page moved to %d", store.Current().Page)
	}

	c.Next()
	if store.Current().Page != 2 {
		t.Fatalf("Next moved to %d, want 2", store.Current().Page)
	}

	c.Last()
	if store.Current().Page != 3 {
		t.Fatalf("Last moved to %d, want 3", store.Current().Page)
	}

	// Next on the last page clamps.
	c.Next()
	if store.Current().Page != 3 {
		t.Fatalf("Next on last page moved to %d", store.Current().Page)
	}

	c.First()
	if store.Current().Page != 1 {
		t.Fatalf("First moved to %d, want 1", store.Current().Page)
	}
}

func TestCanPrevCanNext(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	second := querystate.Default().WithPage(2)
	seedPages(cache, 2, second)

	c, _ := newTestController(t, second, cache)

	if !c.CanPrev() {
		t.Fatal("CanPrev() = false on page 2")
	}
	if c.CanNext() {
		t.Fatal("CanNext() = true on the last page")
	}
}

func TestToggleSortCycle(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	base := querystate.Default()
	asc := base.WithSort("last_name", querystate.SortAsc)
	desc := base.WithSort("last_name", querystate.SortDesc)
	seedPages(cache, 1, base, asc, desc)

	c, _ := newTestController(t, base, cache)

	c.ToggleSort("last_name")
	if got := c.SortState(); got != (SortState{Column: "last_name", Dir: querystate.SortAsc}) {
		t.Fatalf("first toggle: %+v", got)
	}
	c.ToggleSort("last_name")
	if got := c.SortState(); got != (SortState{Column: "last_name", Dir: querystate.SortDesc}) {
		t.Fatalf("second toggle: %+v", got)
	}
	c.ToggleSort("last_name")
	if got := c.SortState(); got != (SortState{}) {
		t.Fatalf("third toggle should clear sorting, got %+v", got)
	}
}

func TestToggleSortDifferentColumnStartsAscending(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	base := querystate.Default()
	byName := base.WithSort("last_name", querystate.SortDesc)
	byEmail := base.WithSort("email", querystate.SortAsc)
	seedPages(cache, 1, byName, byEmail)

	c, _ := newTestController(t, byName, cache)

	c.ToggleSort("email")
	if got := c.SortState(); got != (SortState{Column: "email", Dir: querystate.SortAsc}) {
		t.Fatalf("cross-column toggle: %+v", got)
	}
}

func TestSetPageSizeResetsToFirstPage(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	deep := querystate.Default().WithPage(4)
	resized := querystate.Default().WithLimit(50)
	seedPages(cache, 4, deep, resized)

	c, store := newTestController(t, deep, cache)

	c.SetPageSize(50)
	got := store.Current()
	if got.Page != 1 || got.Limit != 50 {
		t.Fatalf("SetPageSize: state %+v, want page 1 limit 50", got)
	}
	if c.PageSize() != 50 {
		t.Fatalf("PageSize() = %d", c.PageSize())
	}
}

func TestSetSearchResetsToFirstPage(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	deep := querystate.Default().WithPage(5)
	filtered := querystate.Default().WithSearch("kaya")
	seedPages(cache, 5, deep)
	seedPages(cache, 1, filtered)

	c, store := newTestController(t, deep, cache)

	c.SetSearch("kaya")
	if got := store.Current(); got.Page != 1 || got.Search != "kaya" {
		t.Fatalf("SetSearch: state %+v", got)
	}
	if c.PageCount() != 1 {
		t.Fatalf("PageCount() = %d after filtered settlement, want 1", c.PageCount())
	}
}

func TestErrorKeepsPreviousRows(t *testing.T) {
	cache := fetch.NewCache[clinicapi.PatientPage](time.Minute)
	initial := querystate.Default()
	seedPages(cache, 2, initial)

	remoteErr := errors.New("upstream down")
	store := querystate.NewStore(initial)
	c := NewController(context.Background(), store, cache, func(context.Context, string) (clinicapi.PatientPage, error) {
		return clinicapi.PatientPage{}, remoteErr
	})

	rows := c.Rows()
	if len(rows) != 1 {
		t.Fatalf("initial Rows() = %d", len(rows))
	}

	// Simulate a later failed settlement.
	c.OnError(initial.Key(), remoteErr)

	if !errors.Is(c.Err(), remoteErr) {
		t.Fatalf("Err() = %v", c.Err())
	}
	if len(c.Rows()) != 1 {
		t.Fatal("rows were dropped on error")
	}

	// The next success clears the inline error.
	c.OnData(initial.Key(), clinicapi.PatientPage{Pagination: clinicapi.Pagination{TotalPages: 2}})
	if c.Err() != nil {
		t.Fatalf("Err() = %v after success", c.Err())
	}
}

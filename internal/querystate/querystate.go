// Package querystate owns the pagination, sort, and filter parameters of a
// server-paged list view. The address bar's query string is the single source
// of truth: views rehydrate their QueryState from it on navigation and write
// it back through a Store, one atomic replacement per user action.
package querystate

import (
	"net/url"
	"strconv"
	"sync"
)

// SortDir is a sort direction as it appears in the query string.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// allowedLimits are the page sizes offered by the size selector.
var allowedLimits = [...]int{10, 20, 30, 40, 50}

// QueryState is the canonical parameter tuple for a list view. Page is
// 1-based; the 0-based index used by tabular render surfaces is derived in
// listview, not stored here.
type QueryState struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir SortDir
}

// Default returns the state an unparameterized view starts from.
func Default() QueryState {
	return QueryState{Page: DefaultPage, Limit: DefaultLimit}
}

// Parse rehydrates a QueryState from a raw query string. Missing or invalid
// values fall back to defaults; limit is snapped to the allowed set.
func Parse(rawQuery string) QueryState {
	s := Default()
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return s
	}
	if p, err := strconv.Atoi(values.Get("page")); err == nil && p >= 1 {
		s.Page = p
	}
	if l, err := strconv.Atoi(values.Get("limit")); err == nil {
		s.Limit = snapLimit(l)
	}
	s.Search = values.Get("search")
	if by := values.Get("sortBy"); by != "" {
		dir := SortDir(values.Get("sortDir"))
		if dir != SortAsc && dir != SortDesc {
			dir = SortAsc
		}
		s.SortBy = by
		s.SortDir = dir
	}
	return s
}

// Encode renders the state as a query string. The encoding is canonical:
// identical states produce byte-identical strings no matter which control
// produced them, so it doubles as the request key for the fetch layer.
func (s QueryState) Encode() string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(s.Page))
	values.Set("limit", strconv.Itoa(s.Limit))
	if s.Search != "" {
		values.Set("search", s.Search)
	}
	if s.SortBy != "" {
		values.Set("sortBy", s.SortBy)
		values.Set("sortDir", string(s.SortDir))
	}
	return values.Encode()
}

// Key is the normalized request key for this state.
func (s QueryState) Key() string { return s.Encode() }

// WithPage returns a copy on the given 1-based page. Values below 1 clamp
// to 1; clamping against the upper bound needs the page count and lives in
// the table controller.
func (s QueryState) WithPage(page int) QueryState {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

// WithLimit returns a copy with the new page size and the page reset to 1.
// Both fields change in the same value so observers never see an
// intermediate state with the old page and the new limit.
func (s QueryState) WithLimit(limit int) QueryState {
	s.Limit = snapLimit(limit)
	s.Page = 1
	return s
}

// WithSearch returns a copy with the new search term and the page reset
// to 1: a fresh filter always starts from the first page of its results.
func (s QueryState) WithSearch(search string) QueryState {
	s.Search = search
	s.Page = 1
	return s
}

// WithSort returns a copy sorted by the given column and direction.
func (s QueryState) WithSort(column string, dir SortDir) QueryState {
	s.SortBy = column
	s.SortDir = dir
	return s
}

// WithoutSort returns a copy with sorting cleared.
func (s QueryState) WithoutSort() QueryState {
	s.SortBy = ""
	s.SortDir = ""
	return s
}

func snapLimit(limit int) int {
	for _, allowed := range allowedLimits {
		if limit == allowed {
			return limit
		}
	}
	return DefaultLimit
}

// Store is the write path to the address bar. Every user action funnels into
// a single Replace call; observers (the table controller, the URL writer)
// are notified exactly once per replacement.
type Store struct {
	mu        sync.Mutex
	state     QueryState
	observers []func(QueryState)
}

// NewStore creates a store seeded with the given state, typically
// Parse(addressBarQuery).
func NewStore(initial QueryState) *Store {
	return &Store{state: initial}
}

// Current returns the present state.
func (st *Store) Current() QueryState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Replace atomically installs a new state and notifies observers. A
// replacement with an identical state is a no-op so pure re-renders do not
// trigger redundant fetches.
func (st *Store) Replace(next QueryState) {
	st.mu.Lock()
	if next == st.state {
		st.mu.Unlock()
		return
	}
	st.state = next
	observers := st.observers
	st.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

// Subscribe registers an observer called on every effective replacement.
func (st *Store) Subscribe(fn func(QueryState)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.observers = append(st.observers, fn)
}

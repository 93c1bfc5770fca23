// Package pagination parses and normalizes page-based list parameters for
// the clinic API surface. Pages are 1-based on the wire; converting to the
// 0-based offsets storage wants happens here and nowhere else.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50
)

// Params holds the normalized list parameters extracted from a request.
type Params struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// FromContext extracts list parameters from the echo context, applying
// defaults and bounds.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = DefaultPage
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sortDir := c.QueryParam("sortDir")
	if sortDir != "asc" && sortDir != "desc" {
		sortDir = ""
	}

	return Params{
		Page:    page,
		Limit:   limit,
		Search:  c.QueryParam("search"),
		SortBy:  c.QueryParam("sortBy"),
		SortDir: sortDir,
	}
}

// Offset returns the 0-based row offset for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the page count for a result set size. An empty set
// still has one (empty) page so clients always have a valid page to sit on.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Slice bounds-checks and cuts one page out of a full result set of length
// total, returning the half-open index range [from, to).
func (p Params) Slice(total int) (from, to int) {
	from = p.Offset()
	if from > total {
		from = total
	}
	to = from + p.Limit
	if to > total {
		to = total
	}
	return from, to
}

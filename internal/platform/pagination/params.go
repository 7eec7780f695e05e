package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the client omits pageSize.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps pageSize to keep queries bounded.
	DefaultMaxPageSize = 100
)

// Cursor is the Firestore position a page token resumes from.
type Cursor struct {
	StartAfter []any `json:"startAfter,omitempty"`
}

// Params carries the paging values parsed from a request. Page is 1-based and
// only used by in-memory listings; Firestore listings follow PageToken.
type Params struct {
	Page      int
	PageSize  int
	PageToken string
	Cursor    Cursor
}

// Offset is the zero-based index of the first item on Page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Options control Parse for a given endpoint.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// AllowUnbounded lets a missing pageSize mean "everything" (PageSize 0).
	AllowUnbounded bool
}

var (
	ErrInvalidPage      = errors.New("pagination: invalid page")
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// FromRequest parses the query string of r.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse reads page, pageSize and pageToken.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	pageSize, err := parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return Params{}, err
	}
	params := Params{Page: 1, PageSize: pageSize}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidPage)
		}
		params.Page = page
	}

	if raw := strings.TrimSpace(values.Get("pageToken")); raw != "" {
		cursor, err := DecodeToken(raw)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = raw
		params.Cursor = cursor
	}
	return params, nil
}

func parsePageSize(raw string, opts Options) (int, error) {
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	defaultPageSize := opts.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if defaultPageSize > maxPageSize {
		defaultPageSize = maxPageSize
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		if opts.AllowUnbounded {
			return 0, nil
		}
		return defaultPageSize, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
	}
	if value > maxPageSize {
		value = maxPageSize
	}
	return value, nil
}

// Slice returns the window of items selected by p along with the total count.
// A zero PageSize returns every item.
func Slice[T any](items []T, p Params) ([]T, int) {
	total := len(items)
	if p.PageSize <= 0 {
		return items, total
	}
	start := p.Offset()
	if start >= total {
		return []T{}, total
	}
	end := min(start+p.PageSize, total)
	return items[start:end], total
}

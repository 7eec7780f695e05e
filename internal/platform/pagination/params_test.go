package pagination

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != DefaultPageSize || params.Page != 1 {
		t.Fatalf("unexpected defaults %#v", params)
	}
	if params.PageToken != "" {
		t.Fatalf("expected empty page token got %q", params.PageToken)
	}
}

func TestParseUnbounded(t *testing.T) {
	params, err := Parse(url.Values{}, Options{AllowUnbounded: true})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 0 {
		t.Fatalf("expected unbounded page size, got %d", params.PageSize)
	}
}

func TestParsePageSize(t *testing.T) {
	opts := Options{DefaultPageSize: 25, MaxPageSize: 40}
	values := url.Values{}
	values.Set("pageSize", "30")

	params, err := Parse(values, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 30 {
		t.Fatalf("expected page size 30 got %d", params.PageSize)
	}

	values.Set("pageSize", "400")
	params, err = Parse(values, opts)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != opts.MaxPageSize {
		t.Fatalf("expected page size clamped to %d got %d", opts.MaxPageSize, params.PageSize)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		want  error
	}{
		{"non numeric size", "pageSize", "abc", ErrInvalidPageSize},
		{"zero size", "pageSize", "0", ErrInvalidPageSize},
		{"negative page", "page", "-1", ErrInvalidPage},
		{"garbage token", "pageToken", "%%%", ErrInvalidPageToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values := url.Values{}
			values.Set(tc.key, tc.value)
			if _, err := Parse(values, Options{}); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := EncodeToken(Cursor{StartAfter: []any{"2024-05-01T10:00:00Z", "order-9"}})
	if err != nil {
		t.Fatalf("EncodeToken: %v", err)
	}
	values := url.Values{}
	values.Set("pageToken", token)
	params, err := Parse(values, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []any{"2024-05-01T10:00:00Z", "order-9"}
	if !reflect.DeepEqual(params.Cursor.StartAfter, want) {
		t.Fatalf("expected cursor %#v got %#v", want, params.Cursor.StartAfter)
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, total := Slice(items, Params{Page: 2, PageSize: 2})
	if total != 5 || !reflect.DeepEqual(page, []int{3, 4}) {
		t.Fatalf("unexpected page %v total %d", page, total)
	}
	page, _ = Slice(items, Params{Page: 3, PageSize: 2})
	if !reflect.DeepEqual(page, []int{5}) {
		t.Fatalf("unexpected last page %v", page)
	}
	page, _ = Slice(items, Params{Page: 9, PageSize: 2})
	if len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %v", page)
	}
	page, _ = Slice(items, Params{Page: 1})
	if len(page) != 5 {
		t.Fatalf("expected all items when unbounded, got %v", page)
	}
}

package firestore

import (
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jewelry-storefront/api/internal/domain"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

// pageWindow lists newest first (createdAt desc, document ID as tie-break)
// and resumes after the cursor carried by a page token.
type pageWindow struct {
	size  int
	after []any
}

func newPageWindow(pager domain.Pagination) (pageWindow, error) {
	w := pageWindow{size: pager.PageSize}
	switch {
	case w.size <= 0:
		w.size = defaultListPageSize
	case w.size > maxListPageSize:
		w.size = maxListPageSize
	}
	if pager.PageToken == "" {
		return w, nil
	}

	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return w, err
	}
	if len(cursor.StartAfter) != 2 {
		return w, fmt.Errorf("%w: unexpected cursor", pagination.ErrInvalidPageToken)
	}
	raw, _ := cursor.StartAfter[0].(string)
	createdAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return w, fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	id, _ := cursor.StartAfter[1].(string)
	w.after = []any{createdAt, id}
	return w, nil
}

func (w pageWindow) apply(q firestore.Query) firestore.Query {
	q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if len(w.after) > 0 {
		q = q.StartAfter(w.after...)
	}
	// One extra row tells us whether another page exists.
	return q.Limit(w.size + 1)
}

func collectPage[D any, T any](docs []pfirestore.Document[D], w pageWindow, convert func(pfirestore.Document[D]) T, createdAt func(D) time.Time) domain.Page[T] {
	page := domain.Page[T]{Items: make([]T, 0, min(len(docs), w.size))}
	for i, doc := range docs {
		if i == w.size {
			last := docs[i-1]
			token, err := pagination.EncodeToken(pagination.Cursor{
				StartAfter: []any{createdAt(last.Data).UTC().Format(time.RFC3339Nano), last.ID},
			})
			if err == nil {
				page.NextPageToken = token
			}
			break
		}
		page.Items = append(page.Items, convert(doc))
	}
	return page
}

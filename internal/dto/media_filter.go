// MediaFilters describe caller-provided filters to narrow the media list.
package dto

import (
	"net/url"
	"strconv"
	"time"
)

type MediaFilters struct {
	Status        string
	ModelType     string
	Type          string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Page          int
	PageSize      int
	// Extra carries query parameters the service accepts but this struct does not name.
	Extra map[string]string
}

// Query encodes the filters as URL query parameters; zero values are omitted.
func (f *MediaFilters) Query() url.Values {
	q := url.Values{}
	if f == nil {
		return q
	}

	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.ModelType != "" {
		q.Set("modelType", f.ModelType)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if !f.CreatedAfter.IsZero() {
		q.Set("createdAfter", f.CreatedAfter.UTC().Format(time.RFC3339))
	}
	if !f.CreatedBefore.IsZero() {
		q.Set("createdBefore", f.CreatedBefore.UTC().Format(time.RFC3339))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	for k, v := range f.Extra {
		q.Set(k, v)
	}
	return q
}

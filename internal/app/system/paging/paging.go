package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 200

// Page is an offset window over a sorted list.
type Page struct {
	Limit int64
	Skip  int64
}

// Parse reads "limit" and "offset" from the query string. Missing or
// invalid values fall back to PageSize and 0; limit is clamped to
// MaxPageSize.
func Parse(r *http.Request) Page {
	p := Page{Limit: PageSize}
	if n, err := strconv.ParseInt(query.Get(r, "limit"), 10, 64); err == nil && n > 0 {
		p.Limit = min(n, MaxPageSize)
	}
	if n, err := strconv.ParseInt(query.Get(r, "offset"), 10, 64); err == nil && n > 0 {
		p.Skip = n
	}
	return p
}

// Apply sets limit and skip on a Find.
func (p Page) Apply(find *options.FindOptions) *options.FindOptions {
	if p.Limit > 0 {
		find.SetLimit(p.Limit)
	}
	if p.Skip > 0 {
		find.SetSkip(p.Skip)
	}
	return find
}

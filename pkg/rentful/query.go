package rentful

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// QueryParams expresses common list options. The zero value means "server
// defaults"; ToValues renders only what was set.
type QueryParams struct {
	// Page is the page number (page[number]).
	Page int
	// PerPage is the page size (page[size]).
	PerPage int
	// Stats requests server-side aggregates, e.g. {"total": ["count"]}.
	Stats map[string][]string
	// Include lists relationships to side-load.
	Include []string
	// Fields restricts returned attributes per resource type.
	Fields map[string][]string
	// Filters narrow the result set (filter[name]=...).
	Filters map[string][]string
	// Extra holds any additional raw query parameters.
	Extra url.Values
}

// NewQueryParams creates empty query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{}
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithPerPage sets the page size.
func (q *QueryParams) WithPerPage(perPage int) *QueryParams {
	q.PerPage = perPage

	return q
}

// WithInclude adds relationships to side-load.
func (q *QueryParams) WithInclude(relationships ...string) *QueryParams {
	q.Include = append(q.Include, relationships...)

	return q
}

// WithFilter adds a filter value.
func (q *QueryParams) WithFilter(name, value string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string][]string)
	}

	q.Filters[name] = append(q.Filters[name], value)

	return q
}

// WithStats requests a server-side aggregate.
func (q *QueryParams) WithStats(name string, aggregates ...string) *QueryParams {
	if q.Stats == nil {
		q.Stats = make(map[string][]string)
	}

	q.Stats[name] = append(q.Stats[name], aggregates...)

	return q
}

// WithTotalCount requests stats[total]=count so the server reports the total
// row count, which auto-pagination uses as its loop bound.
func (q *QueryParams) WithTotalCount() *QueryParams {
	return q.WithStats("total", "count")
}

// Clone returns a deep copy, so pagination can advance the page number
// without mutating the caller's params.
func (q *QueryParams) Clone() *QueryParams {
	if q == nil {
		return NewQueryParams()
	}

	out := &QueryParams{
		Page:    q.Page,
		PerPage: q.PerPage,
		Include: append([]string(nil), q.Include...),
	}

	out.Stats = cloneMultiMap(q.Stats)
	out.Fields = cloneMultiMap(q.Fields)
	out.Filters = cloneMultiMap(q.Filters)

	if q.Extra != nil {
		out.Extra = make(url.Values, len(q.Extra))
		for k, v := range q.Extra {
			out.Extra[k] = append([]string(nil), v...)
		}
	}

	return out
}

func cloneMultiMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}

	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}

	return out
}

// ToValues converts the params to URL query values.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set("page[number]", strconv.Itoa(q.Page))
	}

	if q.PerPage > 0 {
		values.Set("page[size]", strconv.Itoa(q.PerPage))
	}

	for name, aggregates := range q.Stats {
		values.Set(fmt.Sprintf("stats[%s]", name), strings.Join(aggregates, ","))
	}

	if len(q.Include) > 0 {
		values.Set("include", strings.Join(q.Include, ","))
	}

	for resourceType, fields := range q.Fields {
		values.Set(fmt.Sprintf("fields[%s]", resourceType), strings.Join(fields, ","))
	}

	for name, filterValues := range q.Filters {
		values.Set(fmt.Sprintf("filter[%s]", name), strings.Join(filterValues, ","))
	}

	for key, extra := range q.Extra {
		for _, v := range extra {
			values.Add(key, v)
		}
	}

	return values
}

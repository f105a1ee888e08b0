package rentful

import (
	"context"
	"errors"

	"github.com/rentful-io/rentful-client/internal/constants"
)

// ErrNoMoreItems is returned by PaginationIterator.Next when the collection
// is exhausted.
var ErrNoMoreItems = errors.New("no more items")

// PageFetcher fetches one page of a collection. The returned rate-limit
// context is parsed from that response's headers; pagination consults it
// before requesting the next page.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string, params *QueryParams) (*ListResult, *RateLimitContext, error)
}

// PaginationOptions controls FetchAllPages and PaginationIterator.
type PaginationOptions struct {
	// PerPage is the page size to request. When zero and AutoPaginate is
	// set, a default of 25 is seeded.
	PerPage int

	// AutoPaginate keeps fetching pages until the server-reported total is
	// accumulated or the rate limit is exhausted.
	AutoPaginate bool
}

// DefaultPaginationOptions returns options that fetch all pages with the
// default page size.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{AutoPaginate: true}
}

// seedPerPage picks the page size to request: an explicit size on the params
// wins over the configured one, which wins over the default of 25.
func seedPerPage(params *QueryParams, opts *PaginationOptions) int {
	if params.PerPage > 0 {
		return params.PerPage
	}

	if opts.PerPage > 0 {
		return opts.PerPage
	}

	return constants.DefaultAutoPaginatePageSize
}

// FetchAllPages fetches a collection through the pipeline, page by page, in
// strictly sequential page-number order. With AutoPaginate it loops while
// the server-reported total exceeds the accumulated count and the previous
// response's rate limit still has remaining quota; when the quota hits zero
// it stops without error, leaving the caller with a partial result set.
func FetchAllPages(ctx context.Context, fetcher PageFetcher, path string, params *QueryParams, opts *PaginationOptions) (*ListResult, error) {
	if opts == nil {
		opts = DefaultPaginationOptions()
	}

	pageParams := params.Clone()

	if opts.PerPage > 0 || opts.AutoPaginate {
		pageParams.WithPerPage(seedPerPage(pageParams, opts)).WithPage(1).WithTotalCount()
	}

	result, rateLimit, err := fetcher.FetchPage(ctx, path, pageParams)
	if err != nil {
		return nil, err
	}

	if !opts.AutoPaginate {
		return result, nil
	}

	accumulated := &ListResult{Data: result.Data, Meta: result.Meta}
	total := result.TotalCount()

	for total > len(accumulated.Data) && rateLimit != nil && rateLimit.Remaining > 0 {
		pageParams.Page++

		page, nextRateLimit, err := fetcher.FetchPage(ctx, path, pageParams)
		if err != nil {
			return nil, err
		}

		accumulated.Data = append(accumulated.Data, page.Data...)
		accumulated.Meta = page.Meta
		rateLimit = nextRateLimit

		if reported := page.TotalCount(); reported >= 0 {
			total = reported
		}

		// A server that stops returning rows ends the loop even if the
		// reported total was never reached.
		if len(page.Data) == 0 {
			break
		}
	}

	return accumulated, nil
}

// PaginationIterator yields items of a paginated collection one at a time,
// fetching pages on demand with the same bounds as FetchAllPages.
type PaginationIterator struct {
	ctx       context.Context
	fetcher   PageFetcher
	path      string
	params    *QueryParams
	buffer    []map[string]interface{}
	total     int
	consumed  int
	rateLimit *RateLimitContext
	fetched   bool
	done      bool
}

// NewPaginationIterator creates an iterator over a paginated collection.
func NewPaginationIterator(ctx context.Context, fetcher PageFetcher, path string, params *QueryParams, opts *PaginationOptions) *PaginationIterator {
	if opts == nil {
		opts = DefaultPaginationOptions()
	}

	pageParams := params.Clone()
	pageParams.WithPerPage(seedPerPage(pageParams, opts)).WithPage(1).WithTotalCount()

	return &PaginationIterator{
		ctx:     ctx,
		fetcher: fetcher,
		path:    path,
		params:  pageParams,
		total:   -1,
	}
}

// HasNext reports whether another item is available without fetching it.
func (it *PaginationIterator) HasNext() bool {
	if len(it.buffer) > 0 {
		return true
	}

	if it.done {
		return false
	}

	if !it.fetched {
		return true
	}

	return it.total > it.consumed && it.rateLimit != nil && it.rateLimit.Remaining > 0
}

// Next returns the next item, fetching the next page when the current one is
// drained. It returns ErrNoMoreItems once the collection is exhausted.
func (it *PaginationIterator) Next() (map[string]interface{}, error) {
	if len(it.buffer) == 0 {
		if !it.HasNext() {
			return nil, ErrNoMoreItems
		}

		if err := it.fetchNextPage(); err != nil {
			return nil, err
		}

		if len(it.buffer) == 0 {
			it.done = true

			return nil, ErrNoMoreItems
		}
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]
	it.consumed++

	return item, nil
}

func (it *PaginationIterator) fetchNextPage() error {
	if it.fetched {
		it.params.Page++
	}

	page, rateLimit, err := it.fetcher.FetchPage(it.ctx, it.path, it.params)
	if err != nil {
		return err
	}

	it.fetched = true
	it.buffer = page.Data
	it.rateLimit = rateLimit

	if reported := page.TotalCount(); reported >= 0 {
		it.total = reported
	} else {
		it.total = it.consumed + len(page.Data)
	}

	return nil
}

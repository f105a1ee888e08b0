package client

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// resourceProxy is the single parametrized implementation behind every
// resource type. It implements rentful.ResourceProxy.
type resourceProxy struct {
	client *Client
	name   string
	// singular is the JSON:API type sent in write payloads.
	singular string
}

func newResourceProxy(c *Client, name string) *resourceProxy {
	return &resourceProxy{
		client:   c,
		name:     name,
		singular: singularize(name),
	}
}

// singularize derives the JSON:API resource type from the collection name.
// Catalog names end in a plural "s"; "ies" pluralizes a "y" stem.
func singularize(name string) string {
	switch {
	case len(name) > 3 && name[len(name)-3:] == "ies":
		return name[:len(name)-3] + "y"
	case len(name) > 1 && name[len(name)-1] == 's':
		return name[:len(name)-1]
	default:
		return name
	}
}

// List fetches one page of resources. When the client is configured with
// AutoPaginate, List transparently fetches every page instead.
func (p *resourceProxy) List(ctx context.Context, params *rentful.QueryParams) (*rentful.ListResult, error) {
	if p.client.config.AutoPaginate {
		return p.All(ctx, params)
	}

	result, _, err := p.client.FetchPage(ctx, p.name, params)

	return result, err
}

// All fetches the whole collection page by page, bounded by the server's
// reported total and the remaining rate limit.
func (p *resourceProxy) All(ctx context.Context, params *rentful.QueryParams) (*rentful.ListResult, error) {
	if params == nil {
		params = rentful.NewQueryParams()
	}

	opts := &rentful.PaginationOptions{
		PerPage:      p.client.config.PerPage,
		AutoPaginate: true,
	}

	return rentful.FetchAllPages(ctx, p.client, p.name, params, opts)
}

// Find fetches a single resource by id.
func (p *resourceProxy) Find(ctx context.Context, id string, params *rentful.QueryParams) (map[string]interface{}, error) {
	decoded, err := p.client.Request(ctx, nethttp.MethodGet, p.name+"/"+id, nil, params)
	if err != nil {
		return nil, err
	}

	return extractResource(decoded)
}

// Create posts a new resource with the given attributes.
func (p *resourceProxy) Create(ctx context.Context, attributes map[string]interface{}) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"type":       p.singular,
			"attributes": attributes,
		},
	}

	decoded, err := p.client.Request(ctx, nethttp.MethodPost, p.name, body, nil)
	if err != nil {
		return nil, err
	}

	return extractResource(decoded)
}

// Update modifies an existing resource.
func (p *resourceProxy) Update(ctx context.Context, id string, attributes map[string]interface{}) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{
			"id":         id,
			"type":       p.singular,
			"attributes": attributes,
		},
	}

	decoded, err := p.client.Request(ctx, nethttp.MethodPut, p.name+"/"+id, body, nil)
	if err != nil {
		return nil, err
	}

	return extractResource(decoded)
}

// Delete removes a resource.
func (p *resourceProxy) Delete(ctx context.Context, id string) error {
	_, err := p.client.Request(ctx, nethttp.MethodDelete, p.name+"/"+id, nil, nil)

	return err
}

func extractResource(decoded interface{}) (map[string]interface{}, error) {
	document, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected document shape", rentful.ErrUnexpectedResponse)
	}

	data, ok := document["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing data object", rentful.ErrUnexpectedResponse)
	}

	return data, nil
}

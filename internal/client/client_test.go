package client

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentful-io/rentful-client/internal/auth"
	"github.com/rentful-io/rentful-client/internal/http"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// newTestClient points a fully wired client at a local test server.
func newTestClient(serverURL string) *Client {
	codec := rentful.NewCodec(nil)

	return &Client{
		config:     (&rentful.Config{Company: "acme"}).Merged(),
		endpoint:   serverURL,
		origin:     serverURL,
		httpClient: http.NewClient(serverURL, nil, http.WithCodec(codec)),
		codec:      codec,
	}
}

func TestEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *rentful.Config
		want   string
	}{
		{
			name:   "production uses https",
			config: &rentful.Config{Company: "acme", Domain: "rentful.com", APIVersion: "4"},
			want:   "https://acme.rentful.com/api/4",
		},
		{
			name:   "non-production domain uses http",
			config: &rentful.Config{Company: "acme", Domain: "rentful.test", APIVersion: "4"},
			want:   "http://acme.rentful.test/api/4",
		},
		{
			name:   "defaults fill domain and version",
			config: &rentful.Config{Company: "acme"},
			want:   "https://acme.rentful.com/api/4",
		},
		{
			name:   "legacy version alias",
			config: &rentful.Config{Company: "acme", APIVersion: "boomerang"},
			want:   "https://acme.rentful.com/api/boomerang",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			endpoint, err := Endpoint(tt.config.Merged())
			require.NoError(t, err)
			assert.Equal(t, tt.want, endpoint)
		})
	}
}

func TestEndpointValidation(t *testing.T) {
	t.Parallel()

	_, err := Endpoint(&rentful.Config{})
	require.ErrorIs(t, err, rentful.ErrCompanyRequired)

	_, err = Endpoint(&rentful.Config{Company: "acme", APIVersion: "5"})
	require.ErrorIs(t, err, rentful.ErrUnsupportedAPIVersion)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, rentful.ErrConfigRequired)

	_, err = New(&rentful.Config{})
	require.ErrorIs(t, err, rentful.ErrCompanyRequired)

	// A partially configured single-use token strategy fails eagerly.
	_, err = New(&rentful.Config{
		Company:            "acme",
		SingleUseAlgorithm: "HS256",
	})
	require.ErrorIs(t, err, rentful.ErrSingleUseTokenCompanyIDRequired)
}

func TestNewBuildsWorkingClient(t *testing.T) {
	t.Parallel()

	apiClient, err := New(&rentful.Config{Company: "acme", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.rentful.com/api/4", apiClient.Endpoint())
}

func TestRequestDecodesRelationships(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "customer", r.URL.Query().Get("include"))

		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "o1",
				"type": "order",
				"attributes": {"status": "reserved", "starts_at": "2024-03-01T10:30:00Z"},
				"relationships": {"customer": {"data": {"id": "c1", "type": "customer"}}}
			}],
			"included": [{"id": "c1", "type": "customer", "attributes": {"name": "Jane"}}]
		}`))
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)

	decoded, err := apiClient.Request(context.Background(), nethttp.MethodGet, "orders", nil,
		rentful.NewQueryParams().WithInclude("customer"))
	require.NoError(t, err)

	document, ok := decoded.(map[string]interface{})
	require.True(t, ok)

	data, ok := document["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)

	order, ok := data[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "reserved", order["status"])

	startsAt, ok := order["starts_at"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), startsAt.UTC())

	customer, ok := order["customer"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Jane", customer["name"])
}

func TestRequestWithHeaders(t *testing.T) {
	t.Parallel()

	var captured nethttp.Header

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		captured = r.Header.Clone()
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	codec := rentful.NewCodec(nil)
	apiClient := &Client{
		config:     (&rentful.Config{Company: "acme"}).Merged(),
		endpoint:   server.URL,
		origin:     server.URL,
		httpClient: http.NewClient(server.URL, auth.NewChain(nil, auth.NewAPIKey("configured")), http.WithCodec(codec)),
		codec:      codec,
	}

	_, err := apiClient.RequestWithHeaders(context.Background(), nethttp.MethodGet, "orders",
		map[string]string{
			"Authorization": "Bearer explicit",
			"X-Request-Id":  "req-1",
		}, nil, nil)
	require.NoError(t, err)

	// Extra headers pass through; a caller-supplied Authorization wins over
	// the configured API key.
	assert.Equal(t, "req-1", captured.Get("X-Request-Id"))
	assert.Equal(t, "Bearer explicit", captured.Get("Authorization"))
}

func TestFetchPageParsesRateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("X-RateLimit-Limit", "250")
		w.Header().Set("X-RateLimit-Remaining", "249")
		w.Header().Set("X-RateLimit-Reset", "60")

		_, _ = w.Write([]byte(`{
			"data": [{"id": "o1", "type": "order", "attributes": {}}],
			"meta": {"stats": {"total": {"count": 1}}}
		}`))
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)

	result, rateLimit, err := apiClient.FetchPage(context.Background(), "orders", nil)
	require.NoError(t, err)

	require.Len(t, result.Data, 1)
	assert.Equal(t, 1, result.TotalCount())

	require.NotNil(t, rateLimit)
	assert.Equal(t, 249, rateLimit.Remaining)
}

func TestLastResponseAndRateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)

	assert.Nil(t, apiClient.LastResponse())
	assert.Nil(t, apiClient.RateLimit())

	_, err := apiClient.Request(context.Background(), nethttp.MethodGet, "orders", nil, nil)
	require.NoError(t, err)

	require.NotNil(t, apiClient.LastResponse())
	assert.Equal(t, 200, apiClient.LastResponse().StatusCode)

	rateLimit := apiClient.RateLimit()
	require.NotNil(t, rateLimit)
	assert.Equal(t, 42, rateLimit.Remaining)
}

func TestResourceLookup(t *testing.T) {
	t.Parallel()

	apiClient := newTestClient("http://acme.rentful.test/api/4")

	_, err := apiClient.Resource("orders")
	require.NoError(t, err)

	// Aliases resolve to their canonical collection.
	proxy, err := apiClient.Resource("clients")
	require.NoError(t, err)
	assert.Equal(t, "customers", proxy.(*resourceProxy).name)

	_, err = apiClient.Resource("spaceships")
	require.ErrorIs(t, err, rentful.ErrUnknownResource)
}

func TestResourcesSorted(t *testing.T) {
	t.Parallel()

	apiClient := newTestClient("http://acme.rentful.test/api/4")

	names := apiClient.Resources()
	require.NotEmpty(t, names)
	assert.Contains(t, names, "orders")
	assert.Contains(t, names, "customers")
	assert.IsIncreasing(t, names)
}

func TestSingularize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "order", singularize("orders"))
	assert.Equal(t, "category", singularize("categories"))
	assert.Equal(t, "stock_item", singularize("stock_items"))
	assert.Equal(t, "planning", singularize("plannings"))
}

func readBody(t *testing.T, r *nethttp.Request) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))

	return body
}

func TestResourceProxyVerbs(t *testing.T) {
	t.Parallel()

	type call struct {
		method string
		path   string
		body   map[string]interface{}
	}

	var calls []call

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		entry := call{method: r.Method, path: r.URL.Path}
		if r.Method == nethttp.MethodPost || r.Method == nethttp.MethodPut {
			entry.body = readBody(t, r)
		}

		calls = append(calls, entry)

		if r.Method == nethttp.MethodDelete {
			w.WriteHeader(nethttp.StatusNoContent)

			return
		}

		_, _ = w.Write([]byte(`{"data": {"id": "o1", "type": "order", "attributes": {"status": "concept"}}}`))
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)
	proxy := newResourceProxy(apiClient, "orders")
	ctx := context.Background()

	found, err := proxy.Find(ctx, "o1", nil)
	require.NoError(t, err)
	assert.Equal(t, "concept", found["status"])

	created, err := proxy.Create(ctx, map[string]interface{}{"status": "concept"})
	require.NoError(t, err)
	assert.Equal(t, "o1", created["id"])

	_, err = proxy.Update(ctx, "o1", map[string]interface{}{"status": "reserved"})
	require.NoError(t, err)

	require.NoError(t, proxy.Delete(ctx, "o1"))

	require.Len(t, calls, 4)

	assert.Equal(t, call{method: "GET", path: "/orders/o1"}, calls[0])

	assert.Equal(t, "POST", calls[1].method)
	assert.Equal(t, "/orders", calls[1].path)
	assert.Equal(t, map[string]interface{}{
		"data": map[string]interface{}{
			"type":       "order",
			"attributes": map[string]interface{}{"status": "concept"},
		},
	}, calls[1].body)

	assert.Equal(t, "PUT", calls[2].method)
	assert.Equal(t, "/orders/o1", calls[2].path)
	assert.Equal(t, map[string]interface{}{
		"data": map[string]interface{}{
			"id":         "o1",
			"type":       "order",
			"attributes": map[string]interface{}{"status": "reserved"},
		},
	}, calls[2].body)

	assert.Equal(t, call{method: "DELETE", path: "/orders/o1"}, calls[3])
}

func TestResourceProxyAllPaginates(t *testing.T) {
	t.Parallel()

	var pages []string

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		page := r.URL.Query().Get("page[number]")
		pages = append(pages, page)

		assert.Equal(t, "1", r.URL.Query().Get("page[size]"))
		assert.Equal(t, "count", r.URL.Query().Get("stats[total]"))

		w.Header().Set("X-RateLimit-Remaining", "100")

		body := map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"id": "o" + page, "type": "order", "attributes": map[string]interface{}{}},
			},
			"meta": map[string]interface{}{
				"stats": map[string]interface{}{"total": map[string]interface{}{"count": 3}},
			},
		}

		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)
	apiClient.config.PerPage = 1

	proxy := newResourceProxy(apiClient, "orders")

	result, err := proxy.All(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, result.Data, 3)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	assert.Equal(t, "o1", result.Data[0]["id"])
	assert.Equal(t, "o3", result.Data[2]["id"])
}

func TestResourceProxyListHonorsAutoPaginate(t *testing.T) {
	t.Parallel()

	requests := 0

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests++

		w.Header().Set("X-RateLimit-Remaining", "100")

		page := r.URL.Query().Get("page[number]")

		body := map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"id": "o" + page, "type": "order", "attributes": map[string]interface{}{}},
			},
			"meta": map[string]interface{}{
				"stats": map[string]interface{}{"total": map[string]interface{}{"count": 3}},
			},
		}

		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)
	apiClient.config.PerPage = 1

	proxy := newResourceProxy(apiClient, "orders")
	ctx := context.Background()

	// Without the flag a List call fetches exactly one page.
	result, err := proxy.List(ctx, rentful.NewQueryParams().WithPerPage(1).WithPage(1))
	require.NoError(t, err)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 1, requests)

	// With it, List transparently fetches the whole collection like All.
	apiClient.config.AutoPaginate = true

	result, err = proxy.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, result.Data, 3)
	assert.Equal(t, 4, requests)
}

func TestResourceProxyAllStopsOnExhaustedRateLimit(t *testing.T) {
	t.Parallel()

	requests := 0

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests++

		remaining := "100"
		if requests >= 2 {
			remaining = "0"
		}

		w.Header().Set("X-RateLimit-Remaining", remaining)

		page := r.URL.Query().Get("page[number]")

		body := map[string]interface{}{
			"data": []interface{}{
				map[string]interface{}{"id": "o" + page, "type": "order", "attributes": map[string]interface{}{}},
			},
			"meta": map[string]interface{}{
				"stats": map[string]interface{}{"total": map[string]interface{}{"count": 5}},
			},
		}

		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	apiClient := newTestClient(server.URL)
	apiClient.config.PerPage = 1

	proxy := newResourceProxy(apiClient, "orders")

	result, err := proxy.All(context.Background(), nil)
	require.NoError(t, err)

	// The quota ran out after the second page; the partial result comes back
	// without an error.
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 2, requests)
}

// Package rentful provides types, interfaces, and helpers for working with
// the Rentful rental-management platform API.
//
// # Overview
//
// The rentful package defines the configuration, the JSON:API codec, the
// error taxonomy, query/pagination helpers, and the interfaces for the
// generic resource proxies (list/find/create/update/delete per resource
// type). A concrete implementation is provided by the rentfulclient
// package, which wires configuration, transport, authentication, and the
// resource catalog. Most consumers should import rentfulclient to construct
// a client and then interact with the interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/rentful-io/rentful-client/pkg/rentful"
//	  "github.com/rentful-io/rentful-client/pkg/rentfulclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := rentfulclient.New(&rentful.Config{Company: "acme", APIKey: "key"})
//	  if err != nil { log.Fatal(err) }
//
//	  orders, err := cli.Resource("orders")
//	  if err != nil { log.Fatal(err) }
//
//	  // List the first page of orders
//	  page, err := orders.List(ctx, rentful.NewQueryParams().WithPerPage(50))
//	  if err != nil { log.Fatal(err) }
//	  _ = page
//	}
//
// # Queries and pagination
//
// Use QueryParams to express common list options (page size, page number,
// includes, filters, stats). Auto-pagination fetches every page until the
// server-reported total is reached or the rate limit is exhausted:
//
//	all, err := orders.All(ctx, rentful.NewQueryParams().WithFilter("status", "reserved"))
//
// # Errors
//
// API errors are represented by APIError, a typed taxonomy keyed by HTTP
// status and refined by response body patterns. Helpers such as IsNotFound,
// IsUnauthorized, and IsTooManyRequests make it easy to branch on common
// cases; rate-limited errors expose a RateLimitContext.
//
// # Codec
//
// The JSON:API codec resolves `included` relationships onto resources,
// flattens attributes, and converts date/time-like fields into time.Time
// values. The underlying JSON engine is pluggable via the Engine interface.
package rentful

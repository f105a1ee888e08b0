package client

// resourceCatalog enumerates the resource collections the API exposes, keyed
// by canonical collection name. New resources are added here, not as new
// client code.
//
//nolint:gochecknoglobals // static lookup table
var resourceCatalog = map[string]struct{}{
	"bundles":        {},
	"categories":     {},
	"coupons":        {},
	"customers":      {},
	"documents":      {},
	"employees":      {},
	"invoices":       {},
	"lines":          {},
	"locations":      {},
	"notes":          {},
	"orders":         {},
	"payments":       {},
	"plannings":      {},
	"product_groups": {},
	"products":       {},
	"properties":     {},
	"stock_items":    {},
	"tax_rates":      {},
	"tax_regions":    {},
	"transfers":      {},
	"users":          {},
	"webhooks":       {},
}

// resourceAliases maps accepted alternate names onto catalog entries.
//
//nolint:gochecknoglobals // static lookup table
var resourceAliases = map[string]string{
	"clients":       "customers",
	"contacts":      "customers",
	"bookings":      "orders",
	"items":         "products",
	"staff":         "employees",
	"discounts":     "coupons",
	"reservations":  "plannings",
	"invoice_lines": "lines",
}

// resolveResource maps a name or alias onto its canonical catalog entry.
func resolveResource(name string) (string, bool) {
	if _, ok := resourceCatalog[name]; ok {
		return name, true
	}

	if canonical, ok := resourceAliases[name]; ok {
		return canonical, true
	}

	return "", false
}

// Package commands implements the CLI subcommands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rentful-io/rentful-client/pkg/rentful"
	"github.com/rentful-io/rentful-client/pkg/rentfulclient"
)

// Output formats.
const (
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatTable = "table"

	NotAvailable = "N/A"
)

// Common static errors used throughout the commands package.
var (
	ErrCompanyRequired     = errors.New("company is required (use --company, RENTFUL_COMPANY, or 'rentful login')")
	ErrCredentialsRequired = errors.New("no credentials configured (use --api-key, RENTFUL_API_KEY, or 'rentful login')")
	ErrInvalidAttribute    = errors.New("invalid attribute format, expected key=value")
)

// createClient builds an API client from the merged CLI configuration.
func createClient() (rentful.Client, error) {
	config := &rentful.Config{
		Company:    viper.GetString("company"),
		Domain:     viper.GetString("domain"),
		APIVersion: viper.GetString("api_version"),
		APIKey:     viper.GetString("api_key"),
		Debug:      viper.GetBool("verbose"),
	}

	if config.Company == "" {
		return nil, ErrCompanyRequired
	}

	if config.APIKey == "" {
		return nil, ErrCredentialsRequired
	}

	if config.Debug {
		config.Logger = NewLogger(os.Stderr)
	}

	return rentfulclient.New(config)
}

// renderResources prints a list of resources in the selected output format.
func renderResources(resources []map[string]interface{}) error {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return wrapEncode(encoder.Encode(resources))
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return wrapEncode(encoder.Encode(resources))
	default:
		return renderTable(resources)
	}
}

func wrapEncode(err error) error {
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}

// renderResource prints a single resource.
func renderResource(resource map[string]interface{}) error {
	return renderResources([]map[string]interface{}{resource})
}

// renderTable prints resources as a table with a stable column set: id and
// type first, then the remaining scalar fields alphabetically.
func renderTable(resources []map[string]interface{}) error {
	if len(resources) == 0 {
		fmt.Println("No resources found")

		return nil
	}

	columns := tableColumns(resources)

	header := make([]interface{}, len(columns))
	for i, column := range columns {
		header[i] = column
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header...)

	for _, resource := range resources {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, formatCell(resource[column]))
		}

		_ = table.Append(row)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func tableColumns(resources []map[string]interface{}) []string {
	seen := make(map[string]bool)

	for _, resource := range resources {
		for key, value := range resource {
			if scalar(value) {
				seen[key] = true
			}
		}
	}

	rest := make([]string, 0, len(seen))

	for key := range seen {
		if key != "id" && key != "type" {
			rest = append(rest, key)
		}
	}

	sort.Strings(rest)

	columns := make([]string, 0, len(seen))

	for _, key := range []string{"id", "type"} {
		if seen[key] {
			columns = append(columns, key)
		}
	}

	return append(columns, rest...)
}

func scalar(value interface{}) bool {
	switch value.(type) {
	case string, bool, float64, int, int64, time.Time, nil:
		return true
	default:
		return false
	}
}

func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return NotAvailable
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseAttributes converts key=value arguments into an attribute map.
func parseAttributes(args []string) (map[string]interface{}, error) {
	attributes := make(map[string]interface{}, len(args))

	for _, arg := range args {
		key, value, found := cut(arg)
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAttribute, arg)
		}

		attributes[key] = value
	}

	return attributes, nil
}

func cut(arg string) (key, value string, found bool) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '=' {
			return arg[:i], arg[i+1:], true
		}
	}

	return arg, "", false
}

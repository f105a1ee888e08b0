package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// NewResourcesCommand lists the available resource types.
func NewResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List available resource types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			for _, name := range client.Resources() {
				fmt.Println(name)
			}

			return nil
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		perPage int
		page    int
		all     bool
		include []string
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List resources of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			proxy, err := client.Resource(args[0])
			if err != nil {
				return err
			}

			params, err := buildParams(perPage, page, include, filters)
			if err != nil {
				return err
			}

			var result *rentful.ListResult
			if all {
				result, err = proxy.All(context.Background(), params)
			} else {
				result, err = proxy.List(context.Background(), params)
			}

			if err != nil {
				return err
			}

			return renderResources(result.Data)
		},
	}

	cmd.Flags().IntVar(&perPage, "per-page", 0, "page size")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().StringSliceVar(&include, "include", nil, "relationships to include")
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "filters as name=value")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var include []string

	cmd := &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Fetch one resource by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			proxy, err := client.Resource(args[0])
			if err != nil {
				return err
			}

			params := rentful.NewQueryParams()
			if len(include) > 0 {
				params.WithInclude(include...)
			}

			resource, err := proxy.Find(context.Background(), args[1], params)
			if err != nil {
				return err
			}

			return renderResource(resource)
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "relationships to include")

	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <resource> [key=value...]",
		Short: "Create a resource from key=value attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			proxy, err := client.Resource(args[0])
			if err != nil {
				return err
			}

			attributes, err := parseAttributes(args[1:])
			if err != nil {
				return err
			}

			resource, err := proxy.Create(context.Background(), attributes)
			if err != nil {
				return err
			}

			return renderResource(resource)
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <resource> <id> [key=value...]",
		Short: "Update a resource with key=value attributes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			proxy, err := client.Resource(args[0])
			if err != nil {
				return err
			}

			attributes, err := parseAttributes(args[2:])
			if err != nil {
				return err
			}

			resource, err := proxy.Update(context.Background(), args[1], attributes)
			if err != nil {
				return err
			}

			return renderResource(resource)
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient()
			if err != nil {
				return err
			}

			proxy, err := client.Resource(args[0])
			if err != nil {
				return err
			}

			if err := proxy.Delete(context.Background(), args[1]); err != nil {
				return err
			}

			fmt.Printf("Deleted %s %s\n", args[0], args[1])

			return nil
		},
	}
}

func buildParams(perPage, page int, include, filters []string) (*rentful.QueryParams, error) {
	params := rentful.NewQueryParams()

	if perPage > 0 {
		params.WithPerPage(perPage)
	}

	if page > 0 {
		params.WithPage(page)
	}

	if len(include) > 0 {
		params.WithInclude(include...)
	}

	for _, filter := range filters {
		name, value, found := cut(filter)
		if !found || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAttribute, filter)
		}

		params.WithFilter(name, value)
	}

	return params, nil
}

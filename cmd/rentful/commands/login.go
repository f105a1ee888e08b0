package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/rentful-io/rentful-client/pkg/rentful"
	"github.com/rentful-io/rentful-client/pkg/rentfulclient"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		company string
		domain  string
		apiKey  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for a company account",
		Long:  "Verify an API key against the company account and save it to the CLI config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if company == "" {
				company = viper.GetString("company")
			}

			if company == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Company subdomain: ")

				input, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading company: %w", err)
				}

				company = strings.TrimSpace(input)
			}

			if company == "" {
				return ErrCompanyRequired
			}

			if apiKey == "" {
				fmt.Print("API key: ")

				byteKey, err := term.ReadPassword(int(syscall.Stdin))

				fmt.Println()

				if err != nil {
					return fmt.Errorf("reading API key: %w", err)
				}

				apiKey = strings.TrimSpace(string(byteKey))
			}

			if apiKey == "" {
				return ErrCredentialsRequired
			}

			config := &rentful.Config{
				Company: company,
				Domain:  domain,
				APIKey:  apiKey,
			}

			client, err := rentfulclient.New(config)
			if err != nil {
				return err
			}

			// A minimal authenticated call proves the key works.
			if _, err := client.Request(context.Background(), "GET", "orders",
				nil, rentful.NewQueryParams().WithPerPage(1)); err != nil {
				return fmt.Errorf("verifying credentials: %w", err)
			}

			if err := saveCredentials(company, domain, apiKey); err != nil {
				return err
			}

			fmt.Printf("Logged in to %s\n", company)

			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "company subdomain")
	cmd.Flags().StringVar(&domain, "domain", "", "platform domain")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (prompted when omitted)")

	return cmd
}

func saveCredentials(company, domain, apiKey string) error {
	return updateConfigFile(func(settings map[string]interface{}) {
		settings["company"] = company
		settings["api_key"] = apiKey

		if domain != "" {
			settings["domain"] = domain
		}
	})
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// sensitiveKeys are masked in config output.
//
//nolint:gochecknoglobals // static lookup table
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"client_secret": true,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigViewCommand())
	cmd.AddCommand(newConfigGetCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			settings := viper.AllSettings()

			keys := make([]string, 0, len(settings))
			for key := range settings {
				keys = append(keys, key)
			}

			sort.Strings(keys)

			for _, key := range keys {
				value := settings[key]
				if sensitiveKeys[key] {
					value = "***"
				}

				fmt.Printf("%s: %v\n", key, value)
			}
		},
	}
}

func newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			key := args[0]

			value := viper.Get(key)
			if sensitiveKeys[key] && value != nil {
				value = "***"
			}

			fmt.Printf("%v\n", value)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := updateConfigFile(func(settings map[string]interface{}) {
				settings[args[0]] = args[1]
			}); err != nil {
				return err
			}

			fmt.Printf("Set %s\n", args[0])

			return nil
		},
	}
}

// configFilePath resolves the config file in use, defaulting to
// $HOME/.rentful/config.yml and creating the directory when missing.
func configFilePath() (string, error) {
	if path := viper.ConfigFileUsed(); path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	dir := filepath.Join(home, ".rentful")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return filepath.Join(dir, "config.yml"), nil
}

// updateConfigFile applies a mutation to the persisted settings, keeping
// unrelated keys intact.
func updateConfigFile(apply func(map[string]interface{})) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	settings := map[string]interface{}{}

	if data, err := os.ReadFile(path); err == nil { //nolint:gosec // path is under the user's home
		_ = yaml.Unmarshal(data, &settings)
	}

	apply(settings)

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Package rentfulclient provides the main entry point for creating API
// clients.
package rentfulclient

import (
	"fmt"
	"os"
	"time"

	"github.com/rentful-io/rentful-client/internal/client"
	"github.com/rentful-io/rentful-client/pkg/rentful"
)

// New creates an API client from the config, after applying RENTFUL_*
// environment overrides. A nil config reads everything from the environment
// and the process defaults.
func New(config *rentful.Config) (rentful.Client, error) {
	if config == nil {
		config = &rentful.Config{}
	}

	applyEnvOverrides(config)

	apiClient, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return apiClient, nil
}

// Endpoint resolves the API base URL for the config without building a
// client, useful for diagnostics.
func Endpoint(config *rentful.Config) (string, error) {
	if config == nil {
		config = &rentful.Config{}
	}

	applyEnvOverrides(config)

	endpoint, err := client.Endpoint(config.Merged())
	if err != nil {
		return "", fmt.Errorf("resolving endpoint: %w", err)
	}

	return endpoint, nil
}

// applyEnvOverrides lets the environment win over explicit configuration so
// deployments can rotate credentials without code changes.
func applyEnvOverrides(config *rentful.Config) {
	setFromEnv("RENTFUL_COMPANY", &config.Company)
	setFromEnv("RENTFUL_DOMAIN", &config.Domain)
	setFromEnv("RENTFUL_API_VERSION", &config.APIVersion)
	setFromEnv("RENTFUL_API_KEY", &config.APIKey)
	setFromEnv("RENTFUL_CLIENT_ID", &config.ClientID)
	setFromEnv("RENTFUL_CLIENT_SECRET", &config.ClientSecret)
	setFromEnv("RENTFUL_REDIRECT_URI", &config.RedirectURI)
	setFromEnv("RENTFUL_TOKEN_URL", &config.TokenURL)
	setFromEnv("RENTFUL_SINGLE_USE_TOKEN_ID", &config.SingleUseTokenID)
	setFromEnv("RENTFUL_SINGLE_USE_ALGORITHM", &config.SingleUseAlgorithm)
	setFromEnv("RENTFUL_SINGLE_USE_PRIVATE_KEY", &config.SingleUsePrivateKey)
	setFromEnv("RENTFUL_SINGLE_USE_COMPANY_ID", &config.SingleUseCompanyID)
	setFromEnv("RENTFUL_SINGLE_USE_USER_ID", &config.SingleUseUserID)

	if value := os.Getenv("RENTFUL_SINGLE_USE_EXPIRATION"); value != "" {
		if expiration, err := time.ParseDuration(value); err == nil {
			config.SingleUseExpiration = expiration
		}
	}
}

func setFromEnv(name string, target *string) {
	if value := os.Getenv(name); value != "" {
		*target = value
	}
}

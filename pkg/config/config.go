// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package config loads the dialtone provisioning configuration from a YAML
// file, environment variables, and deterministic defaults derived from the
// environment name.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"gopkg.in/yaml.v3"
)

// IdentityMode selects which identity the function app runs as.
type IdentityMode string

const (
	// IdentitySystem uses the function app's system-assigned identity.
	IdentitySystem IdentityMode = "system"
	// IdentityUser provisions a user-assigned identity and attaches it.
	IdentityUser IdentityMode = "user"
)

// Config holds everything the provisioning workflow needs. Resource names
// left empty are filled in from the environment name so that repeated runs
// against the same environment converge on the same resources.
type Config struct {
	SubscriptionID string `yaml:"subscription_id"`
	TenantID       string `yaml:"tenant_id"`
	Location       string `yaml:"location"`
	DataLocation   string `yaml:"data_location"`
	Environment    string `yaml:"environment"`

	ResourceGroup        string `yaml:"resource_group"`
	CommunicationService string `yaml:"communication_service"`
	StorageAccount       string `yaml:"storage_account"`
	KeyVault             string `yaml:"key_vault"`
	HostingPlan          string `yaml:"hosting_plan"`
	FunctionApp          string `yaml:"function_app"`
	ManagedIdentity      string `yaml:"managed_identity"`

	IdentityMode IdentityMode `yaml:"identity_mode"`
	SecretName   string       `yaml:"secret_name"`
	OutputsPath  string       `yaml:"outputs_path"`
}

// Load reads path (when non-empty), overlays environment variables, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.fromEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromEnv overlays the standard Azure environment variables and the
// DIALTONE_* overrides. Environment wins over the file.
func (c *Config) fromEnv() {
	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overlay(&c.SubscriptionID, "AZURE_SUBSCRIPTION_ID")
	overlay(&c.TenantID, "AZURE_TENANT_ID")
	overlay(&c.Location, "AZURE_LOCATION")
	overlay(&c.Environment, "DIALTONE_ENVIRONMENT")
	overlay(&c.SecretName, "DIALTONE_SECRET_NAME")
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "demo"
	}
	if c.Location == "" {
		c.Location = "eastus"
	}
	if c.DataLocation == "" {
		c.DataLocation = "United States"
	}
	if c.IdentityMode == "" {
		c.IdentityMode = IdentitySystem
	}
	if c.SecretName == "" {
		c.SecretName = "acs-connection-string"
	}
	if c.OutputsPath == "" {
		c.OutputsPath = "outputs.json"
	}
	env := c.Environment
	if c.ResourceGroup == "" {
		c.ResourceGroup = "rg-dialtone-" + env
	}
	if c.CommunicationService == "" {
		c.CommunicationService = "acs-dialtone-" + env
	}
	if c.StorageAccount == "" {
		c.StorageAccount = storageAccountName(env)
	}
	if c.KeyVault == "" {
		c.KeyVault = "kv-dialtone-" + env
	}
	if c.HostingPlan == "" {
		c.HostingPlan = "plan-dialtone-" + env
	}
	if c.FunctionApp == "" {
		c.FunctionApp = "func-dialtone-" + env
	}
	if c.ManagedIdentity == "" {
		c.ManagedIdentity = "id-dialtone-" + env
	}
}

// Validate checks the fields that have no usable default.
func (c *Config) Validate() error {
	if c.SubscriptionID == "" {
		return fmt.Errorf("subscription_id is required (set AZURE_SUBSCRIPTION_ID or the config file)")
	}
	switch c.IdentityMode {
	case IdentitySystem, IdentityUser:
	default:
		return fmt.Errorf("identity_mode must be %q or %q, got %q", IdentitySystem, IdentityUser, c.IdentityMode)
	}
	return nil
}

// storageAccountName builds a valid storage account name: lowercase
// alphanumeric, 3-24 characters.
func storageAccountName(env string) string {
	var b strings.Builder
	b.WriteString("stdialtone")
	for _, r := range strings.ToLower(env) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 24 {
		name = name[:24]
	}
	return name
}

// ToAzureCredential creates Azure credentials using the default credential chain.
// This uses DefaultAzureCredential which tries multiple authentication methods:
// - Environment variables (AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_TENANT_ID)
// - Managed Identity
// - Azure CLI
// - Azure PowerShell
// - etc.
func (c *Config) ToAzureCredential(ctx context.Context) (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

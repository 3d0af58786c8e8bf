// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnvironmentName(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "00000000-0000-0000-0000-000000000001")
	t.Setenv("AZURE_TENANT_ID", "")
	t.Setenv("DIALTONE_ENVIRONMENT", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "dialtone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "rg-dialtone-staging", cfg.ResourceGroup)
	assert.Equal(t, "acs-dialtone-staging", cfg.CommunicationService)
	assert.Equal(t, "stdialtonestaging", cfg.StorageAccount)
	assert.Equal(t, "kv-dialtone-staging", cfg.KeyVault)
	assert.Equal(t, "func-dialtone-staging", cfg.FunctionApp)
	assert.Equal(t, "eastus", cfg.Location)
	assert.Equal(t, "United States", cfg.DataLocation)
	assert.Equal(t, IdentitySystem, cfg.IdentityMode)
	assert.Equal(t, "acs-connection-string", cfg.SecretName)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "from-env")
	t.Setenv("DIALTONE_ENVIRONMENT", "prod")

	dir := t.TempDir()
	path := filepath.Join(dir, "dialtone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subscription_id: from-file\nenvironment: dev\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SubscriptionID)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "rg-dialtone-prod", cfg.ResourceGroup)
}

func TestLoadExplicitNamesKept(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "sub")
	t.Setenv("DIALTONE_ENVIRONMENT", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "dialtone.yaml")
	data := []byte("resource_group: my-rg\nkey_vault: my-kv\nidentity_mode: user\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-rg", cfg.ResourceGroup)
	assert.Equal(t, "my-kv", cfg.KeyVault)
	assert.Equal(t, IdentityUser, cfg.IdentityMode)
	assert.Equal(t, "func-dialtone-demo", cfg.FunctionApp)
}

func TestLoadRequiresSubscription(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription_id")
}

func TestLoadRejectsBadIdentityMode(t *testing.T) {
	t.Setenv("AZURE_SUBSCRIPTION_ID", "sub")

	dir := t.TempDir()
	path := filepath.Join(dir, "dialtone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("identity_mode: both\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity_mode")
}

func TestStorageAccountNameSanitized(t *testing.T) {
	assert.Equal(t, "stdialtoneweirdenv", storageAccountName("Weird-Env"))
	long := storageAccountName("averyveryverylongenvironmentname")
	assert.Len(t, long, 24)
	assert.Equal(t, "stdialtoneaveryveryveryl", long)
}

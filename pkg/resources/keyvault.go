// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindKeyVault, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &KeyVault{client, cfg}
	})
}

// KeyVault is the handler for the vault that holds the calling secret.
// Vaults are created with RBAC authorization so access is granted
// through role assignments rather than access policies.
type KeyVault struct {
	Client *client.Client
	Config *config.Config
}

func (kv *KeyVault) Kind() prov.Kind { return prov.KindKeyVault }

func (kv *KeyVault) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := kv.Client.VaultsClient.Get(ctx, spec.ResourceGroup, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read key vault %s: %w", spec.Name, err)
	}
	return vaultToResource(resp.Vault, spec.Name), nil
}

func (kv *KeyVault) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	tenantID, err := requireProp(spec, "tenantId")
	if err != nil {
		return nil, err
	}

	params := armkeyvault.VaultCreateOrUpdateParameters{
		Location: stringPtr(spec.Location),
		Properties: &armkeyvault.VaultProperties{
			TenantID: stringPtr(tenantID),
			SKU: &armkeyvault.SKU{
				Family: to.Ptr(armkeyvault.SKUFamilyA),
				Name:   to.Ptr(armkeyvault.SKUNameStandard),
			},
			EnableRbacAuthorization: to.Ptr(true),
		},
		Tags: commonTags(kv.Config),
	}

	poller, err := kv.Client.VaultsClient.BeginCreateOrUpdate(ctx, spec.ResourceGroup, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start key vault creation: %w", err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault %s: %w", spec.Name, err)
	}
	return vaultToResource(resp.Vault, spec.Name), nil
}

func vaultToResource(vault armkeyvault.Vault, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindKeyVault, Name: name}
	if vault.Name != nil {
		res.Name = *vault.Name
	}
	if vault.ID != nil {
		res.ID = armid.ID(*vault.ID)
	}
	if vault.Properties != nil && vault.Properties.VaultURI != nil {
		res.Endpoint = *vault.Properties.VaultURI
	}
	return res
}

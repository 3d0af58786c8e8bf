// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindStorageAccount, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &StorageAccount{client, cfg}
	})
}

// StorageAccount is the handler for the storage account backing the
// function host. The function runtime stores triggers and logs here.
type StorageAccount struct {
	Client *client.Client
	Config *config.Config
}

func (sa *StorageAccount) Kind() prov.Kind { return prov.KindStorageAccount }

func (sa *StorageAccount) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := sa.Client.StorageAccountsClient.GetProperties(ctx, spec.ResourceGroup, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage account %s: %w", spec.Name, err)
	}
	return storageAccountToResource(resp.Account, spec.Name), nil
}

func (sa *StorageAccount) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	params := armstorage.AccountCreateParameters{
		Location: stringPtr(spec.Location),
		Kind:     to.Ptr(armstorage.KindStorageV2),
		SKU: &armstorage.SKU{
			Name: to.Ptr(armstorage.SKUNameStandardLRS),
		},
		Properties: &armstorage.AccountPropertiesCreateParameters{
			EnableHTTPSTrafficOnly: to.Ptr(true),
			MinimumTLSVersion:      to.Ptr(armstorage.MinimumTLSVersionTLS12),
			AllowBlobPublicAccess:  to.Ptr(false),
		},
		Tags: commonTags(sa.Config),
	}

	poller, err := sa.Client.StorageAccountsClient.BeginCreate(ctx, spec.ResourceGroup, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start storage account creation: %w", err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage account %s: %w", spec.Name, err)
	}
	return storageAccountToResource(resp.Account, spec.Name), nil
}

func storageAccountToResource(account armstorage.Account, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindStorageAccount, Name: name}
	if account.Name != nil {
		res.Name = *account.Name
	}
	if account.ID != nil {
		res.ID = armid.ID(*account.ID)
	}
	if account.Properties != nil && account.Properties.PrimaryEndpoints != nil && account.Properties.PrimaryEndpoints.Blob != nil {
		res.Endpoint = *account.Properties.PrimaryEndpoints.Blob
	}
	return res
}

// storageConnectionString fetches an account key and assembles the
// connection string the function runtime expects in AzureWebJobsStorage.
func storageConnectionString(ctx context.Context, c *client.Client, resourceGroup, account string) (string, error) {
	resp, err := c.StorageAccountsClient.ListKeys(ctx, resourceGroup, account, nil)
	if err != nil {
		return "", fmt.Errorf("failed to list storage account keys for %s: %w", account, err)
	}
	for _, key := range resp.Keys {
		if key != nil && key.Value != nil {
			return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
				account, *key.Value), nil
		}
	}
	return "", fmt.Errorf("storage account %s returned no usable keys", account)
}

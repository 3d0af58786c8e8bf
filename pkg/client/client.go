// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/communication/armcommunication/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
)

// Client wraps the Azure SDK clients dialtone provisions through.
//
// We use resource-specific clients (e.g., ResourceGroupsClient) for
// type-safe CRUD operations, following Azure SDK conventions. Data-plane
// clients whose endpoint is only known after provisioning (key vault
// secrets) are constructed on demand from the shared credential.
//
// When adding new resource types, add new typed client fields here rather
// than going through a generic ARM client.
type Client struct {
	Config                       *config.Config
	ResourceGroupsClient         *armresources.ResourceGroupsClient
	ProvidersClient              *armresources.ProvidersClient
	CommunicationServicesClient  *armcommunication.ServicesClient
	StorageAccountsClient        *armstorage.AccountsClient
	VaultsClient                 *armkeyvault.VaultsClient
	PlansClient                  *armappservice.PlansClient
	WebAppsClient                *armappservice.WebAppsClient
	UserAssignedIdentitiesClient *armmsi.UserAssignedIdentitiesClient
	RoleAssignmentsClient        *armauthorization.RoleAssignmentsClient
	RoleDefinitionsClient        *armauthorization.RoleDefinitionsClient
	credential                   azcore.TokenCredential
	clientOptions                *arm.ClientOptions
}

// NewClient creates a new Azure client wrapper
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	cred, err := cfg.ToAzureCredential(ctx)
	if err != nil {
		return nil, err
	}

	clientOptions := &arm.ClientOptions{}

	rgClient, err := armresources.NewResourceGroupsClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	providersClient, err := armresources.NewProvidersClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	communicationClient, err := armcommunication.NewServicesClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	storageAccountsClient, err := armstorage.NewAccountsClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	vaultsClient, err := armkeyvault.NewVaultsClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	plansClient, err := armappservice.NewPlansClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	webAppsClient, err := armappservice.NewWebAppsClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	userAssignedIdentitiesClient, err := armmsi.NewUserAssignedIdentitiesClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	roleAssignmentsClient, err := armauthorization.NewRoleAssignmentsClient(cfg.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, err
	}

	roleDefinitionsClient, err := armauthorization.NewRoleDefinitionsClient(cred, clientOptions)
	if err != nil {
		return nil, err
	}

	return &Client{
		Config:                       cfg,
		ResourceGroupsClient:         rgClient,
		ProvidersClient:              providersClient,
		CommunicationServicesClient:  communicationClient,
		StorageAccountsClient:        storageAccountsClient,
		VaultsClient:                 vaultsClient,
		PlansClient:                  plansClient,
		WebAppsClient:                webAppsClient,
		UserAssignedIdentitiesClient: userAssignedIdentitiesClient,
		RoleAssignmentsClient:        roleAssignmentsClient,
		RoleDefinitionsClient:        roleDefinitionsClient,
		credential:                   cred,
		clientOptions:                clientOptions,
	}, nil
}

// Credential exposes the shared token credential for data-plane clients
// (key vault secrets, Microsoft Graph).
func (c *Client) Credential() azcore.TokenCredential {
	return c.credential
}

// SecretsClient builds a key vault secrets client for a vault URI. The
// URI only exists once the vault is provisioned, so this cannot happen in
// NewClient.
func (c *Client) SecretsClient(vaultURI string) (*azsecrets.Client, error) {
	if vaultURI == "" {
		return nil, fmt.Errorf("vault URI is empty")
	}
	return azsecrets.NewClient(vaultURI, c.credential, nil)
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindFunctionApp, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &FunctionApp{client, cfg}
	})
}

// FunctionApp is the handler for the function app that hosts the
// calling endpoint. The app is created with a managed identity so it
// can read the calling secret from the vault without any credential in
// its settings.
type FunctionApp struct {
	Client *client.Client
	Config *config.Config
}

func (fa *FunctionApp) Kind() prov.Kind { return prov.KindFunctionApp }

func (fa *FunctionApp) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := fa.Client.WebAppsClient.Get(ctx, spec.ResourceGroup, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read function app %s: %w", spec.Name, err)
	}
	return siteToResource(resp.Site, spec.Name), nil
}

func (fa *FunctionApp) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	serverFarmID, err := requireProp(spec, "serverFarmId")
	if err != nil {
		return nil, err
	}
	storageAccount, err := requireProp(spec, "storageAccount")
	if err != nil {
		return nil, err
	}

	conn, err := storageConnectionString(ctx, fa.Client, spec.ResourceGroup, storageAccount)
	if err != nil {
		return nil, err
	}

	// The site runs the dialtone serve binary as a custom handler.
	appSettings := []*armappservice.NameValuePair{
		{Name: stringPtr("AzureWebJobsStorage"), Value: stringPtr(conn)},
		{Name: stringPtr("WEBSITE_CONTENTAZUREFILECONNECTIONSTRING"), Value: stringPtr(conn)},
		{Name: stringPtr("WEBSITE_CONTENTSHARE"), Value: stringPtr(strings.ToLower(spec.Name))},
		{Name: stringPtr("FUNCTIONS_EXTENSION_VERSION"), Value: stringPtr("~4")},
		{Name: stringPtr("FUNCTIONS_WORKER_RUNTIME"), Value: stringPtr("custom")},
	}

	identity := &armappservice.ManagedServiceIdentity{
		Type: to.Ptr(armappservice.ManagedServiceIdentityTypeSystemAssigned),
	}
	if uaiID := stringProp(spec, "userAssignedIdentityId"); uaiID != "" {
		identity = &armappservice.ManagedServiceIdentity{
			Type: to.Ptr(armappservice.ManagedServiceIdentityTypeUserAssigned),
			UserAssignedIdentities: map[string]*armappservice.UserAssignedIdentity{
				uaiID: {},
			},
		}
	}

	params := armappservice.Site{
		Location: stringPtr(spec.Location),
		Kind:     stringPtr("functionapp"),
		Identity: identity,
		Properties: &armappservice.SiteProperties{
			ServerFarmID: stringPtr(serverFarmID),
			HTTPSOnly:    to.Ptr(true),
			SiteConfig: &armappservice.SiteConfig{
				AppSettings: appSettings,
			},
		},
		Tags: commonTags(fa.Config),
	}

	poller, err := fa.Client.WebAppsClient.BeginCreateOrUpdate(ctx, spec.ResourceGroup, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start function app creation: %w", err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create function app %s: %w", spec.Name, err)
	}
	return siteToResource(resp.Site, spec.Name), nil
}

func siteToResource(site armappservice.Site, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindFunctionApp, Name: name}
	if site.Name != nil {
		res.Name = *site.Name
	}
	if site.ID != nil {
		res.ID = armid.ID(*site.ID)
	}
	// PrincipalID is only populated for a system-assigned identity.
	// With a user-assigned identity the workflow already knows the
	// principal from the identity resource itself.
	if site.Identity != nil && site.Identity.PrincipalID != nil {
		res.PrincipalID = *site.Identity.PrincipalID
	}
	if site.Properties != nil && site.Properties.DefaultHostName != nil {
		res.Endpoint = "https://" + *site.Properties.DefaultHostName
	}
	return res
}

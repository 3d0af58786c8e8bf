// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindResourceGroup, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &ResourceGroup{client, cfg}
	})
}

// ResourceGroup is the handler for Azure resource groups.
type ResourceGroup struct {
	Client *client.Client
	Config *config.Config
}

func (rg *ResourceGroup) Kind() prov.Kind { return prov.KindResourceGroup }

func (rg *ResourceGroup) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := rg.Client.ResourceGroupsClient.Get(ctx, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource group %s: %w", spec.Name, err)
	}
	return resourceGroupToResource(resp.ResourceGroup, spec.Name), nil
}

func (rg *ResourceGroup) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	params := armresources.ResourceGroup{
		Location: stringPtr(spec.Location),
		Tags:     commonTags(rg.Config),
	}

	// Resource group creation is synchronous, no LRO to poll.
	resp, err := rg.Client.ResourceGroupsClient.CreateOrUpdate(ctx, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource group %s: %w", spec.Name, err)
	}
	return resourceGroupToResource(resp.ResourceGroup, spec.Name), nil
}

func resourceGroupToResource(group armresources.ResourceGroup, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindResourceGroup, Name: name}
	if group.Name != nil {
		res.Name = *group.Name
	}
	if group.ID != nil {
		res.ID = armid.ID(*group.ID)
	}
	return res
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindHostingPlan, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &HostingPlan{client, cfg}
	})
}

// HostingPlan is the handler for the consumption plan the function app
// runs on. Y1/Dynamic bills per execution, so an idle demo costs nothing.
type HostingPlan struct {
	Client *client.Client
	Config *config.Config
}

func (hp *HostingPlan) Kind() prov.Kind { return prov.KindHostingPlan }

func (hp *HostingPlan) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := hp.Client.PlansClient.Get(ctx, spec.ResourceGroup, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read hosting plan %s: %w", spec.Name, err)
	}
	return planToResource(resp.Plan, spec.Name), nil
}

func (hp *HostingPlan) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	params := armappservice.Plan{
		Location: stringPtr(spec.Location),
		Kind:     stringPtr("functionapp"),
		SKU: &armappservice.SKUDescription{
			Name: stringPtr("Y1"),
			Tier: stringPtr("Dynamic"),
		},
		Tags: commonTags(hp.Config),
	}

	poller, err := hp.Client.PlansClient.BeginCreateOrUpdate(ctx, spec.ResourceGroup, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start hosting plan creation: %w", err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create hosting plan %s: %w", spec.Name, err)
	}
	return planToResource(resp.Plan, spec.Name), nil
}

func planToResource(plan armappservice.Plan, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindHostingPlan, Name: name}
	if plan.Name != nil {
		res.Name = *plan.Name
	}
	if plan.ID != nil {
		res.ID = armid.ID(*plan.ID)
	}
	return res
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/communication/armcommunication/v2"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindCommunicationService, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &CommunicationService{client, cfg}
	})
}

// CommunicationService is the handler for Azure Communication Services
// resources. The resource itself is always created in the "global"
// location; dataLocation pins where the service keeps data at rest.
type CommunicationService struct {
	Client *client.Client
	Config *config.Config
}

func (cs *CommunicationService) Kind() prov.Kind { return prov.KindCommunicationService }

func (cs *CommunicationService) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := cs.Client.CommunicationServicesClient.Get(ctx, spec.ResourceGroup, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read communication service %s: %w", spec.Name, err)
	}
	return communicationServiceToResource(resp.ServiceResource, spec.Name), nil
}

func (cs *CommunicationService) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	dataLocation, err := requireProp(spec, "dataLocation")
	if err != nil {
		return nil, err
	}

	params := armcommunication.ServiceResource{
		Location: stringPtr(spec.Location),
		Properties: &armcommunication.ServiceProperties{
			DataLocation: stringPtr(dataLocation),
		},
		Tags: commonTags(cs.Config),
	}

	poller, err := cs.Client.CommunicationServicesClient.BeginCreateOrUpdate(ctx, spec.ResourceGroup, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start communication service creation: %w", err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create communication service %s: %w", spec.Name, err)
	}
	return communicationServiceToResource(resp.ServiceResource, spec.Name), nil
}

func communicationServiceToResource(svc armcommunication.ServiceResource, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindCommunicationService, Name: name}
	if svc.Name != nil {
		res.Name = *svc.Name
	}
	if svc.ID != nil {
		res.ID = armid.ID(*svc.ID)
	}
	if svc.Properties != nil && svc.Properties.HostName != nil {
		res.Endpoint = "https://" + *svc.Properties.HostName
	}
	return res
}

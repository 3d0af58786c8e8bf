// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/msi/armmsi"
	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"
)

func init() {
	registry.Register(prov.KindUserAssignedIdentity, func(client *client.Client, cfg *config.Config) prov.Handler {
		return &UserAssignedIdentity{client, cfg}
	})
}

// UserAssignedIdentity is the handler for the optional user-assigned
// managed identity. Only provisioned when identity_mode is "user".
type UserAssignedIdentity struct {
	Client *client.Client
	Config *config.Config
}

func (u *UserAssignedIdentity) Kind() prov.Kind { return prov.KindUserAssignedIdentity }

func (u *UserAssignedIdentity) Lookup(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	resp, err := u.Client.UserAssignedIdentitiesClient.Get(ctx, spec.ResourceGroup, spec.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read user-assigned identity %s: %w", spec.Name, err)
	}
	return identityToResource(resp.Identity, spec.Name), nil
}

func (u *UserAssignedIdentity) Create(ctx context.Context, spec prov.ResourceSpec) (*prov.Resource, error) {
	params := armmsi.Identity{
		Location: stringPtr(spec.Location),
		Tags:     commonTags(u.Config),
	}

	// Identity creation is synchronous and the response already
	// carries the service principal's object id.
	resp, err := u.Client.UserAssignedIdentitiesClient.CreateOrUpdate(ctx, spec.ResourceGroup, spec.Name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user-assigned identity %s: %w", spec.Name, err)
	}
	return identityToResource(resp.Identity, spec.Name), nil
}

func identityToResource(identity armmsi.Identity, name string) *prov.Resource {
	res := &prov.Resource{Kind: prov.KindUserAssignedIdentity, Name: name}
	if identity.Name != nil {
		res.Name = *identity.Name
	}
	if identity.ID != nil {
		res.ID = armid.ID(*identity.ID)
	}
	if identity.Properties != nil && identity.Properties.PrincipalID != nil {
		res.PrincipalID = *identity.Properties.PrincipalID
	}
	return res
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/provision"
)

// RoleGrants manages role assignments through the authorization
// clients.
type RoleGrants struct {
	assignments *armauthorization.RoleAssignmentsClient
	definitions *armauthorization.RoleDefinitionsClient
}

func NewRoleGrants(c *Client) *RoleGrants {
	return &RoleGrants{
		assignments: c.RoleAssignmentsClient,
		definitions: c.RoleDefinitionsClient,
	}
}

// ResolveRole maps a role name ("Key Vault Secrets User") to the role
// definition ID assignments reference.
func (g *RoleGrants) ResolveRole(ctx context.Context, scope armid.ID, roleName string) (string, error) {
	filter := fmt.Sprintf("roleName eq '%s'", roleName)
	pager := g.definitions.NewListPager(scope.String(), &armauthorization.RoleDefinitionsClientListOptions{
		Filter: &filter,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("listing role definitions at %s: %w", scope, err)
		}
		for _, def := range page.Value {
			if def.ID != nil {
				return *def.ID, nil
			}
		}
	}
	return "", fmt.Errorf("role %q not defined at scope %s", roleName, scope)
}

// List returns the principal's assignments effective at the scope,
// inherited ones included.
func (g *RoleGrants) List(ctx context.Context, scope armid.ID, principalID string) ([]provision.Assignment, error) {
	filter := fmt.Sprintf("principalId eq '%s'", principalID)
	pager := g.assignments.NewListForScopePager(scope.String(), &armauthorization.RoleAssignmentsClientListForScopeOptions{
		Filter: &filter,
	})
	var out []provision.Assignment
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing role assignments at %s: %w", scope, err)
		}
		for _, a := range page.Value {
			if a.ID == nil {
				continue
			}
			out = append(out, assignmentFrom(a))
		}
	}
	return out, nil
}

// Create adds an assignment. Azure requires the assignment name to be a
// UUID; nothing references it afterwards, so a random one is fine.
func (g *RoleGrants) Create(ctx context.Context, scope armid.ID, principalID, principalType, roleDefinitionID string) (provision.Assignment, error) {
	params := armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			PrincipalID:      to.Ptr(principalID),
			RoleDefinitionID: to.Ptr(roleDefinitionID),
		},
	}
	// Naming the principal type lets ARM skip the directory existence
	// check, which a freshly created principal can still fail.
	if principalType != "" {
		params.Properties.PrincipalType = to.Ptr(armauthorization.PrincipalType(principalType))
	}
	resp, err := g.assignments.Create(ctx, scope.String(), uuid.New().String(), params, nil)
	if err != nil {
		return provision.Assignment{}, fmt.Errorf("creating role assignment at %s: %w", scope, err)
	}
	return assignmentFrom(&resp.RoleAssignment), nil
}

// Delete removes an assignment by its full resource ID.
func (g *RoleGrants) Delete(ctx context.Context, assignmentID string) error {
	if _, err := g.assignments.DeleteByID(ctx, assignmentID, nil); err != nil {
		return fmt.Errorf("deleting role assignment %s: %w", assignmentID, err)
	}
	return nil
}

func assignmentFrom(a *armauthorization.RoleAssignment) provision.Assignment {
	var out provision.Assignment
	if a.ID != nil {
		out.ID = *a.ID
	}
	if a.Properties != nil {
		if a.Properties.PrincipalID != nil {
			out.PrincipalID = *a.Properties.PrincipalID
		}
		if a.Properties.RoleDefinitionID != nil {
			out.RoleDefinitionID = *a.Properties.RoleDefinitionID
		}
		if a.Properties.Scope != nil {
			out.Scope = *a.Properties.Scope
		}
	}
	return out
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package provision orchestrates the dialtone provisioning workflow:
// provider registration, idempotent resource creation, identity
// propagation, role grants, and secret publication. The platform is
// reached only through the narrow interfaces in this file, implemented
// for Azure in pkg/client and by fakes in tests.
package provision

import (
	"context"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
)

// Assignment is a role assignment as the platform reports it.
type Assignment struct {
	ID               string
	PrincipalID      string
	RoleDefinitionID string
	Scope            string
}

// Identity describes the directory identity behind a credential.
type Identity struct {
	ObjectID string
	TenantID string
	// Kind is "user", "servicePrincipal", or "unknown" when the token
	// carries no usable claims.
	Kind string
}

// ProviderRegistry reads and initiates ARM resource provider
// registration for a subscription.
type ProviderRegistry interface {
	RegistrationState(ctx context.Context, namespace string) (string, error)
	Register(ctx context.Context, namespace string) error
}

// Directory answers questions about directory objects.
type Directory interface {
	// PrincipalExists reports whether the object is visible in the
	// directory yet. A propagation delay reads as (false, nil).
	PrincipalExists(ctx context.Context, objectID string) (bool, error)

	// WhoAmI identifies the credential the workflow runs as.
	WhoAmI(ctx context.Context) (Identity, error)
}

// RoleGrants manages role assignments at a scope.
type RoleGrants interface {
	// ResolveRole maps a role name to its role definition ID, valid at
	// the given scope.
	ResolveRole(ctx context.Context, scope armid.ID, roleName string) (string, error)

	// List returns the principal's assignments at the scope.
	List(ctx context.Context, scope armid.ID, principalID string) ([]Assignment, error)

	// Create adds an assignment. The returned error keeps the platform
	// error in its chain so callers can classify it.
	Create(ctx context.Context, scope armid.ID, principalID, principalType, roleDefinitionID string) (Assignment, error)

	// Delete removes an assignment by its full resource ID.
	Delete(ctx context.Context, assignmentID string) error
}

// SecretStore reads and writes named secrets in a vault.
type SecretStore interface {
	Set(ctx context.Context, vaultURI, name, value string) error
	Get(ctx context.Context, vaultURI, name string) (string, error)
}

// ConnectionStrings reads data-plane connection strings. Key material
// flows from here straight into the secret store and never into the
// outputs document.
type ConnectionStrings interface {
	Primary(ctx context.Context, resourceGroup, serviceName string) (string, error)
}

// HostSettings applies application settings to a function host without
// disturbing settings it does not own.
type HostSettings interface {
	Apply(ctx context.Context, resourceGroup, site string, settings map[string]string) error
}

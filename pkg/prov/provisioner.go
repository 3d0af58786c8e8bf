// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package prov defines the resource model and the idempotent ensure
// operation every dialtone resource kind goes through.
package prov

import (
	"context"
	"fmt"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/azerr"
)

// Kind identifies a provisionable Azure resource type.
type Kind string

const (
	KindResourceGroup        Kind = "Azure::Resources::ResourceGroup"
	KindCommunicationService Kind = "Azure::Communication::CommunicationService"
	KindStorageAccount       Kind = "Azure::Storage::StorageAccount"
	KindKeyVault             Kind = "Azure::KeyVault::Vault"
	KindUserAssignedIdentity Kind = "Azure::ManagedIdentity::UserAssignedIdentity"
	KindHostingPlan          Kind = "Azure::Web::ServerFarm"
	KindFunctionApp          Kind = "Azure::Web::FunctionApp"
)

// ResourceSpec is the desired state for a single resource. Properties
// carries kind-specific extras the common fields cannot express.
type ResourceSpec struct {
	Kind          Kind
	Name          string
	ResourceGroup string
	Location      string
	Properties    map[string]any
}

// Resource describes a live resource after lookup or creation.
type Resource struct {
	Kind Kind
	Name string
	ID   armid.ID

	// PrincipalID is the directory object ID of the resource's managed
	// identity, for kinds that carry one.
	PrincipalID string

	// Endpoint is the data-plane URI, for kinds that expose one.
	Endpoint string
}

// Handler provisions one resource kind.
type Handler interface {
	Kind() Kind

	// Lookup returns the live resource. A NotFound error from the
	// platform means the resource does not exist yet.
	Lookup(ctx context.Context, spec ResourceSpec) (*Resource, error)

	// Create creates the resource and blocks until it is usable.
	Create(ctx context.Context, spec ResourceSpec) (*Resource, error)
}

// EnsureResult reports what Ensure did. Created is false when the
// resource already existed.
type EnsureResult struct {
	Resource *Resource
	Created  bool
}

// Ensure makes the resource described by spec exist: look it up first,
// create it only when the lookup says NotFound. A concurrent creator
// winning the race is fine; the losing create re-reads the live resource
// and reports Created=false.
func Ensure(ctx context.Context, h Handler, spec ResourceSpec) (EnsureResult, error) {
	existing, err := h.Lookup(ctx, spec)
	if err == nil {
		return EnsureResult{Resource: existing}, nil
	}
	if !azerr.IsNotFound(err) {
		return EnsureResult{}, fmt.Errorf("looking up %s %q: %w", spec.Kind, spec.Name, err)
	}

	created, err := h.Create(ctx, spec)
	if err != nil {
		if azerr.IsAlreadyExists(err) {
			existing, lerr := h.Lookup(ctx, spec)
			if lerr == nil {
				return EnsureResult{Resource: existing}, nil
			}
			return EnsureResult{}, fmt.Errorf("re-reading %s %q after create conflict: %w", spec.Kind, spec.Name, lerr)
		}
		return EnsureResult{}, fmt.Errorf("creating %s %q: %w", spec.Kind, spec.Name, err)
	}
	return EnsureResult{Resource: created, Created: true}, nil
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// ProviderRegistry reads and initiates ARM resource provider
// registration for the configured subscription.
type ProviderRegistry struct {
	providers *armresources.ProvidersClient
}

func NewProviderRegistry(c *Client) *ProviderRegistry {
	return &ProviderRegistry{providers: c.ProvidersClient}
}

// RegistrationState returns the namespace's state, e.g. "Registered",
// "Registering", "NotRegistered".
func (r *ProviderRegistry) RegistrationState(ctx context.Context, namespace string) (string, error) {
	resp, err := r.providers.Get(ctx, namespace, nil)
	if err != nil {
		return "", fmt.Errorf("reading provider %s: %w", namespace, err)
	}
	if resp.RegistrationState == nil {
		return "", nil
	}
	return *resp.RegistrationState, nil
}

// Register initiates registration. Completion is observed through
// RegistrationState, not through this call.
func (r *ProviderRegistry) Register(ctx context.Context, namespace string) error {
	if _, err := r.providers.Register(ctx, namespace, nil); err != nil {
		return fmt.Errorf("registering provider %s: %w", namespace, err)
	}
	return nil
}

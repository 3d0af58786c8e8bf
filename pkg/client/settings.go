// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"
)

// HostSettings writes application settings on a function host. Settings
// are merged over the current ones; the function runtime keeps the
// entries it depends on (storage, runtime version).
type HostSettings struct {
	webApps *armappservice.WebAppsClient
}

func NewHostSettings(c *Client) *HostSettings {
	return &HostSettings{webApps: c.WebAppsClient}
}

func (h *HostSettings) Apply(ctx context.Context, resourceGroup, site string, settings map[string]string) error {
	current, err := h.webApps.ListApplicationSettings(ctx, resourceGroup, site, nil)
	if err != nil {
		return fmt.Errorf("reading app settings for %s: %w", site, err)
	}
	merged := current.Properties
	if merged == nil {
		merged = make(map[string]*string)
	}
	for k, v := range settings {
		merged[k] = to.Ptr(v)
	}
	_, err = h.webApps.UpdateApplicationSettings(ctx, resourceGroup, site,
		armappservice.StringDictionary{Properties: merged}, nil)
	if err != nil {
		return fmt.Errorf("updating app settings for %s: %w", site, err)
	}
	return nil
}

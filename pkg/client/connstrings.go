// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/communication/armcommunication/v2"
)

// ConnectionStrings reads communication service access keys.
type ConnectionStrings struct {
	services *armcommunication.ServicesClient
}

func NewConnectionStrings(c *Client) *ConnectionStrings {
	return &ConnectionStrings{services: c.CommunicationServicesClient}
}

// Primary returns the service's primary connection string.
func (s *ConnectionStrings) Primary(ctx context.Context, resourceGroup, serviceName string) (string, error) {
	resp, err := s.services.ListKeys(ctx, resourceGroup, serviceName, nil)
	if err != nil {
		return "", fmt.Errorf("listing keys for %s: %w", serviceName, err)
	}
	if resp.PrimaryConnectionString == nil {
		return "", fmt.Errorf("communication service %s has no primary connection string", serviceName)
	}
	return *resp.PrimaryConnectionString, nil
}

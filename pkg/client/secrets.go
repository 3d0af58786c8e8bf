// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// SecretStore reads and writes vault secrets over the data plane.
// Data-plane clients are cached per vault URI.
type SecretStore struct {
	parent *Client

	mu      sync.Mutex
	clients map[string]*azsecrets.Client
}

func NewSecretStore(c *Client) *SecretStore {
	return &SecretStore{
		parent:  c,
		clients: make(map[string]*azsecrets.Client),
	}
}

func (s *SecretStore) secretsClient(vaultURI string) (*azsecrets.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cl, ok := s.clients[vaultURI]; ok {
		return cl, nil
	}
	cl, err := s.parent.SecretsClient(vaultURI)
	if err != nil {
		return nil, err
	}
	s.clients[vaultURI] = cl
	return cl, nil
}

// Set writes the latest version of the secret.
func (s *SecretStore) Set(ctx context.Context, vaultURI, name, value string) error {
	cl, err := s.secretsClient(vaultURI)
	if err != nil {
		return err
	}
	params := azsecrets.SetSecretParameters{Value: to.Ptr(value)}
	if _, err := cl.SetSecret(ctx, name, params, nil); err != nil {
		return fmt.Errorf("setting secret %q in %s: %w", name, vaultURI, err)
	}
	return nil
}

// Get reads the latest version of the secret.
func (s *SecretStore) Get(ctx context.Context, vaultURI, name string) (string, error) {
	cl, err := s.secretsClient(vaultURI)
	if err != nil {
		return "", err
	}
	resp, err := cl.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("getting secret %q from %s: %w", name, vaultURI, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %q has no value", name)
	}
	return *resp.Value, nil
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// OutputResource is one provisioned resource as the outputs document
// records it. It never contains secret material.
type OutputResource struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	PrincipalID string `json:"principalId,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// Step is one workflow step's summary line.
type Step struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// OutputsRecord is the provisioning run's final document: where
// everything ended up and how each step fared. It is assembled in
// memory during the run and persisted exactly once at the end; a new
// run replaces the file wholesale.
type OutputsRecord struct {
	RunID          string                    `json:"runId"`
	GeneratedAt    time.Time                 `json:"generatedAt"`
	SubscriptionID string                    `json:"subscriptionId"`
	ResourceGroup  string                    `json:"resourceGroup"`
	Location       string                    `json:"location"`
	Resources      map[string]OutputResource `json:"resources"`
	VaultURI       string                    `json:"vaultUri,omitempty"`
	SecretName     string                    `json:"secretName,omitempty"`
	SecretStored   bool                      `json:"secretStored"`
	Steps          []Step                    `json:"steps"`
}

// Write persists the record to path. This is the run's only fatal
// failure: the resources exist either way, but without the outputs
// document nothing downstream can find them.
func (rec *OutputsRecord) Write(path string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outputs: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing outputs to %s: %w", path, err)
	}
	return nil
}

// ReadOutputs loads a previously written record. The serve command uses
// it to locate the vault and secret.
func ReadOutputs(path string) (*OutputsRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outputs from %s: %w", path, err)
	}
	var rec OutputsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing outputs %s: %w", path, err)
	}
	return &rec, nil
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

// Package resources holds the per-type handlers that know how to look
// up and create each Azure resource dialtone manages. Handlers register
// themselves with the registry at init time and are driven through
// prov.Ensure, so they never decide whether a resource should exist.
package resources

import (
	"fmt"

	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
)

// stringPtr returns a pointer to a string. Useful for Azure SDK calls.
func stringPtr(s string) *string {
	return &s
}

// commonTags are stamped on everything dialtone creates so a
// subscription owner can tell where a resource came from.
func commonTags(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"managed-by":  stringPtr("dialtone"),
		"environment": stringPtr(cfg.Environment),
	}
}

// stringProp reads an optional string property from a spec.
func stringProp(spec prov.ResourceSpec, key string) string {
	if spec.Properties == nil {
		return ""
	}
	v, _ := spec.Properties[key].(string)
	return v
}

// requireProp reads a required string property from a spec.
func requireProp(spec prov.ResourceSpec, key string) (string, error) {
	v := stringProp(spec, key)
	if v == "" {
		return "", fmt.Errorf("%s is required for %s", key, spec.Kind)
	}
	return v, nil
}

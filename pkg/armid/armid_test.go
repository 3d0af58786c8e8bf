// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package armid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceRoundTrip(t *testing.T) {
	id := Resource("sub-1", "rg-demo", "Microsoft.KeyVault", "vaults", "kv-demo")

	assert.Equal(t, "/subscriptions/sub-1/resourceGroups/rg-demo/providers/Microsoft.KeyVault/vaults/kv-demo", id.String())
	assert.Equal(t, "sub-1", id.Subscription())
	assert.Equal(t, "rg-demo", id.ResourceGroup())
	assert.Equal(t, "kv-demo", id.Name())
}

func TestPartsLowercasesKeys(t *testing.T) {
	// ARM mixes segment casing between APIs.
	id := ID("/subscriptions/sub-1/resourcegroups/rg-demo/providers/Microsoft.Web/sites/func-demo")

	parts := id.Parts()
	assert.Equal(t, "rg-demo", parts["resourcegroups"])
	assert.Equal(t, "func-demo", parts["sites"])
}

func TestGroupScope(t *testing.T) {
	scope := GroupScope("sub-1", "rg-demo")
	assert.Equal(t, ID("/subscriptions/sub-1/resourceGroups/rg-demo"), scope)
	assert.Equal(t, "rg-demo", scope.ResourceGroup())
}

func TestNameOnScopes(t *testing.T) {
	assert.Equal(t, "rg-demo", GroupScope("sub-1", "rg-demo").Name())
	assert.Equal(t, "", ID("").Name())
	assert.Equal(t, "", ID("/").Name())
}

func TestEqualFold(t *testing.T) {
	a := ID("/subscriptions/SUB-1/resourceGroups/rg-demo")
	b := ID("/subscriptions/sub-1/resourcegroups/RG-DEMO")
	assert.True(t, a.EqualFold(b))
	assert.False(t, a.EqualFold(ID("/subscriptions/sub-2/resourceGroups/rg-demo")))
}

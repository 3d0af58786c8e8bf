// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package armid

import (
	"fmt"
	"strings"
)

// ID is an Azure ARM resource identifier, e.g.
// /subscriptions/{sub}/resourceGroups/{rg}/providers/Microsoft.KeyVault/vaults/{name}
//
// ARM returns identifiers with inconsistent segment casing, so all key
// lookups are case-insensitive. This package is the single place that
// parses or assembles identifiers; everything else treats them as opaque.
type ID string

// GroupScope returns the resource group scope for a subscription.
func GroupScope(subscriptionID, resourceGroup string) ID {
	return ID(fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", subscriptionID, resourceGroup))
}

// SubscriptionScope returns the subscription-level scope.
func SubscriptionScope(subscriptionID string) ID {
	return ID("/subscriptions/" + subscriptionID)
}

// Resource returns the identifier of a provider resource under a resource
// group, e.g. Resource("sub", "rg", "Microsoft.KeyVault", "vaults", "kv1").
func Resource(subscriptionID, resourceGroup, providerNamespace, resourceType, name string) ID {
	return ID(fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/%s/%s/%s",
		subscriptionID, resourceGroup, providerNamespace, resourceType, name))
}

// String returns the identifier as a plain string.
func (id ID) String() string {
	return string(id)
}

// Parts splits the identifier into key/value segment pairs with lowercased
// keys: /subscriptions/xxx/resourceGroups/yyy yields
// {"subscriptions": "xxx", "resourcegroups": "yyy"}.
func (id ID) Parts() map[string]string {
	parts := make(map[string]string)

	segments := []string{}
	for _, seg := range strings.Split(string(id), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	for i := 0; i < len(segments)-1; i += 2 {
		parts[strings.ToLower(segments[i])] = segments[i+1]
	}

	return parts
}

// Name returns the trailing segment, which for a full resource identifier
// is the resource name. Empty for malformed input.
func (id ID) Name() string {
	trimmed := strings.TrimRight(string(id), "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 || i == len(trimmed)-1 {
		return ""
	}
	return trimmed[i+1:]
}

// Subscription returns the subscription segment, or "" if absent.
func (id ID) Subscription() string {
	return id.Parts()["subscriptions"]
}

// ResourceGroup returns the resource group segment, or "" if absent.
func (id ID) ResourceGroup() string {
	return id.Parts()["resourcegroups"]
}

// EqualFold reports whether two identifiers name the same resource,
// ignoring the casing differences ARM introduces.
func (id ID) EqualFold(other ID) bool {
	return strings.EqualFold(string(id), string(other))
}

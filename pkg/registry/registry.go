// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package registry

import (
	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
)

// HandlerFactory is a function that creates a Handler instance.
type HandlerFactory func(client *client.Client, cfg *config.Config) prov.Handler

// registry stores handler factories for each resource kind. Handlers
// register themselves from init in pkg/resources.
var registry = make(map[prov.Kind]HandlerFactory)

// Register registers a handler factory for a resource kind.
func Register(kind prov.Kind, factory HandlerFactory) {
	registry[kind] = factory
}

// Get returns a Handler instance for the given resource kind.
func Get(kind prov.Kind, client *client.Client, cfg *config.Config) prov.Handler {
	factory, ok := registry[kind]
	if !ok {
		return nil
	}
	return factory(client, cfg)
}

// HasHandler returns true if a handler is registered for the given resource kind.
func HasHandler(kind prov.Kind) bool {
	_, ok := registry[kind]
	return ok
}

// Handlers instantiates every registered handler, keyed by kind.
func Handlers(client *client.Client, cfg *config.Config) map[prov.Kind]prov.Handler {
	out := make(map[prov.Kind]prov.Handler, len(registry))
	for kind, factory := range registry {
		out[kind] = factory(client, cfg)
	}
	return out
}

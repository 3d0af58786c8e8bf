// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/golang-jwt/jwt/v5"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"github.com/platform-engineering-labs/dialtone/pkg/provision"
)

var graphScopes = []string{"https://graph.microsoft.com/.default"}

const armScope = "https://management.azure.com/.default"

// Directory answers directory questions over Microsoft Graph. The
// caller's own identity comes from its access token claims, so it works
// for any credential in the default chain without extra Graph roles.
type Directory struct {
	graph *msgraphsdk.GraphServiceClient
	cred  azcore.TokenCredential

	mu     sync.Mutex
	cached *provision.Identity
}

func NewDirectory(c *Client) (*Directory, error) {
	graph, err := msgraphsdk.NewGraphServiceClientWithCredentials(c.Credential(), graphScopes)
	if err != nil {
		return nil, fmt.Errorf("building graph client: %w", err)
	}
	return &Directory{graph: graph, cred: c.Credential()}, nil
}

// PrincipalExists reports whether the directory object is visible. A
// 404 from Graph is the propagation gap, not an error.
func (d *Directory) PrincipalExists(ctx context.Context, objectID string) (bool, error) {
	_, err := d.graph.DirectoryObjects().ByDirectoryObjectId(objectID).Get(ctx, nil)
	if err == nil {
		return true, nil
	}
	if graphNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("querying directory object %s: %w", objectID, err)
}

// WhoAmI decodes identity claims from an ARM access token. The platform
// has already validated the token; we only read it. The result is
// best-effort: a token without an oid claim yields Kind "unknown" and
// no error.
func (d *Directory) WhoAmI(ctx context.Context) (provision.Identity, error) {
	d.mu.Lock()
	if d.cached != nil {
		id := *d.cached
		d.mu.Unlock()
		return id, nil
	}
	d.mu.Unlock()

	tok, err := d.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{armScope}})
	if err != nil {
		return provision.Identity{}, fmt.Errorf("acquiring token: %w", err)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.Token, claims); err != nil {
		return provision.Identity{}, fmt.Errorf("decoding token claims: %w", err)
	}

	id := identityFromClaims(claims)
	d.mu.Lock()
	d.cached = &id
	d.mu.Unlock()
	return id, nil
}

func identityFromClaims(claims jwt.MapClaims) provision.Identity {
	id := provision.Identity{Kind: "unknown"}
	if oid, ok := claims["oid"].(string); ok {
		id.ObjectID = oid
	}
	if tid, ok := claims["tid"].(string); ok {
		id.TenantID = tid
	}
	idtyp, _ := claims["idtyp"].(string)
	switch {
	case idtyp == "app":
		id.Kind = "servicePrincipal"
	case idtyp == "user":
		id.Kind = "user"
	default:
		// idtyp is an optional claim. A UPN means a user token; any
		// other token with an oid is a service principal of some kind.
		if _, ok := claims["upn"]; ok {
			id.Kind = "user"
		} else if id.ObjectID != "" {
			id.Kind = "servicePrincipal"
		}
	}
	return id
}

func graphNotFound(err error) bool {
	var oerr *odataerrors.ODataError
	return errors.As(err, &oerr) && oerr.ResponseStatusCode == http.StatusNotFound
}

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
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/golang-jwt/jwt/v5"
	"github.com/microsoft/kiota-abstractions-go/store"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredential struct {
	mu    sync.Mutex
	token string
	calls int
	err   error
}

func (f *fakeCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{Token: f.token, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func graphError(code string, status int) error {
	result := odataerrors.NewODataError()
	mainErr := odataerrors.NewMainError()
	mainErr.SetCode(to.Ptr(code))
	bs := store.NewInMemoryBackingStore()
	result.SetBackingStore(bs)
	result.SetErrorEscaped(mainErr)
	result.ResponseStatusCode = status
	return result
}

func TestIdentityFromClaims(t *testing.T) {
	tests := []struct {
		name     string
		claims   jwt.MapClaims
		objectID string
		tenantID string
		kind     string
	}{
		{
			name:     "app token",
			claims:   jwt.MapClaims{"oid": "oid-1", "tid": "tid-1", "idtyp": "app"},
			objectID: "oid-1",
			tenantID: "tid-1",
			kind:     "servicePrincipal",
		},
		{
			name:     "user token",
			claims:   jwt.MapClaims{"oid": "oid-2", "tid": "tid-1", "idtyp": "user"},
			objectID: "oid-2",
			tenantID: "tid-1",
			kind:     "user",
		},
		{
			name:     "upn implies user when idtyp missing",
			claims:   jwt.MapClaims{"oid": "oid-3", "tid": "tid-1", "upn": "dev@example.com"},
			objectID: "oid-3",
			tenantID: "tid-1",
			kind:     "user",
		},
		{
			name:     "bare oid reads as service principal",
			claims:   jwt.MapClaims{"oid": "oid-4", "tid": "tid-1"},
			objectID: "oid-4",
			tenantID: "tid-1",
			kind:     "servicePrincipal",
		},
		{
			name:   "no usable claims",
			claims: jwt.MapClaims{"aud": "https://management.azure.com"},
			kind:   "unknown",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := identityFromClaims(tt.claims)
			assert.Equal(t, tt.objectID, id.ObjectID)
			assert.Equal(t, tt.tenantID, id.TenantID)
			assert.Equal(t, tt.kind, id.Kind)
		})
	}
}

func TestWhoAmIDecodesAndCaches(t *testing.T) {
	cred := &fakeCredential{token: signedToken(t, jwt.MapClaims{
		"oid":   "caller-oid",
		"tid":   "caller-tid",
		"idtyp": "app",
	})}
	d := &Directory{cred: cred}

	id, err := d.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "caller-oid", id.ObjectID)
	assert.Equal(t, "caller-tid", id.TenantID)
	assert.Equal(t, "servicePrincipal", id.Kind)

	// Second call is served from cache without another token round trip.
	_, err = d.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cred.calls)
}

func TestWhoAmITokenAcquireFailure(t *testing.T) {
	cred := &fakeCredential{err: errors.New("no credential available")}
	d := &Directory{cred: cred}

	_, err := d.WhoAmI(context.Background())
	require.Error(t, err)
}

func TestWhoAmIRejectsMalformedToken(t *testing.T) {
	cred := &fakeCredential{token: "not-a-jwt"}
	d := &Directory{cred: cred}

	_, err := d.WhoAmI(context.Background())
	require.Error(t, err)
}

func TestGraphNotFound(t *testing.T) {
	assert.True(t, graphNotFound(graphError("Request_ResourceNotFound", http.StatusNotFound)))
	assert.True(t, graphNotFound(fmt.Errorf("querying: %w", graphError("Request_ResourceNotFound", http.StatusNotFound))))
	assert.False(t, graphNotFound(graphError("Authorization_RequestDenied", http.StatusForbidden)))
	assert.False(t, graphNotFound(errors.New("connection refused")))
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
)

const (
	readerRoleDefID  = "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/reader"
	officerRoleDefID = "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/officer"
)

var vaultScope = armid.Resource("sub-1", "rg-1", "Microsoft.KeyVault", "vaults", "kv-1")

func newTestReconciler(grants *fakeGrants) *GrantReconciler {
	return &GrantReconciler{
		Grants: grants,
		Clock:  testclock.NewDilatedWallClock(10 * time.Millisecond),
		Log:    discardLogger(),
	}
}

func testRoles() map[string]string {
	return map[string]string{
		"Key Vault Secrets User":    readerRoleDefID,
		"Key Vault Secrets Officer": officerRoleDefID,
	}
}

func readRequest() GrantRequest {
	return GrantRequest{
		Scope:         vaultScope,
		PrincipalID:   "principal-1",
		PrincipalType: "ServicePrincipal",
		RoleName:      "Key Vault Secrets User",
	}
}

func TestEnsureGrantCreates(t *testing.T) {
	grants := &fakeGrants{roles: testRoles()}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.NoError(t, err)
	assert.Equal(t, Granted, outcome)
	assert.Equal(t, 1, grants.creates)
	require.Len(t, grants.assignments, 1)
	assert.Equal(t, readerRoleDefID, grants.assignments[0].RoleDefinitionID)
	assert.Equal(t, "principal-1", grants.assignments[0].PrincipalID)
}

func TestEnsureGrantShortCircuitsOnExisting(t *testing.T) {
	grants := &fakeGrants{roles: testRoles()}
	grants.assignments = []Assignment{{
		ID:               "existing",
		PrincipalID:      "principal-1",
		RoleDefinitionID: readerRoleDefID,
		Scope:            vaultScope.String(),
	}}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.NoError(t, err)
	assert.Equal(t, AlreadyGranted, outcome)
	assert.Zero(t, grants.creates)
}

func TestEnsureGrantTreatsPlatformConflictAsGranted(t *testing.T) {
	// The pre-check can miss an assignment the platform knows about;
	// the create's conflict answer settles it.
	grants := &fakeGrants{
		roles:      testRoles(),
		createErrs: []error{respError("RoleAssignmentExists", http.StatusConflict)},
	}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.NoError(t, err)
	assert.Equal(t, AlreadyGranted, outcome)
	assert.Equal(t, 1, grants.creates)
}

func TestEnsureGrantDenialStopsImmediately(t *testing.T) {
	grants := &fakeGrants{
		roles:      testRoles(),
		createErrs: []error{respError("AuthorizationFailed", http.StatusForbidden)},
	}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.Error(t, err)
	assert.Equal(t, GrantDenied, outcome)
	assert.Equal(t, 1, grants.creates)
}

func TestEnsureGrantRetriesPropagationDelay(t *testing.T) {
	// PrincipalNotFound means directory replication has not caught up;
	// the retry budget rides it out.
	grants := &fakeGrants{
		roles: testRoles(),
		createErrs: []error{
			respError("PrincipalNotFound", http.StatusNotFound),
			nil,
		},
	}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.NoError(t, err)
	assert.Equal(t, Granted, outcome)
	assert.Equal(t, 2, grants.creates)
}

func TestEnsureGrantExhaustsAttempts(t *testing.T) {
	transient := respError("InternalServerError", http.StatusInternalServerError)
	grants := &fakeGrants{
		roles:      testRoles(),
		createErrs: []error{transient, transient, transient},
	}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.Error(t, err)
	assert.Equal(t, GrantFailed, outcome)
	assert.Equal(t, 3, grants.creates)
}

func TestEnsureGrantResolveFailure(t *testing.T) {
	grants := &fakeGrants{roles: map[string]string{}}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.Error(t, err)
	assert.Equal(t, GrantFailed, outcome)
	assert.Zero(t, grants.creates)
}

func TestEnsureGrantSucceedsWhenNeverReadable(t *testing.T) {
	// A created assignment that stays invisible past the visibility
	// budget is still Granted; the workflow only warns.
	grants := &fakeGrants{roles: testRoles(), createHidden: true}
	r := newTestReconciler(grants)

	outcome, err := r.EnsureGrant(context.Background(), readRequest())
	require.NoError(t, err)
	assert.Equal(t, Granted, outcome)
	assert.Equal(t, 1, grants.creates)
}

func TestHasRoleRequiresExactScope(t *testing.T) {
	grants := &fakeGrants{roles: testRoles()}
	grants.assignments = []Assignment{{
		ID:               "inherited",
		PrincipalID:      "principal-1",
		RoleDefinitionID: officerRoleDefID,
		Scope:            armid.SubscriptionScope("sub-1").String(),
	}}
	r := newTestReconciler(grants)

	held, err := r.HasRole(context.Background(), vaultScope, "principal-1", "Key Vault Secrets Officer")
	require.NoError(t, err)
	assert.False(t, held, "inherited assignment must not satisfy the vault-scope check")

	grants.assignments = append(grants.assignments, Assignment{
		ID:               "direct",
		PrincipalID:      "principal-1",
		RoleDefinitionID: officerRoleDefID,
		Scope:            vaultScope.String(),
	})
	held, err = r.HasRole(context.Background(), vaultScope, "principal-1", "Key Vault Secrets Officer")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestAcquireTemporaryOwnsNewAssignment(t *testing.T) {
	grants := &fakeGrants{roles: testRoles()}
	r := newTestReconciler(grants)

	grant, err := r.AcquireTemporary(context.Background(), GrantRequest{
		Scope:       vaultScope,
		PrincipalID: "caller-1",
		RoleName:    "Key Vault Secrets Officer",
	})
	require.NoError(t, err)
	assert.True(t, grant.Created())

	require.NoError(t, grant.Revoke(context.Background()))
	require.Len(t, grants.deleted, 1)

	// A second revoke must not delete again.
	require.NoError(t, grant.Revoke(context.Background()))
	assert.Len(t, grants.deleted, 1)
}

func TestAcquireTemporaryLeavesOperatorGrantAlone(t *testing.T) {
	grants := &fakeGrants{
		roles:      testRoles(),
		createErrs: []error{respError("RoleAssignmentExists", http.StatusConflict)},
	}
	r := newTestReconciler(grants)

	grant, err := r.AcquireTemporary(context.Background(), GrantRequest{
		Scope:       vaultScope,
		PrincipalID: "caller-1",
		RoleName:    "Key Vault Secrets Officer",
	})
	require.NoError(t, err)
	assert.False(t, grant.Created())

	require.NoError(t, grant.Revoke(context.Background()))
	assert.Empty(t, grants.deleted)
}

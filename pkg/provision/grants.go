// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
	"github.com/platform-engineering-labs/dialtone/pkg/azerr"
)

// GrantOutcome reports how a grant reconciliation finished.
type GrantOutcome string

const (
	// Granted: a new assignment was created.
	Granted GrantOutcome = "Granted"
	// AlreadyGranted: an equivalent assignment existed, either found up
	// front or reported by the platform during create.
	AlreadyGranted GrantOutcome = "AlreadyGranted"
	// GrantDenied: the workflow's own credential lacks permission to
	// assign roles. No amount of retrying changes this.
	GrantDenied GrantOutcome = "Denied"
	// GrantFailed: the create attempts were exhausted.
	GrantFailed GrantOutcome = "Failed"
)

const (
	grantAttempts      = 3
	grantRetryDelay    = 5 * time.Second
	visibilityInterval = 5 * time.Second
	visibilityAttempts = 24
)

var errAssignmentInvisible = errors.New("role assignment not visible")

// GrantRequest asks for a role, by name, for a principal at a scope.
type GrantRequest struct {
	Scope         armid.ID
	PrincipalID   string
	PrincipalType string
	RoleName      string
}

// GrantReconciler makes role assignments exist, riding out the directory
// propagation delays that make fresh principals unassignable for a
// while.
type GrantReconciler struct {
	Grants RoleGrants
	Clock  clock.Clock
	Log    *slog.Logger
}

// EnsureGrant resolves the role name, short-circuits when an equivalent
// assignment exists, and otherwise creates one with bounded retries.
// After a successful create it polls until the assignment is readable,
// and only warns when that visibility deadline passes.
func (r *GrantReconciler) EnsureGrant(ctx context.Context, req GrantRequest) (GrantOutcome, error) {
	roleDefID, err := r.Grants.ResolveRole(ctx, req.Scope, req.RoleName)
	if err != nil {
		return GrantFailed, fmt.Errorf("resolving role %q at %s: %w", req.RoleName, req.Scope, err)
	}

	existing, err := r.Grants.List(ctx, req.Scope, req.PrincipalID)
	if err != nil {
		r.Log.Warn("listing existing role assignments failed, attempting create",
			"scope", req.Scope, "principal_id", req.PrincipalID, "error", err)
	} else if hasAssignment(existing, roleDefID) {
		r.Log.Info("role already granted",
			"role", req.RoleName, "principal_id", req.PrincipalID, "scope", req.Scope)
		return AlreadyGranted, nil
	}

	_, err = r.create(ctx, req, roleDefID)
	switch {
	case err == nil:
	case azerr.IsAlreadyExists(err):
		r.Log.Info("role assignment already exists",
			"role", req.RoleName, "principal_id", req.PrincipalID)
		return AlreadyGranted, nil
	case azerr.IsDenied(err):
		return GrantDenied, fmt.Errorf("not permitted to grant %q at %s: %w", req.RoleName, req.Scope, err)
	default:
		return GrantFailed, fmt.Errorf("granting %q to %s: %w", req.RoleName, req.PrincipalID, err)
	}

	if !r.waitVisible(ctx, req.Scope, req.PrincipalID, roleDefID) {
		r.Log.Warn("role assignment created but not yet readable",
			"role", req.RoleName, "principal_id", req.PrincipalID, "scope", req.Scope)
	}
	return Granted, nil
}

// HasRole reports whether the principal holds the named role at exactly
// the given scope. Inherited assignments from broader scopes read as not
// held.
func (r *GrantReconciler) HasRole(ctx context.Context, scope armid.ID, principalID, roleName string) (bool, error) {
	roleDefID, err := r.Grants.ResolveRole(ctx, scope, roleName)
	if err != nil {
		return false, fmt.Errorf("resolving role %q at %s: %w", roleName, scope, err)
	}
	assignments, err := r.Grants.List(ctx, scope, principalID)
	if err != nil {
		return false, fmt.Errorf("listing assignments at %s: %w", scope, err)
	}
	for _, a := range assignments {
		if strings.EqualFold(a.RoleDefinitionID, roleDefID) && scope.EqualFold(armid.ID(a.Scope)) {
			return true, nil
		}
	}
	return false, nil
}

// AcquireTemporary creates an assignment the caller promises to revoke.
// When the platform reports the assignment already exists, it is
// operator-managed and the returned grant revokes nothing.
func (r *GrantReconciler) AcquireTemporary(ctx context.Context, req GrantRequest) (*TemporaryGrant, error) {
	roleDefID, err := r.Grants.ResolveRole(ctx, req.Scope, req.RoleName)
	if err != nil {
		return nil, fmt.Errorf("resolving role %q at %s: %w", req.RoleName, req.Scope, err)
	}
	created, err := r.create(ctx, req, roleDefID)
	switch {
	case err == nil:
		r.Log.Info("temporary grant created",
			"role", req.RoleName, "principal_id", req.PrincipalID, "assignment_id", created.ID)
		return &TemporaryGrant{reconciler: r, assignment: created, owned: true}, nil
	case azerr.IsAlreadyExists(err):
		return &TemporaryGrant{reconciler: r}, nil
	default:
		return nil, fmt.Errorf("creating temporary %q grant: %w", req.RoleName, err)
	}
}

// create runs the bounded creation retry: 3 attempts with linear
// backoff (5s, then 10s). Only retryable classifications consume
// further attempts; a denial stops immediately.
func (r *GrantReconciler) create(ctx context.Context, req GrantRequest, roleDefID string) (Assignment, error) {
	var created Assignment
	err := retry.Call(retry.CallArgs{
		Clock:    r.Clock,
		Delay:    grantRetryDelay,
		Attempts: grantAttempts,
		BackoffFunc: func(delay time.Duration, attempt int) time.Duration {
			return grantRetryDelay * time.Duration(attempt)
		},
		Stop: ctx.Done(),
		Func: func() error {
			var err error
			created, err = r.Grants.Create(ctx, req.Scope, req.PrincipalID, req.PrincipalType, roleDefID)
			return err
		},
		IsFatalError: func(err error) bool {
			return !azerr.Retryable(err)
		},
		NotifyFunc: func(lastErr error, attempt int) {
			r.Log.Debug("role assignment create failed, retrying",
				"attempt", attempt, "error", lastErr)
		},
	})
	if err != nil && (retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err)) {
		err = retry.LastError(err)
	}
	return created, err
}

// waitVisible polls the scope's assignment list until the new assignment
// shows up. Listing is served by a different replica set than writes, so
// a freshly created assignment can be invisible for a while.
func (r *GrantReconciler) waitVisible(ctx context.Context, scope armid.ID, principalID, roleDefID string) bool {
	err := retry.Call(retry.CallArgs{
		Clock:    r.Clock,
		Delay:    visibilityInterval,
		Attempts: visibilityAttempts,
		Stop:     ctx.Done(),
		Func: func() error {
			assignments, err := r.Grants.List(ctx, scope, principalID)
			if err != nil {
				return err
			}
			if !hasAssignment(assignments, roleDefID) {
				return errAssignmentInvisible
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return azerr.Classify(err) == azerr.KindCanceled
		},
		NotifyFunc: func(lastErr error, attempt int) {
			r.Log.Debug("role assignment not readable yet",
				"scope", scope, "principal_id", principalID, "attempt", attempt)
		},
	})
	return err == nil
}

func hasAssignment(assignments []Assignment, roleDefID string) bool {
	for _, a := range assignments {
		if strings.EqualFold(a.RoleDefinitionID, roleDefID) {
			return true
		}
	}
	return false
}

// TemporaryGrant is a role assignment with a revocation obligation.
type TemporaryGrant struct {
	reconciler *GrantReconciler
	assignment Assignment
	owned      bool
}

// Created reports whether this grant actually created an assignment.
func (t *TemporaryGrant) Created() bool {
	return t.owned
}

// Revoke deletes the temporary assignment. Safe to call when nothing was
// created and safe to call twice; the caller decides what to do with a
// failure, the secret write outcome never depends on it.
func (t *TemporaryGrant) Revoke(ctx context.Context) error {
	if !t.owned {
		return nil
	}
	t.owned = false
	if err := t.reconciler.Grants.Delete(ctx, t.assignment.ID); err != nil {
		return fmt.Errorf("revoking temporary grant %s: %w", t.assignment.ID, err)
	}
	t.reconciler.Log.Info("temporary grant revoked", "assignment_id", t.assignment.ID)
	return nil
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
)

// PublishOutcome reports how secret publication finished.
type PublishOutcome string

const (
	// SecretStored: the write succeeded.
	SecretStored PublishOutcome = "Stored"
	// SecretSkipped: the write did not happen; the run continues and the
	// operator stores the secret by hand.
	SecretSkipped PublishOutcome = "Skipped"
)

const (
	// secretWriteRole is the data-plane role needed to write vault
	// secrets when the vault uses RBAC authorization.
	secretWriteRole = "Key Vault Secrets Officer"

	// temporaryGrantWait is how long a fresh data-plane assignment needs
	// before the vault honors it.
	temporaryGrantWait = 20 * time.Second
)

// SecretPublisher writes the connection-string secret into the vault,
// escalating its own access for the duration of the write when the
// caller lacks the data-plane role. The escalation is always revoked,
// whether or not the write succeeds.
type SecretPublisher struct {
	Secrets   SecretStore
	Grants    *GrantReconciler
	Directory Directory
	Clock     clock.Clock
	Log       *slog.Logger
}

// Publish stores value under name in the vault. The caller's identity
// may be unknowable (opaque credential); the write is still attempted
// and a denial degrades to Skipped.
func (p *SecretPublisher) Publish(ctx context.Context, vaultID armid.ID, vaultURI, name, value string) (PublishOutcome, error) {
	caller, err := p.Directory.WhoAmI(ctx)
	if err != nil {
		p.Log.Warn("caller identity unknown, attempting direct write", "error", err)
		caller = Identity{Kind: "unknown"}
	}

	if caller.ObjectID != "" {
		held, err := p.Grants.HasRole(ctx, vaultID, caller.ObjectID, secretWriteRole)
		if err != nil {
			p.Log.Warn("role pre-check failed, assuming role missing",
				"role", secretWriteRole, "error", err)
		}
		if held {
			p.Log.Info("caller already holds write role", "role", secretWriteRole)
		} else {
			grant, err := p.Grants.AcquireTemporary(ctx, GrantRequest{
				Scope:         vaultID,
				PrincipalID:   caller.ObjectID,
				PrincipalType: principalTypeFor(caller.Kind),
				RoleName:      secretWriteRole,
			})
			if err != nil {
				p.Log.Warn("temporary grant failed, attempting write regardless", "error", err)
			} else {
				// Revocation must run even when ctx is already done.
				defer func() {
					if err := grant.Revoke(context.WithoutCancel(ctx)); err != nil {
						p.Log.Warn("temporary grant revocation failed, remove it manually", "error", err)
					}
				}()
				if grant.Created() {
					p.Log.Info("waiting for temporary grant to take effect", "wait", temporaryGrantWait)
					select {
					case <-p.Clock.After(temporaryGrantWait):
					case <-ctx.Done():
						return SecretSkipped, ctx.Err()
					}
				}
			}
		}
	}

	if err := p.Secrets.Set(ctx, vaultURI, name, value); err != nil {
		return SecretSkipped, fmt.Errorf("writing secret %q: %w", name, err)
	}
	p.Log.Info("secret stored", "secret", name, "vault", vaultURI)
	return SecretStored, nil
}

func principalTypeFor(kind string) string {
	switch kind {
	case "user":
		return "User"
	case "servicePrincipal":
		return "ServicePrincipal"
	default:
		return ""
	}
}

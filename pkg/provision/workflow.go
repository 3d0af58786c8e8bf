// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juju/clock"
	"github.com/segmentio/ksuid"

	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/prov"
)

const (
	// secretReadRole is what the calling function needs to read the
	// connection string at runtime.
	secretReadRole = "Key Vault Secrets User"

	settingVaultURI   = "KEY_VAULT_URI"
	settingSecretName = "ACS_SECRET_NAME"
)

// Deps wires the workflow to the platform. Clock and Log default to the
// wall clock and slog.Default when nil; everything else comes from
// pkg/client in production and from fakes in tests.
type Deps struct {
	Handlers    map[prov.Kind]prov.Handler
	Providers   ProviderRegistry
	Grants      RoleGrants
	Secrets     SecretStore
	Directory   Directory
	Host        HostSettings
	ConnStrings ConnectionStrings
	Clock       clock.Clock
	Log         *slog.Logger
}

// Workflow runs the provisioning sequence for one environment.
type Workflow struct {
	cfg  *config.Config
	deps Deps

	gate      *Gate
	waiter    *Waiter
	grants    *GrantReconciler
	publisher *SecretPublisher

	steps []Step
}

// NewWorkflow builds a workflow over cfg and deps.
func NewWorkflow(cfg *config.Config, deps Deps) *Workflow {
	if deps.Clock == nil {
		deps.Clock = clock.WallClock
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	w := &Workflow{cfg: cfg, deps: deps}
	w.gate = &Gate{Registry: deps.Providers, Clock: deps.Clock, Log: deps.Log}
	w.waiter = &Waiter{Directory: deps.Directory, Clock: deps.Clock, Log: deps.Log}
	w.grants = &GrantReconciler{Grants: deps.Grants, Clock: deps.Clock, Log: deps.Log}
	w.publisher = &SecretPublisher{
		Secrets:   deps.Secrets,
		Grants:    w.grants,
		Directory: deps.Directory,
		Clock:     deps.Clock,
		Log:       deps.Log,
	}
	return w
}

// Run executes the provisioning sequence and persists the outputs
// document. Platform failures degrade to warnings and the run presses
// on with whatever is still reachable; only context cancellation and
// the final outputs write abort it.
func (w *Workflow) Run(ctx context.Context) (*OutputsRecord, error) {
	runID := ksuid.New().String()
	w.deps.Log.Info("provisioning run starting",
		"run_id", runID,
		"environment", w.cfg.Environment,
		"subscription_id", w.cfg.SubscriptionID,
		"resource_group", w.cfg.ResourceGroup)

	rec := &OutputsRecord{
		RunID:          runID,
		GeneratedAt:    w.deps.Clock.Now().UTC(),
		SubscriptionID: w.cfg.SubscriptionID,
		ResourceGroup:  w.cfg.ResourceGroup,
		Location:       w.cfg.Location,
		Resources:      make(map[string]OutputResource),
		SecretName:     w.cfg.SecretName,
	}

	for _, ns := range w.providerNamespaces() {
		outcome, err := w.gate.EnsureRegistered(ctx, ns)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			w.deps.Log.Warn("provider registration failed, continuing", "namespace", ns, "error", err)
			w.step("provider "+ns, string(outcome), err.Error())
			continue
		}
		if outcome == GateTimedOut {
			w.deps.Log.Warn("provider registration timed out, continuing", "namespace", ns)
		}
		w.step("provider "+ns, string(outcome), "")
	}

	// The vault create needs a tenant: config first, then the caller's
	// token.
	tenantID := w.cfg.TenantID
	if tenantID == "" {
		if caller, err := w.deps.Directory.WhoAmI(ctx); err == nil {
			tenantID = caller.TenantID
		} else {
			w.deps.Log.Warn("tenant discovery failed", "error", err)
		}
	}

	// Resource chain. A failed ensure leaves its dependents skipped,
	// never half-created.
	group := w.ensure(ctx, rec, prov.ResourceSpec{
		Kind:     prov.KindResourceGroup,
		Name:     w.cfg.ResourceGroup,
		Location: w.cfg.Location,
	})

	var acs, storage, vault, uai, plan, site *prov.Resource
	if group != nil {
		acs = w.ensure(ctx, rec, prov.ResourceSpec{
			Kind:          prov.KindCommunicationService,
			Name:          w.cfg.CommunicationService,
			ResourceGroup: w.cfg.ResourceGroup,
			Location:      "global",
			Properties:    map[string]any{"dataLocation": w.cfg.DataLocation},
		})
		storage = w.ensure(ctx, rec, prov.ResourceSpec{
			Kind:          prov.KindStorageAccount,
			Name:          w.cfg.StorageAccount,
			ResourceGroup: w.cfg.ResourceGroup,
			Location:      w.cfg.Location,
		})
		vault = w.ensure(ctx, rec, prov.ResourceSpec{
			Kind:          prov.KindKeyVault,
			Name:          w.cfg.KeyVault,
			ResourceGroup: w.cfg.ResourceGroup,
			Location:      w.cfg.Location,
			Properties:    map[string]any{"tenantId": tenantID},
		})
		if w.cfg.IdentityMode == config.IdentityUser {
			uai = w.ensure(ctx, rec, prov.ResourceSpec{
				Kind:          prov.KindUserAssignedIdentity,
				Name:          w.cfg.ManagedIdentity,
				ResourceGroup: w.cfg.ResourceGroup,
				Location:      w.cfg.Location,
			})
		}
		plan = w.ensure(ctx, rec, prov.ResourceSpec{
			Kind:          prov.KindHostingPlan,
			Name:          w.cfg.HostingPlan,
			ResourceGroup: w.cfg.ResourceGroup,
			Location:      w.cfg.Location,
		})
		if plan != nil && storage != nil {
			props := map[string]any{
				"serverFarmId":   plan.ID.String(),
				"storageAccount": storage.Name,
			}
			if uai != nil {
				props["userAssignedIdentityId"] = uai.ID.String()
			}
			site = w.ensure(ctx, rec, prov.ResourceSpec{
				Kind:          prov.KindFunctionApp,
				Name:          w.cfg.FunctionApp,
				ResourceGroup: w.cfg.ResourceGroup,
				Location:      w.cfg.Location,
				Properties:    props,
			})
		} else {
			w.step("ensure "+w.cfg.FunctionApp, "Skipped", "hosting plan or storage account missing")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if vault != nil {
		rec.VaultURI = vault.Endpoint
	}

	// The compute principal the grants target: the user-assigned
	// identity when one was requested, the site's system identity
	// otherwise.
	principalID := ""
	switch {
	case uai != nil:
		principalID = uai.PrincipalID
	case site != nil:
		principalID = site.PrincipalID
	}

	if principalID != "" {
		presence, err := w.waiter.WaitForPrincipal(ctx, principalID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			w.deps.Log.Warn("principal wait failed, continuing", "error", err)
			w.step("principal propagation", string(presence), err.Error())
		} else {
			if presence == PrincipalAbsent {
				w.deps.Log.Warn("principal still absent after propagation wait, the grant may only land on a later run",
					"principal_id", principalID)
			}
			w.step("principal propagation", string(presence), "")
		}
	} else {
		w.step("principal propagation", "Skipped", "no compute principal")
	}

	if vault != nil && principalID != "" {
		outcome, err := w.grants.EnsureGrant(ctx, GrantRequest{
			Scope:         vault.ID,
			PrincipalID:   principalID,
			PrincipalType: "ServicePrincipal",
			RoleName:      secretReadRole,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			w.deps.Log.Warn("grant reconciliation did not converge", "outcome", outcome, "error", err)
			w.step("grant "+secretReadRole, string(outcome), err.Error())
		} else {
			w.step("grant "+secretReadRole, string(outcome), "")
		}
	} else {
		w.step("grant "+secretReadRole, "Skipped", "vault or principal missing")
	}

	if acs != nil && vault != nil && vault.Endpoint != "" {
		value, err := w.deps.ConnStrings.Primary(ctx, w.cfg.ResourceGroup, acs.Name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			w.deps.Log.Warn("reading connection string failed, secret not stored", "error", err)
			w.step("publish secret", string(SecretSkipped), err.Error())
		} else {
			outcome, err := w.publisher.Publish(ctx, vault.ID, vault.Endpoint, w.cfg.SecretName, value)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				w.deps.Log.Warn("secret publication failed, store it manually", "error", err)
				w.step("publish secret", string(outcome), err.Error())
			} else {
				w.step("publish secret", string(outcome), "")
			}
			rec.SecretStored = outcome == SecretStored
		}
	} else {
		w.step("publish secret", string(SecretSkipped), "communication service or vault missing")
	}

	// Point the function host at the secret, even when the write was
	// skipped; the settings become right as soon as someone stores it.
	if site != nil && vault != nil && vault.Endpoint != "" {
		err := w.deps.Host.Apply(ctx, w.cfg.ResourceGroup, site.Name, map[string]string{
			settingVaultURI:   vault.Endpoint,
			settingSecretName: w.cfg.SecretName,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			w.deps.Log.Warn("applying host settings failed", "site", site.Name, "error", err)
			w.step("host settings", "Failed", err.Error())
		} else {
			w.step("host settings", "Applied", "")
		}
	} else {
		w.step("host settings", "Skipped", "function host or vault missing")
	}

	rec.Steps = w.steps
	if err := rec.Write(w.cfg.OutputsPath); err != nil {
		return nil, err
	}
	w.deps.Log.Info("provisioning run finished",
		"run_id", runID,
		"outputs", w.cfg.OutputsPath,
		"secret_stored", rec.SecretStored)
	return rec, nil
}

// ensure runs one resource through the idempotent ensurer and records
// the step. It returns nil when the resource could not be made to
// exist; dependents treat nil as "skip".
func (w *Workflow) ensure(ctx context.Context, rec *OutputsRecord, spec prov.ResourceSpec) *prov.Resource {
	if ctx.Err() != nil {
		return nil
	}
	name := "ensure " + spec.Name
	handler, ok := w.deps.Handlers[spec.Kind]
	if !ok {
		w.deps.Log.Warn("no handler for resource kind", "kind", spec.Kind)
		w.step(name, "Failed", fmt.Sprintf("no handler for %s", spec.Kind))
		return nil
	}
	res, err := prov.Ensure(ctx, handler, spec)
	if err != nil {
		w.deps.Log.Warn("resource ensure failed, continuing",
			"kind", spec.Kind, "name", spec.Name, "error", err)
		w.step(name, "Failed", err.Error())
		return nil
	}
	if res.Created {
		w.deps.Log.Info("resource created",
			"kind", spec.Kind, "name", spec.Name, "id", res.Resource.ID)
		w.step(name, "Created", "")
	} else {
		w.deps.Log.Info("resource already exists, skipping create",
			"kind", spec.Kind, "name", spec.Name, "id", res.Resource.ID)
		w.step(name, "Reused", "")
	}
	rec.Resources[string(spec.Kind)] = OutputResource{
		Name:        res.Resource.Name,
		ID:          res.Resource.ID.String(),
		PrincipalID: res.Resource.PrincipalID,
		Endpoint:    res.Resource.Endpoint,
	}
	return res.Resource
}

func (w *Workflow) providerNamespaces() []string {
	ns := []string{
		"Microsoft.Communication",
		"Microsoft.Storage",
		"Microsoft.KeyVault",
		"Microsoft.Web",
	}
	if w.cfg.IdentityMode == config.IdentityUser {
		ns = append(ns, "Microsoft.ManagedIdentity")
	}
	return ns
}

func (w *Workflow) step(name, outcome, detail string) {
	w.steps = append(w.steps, Step{Name: name, Outcome: outcome, Detail: detail})
}

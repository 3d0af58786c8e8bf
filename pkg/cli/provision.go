// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/provision"
	"github.com/platform-engineering-labs/dialtone/pkg/registry"

	// Import resources to trigger init() registration.
	_ "github.com/platform-engineering-labs/dialtone/pkg/resources"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Converge the subscription on the demo's resources",
	Long: `Provision registers the resource providers, creates whatever demo
resources are missing, grants the function identity read access to the
vault, and publishes the communication service's connection string as
a vault secret. Every step is idempotent; re-running against a healthy
environment changes nothing.`,
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	azure, err := client.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build Azure clients: %w", err)
	}
	directory, err := client.NewDirectory(azure)
	if err != nil {
		return fmt.Errorf("failed to build directory client: %w", err)
	}

	workflow := provision.NewWorkflow(cfg, provision.Deps{
		Handlers:    registry.Handlers(azure, cfg),
		Providers:   client.NewProviderRegistry(azure),
		Grants:      client.NewRoleGrants(azure),
		Secrets:     client.NewSecretStore(azure),
		Directory:   directory,
		Host:        client.NewHostSettings(azure),
		ConnStrings: client.NewConnectionStrings(azure),
		Log:         logger,
	})

	rec, err := workflow.Run(ctx)
	if err != nil {
		return err
	}

	renderSummary(os.Stdout, rec, cfg.OutputsPath)
	return nil
}

func renderSummary(w io.Writer, rec *provision.OutputsRecord, outputsPath string) {
	fmt.Fprintln(w, "\nProvisioning summary:")
	for _, step := range rec.Steps {
		if step.Detail != "" {
			fmt.Fprintf(w, "  %-42s %s (%s)\n", step.Name, step.Outcome, step.Detail)
		} else {
			fmt.Fprintf(w, "  %-42s %s\n", step.Name, step.Outcome)
		}
	}
	fmt.Fprintf(w, "\nOutputs written to %s\n", outputsPath)
	if rec.VaultURI != "" {
		fmt.Fprintf(w, "Connection string secret %q in %s (stored: %t)\n",
			rec.SecretName, rec.VaultURI, rec.SecretStored)
	}
}

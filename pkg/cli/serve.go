// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/dialtone/pkg/client"
	"github.com/platform-engineering-labs/dialtone/pkg/config"
	"github.com/platform-engineering-labs/dialtone/pkg/provision"
	"github.com/platform-engineering-labs/dialtone/pkg/server"
)

var (
	serveListen       string
	serveSourceNumber string
	serveCallbackURI  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calling endpoint",
	Long: `Serve runs the HTTP endpoint that places outbound calls. The vault
and secret name come from KEY_VAULT_URI and ACS_SECRET_NAME when set
(the provisioner writes both into the function host's settings) and
from the outputs document otherwise.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", defaultListenAddress(), "TCP listen address")
	serveCmd.Flags().StringVar(&serveSourceNumber, "source-number", os.Getenv("ACS_SOURCE_NUMBER"),
		"Default caller id, an E.164 number owned by the communication service")
	serveCmd.Flags().StringVar(&serveCallbackURI, "callback-uri", os.Getenv("CALLBACK_URI"),
		"URI that receives mid-call events")
}

// defaultListenAddress honors the port the function host assigns a
// custom handler.
func defaultListenAddress() string {
	if port := os.Getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	vaultURI := os.Getenv("KEY_VAULT_URI")
	secretName := os.Getenv("ACS_SECRET_NAME")
	if vaultURI == "" || secretName == "" {
		rec, err := provision.ReadOutputs(cfg.OutputsPath)
		if err != nil {
			return fmt.Errorf("failed to locate the vault (set KEY_VAULT_URI and ACS_SECRET_NAME, or run provision first): %w", err)
		}
		if vaultURI == "" {
			vaultURI = rec.VaultURI
		}
		if secretName == "" {
			secretName = rec.SecretName
		}
	}

	azure, err := client.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build Azure clients: %w", err)
	}

	srv, err := server.NewServer(server.Config{
		Address:      serveListen,
		Secrets:      client.NewSecretStore(azure),
		VaultURI:     vaultURI,
		SecretName:   secretName,
		SourceNumber: serveSourceNumber,
		CallbackURI:  serveCallbackURI,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

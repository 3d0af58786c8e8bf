// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platform-engineering-labs/dialtone/pkg/provision"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	// Unknown levels fall back to info rather than failing the command.
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestDefaultListenAddress(t *testing.T) {
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "")
	assert.Equal(t, ":8080", defaultListenAddress())

	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	assert.Equal(t, ":7071", defaultListenAddress())
}

func TestRenderSummary(t *testing.T) {
	rec := &provision.OutputsRecord{
		VaultURI:     "https://kv-dialtone-test.vault.azure.net/",
		SecretName:   "acs-connection-string",
		SecretStored: true,
		Steps: []provision.Step{
			{Name: "ensure rg-dialtone-test", Outcome: "Created"},
			{Name: "publish secret", Outcome: "Stored"},
			{Name: "host settings", Outcome: "Failed", Detail: "site unreachable"},
		},
	}

	var buf bytes.Buffer
	renderSummary(&buf, rec, "outputs.json")

	out := buf.String()
	assert.Contains(t, out, "ensure rg-dialtone-test")
	assert.Contains(t, out, "Created")
	assert.Contains(t, out, "host settings")
	assert.Contains(t, out, "(site unreachable)")
	assert.Contains(t, out, "Outputs written to outputs.json")
	assert.Contains(t, out, "stored: true")
}

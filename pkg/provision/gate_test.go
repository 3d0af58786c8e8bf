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
)

func newTestGate(registry *fakeRegistry, timeout time.Duration) *Gate {
	return &Gate{
		Registry: registry,
		Clock:    testclock.NewDilatedWallClock(10 * time.Millisecond),
		Log:      discardLogger(),
		Timeout:  timeout,
	}
}

func TestGateAlreadyRegistered(t *testing.T) {
	registry := &fakeRegistry{states: []string{"Registered"}}
	gate := newTestGate(registry, 0)

	outcome, err := gate.EnsureRegistered(context.Background(), "Microsoft.KeyVault")
	require.NoError(t, err)
	assert.Equal(t, GateRegistered, outcome)
	assert.Zero(t, registry.registers)
}

func TestGateInitiatesRegistrationOnce(t *testing.T) {
	registry := &fakeRegistry{states: []string{"NotRegistered", "Registering", "Registered"}}
	gate := newTestGate(registry, 0)

	outcome, err := gate.EnsureRegistered(context.Background(), "Microsoft.Web")
	require.NoError(t, err)
	assert.Equal(t, GateRegistered, outcome)
	assert.Equal(t, 1, registry.registers)
}

func TestGateSkipsInitiationWhenAlreadyRegistering(t *testing.T) {
	registry := &fakeRegistry{states: []string{"Registering", "Registering", "Registered"}}
	gate := newTestGate(registry, 0)

	outcome, err := gate.EnsureRegistered(context.Background(), "Microsoft.Storage")
	require.NoError(t, err)
	assert.Equal(t, GateRegistered, outcome)
	assert.Zero(t, registry.registers)
}

func TestGateTimesOutWithoutError(t *testing.T) {
	// Never leaves Registering; the gate must give up at the deadline
	// and report a non-fatal timeout.
	registry := &fakeRegistry{states: []string{"Registering"}}
	gate := newTestGate(registry, 12*time.Second)

	outcome, err := gate.EnsureRegistered(context.Background(), "Microsoft.Communication")
	require.NoError(t, err)
	assert.Equal(t, GateTimedOut, outcome)
}

func TestGateDenialIsFatal(t *testing.T) {
	registry := &fakeRegistry{stateErr: respError("AuthorizationFailed", http.StatusForbidden)}
	gate := newTestGate(registry, 0)

	outcome, err := gate.EnsureRegistered(context.Background(), "Microsoft.KeyVault")
	require.Error(t, err)
	assert.Equal(t, GateTimedOut, outcome)
	assert.Zero(t, registry.registers)
}

func TestGateHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	registry := &fakeRegistry{states: []string{"Registering"}}
	gate := newTestGate(registry, 0)

	outcome, err := gate.EnsureRegistered(ctx, "Microsoft.Storage")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, GateTimedOut, outcome)
}

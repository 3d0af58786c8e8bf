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

	"github.com/platform-engineering-labs/dialtone/pkg/azerr"
)

// GateOutcome reports how the provider gate finished for one namespace.
type GateOutcome string

const (
	GateRegistered GateOutcome = "Registered"
	GateTimedOut   GateOutcome = "TimedOut"
)

const (
	providerPollInterval = 5 * time.Second
	defaultGateTimeout   = 2 * time.Minute

	registeredState  = "Registered"
	registeringState = "Registering"
)

var errStillRegistering = errors.New("registration still in progress")

// Gate drives ARM resource provider namespaces to the Registered state.
// Registration is subscription-wide and can take minutes on a fresh
// subscription; a gate timeout is a warning for the caller, never an
// abort.
type Gate struct {
	Registry ProviderRegistry
	Clock    clock.Clock
	Log      *slog.Logger
	Timeout  time.Duration
}

// EnsureRegistered reads the namespace's registration state, initiates
// registration when it was never started, and polls every 5s until the
// provider reports Registered or the timeout expires.
func (g *Gate) EnsureRegistered(ctx context.Context, namespace string) (GateOutcome, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultGateTimeout
	}

	initiated := false
	err := retry.Call(retry.CallArgs{
		Clock:       g.Clock,
		Delay:       providerPollInterval,
		MaxDuration: timeout,
		Attempts:    retry.UnlimitedAttempts,
		Stop:        ctx.Done(),
		Func: func() error {
			state, err := g.Registry.RegistrationState(ctx, namespace)
			if err != nil {
				return err
			}
			if strings.EqualFold(state, registeredState) {
				return nil
			}
			if !initiated && !strings.EqualFold(state, registeringState) {
				initiated = true
				if err := g.Registry.Register(ctx, namespace); err != nil {
					return err
				}
				g.Log.Info("initiated resource provider registration", "namespace", namespace)
			}
			return errStillRegistering
		},
		IsFatalError: func(err error) bool {
			switch azerr.Classify(err) {
			case azerr.KindDenied, azerr.KindInvalid, azerr.KindCanceled:
				return true
			}
			return false
		},
		NotifyFunc: func(lastErr error, attempt int) {
			g.Log.Debug("provider not registered yet", "namespace", namespace, "attempt", attempt)
		},
	})
	switch {
	case err == nil:
		g.Log.Info("resource provider registered", "namespace", namespace)
		return GateRegistered, nil
	case ctx.Err() != nil:
		return GateTimedOut, ctx.Err()
	case retry.IsDurationExceeded(err) || retry.IsAttemptsExceeded(err):
		return GateTimedOut, nil
	default:
		return GateTimedOut, fmt.Errorf("registering provider %s: %w", namespace, err)
	}
}

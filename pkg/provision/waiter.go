// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/platform-engineering-labs/dialtone/pkg/azerr"
)

// Presence reports whether a principal became visible in the directory.
type Presence string

const (
	PrincipalPresent Presence = "Present"
	PrincipalAbsent  Presence = "Absent"
)

const (
	principalPollInterval = 5 * time.Second
	principalPollAttempts = 12
)

var errPrincipalMissing = errors.New("principal not visible in directory")

// Waiter polls the directory for a newly created principal. Directory
// replication lags ARM, so a managed identity can be missing from
// queries well after the resource exists.
type Waiter struct {
	Directory Directory
	Clock     clock.Clock
	Log       *slog.Logger
}

// WaitForPrincipal polls for the object every 5s, up to 12 attempts.
// Absent after the last attempt is a non-fatal outcome; a grant issued
// against an absent principal can still land once replication catches
// up.
func (w *Waiter) WaitForPrincipal(ctx context.Context, objectID string) (Presence, error) {
	err := retry.Call(retry.CallArgs{
		Clock:    w.Clock,
		Delay:    principalPollInterval,
		Attempts: principalPollAttempts,
		Stop:     ctx.Done(),
		Func: func() error {
			ok, err := w.Directory.PrincipalExists(ctx, objectID)
			if err != nil {
				// Query failures count as "not visible yet"; the
				// attempt budget bounds them.
				return err
			}
			if !ok {
				return errPrincipalMissing
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return azerr.Classify(err) == azerr.KindCanceled
		},
		NotifyFunc: func(lastErr error, attempt int) {
			w.Log.Debug("principal not visible yet", "principal_id", objectID, "attempt", attempt)
		},
	})
	switch {
	case err == nil:
		w.Log.Info("principal visible in directory", "principal_id", objectID)
		return PrincipalPresent, nil
	case ctx.Err() != nil:
		return PrincipalAbsent, ctx.Err()
	case retry.IsAttemptsExceeded(err):
		return PrincipalAbsent, nil
	default:
		return PrincipalAbsent, fmt.Errorf("querying directory for %s: %w", objectID, err)
	}
}

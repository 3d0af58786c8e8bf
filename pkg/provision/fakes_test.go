// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/platform-engineering-labs/dialtone/pkg/armid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func respError(code string, status int) error {
	return &azcore.ResponseError{ErrorCode: code, StatusCode: status}
}

// fakeRegistry serves a scripted sequence of registration states. The
// last state repeats once the script runs out.
type fakeRegistry struct {
	mu        sync.Mutex
	states    []string
	stateErr  error
	registers int
}

func (f *fakeRegistry) RegistrationState(ctx context.Context, namespace string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return "", f.stateErr
	}
	if len(f.states) == 0 {
		return "NotRegistered", nil
	}
	state := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return state, nil
}

func (f *fakeRegistry) Register(ctx context.Context, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	return nil
}

// fakeDirectory scripts principal visibility and the caller identity.
// The principal reads as absent for the first hiddenFor queries.
type fakeDirectory struct {
	mu        sync.Mutex
	hiddenFor int
	queries   int
	existsErr error
	identity  Identity
	whoErr    error
}

func (f *fakeDirectory) PrincipalExists(ctx context.Context, objectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.queries > f.hiddenFor, nil
}

func (f *fakeDirectory) WhoAmI(ctx context.Context) (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.whoErr != nil {
		return Identity{}, f.whoErr
	}
	return f.identity, nil
}

// fakeGrants is an in-memory role assignment store. createErrs is
// consumed one entry per Create call; a nil entry means that call
// succeeds. With createHidden set, created assignments never show up in
// List results.
type fakeGrants struct {
	mu           sync.Mutex
	roles        map[string]string
	assignments  []Assignment
	resolveErr   error
	listErr      error
	createErrs   []error
	createHidden bool
	creates      int
	deleted      []string
	deleteErr    error
	nextID       int
}

func (f *fakeGrants) ResolveRole(ctx context.Context, scope armid.ID, roleName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if id, ok := f.roles[roleName]; ok {
		return id, nil
	}
	return "", fmt.Errorf("role %q not defined at scope %s", roleName, scope)
}

func (f *fakeGrants) List(ctx context.Context, scope armid.ID, principalID string) ([]Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Assignment
	for _, a := range f.assignments {
		if a.PrincipalID == principalID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeGrants) Create(ctx context.Context, scope armid.ID, principalID, principalType, roleDefinitionID string) (Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return Assignment{}, err
		}
	}
	f.nextID++
	a := Assignment{
		ID:               fmt.Sprintf("%s/providers/Microsoft.Authorization/roleAssignments/ra-%d", scope, f.nextID),
		PrincipalID:      principalID,
		RoleDefinitionID: roleDefinitionID,
		Scope:            scope.String(),
	}
	if !f.createHidden {
		f.assignments = append(f.assignments, a)
	}
	return a, nil
}

func (f *fakeGrants) Delete(ctx context.Context, assignmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, assignmentID)
	kept := f.assignments[:0]
	for _, a := range f.assignments {
		if a.ID != assignmentID {
			kept = append(kept, a)
		}
	}
	f.assignments = kept
	return nil
}

// fakeSecrets is an in-memory secret store keyed by vault and name.
type fakeSecrets struct {
	mu     sync.Mutex
	stored map[string]string
	setErr error
}

func (f *fakeSecrets) Set(ctx context.Context, vaultURI, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	if f.stored == nil {
		f.stored = make(map[string]string)
	}
	f.stored[vaultURI+"/"+name] = value
	return nil
}

func (f *fakeSecrets) Get(ctx context.Context, vaultURI, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.stored[vaultURI+"/"+name]
	if !ok {
		return "", respError("SecretNotFound", 404)
	}
	return value, nil
}

// fakeConnStrings serves one connection string.
type fakeConnStrings struct {
	value string
	err   error
}

func (f *fakeConnStrings) Primary(ctx context.Context, resourceGroup, serviceName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.value, nil
}

// fakeHost records applied settings.
type fakeHost struct {
	mu      sync.Mutex
	applied map[string]string
	calls   int
	err     error
}

func (f *fakeHost) Apply(ctx context.Context, resourceGroup, site string, settings map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.applied == nil {
		f.applied = make(map[string]string)
	}
	for k, v := range settings {
		f.applied[k] = v
	}
	return nil
}

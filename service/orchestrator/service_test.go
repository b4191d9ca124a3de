package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spottoai/spotto-tools/model"
	"github.com/spottoai/spotto-tools/service"
)

const (
	testTenantID    = "11111111-1111-1111-1111-111111111111"
	testClientID    = "22222222-2222-2222-2222-222222222222"
	testAppObjectID = "33333333-3333-3333-3333-333333333333"
	testSPObjectID  = "44444444-4444-4444-4444-444444444444"
	graphSPObjectID = "55555555-5555-5555-5555-555555555555"
	graphReadRoleID = "9a5d68dd-52b0-4cc2-bd40-abcf44ac3a3b"
)

var testStart = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

type fakeAuth struct {
	tenants  []model.Tenant
	listErr  error
	switched int
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) SignIn(context.Context) (*model.Account, error) {
	return &model.Account{Username: "operator@example.com", HomeTenantID: testTenantID}, nil
}

func (f *fakeAuth) SwitchAccount(context.Context) (*model.Account, error) {
	f.switched++
	return &model.Account{Username: "other@example.com", HomeTenantID: testTenantID}, nil
}

func (f *fakeAuth) ListTenants(context.Context) ([]model.Tenant, error) {
	return f.tenants, f.listErr
}

type fakeSubscriptions struct {
	subs            []model.Subscription
	requestedTenant string
}

var _ service.SubscriptionService = (*fakeSubscriptions)(nil)

func (f *fakeSubscriptions) ListSubscriptions(_ context.Context, tenantID string) ([]model.Subscription, error) {
	f.requestedTenant = tenantID
	return f.subs, nil
}

type fakeDirectory struct {
	apps   map[string]*model.Application      // by display name
	sps    map[string]*model.ServicePrincipal // by client id
	creds  map[string][]model.Credential      // by application object id
	grants map[string]bool

	appsCreated   int
	spsCreated    int
	credsCreated  int
	grantsCreated int
}

var _ service.DirectoryService = (*fakeDirectory)(nil)

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		apps:  map[string]*model.Application{},
		creds: map[string][]model.Credential{},
		sps: map[string]*model.ServicePrincipal{
			// The well-known Microsoft Graph principal every tenant has.
			graphAppID: {
				ObjectID: graphSPObjectID,
				ClientID: graphAppID,
				AppRoles: []model.AppRole{
					{ID: graphReadRoleID, Value: graphAppRoleValue},
					{ID: "00000000-0000-0000-0000-00000000beef", Value: "User.Read.All"},
				},
			},
		},
		grants: map[string]bool{},
	}
}

func (f *fakeDirectory) FindApplication(_ context.Context, _, displayName string) (*model.Application, error) {
	return f.apps[displayName], nil
}

func (f *fakeDirectory) CreateApplication(_ context.Context, _, displayName string) (*model.Application, error) {
	f.appsCreated++
	app := &model.Application{ObjectID: testAppObjectID, ClientID: testClientID, DisplayName: displayName}
	f.apps[displayName] = app
	return app, nil
}

func (f *fakeDirectory) FindServicePrincipal(_ context.Context, _, clientID string) (*model.ServicePrincipal, error) {
	return f.sps[clientID], nil
}

func (f *fakeDirectory) CreateServicePrincipal(_ context.Context, _, clientID string) (*model.ServicePrincipal, error) {
	f.spsCreated++
	sp := &model.ServicePrincipal{ObjectID: testSPObjectID, ClientID: clientID}
	f.sps[clientID] = sp
	return sp, nil
}

func (f *fakeDirectory) ListActiveCredentials(_ context.Context, _, appObjectID string) ([]model.Credential, error) {
	return f.creds[appObjectID], nil
}

func (f *fakeDirectory) AddCredential(_ context.Context, _, appObjectID, displayName string, expires time.Time) (*model.Credential, error) {
	f.credsCreated++
	cred := model.Credential{KeyID: "new-key", DisplayName: displayName, Secret: "fresh-secret", Expires: expires}
	f.creds[appObjectID] = append(f.creds[appObjectID], cred)
	return &cred, nil
}

func grantKey(principal, resource, role string) string {
	return principal + "|" + resource + "|" + role
}

func (f *fakeDirectory) HasAppRoleGrant(_ context.Context, _, principal, resource, role string) (bool, error) {
	return f.grants[grantKey(principal, resource, role)], nil
}

func (f *fakeDirectory) GrantAppRole(_ context.Context, _, principal, resource, role string) error {
	f.grantsCreated++
	f.grants[grantKey(principal, resource, role)] = true
	return nil
}

type fakeRoles struct {
	builtin     map[string]string // role name -> definition id
	assignments map[string]bool   // scope|principal|definition id
	custom      *model.RoleDefinition

	failScopes map[string]bool

	assignmentsCreated int
	definitionsSaved   int
}

var _ service.RoleService = (*fakeRoles)(nil)

func newFakeRoles() *fakeRoles {
	return &fakeRoles{
		builtin: map[string]string{
			readerRoleName:             "/providers/Microsoft.Authorization/roleDefinitions/reader-def",
			reservationsReaderRoleName: "/providers/Microsoft.Authorization/roleDefinitions/reservations-def",
			savingsPlanReaderRoleName:  "/providers/Microsoft.Authorization/roleDefinitions/savings-def",
		},
		assignments: map[string]bool{},
		failScopes:  map[string]bool{},
	}
}

func (f *fakeRoles) RoleDefinitionID(_ context.Context, _, _, roleName string) (string, error) {
	if id, ok := f.builtin[roleName]; ok {
		return id, nil
	}
	return "", fmt.Errorf("role %q is not defined", roleName)
}

func assignmentKey(scope, principal, defID string) string {
	return scope + "|" + principal + "|" + defID
}

func (f *fakeRoles) HasAssignment(_ context.Context, _, scope, principal, defID string) (bool, error) {
	return f.assignments[assignmentKey(scope, principal, defID)], nil
}

func (f *fakeRoles) CreateAssignment(_ context.Context, _, scope, principal, defID string) error {
	if f.failScopes[scope] {
		return errors.New("authorization failed")
	}
	f.assignmentsCreated++
	f.assignments[assignmentKey(scope, principal, defID)] = true
	return nil
}

func (f *fakeRoles) FindRoleDefinition(_ context.Context, _ string, scopes []string, roleName string) (*model.RoleDefinition, error) {
	if f.custom == nil || f.custom.RoleName != roleName {
		return nil, nil
	}
	for _, scope := range scopes {
		for _, assignable := range f.custom.AssignableScopes {
			if strings.EqualFold(scope, assignable) {
				copied := *f.custom
				copied.AssignableScopes = append([]string(nil), f.custom.AssignableScopes...)
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeRoles) CreateOrUpdateRoleDefinition(_ context.Context, _ string, def model.RoleDefinition) (*model.RoleDefinition, error) {
	f.definitionsSaved++
	saved := def
	if saved.ID == "" {
		saved.ID = "/subscriptions/sub-a/providers/Microsoft.Authorization/roleDefinitions/custom-def"
		saved.Name = "custom-def"
	}
	f.custom = &saved
	return &saved, nil
}

type fakePrompt struct {
	proceed     bool
	keepAccount bool
	reuseSecret bool
	optInWrites bool
	selection   string
	selectIndex int

	confirmLabels []string
}

var _ service.PromptService = (*fakePrompt)(nil)

func (f *fakePrompt) Confirm(label string, _ bool) (bool, error) {
	f.confirmLabels = append(f.confirmLabels, label)
	switch {
	case strings.Contains(label, "Onboard this Azure account"):
		return f.proceed, nil
	case strings.Contains(label, "Continue as"):
		return f.keepAccount, nil
	case strings.Contains(label, "reuse"):
		return f.reuseSecret, nil
	case strings.Contains(label, "optimization"):
		return f.optInWrites, nil
	}
	return true, nil
}

func (f *fakePrompt) Select(string, []string) (int, error) {
	return f.selectIndex, nil
}

func (f *fakePrompt) Input(_ string, validate func(string) error) (string, error) {
	if validate != nil {
		if err := validate(f.selection); err != nil {
			return "", err
		}
	}
	return f.selection, nil
}

func (f *fakePrompt) Pause(string) {}

func (f *fakePrompt) sawConfirm(substr string) bool {
	for _, label := range f.confirmLabels {
		if strings.Contains(label, substr) {
			return true
		}
	}
	return false
}

type fakeConsole struct {
	lines  []string
	buf    bytes.Buffer
	screen bytes.Buffer
}

var _ service.ConsoleService = (*fakeConsole)(nil)

func (f *fakeConsole) record(format string, args ...any) {
	f.lines = append(f.lines, fmt.Sprintf(format, args...))
}

func (f *fakeConsole) Printf(format string, args ...any)   { f.record(format, args...) }
func (f *fakeConsole) Infof(format string, args ...any)    { f.record(format, args...) }
func (f *fakeConsole) Successf(format string, args ...any) { f.record(format, args...) }
func (f *fakeConsole) Warnf(format string, args ...any)    { f.record(format, args...) }
func (f *fakeConsole) Errorf(format string, args ...any)   { f.record(format, args...) }
func (f *fakeConsole) Writer() io.Writer { return &f.buf }
func (f *fakeConsole) Screen() io.Writer { return &f.screen }
func (f *fakeConsole) Close() error      { return nil }

func (f *fakeConsole) contains(substr string) bool {
	for _, line := range f.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	auth    *fakeAuth
	subs    *fakeSubscriptions
	dir     *fakeDirectory
	roles   *fakeRoles
	prompt  *fakePrompt
	console *fakeConsole
	svc     *orchestratorService
}

func newFixture(subs ...model.Subscription) *fixture {
	f := &fixture{
		auth: &fakeAuth{
			tenants: []model.Tenant{{ID: testTenantID, DisplayName: "Contoso"}},
		},
		subs:  &fakeSubscriptions{subs: subs},
		dir:   newFakeDirectory(),
		roles: newFakeRoles(),
		prompt: &fakePrompt{
			proceed:     true,
			keepAccount: true,
			selection:   "all",
		},
		console: &fakeConsole{},
	}
	f.svc = NewService(f.auth, f.subs, f.dir, f.roles, f.prompt, f.console, testclock.NewClock(testStart))
	return f
}

func sub(id, name string) model.Subscription {
	return model.Subscription{ID: id, DisplayName: name, TenantID: testTenantID}
}

func TestRunCancelledAtInitialConfirmation(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))
	f.prompt.proceed = false

	_, err := f.svc.Run(context.Background())

	require.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, f.dir.appsCreated)
}

func TestRunFailsWithZeroTenants(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))
	f.auth.tenants = nil

	_, err := f.svc.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no accessible tenants")
}

func TestRunSelectsTenantWhenSeveralAccessible(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))
	f.auth.tenants = []model.Tenant{
		{ID: "other-tenant", DisplayName: "Fabrikam"},
		{ID: testTenantID, DisplayName: "Contoso"},
	}
	f.prompt.selectIndex = 1

	result, err := f.svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, testTenantID, result.TenantID)
	assert.Equal(t, testTenantID, f.subs.requestedTenant)
}

func TestRunAccountSwitchRepeatsSignIn(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))
	// Decline the first account once, then keep the switched one.
	declined := false
	base := f.prompt
	f.svc = NewService(f.auth, f.subs, f.dir, f.roles, confirmHook{base, func(label string) (bool, bool) {
		if strings.Contains(label, "Continue as") && !declined {
			declined = true
			return true, false
		}
		return false, false
	}}, f.console, testclock.NewClock(testStart))

	_, err := f.svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.auth.switched)
}

// confirmHook lets one test override individual confirm answers.
type confirmHook struct {
	*fakePrompt
	override func(label string) (handled, answer bool)
}

func (c confirmHook) Confirm(label string, defaultYes bool) (bool, error) {
	if handled, answer := c.override(label); handled {
		return answer, nil
	}
	return c.fakePrompt.Confirm(label, defaultYes)
}

func TestRunFreshTenantSingleSubscription(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.dir.appsCreated)
	assert.Equal(t, 1, f.dir.spsCreated)
	assert.Equal(t, 1, f.dir.credsCreated)

	assert.Equal(t, testClientID, result.ClientID)
	assert.Equal(t, testTenantID, result.TenantID)
	assert.Equal(t, "fresh-secret", result.Secret)
	assert.False(t, result.SecretReused)
	assert.Equal(t, testStart.AddDate(1, 0, 0), result.SecretExpires)

	assert.Equal(t, model.StepSummary{Created: 1}, result.Readers)
	assert.Equal(t, model.StepSummary{Created: 2}, result.TenantRoles)
	assert.True(t, result.GraphGranted)
	assert.Equal(t, model.StepSummary{}, result.CustomRole)
	assert.Equal(t, 0, f.roles.definitionsSaved)

	// The reuse prompt must not appear when no active credential exists.
	assert.False(t, f.prompt.sawConfirm("reuse"))
	assert.True(t, f.console.contains("never be retrieved"))

	// The secret goes to the screen only, never to the transcript writer.
	assert.Contains(t, f.console.screen.String(), "fresh-secret")
	assert.NotContains(t, f.console.buf.String(), "fresh-secret")
}

func TestRunReusesExistingCredential(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"), sub("sub-b", "Staging"), sub("sub-c", "Dev"))
	f.dir.apps[applicationDisplayName] = &model.Application{
		ObjectID: testAppObjectID, ClientID: testClientID, DisplayName: applicationDisplayName,
	}
	f.dir.sps[testClientID] = &model.ServicePrincipal{ObjectID: testSPObjectID, ClientID: testClientID}
	f.dir.creds[testAppObjectID] = []model.Credential{
		{KeyID: "old-1", Expires: testStart.AddDate(0, 3, 0)},
		{KeyID: "old-2", Expires: testStart.AddDate(0, 7, 0)},
	}
	f.prompt.reuseSecret = true

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, f.dir.appsCreated)
	assert.Zero(t, f.dir.spsCreated)
	assert.Zero(t, f.dir.credsCreated)

	assert.Equal(t, testClientID, result.ClientID)
	assert.Equal(t, ReusedSecretSentinel, result.Secret)
	assert.True(t, result.SecretReused)
	assert.Equal(t, testStart.AddDate(0, 7, 0), result.SecretExpires)

	assert.Equal(t, model.StepSummary{Created: 3}, result.Readers)
	assert.True(t, f.prompt.sawConfirm("reuse"))
	assert.False(t, f.console.contains("never be retrieved"))
}

func TestRunCreatesNewCredentialWhenReuseDeclined(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))
	f.dir.apps[applicationDisplayName] = &model.Application{
		ObjectID: testAppObjectID, ClientID: testClientID, DisplayName: applicationDisplayName,
	}
	f.dir.sps[testClientID] = &model.ServicePrincipal{ObjectID: testSPObjectID, ClientID: testClientID}
	f.dir.creds[testAppObjectID] = []model.Credential{{KeyID: "old-1", Expires: testStart.AddDate(0, 3, 0)}}
	f.prompt.reuseSecret = false

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.dir.credsCreated)
	assert.Equal(t, "fresh-secret", result.Secret)
	assert.False(t, result.SecretReused)
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"), sub("sub-b", "Staging"))
	f.prompt.optInWrites = true

	first, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StepSummary{Created: 2}, first.Readers)
	assert.Equal(t, model.StepSummary{Created: 2}, first.CustomRole)

	createdAssignments := f.roles.assignmentsCreated
	savedDefinitions := f.roles.definitionsSaved

	// Second run against the same tenant state; the existing secret is
	// reused this time.
	f.prompt.reuseSecret = true
	second, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.dir.appsCreated, "no second application may be created")
	assert.Equal(t, 1, f.dir.spsCreated)
	assert.Equal(t, createdAssignments, f.roles.assignmentsCreated, "second run must create zero assignments")
	assert.Equal(t, savedDefinitions, f.roles.definitionsSaved)
	assert.Equal(t, 1, f.dir.grantsCreated)

	assert.Equal(t, model.StepSummary{Skipped: 2}, second.Readers)
	assert.Equal(t, model.StepSummary{Skipped: 2}, second.TenantRoles)
	assert.Equal(t, model.StepSummary{Skipped: 2}, second.CustomRole)
	assert.True(t, second.GraphGranted)
}

func TestRunIsolatesPerSubscriptionFailures(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"), sub("sub-b", "Staging"), sub("sub-c", "Dev"))
	f.roles.failScopes["/subscriptions/sub-b"] = true

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.StepSummary{Created: 2, Failed: 1}, result.Readers)
	assert.True(t, f.roles.assignments[assignmentKey("/subscriptions/sub-a", testSPObjectID, f.roles.builtin[readerRoleName])])
	assert.True(t, f.roles.assignments[assignmentKey("/subscriptions/sub-c", testSPObjectID, f.roles.builtin[readerRoleName])])
}

func TestRunSubscriptionSubsetSelection(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"), sub("sub-b", "Staging"), sub("sub-c", "Dev"))
	f.prompt.selection = "1,3"

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.StepSummary{Created: 2}, result.Readers)
	assert.False(t, f.roles.assignments[assignmentKey("/subscriptions/sub-b", testSPObjectID, f.roles.builtin[readerRoleName])])
}

func TestRunExtendsCustomRoleScopes(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"), sub("sub-b", "Staging"))
	f.prompt.optInWrites = true
	f.roles.custom = &model.RoleDefinition{
		ID:               "/subscriptions/sub-a/providers/Microsoft.Authorization/roleDefinitions/custom-def",
		Name:             "custom-def",
		RoleName:         customRoleName,
		Actions:          customRoleActions,
		AssignableScopes: []string{"/subscriptions/sub-a"},
	}

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.roles.definitionsSaved, "the definition must be updated exactly once")
	assert.ElementsMatch(t,
		[]string{"/subscriptions/sub-a", "/subscriptions/sub-b"},
		f.roles.custom.AssignableScopes,
	)
	assert.Equal(t, model.StepSummary{Created: 2}, result.CustomRole)
}

func TestRunGraphRoleMissingIsNonFatal(t *testing.T) {
	f := newFixture(sub("sub-a", "Production"))
	f.dir.sps[graphAppID].AppRoles = []model.AppRole{{ID: "x", Value: "Unrelated.Role"}}

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.GraphGranted)
	assert.Equal(t, model.StepSummary{Created: 1}, result.Readers)
}

func TestMissingScopes(t *testing.T) {
	have := []string{"/subscriptions/A", "/subscriptions/b"}

	assert.Nil(t, missingScopes(have, []string{"/subscriptions/a", "/subscriptions/B"}))
	assert.Equal(t, []string{"/subscriptions/c"}, missingScopes(have, []string{"/subscriptions/a", "/subscriptions/c"}))
	assert.Equal(t, []string{"/subscriptions/a"}, missingScopes(nil, []string{"/subscriptions/a"}))
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/juju/clock"

	"github.com/spottoai/spotto-tools/model"
	"github.com/spottoai/spotto-tools/service"
	"github.com/spottoai/spotto-tools/service/ensure"
	"github.com/spottoai/spotto-tools/service/prompt"
	"github.com/spottoai/spotto-tools/utils"
)

// ErrCancelled reports that the operator declined to proceed at the initial
// confirmation. It is a normal outcome, not a failure.
var ErrCancelled = errors.New("cancelled by operator")

func NewService(
	auth service.AuthService,
	subscriptions service.SubscriptionService,
	directory service.DirectoryService,
	roles service.RoleService,
	promptSvc service.PromptService,
	console service.ConsoleService,
	clk clock.Clock,
) *orchestratorService {
	return &orchestratorService{
		auth:          auth,
		subscriptions: subscriptions,
		directory:     directory,
		roles:         roles,
		prompt:        promptSvc,
		console:       console,
		clock:         clk,
	}
}

// Run executes the onboarding sequence. Identity, tenant, subscription,
// application and credential problems are fatal; every role or permission
// step past that point logs, skips and continues, because a partially
// onboarded tenant is still useful.
func (s *orchestratorService) Run(ctx context.Context) (*model.ProvisionResult, error) {
	proceed, err := s.prompt.Confirm("Onboard this Azure account onto Spotto AI", true)
	if err != nil {
		return nil, err
	}
	if !proceed {
		return nil, ErrCancelled
	}

	if _, err := s.signIn(ctx); err != nil {
		return nil, err
	}

	tenant, err := s.selectTenant(ctx)
	if err != nil {
		return nil, err
	}

	selected, err := s.selectSubscriptions(ctx, tenant)
	if err != nil {
		return nil, err
	}

	app, sp, err := s.ensureIdentity(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	cred, reused, err := s.ensureCredential(ctx, tenant.ID, app)
	if err != nil {
		return nil, err
	}

	result := &model.ProvisionResult{
		TenantID:      tenant.ID,
		ClientID:      app.ClientID,
		Secret:        cred.Secret,
		SecretReused:  reused,
		SecretExpires: cred.Expires,
	}

	result.Readers = s.assignReaders(ctx, tenant.ID, sp, selected)
	result.TenantRoles = s.assignTenantReaders(ctx, tenant.ID, sp)
	result.GraphGranted = s.grantGraphRead(ctx, tenant.ID, sp)
	result.CustomRole = s.applyCustomRole(ctx, tenant.ID, sp, selected)

	s.console.Printf("\n")
	utils.DrawAssignmentSummary(s.console.Writer(), *result)
	// The panel holds the secret value; it must not reach the transcript.
	utils.DrawCredentialPanel(s.console.Screen(), *result)

	s.prompt.Pause("Press Enter to exit")
	return result, nil
}

func (s *orchestratorService) signIn(ctx context.Context) (*model.Account, error) {
	s.console.Infof("Opening your browser for sign-in...")
	account, err := s.auth.SignIn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	for {
		s.console.Successf("Signed in as %s", account.Username)
		keep, err := s.prompt.Confirm(fmt.Sprintf("Continue as %s", account.Username), true)
		if err != nil {
			return nil, err
		}
		if keep {
			return account, nil
		}
		if account, err = s.auth.SwitchAccount(ctx); err != nil {
			return nil, fmt.Errorf("sign-in failed: %w", err)
		}
	}
}

func (s *orchestratorService) selectTenant(ctx context.Context) (*model.Tenant, error) {
	tenants, err := s.auth.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	switch len(tenants) {
	case 0:
		return nil, errors.New("the signed-in account has no accessible tenants")
	case 1:
		t := tenants[0]
		s.console.Infof("Using tenant %s (%s)", tenantLabel(t), t.ID)
		return &t, nil
	}

	items := make([]string, len(tenants))
	for i, t := range tenants {
		items[i] = fmt.Sprintf("%s (%s)", tenantLabel(t), t.ID)
	}
	idx, err := s.prompt.Select("Select the tenant to onboard", items)
	if err != nil {
		return nil, err
	}
	return &tenants[idx], nil
}

func tenantLabel(t model.Tenant) string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	if len(t.Domains) > 0 {
		return t.Domains[0]
	}
	return t.ID
}

func (s *orchestratorService) selectSubscriptions(ctx context.Context, tenant *model.Tenant) ([]model.Subscription, error) {
	subs, err := s.subscriptions.ListSubscriptions(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("tenant %s has no visible subscriptions", tenant.ID)
	}

	s.console.Infof("Subscriptions in %s:", tenantLabel(*tenant))
	for i, sub := range subs {
		s.console.Printf("  %2d. %s (%s)\n", i+1, sub.DisplayName, sub.ID)
	}

	input, err := s.prompt.Input(`Subscriptions to onboard ("all" or e.g. "1,3")`, func(in string) error {
		_, err := prompt.ParseSelection(in, len(subs))
		return err
	})
	if err != nil {
		return nil, err
	}
	indices, err := prompt.ParseSelection(input, len(subs))
	if err != nil {
		return nil, err
	}

	selected := make([]model.Subscription, 0, len(indices))
	for _, idx := range indices {
		selected = append(selected, subs[idx])
	}
	return selected, nil
}

func (s *orchestratorService) ensureIdentity(ctx context.Context, tenantID string) (*model.Application, *model.ServicePrincipal, error) {
	app, createdApp, err := ensure.Resource(ctx,
		func(ctx context.Context) (*model.Application, bool, error) {
			app, err := s.directory.FindApplication(ctx, tenantID, applicationDisplayName)
			return app, app != nil, err
		},
		func(ctx context.Context) (*model.Application, error) {
			return s.directory.CreateApplication(ctx, tenantID, applicationDisplayName)
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to ensure application %q: %w", applicationDisplayName, err)
	}
	if createdApp {
		s.console.Successf("Application %q registered (client id %s)", applicationDisplayName, app.ClientID)
	} else {
		s.console.Infof("Application %q already registered (client id %s)", applicationDisplayName, app.ClientID)
	}

	sp, createdSP, err := ensure.Resource(ctx,
		func(ctx context.Context) (*model.ServicePrincipal, bool, error) {
			sp, err := s.directory.FindServicePrincipal(ctx, tenantID, app.ClientID)
			return sp, sp != nil, err
		},
		func(ctx context.Context) (*model.ServicePrincipal, error) {
			return s.directory.CreateServicePrincipal(ctx, tenantID, app.ClientID)
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to ensure service principal: %w", err)
	}

	if createdSP {
		// Directory reads are eventually consistent; role assignments fail
		// until the new principal has propagated.
		err := ensure.WaitVisible(ctx, s.clock, directoryWaitInterval, directoryWaitMax,
			func(ctx context.Context) (bool, error) {
				found, err := s.directory.FindServicePrincipal(ctx, tenantID, app.ClientID)
				if err != nil {
					return false, err
				}
				return found != nil, nil
			},
		)
		if err != nil {
			s.console.Warnf("Service principal is not visible yet (%v); role assignments may need a retry.", err)
		}
	}
	return app, sp, nil
}

func (s *orchestratorService) ensureCredential(ctx context.Context, tenantID string, app *model.Application) (*model.Credential, bool, error) {
	existing, err := s.directory.ListActiveCredentials(ctx, tenantID, app.ObjectID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list credentials: %w", err)
	}

	if len(existing) > 0 {
		reuse, err := s.prompt.Confirm(fmt.Sprintf("%d active secret(s) already exist; reuse the existing secret", len(existing)), true)
		if err != nil {
			return nil, false, err
		}
		if reuse {
			latest := existing[0]
			for _, c := range existing[1:] {
				if c.Expires.After(latest.Expires) {
					latest = c
				}
			}
			latest.Secret = ReusedSecretSentinel
			s.console.Infof("Reusing the existing secret (expires %s); its value cannot be shown again.", latest.Expires.Format("2006-01-02"))
			return &latest, true, nil
		}
	}

	expires := s.clock.Now().AddDate(1, 0, 0)
	cred, err := s.directory.AddCredential(ctx, tenantID, app.ObjectID, credentialDisplayName, expires)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create a client secret: %w", err)
	}
	s.console.Warnf("A new client secret was generated. It appears once in the final summary and can never be retrieved again.")
	return cred, false, nil
}

func (s *orchestratorService) assignReaders(ctx context.Context, tenantID string, sp *model.ServicePrincipal, subs []model.Subscription) model.StepSummary {
	var summary model.StepSummary
	if len(subs) == 0 {
		return summary
	}

	roleDefID, err := s.roles.RoleDefinitionID(ctx, tenantID, subscriptionScope(subs[0].ID), readerRoleName)
	if err != nil {
		s.console.Errorf("Cannot resolve the %s role: %v. Assign it manually in the portal.", readerRoleName, err)
		summary.Failed = len(subs)
		return summary
	}

	for _, sub := range subs {
		scope := subscriptionScope(sub.ID)
		created, err := s.ensureAssignment(ctx, tenantID, scope, sp.ObjectID, roleDefID)
		switch {
		case err != nil:
			summary.Failed++
			s.console.Errorf("Reader on %s: %v. Grant it manually or re-run after fixing the cause.", sub.DisplayName, err)
		case created:
			summary.Created++
			s.console.Successf("Reader assigned on %s", sub.DisplayName)
		default:
			summary.Skipped++
			s.console.Infof("Reader already assigned on %s", sub.DisplayName)
		}
	}
	return summary
}

func (s *orchestratorService) assignTenantReaders(ctx context.Context, tenantID string, sp *model.ServicePrincipal) model.StepSummary {
	var summary model.StepSummary

	targets := []struct {
		roleName string
		scope    string
	}{
		{reservationsReaderRoleName, reservationsScope},
		{savingsPlanReaderRoleName, savingsPlansScope},
	}

	for _, target := range targets {
		roleDefID, err := s.roles.RoleDefinitionID(ctx, tenantID, target.scope, target.roleName)
		if err != nil {
			summary.Failed++
			s.console.Warnf("Cannot resolve %s at %s: %v. Assign it manually.", target.roleName, target.scope, err)
			continue
		}
		created, err := s.ensureAssignment(ctx, tenantID, target.scope, sp.ObjectID, roleDefID)
		switch {
		case err != nil:
			summary.Failed++
			s.console.Warnf("%s at %s: %v. Assign it manually.", target.roleName, target.scope, err)
		case created:
			summary.Created++
			s.console.Successf("%s assigned at %s", target.roleName, target.scope)
		default:
			summary.Skipped++
			s.console.Infof("%s already assigned at %s", target.roleName, target.scope)
		}
	}
	return summary
}

func (s *orchestratorService) grantGraphRead(ctx context.Context, tenantID string, sp *model.ServicePrincipal) bool {
	graphSP, err := s.directory.FindServicePrincipal(ctx, tenantID, graphAppID)
	if err != nil {
		s.console.Warnf("Could not resolve the Microsoft Graph service principal: %v. Grant %s manually.", err, graphAppRoleValue)
		return false
	}
	if graphSP == nil {
		s.console.Warnf("The Microsoft Graph service principal is missing from this tenant. Grant %s manually.", graphAppRoleValue)
		return false
	}

	roleID := ""
	for _, role := range graphSP.AppRoles {
		if role.Value == graphAppRoleValue {
			roleID = role.ID
			break
		}
	}
	if roleID == "" {
		s.console.Warnf("Microsoft Graph does not expose an app role named %s. Grant it manually.", graphAppRoleValue)
		return false
	}

	created, err := ensure.Present(ctx,
		func(ctx context.Context) (bool, error) {
			return s.directory.HasAppRoleGrant(ctx, tenantID, sp.ObjectID, graphSP.ObjectID, roleID)
		},
		func(ctx context.Context) error {
			return s.directory.GrantAppRole(ctx, tenantID, sp.ObjectID, graphSP.ObjectID, roleID)
		},
	)
	if err != nil {
		s.console.Warnf("Could not grant %s: %v. An administrator can grant it from the portal.", graphAppRoleValue, err)
		return false
	}
	if created {
		s.console.Successf("%s granted to the application", graphAppRoleValue)
	} else {
		s.console.Infof("%s already granted", graphAppRoleValue)
	}
	return true
}

func (s *orchestratorService) applyCustomRole(ctx context.Context, tenantID string, sp *model.ServicePrincipal, subs []model.Subscription) model.StepSummary {
	var summary model.StepSummary

	optIn, err := s.prompt.Confirm("Also allow Spotto AI to apply optimization actions (adds a custom write role)", false)
	if err != nil || !optIn {
		s.console.Infof("Skipping the optional write permissions.")
		return summary
	}

	scopes := make([]string, len(subs))
	for i, sub := range subs {
		scopes[i] = subscriptionScope(sub.ID)
	}

	def, err := s.ensureCustomRole(ctx, tenantID, scopes)
	if err != nil {
		s.console.Errorf("Custom role %q: %v. The write permissions were not set up.", customRoleName, err)
		summary.Failed = len(subs)
		return summary
	}

	for _, sub := range subs {
		scope := subscriptionScope(sub.ID)
		created, err := s.ensureAssignment(ctx, tenantID, scope, sp.ObjectID, def.ID)
		switch {
		case err != nil:
			summary.Failed++
			s.console.Errorf("%s on %s: %v. Assign it manually.", customRoleName, sub.DisplayName, err)
		case created:
			summary.Created++
			s.console.Successf("%s assigned on %s", customRoleName, sub.DisplayName)
		default:
			summary.Skipped++
			s.console.Infof("%s already assigned on %s", customRoleName, sub.DisplayName)
		}
	}
	return summary
}

// ensureCustomRole guarantees the custom role exists and that its assignable
// scopes are a superset of the selected subscriptions, repairing omissions
// left by earlier runs before anything is assigned.
func (s *orchestratorService) ensureCustomRole(ctx context.Context, tenantID string, scopes []string) (*model.RoleDefinition, error) {
	def, err := s.roles.FindRoleDefinition(ctx, tenantID, scopes, customRoleName)
	if err != nil {
		return nil, err
	}

	changed := false
	switch {
	case def == nil:
		def = &model.RoleDefinition{
			RoleName:         customRoleName,
			Description:      customRoleDescription,
			Actions:          customRoleActions,
			AssignableScopes: scopes,
		}
		if def, err = s.roles.CreateOrUpdateRoleDefinition(ctx, tenantID, *def); err != nil {
			return nil, err
		}
		s.console.Successf("Custom role %q created", customRoleName)
		changed = true
	default:
		missing := missingScopes(def.AssignableScopes, scopes)
		if len(missing) > 0 {
			def.AssignableScopes = append(def.AssignableScopes, missing...)
			if def, err = s.roles.CreateOrUpdateRoleDefinition(ctx, tenantID, *def); err != nil {
				return nil, err
			}
			s.console.Infof("Custom role %q extended to %d more subscription(s)", customRoleName, len(missing))
			changed = true
		}
	}

	if changed {
		// Definition writes propagate asynchronously, like directory writes.
		err := ensure.WaitVisible(ctx, s.clock, definitionWaitInterval, definitionWaitMax,
			func(ctx context.Context) (bool, error) {
				found, err := s.roles.FindRoleDefinition(ctx, tenantID, scopes, customRoleName)
				if err != nil {
					return false, err
				}
				return found != nil && len(missingScopes(found.AssignableScopes, scopes)) == 0, nil
			},
		)
		if err != nil {
			s.console.Warnf("Custom role is not visible everywhere yet: %v", err)
		}
	}
	return def, nil
}

func (s *orchestratorService) ensureAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) (bool, error) {
	return ensure.Present(ctx,
		func(ctx context.Context) (bool, error) {
			return s.roles.HasAssignment(ctx, tenantID, scope, principalObjectID, roleDefinitionID)
		},
		func(ctx context.Context) error {
			return s.roles.CreateAssignment(ctx, tenantID, scope, principalObjectID, roleDefinitionID)
		},
	)
}

func subscriptionScope(subscriptionID string) string {
	return "/subscriptions/" + subscriptionID
}

func missingScopes(have, want []string) []string {
	seen := make(map[string]bool, len(have))
	for _, scope := range have {
		seen[strings.ToLower(scope)] = true
	}
	var missing []string
	for _, scope := range want {
		if !seen[strings.ToLower(scope)] {
			missing = append(missing, scope)
		}
	}
	return missing
}

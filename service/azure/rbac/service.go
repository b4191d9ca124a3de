package azurerbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v3"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/spottoai/spotto-tools/model"
	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"
)

// A freshly created service principal may not be visible to the
// authorization store yet; assignment creates are retried while the provider
// reports PrincipalNotFound.
const (
	assignmentAttempts = 10
	assignmentDelay    = 5 * time.Second
)

func NewService(creds azureauth.CredentialSource, clk clock.Clock) *service {
	return &service{
		creds:       creds,
		clock:       clk,
		definitions: map[string]*armauthorization.RoleDefinitionsClient{},
		assignments: map[string]*armauthorization.RoleAssignmentsClient{},
	}
}

func (s *service) definitionsClient(tenantID string) (*armauthorization.RoleDefinitionsClient, error) {
	if c, ok := s.definitions[tenantID]; ok {
		return c, nil
	}

	cred, err := s.creds.ForTenant(tenantID)
	if err != nil {
		return nil, err
	}
	c, err := armauthorization.NewRoleDefinitionsClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role definitions client: %w", err)
	}
	s.definitions[tenantID] = c
	return c, nil
}

func (s *service) assignmentsClient(tenantID string) (*armauthorization.RoleAssignmentsClient, error) {
	if c, ok := s.assignments[tenantID]; ok {
		return c, nil
	}

	cred, err := s.creds.ForTenant(tenantID)
	if err != nil {
		return nil, err
	}
	// Only the scope-based methods are used, so no subscription binding is
	// needed.
	c, err := armauthorization.NewRoleAssignmentsClient("", cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role assignments client: %w", err)
	}
	s.assignments[tenantID] = c
	return c, nil
}

// RoleDefinitionID resolves a role by display name at a scope. Built-in
// roles are never referenced by hard-coded definition GUIDs.
func (s *service) RoleDefinitionID(ctx context.Context, tenantID, scope, roleName string) (string, error) {
	client, err := s.definitionsClient(tenantID)
	if err != nil {
		return "", err
	}

	pager := client.NewListPager(scope, &armauthorization.RoleDefinitionsClientListOptions{
		Filter: to.Ptr(fmt.Sprintf("roleName eq '%s'", roleName)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list role definitions at %s: %w", scope, err)
		}
		for _, def := range page.Value {
			if def.ID != nil {
				return *def.ID, nil
			}
		}
	}
	return "", fmt.Errorf("role %q is not defined at scope %s", roleName, scope)
}

// HasAssignment implements service.RoleService
func (s *service) HasAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) (bool, error) {
	client, err := s.assignmentsClient(tenantID)
	if err != nil {
		return false, err
	}

	pager := client.NewListForScopePager(scope, &armauthorization.RoleAssignmentsClientListForScopeOptions{
		Filter: to.Ptr(fmt.Sprintf("principalId eq '%s'", principalObjectID)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to list role assignments at %s: %w", scope, err)
		}
		for _, ra := range page.Value {
			if ra.Properties == nil || ra.Properties.RoleDefinitionID == nil || ra.Properties.Scope == nil {
				continue
			}
			if strings.EqualFold(*ra.Properties.Scope, scope) && sameRoleDefinition(*ra.Properties.RoleDefinitionID, roleDefinitionID) {
				return true, nil
			}
		}
	}
	return false, nil
}

// CreateAssignment implements service.RoleService
func (s *service) CreateAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) error {
	client, err := s.assignmentsClient(tenantID)
	if err != nil {
		return err
	}

	params := armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			PrincipalID:      to.Ptr(principalObjectID),
			RoleDefinitionID: to.Ptr(roleDefinitionID),
			PrincipalType:    to.Ptr(armauthorization.PrincipalTypeServicePrincipal),
		},
	}
	name := uuid.NewString()

	err = retry.Call(retry.CallArgs{
		Func: func() error {
			_, err := client.Create(ctx, scope, name, params, nil)
			return err
		},
		IsFatalError: func(err error) bool {
			return !hasErrorCode(err, "PrincipalNotFound")
		},
		Attempts: assignmentAttempts,
		Delay:    assignmentDelay,
		Clock:    s.clock,
		Stop:     ctx.Done(),
	})
	if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
		err = retry.LastError(err)
	}
	if hasErrorCode(err, "RoleAssignmentExists") {
		// Lost a race against a concurrent run; the assignment is there.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create role assignment at %s: %w", scope, err)
	}
	return nil
}

// FindRoleDefinition looks for a custom role by name across candidate
// scopes; a custom role is only listed at scopes it is assignable on.
func (s *service) FindRoleDefinition(ctx context.Context, tenantID string, scopes []string, roleName string) (*model.RoleDefinition, error) {
	client, err := s.definitionsClient(tenantID)
	if err != nil {
		return nil, err
	}

	for _, scope := range scopes {
		pager := client.NewListPager(scope, &armauthorization.RoleDefinitionsClientListOptions{
			Filter: to.Ptr(fmt.Sprintf("roleName eq '%s'", roleName)),
		})
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list role definitions at %s: %w", scope, err)
			}
			for _, def := range page.Value {
				if def.ID == nil || def.Name == nil || def.Properties == nil {
					continue
				}
				return roleDefinitionFromARM(def), nil
			}
		}
	}
	return nil, nil
}

// CreateOrUpdateRoleDefinition implements service.RoleService. The same call
// creates a new definition and extends an existing one; the provider keys on
// the definition name.
func (s *service) CreateOrUpdateRoleDefinition(ctx context.Context, tenantID string, def model.RoleDefinition) (*model.RoleDefinition, error) {
	if len(def.AssignableScopes) == 0 {
		return nil, errors.New("a role definition needs at least one assignable scope")
	}

	client, err := s.definitionsClient(tenantID)
	if err != nil {
		return nil, err
	}

	name := def.Name
	if name == "" {
		name = uuid.NewString()
	}

	params := armauthorization.RoleDefinition{
		Properties: &armauthorization.RoleDefinitionProperties{
			RoleName:    to.Ptr(def.RoleName),
			Description: to.Ptr(def.Description),
			RoleType:    to.Ptr("CustomRole"),
			Permissions: []*armauthorization.Permission{
				{Actions: toPtrSlice(def.Actions)},
			},
			AssignableScopes: toPtrSlice(def.AssignableScopes),
		},
	}

	resp, err := client.CreateOrUpdate(ctx, def.AssignableScopes[0], name, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to save role definition %q: %w", def.RoleName, err)
	}
	saved := roleDefinitionFromARM(&resp.RoleDefinition)
	if saved == nil {
		return nil, fmt.Errorf("the provider returned an empty definition for %q", def.RoleName)
	}
	return saved, nil
}

func roleDefinitionFromARM(def *armauthorization.RoleDefinition) *model.RoleDefinition {
	if def == nil || def.ID == nil || def.Properties == nil {
		return nil
	}

	out := &model.RoleDefinition{ID: *def.ID}
	if def.Name != nil {
		out.Name = *def.Name
	}
	if def.Properties.RoleName != nil {
		out.RoleName = *def.Properties.RoleName
	}
	if def.Properties.Description != nil {
		out.Description = *def.Properties.Description
	}
	for _, scope := range def.Properties.AssignableScopes {
		if scope != nil {
			out.AssignableScopes = append(out.AssignableScopes, *scope)
		}
	}
	for _, perm := range def.Properties.Permissions {
		if perm == nil {
			continue
		}
		for _, action := range perm.Actions {
			if action != nil {
				out.Actions = append(out.Actions, *action)
			}
		}
	}
	return out
}

// sameRoleDefinition compares definition ids by their trailing GUID; the
// provider reports them under varying scope prefixes.
func sameRoleDefinition(a, b string) bool {
	return strings.EqualFold(lastSegment(a), lastSegment(b))
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func hasErrorCode(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && strings.EqualFold(respErr.ErrorCode, code)
}

func toPtrSlice(values []string) []*string {
	out := make([]*string, 0, len(values))
	for _, v := range values {
		out = append(out, to.Ptr(v))
	}
	return out
}

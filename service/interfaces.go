package service

import (
	"context"
	"io"
	"time"

	"github.com/spottoai/spotto-tools/model"
)

// AuthService is the interactive session with the identity provider
type AuthService interface {
	SignIn(ctx context.Context) (*model.Account, error)
	SwitchAccount(ctx context.Context) (*model.Account, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
}

// SubscriptionService lists the subscriptions visible in a tenant
type SubscriptionService interface {
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error)
}

// DirectoryService covers the application-directory and identity-graph
// operations: application registrations, service principals, client secrets
// and app-role grants. Lookups return nil (not an error) when nothing
// matches.
type DirectoryService interface {
	FindApplication(ctx context.Context, tenantID, displayName string) (*model.Application, error)
	CreateApplication(ctx context.Context, tenantID, displayName string) (*model.Application, error)
	FindServicePrincipal(ctx context.Context, tenantID, clientID string) (*model.ServicePrincipal, error)
	CreateServicePrincipal(ctx context.Context, tenantID, clientID string) (*model.ServicePrincipal, error)
	ListActiveCredentials(ctx context.Context, tenantID, appObjectID string) ([]model.Credential, error)
	AddCredential(ctx context.Context, tenantID, appObjectID, displayName string, expires time.Time) (*model.Credential, error)
	HasAppRoleGrant(ctx context.Context, tenantID, principalObjectID, resourceObjectID, appRoleID string) (bool, error)
	GrantAppRole(ctx context.Context, tenantID, principalObjectID, resourceObjectID, appRoleID string) error
}

// RoleService covers role definitions and role assignments on the
// resource-management side.
type RoleService interface {
	RoleDefinitionID(ctx context.Context, tenantID, scope, roleName string) (string, error)
	HasAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) (bool, error)
	CreateAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) error
	FindRoleDefinition(ctx context.Context, tenantID string, scopes []string, roleName string) (*model.RoleDefinition, error)
	CreateOrUpdateRoleDefinition(ctx context.Context, tenantID string, def model.RoleDefinition) (*model.RoleDefinition, error)
}

// PromptService gathers operator input
type PromptService interface {
	Confirm(label string, defaultYes bool) (bool, error)
	Select(label string, items []string) (int, error)
	Input(label string, validate func(string) error) (string, error)
	Pause(label string)
}

// ConsoleService writes operator-visible output, mirrored into the per-run
// transcript file. Screen output skips the transcript so secrets stay off
// disk.
type ConsoleService interface {
	Printf(format string, args ...any)
	Infof(format string, args ...any)
	Successf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Writer() io.Writer
	Screen() io.Writer
	Close() error
}

package azurerbac

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v3"
	"github.com/juju/clock"

	"github.com/spottoai/spotto-tools/model"
	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"
)

type service struct {
	creds azureauth.CredentialSource
	clock clock.Clock

	definitions map[string]*armauthorization.RoleDefinitionsClient
	assignments map[string]*armauthorization.RoleAssignmentsClient
}

// RoleService covers role definitions and role assignments
type RoleService interface {
	RoleDefinitionID(ctx context.Context, tenantID, scope, roleName string) (string, error)
	HasAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) (bool, error)
	CreateAssignment(ctx context.Context, tenantID, scope, principalObjectID, roleDefinitionID string) error
	FindRoleDefinition(ctx context.Context, tenantID string, scopes []string, roleName string) (*model.RoleDefinition, error)
	CreateOrUpdateRoleDefinition(ctx context.Context, tenantID string, def model.RoleDefinition) (*model.RoleDefinition, error)
}

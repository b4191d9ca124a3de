package azuredirectory

import (
	"context"
	"time"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"

	"github.com/spottoai/spotto-tools/model"
	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"
)

type service struct {
	creds   azureauth.CredentialSource
	clients map[string]*msgraphsdk.GraphServiceClient
}

// DirectoryService covers application registrations, service principals,
// client secrets and app-role grants in Microsoft Graph. Lookups return nil
// when nothing matches.
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

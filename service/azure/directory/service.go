package azuredirectory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/google/uuid"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphapplications "github.com/microsoftgraph/msgraph-sdk-go/applications"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/spottoai/spotto-tools/model"
	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"
)

// Delegated scopes the operator consents to on first Graph call
var graphScopes = []string{
	"Application.ReadWrite.All",
	"AppRoleAssignment.ReadWrite.All",
	"Directory.Read.All",
}

func NewService(creds azureauth.CredentialSource) *service {
	return &service{
		creds:   creds,
		clients: map[string]*msgraphsdk.GraphServiceClient{},
	}
}

func (s *service) client(tenantID string) (*msgraphsdk.GraphServiceClient, error) {
	if c, ok := s.clients[tenantID]; ok {
		return c, nil
	}

	cred, err := s.creds.ForTenant(tenantID)
	if err != nil {
		return nil, err
	}
	c, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, graphScopes)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph client: %w", err)
	}
	s.clients[tenantID] = c
	return c, nil
}

// FindApplication implements service.DirectoryService
func (s *service) FindApplication(ctx context.Context, tenantID, displayName string) (*model.Application, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("displayName eq '%s'", strings.ReplaceAll(displayName, "'", "''"))
	resp, err := client.Applications().Get(ctx, &graphapplications.ApplicationsRequestBuilderGetRequestConfiguration{
		QueryParameters: &graphapplications.ApplicationsRequestBuilderGetQueryParameters{
			Filter: to.Ptr(filter),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", graphError(err))
	}

	for _, app := range resp.GetValue() {
		if app.GetId() == nil || app.GetAppId() == nil {
			continue
		}
		return &model.Application{
			ObjectID:    *app.GetId(),
			ClientID:    *app.GetAppId(),
			DisplayName: displayName,
		}, nil
	}
	return nil, nil
}

// CreateApplication implements service.DirectoryService
func (s *service) CreateApplication(ctx context.Context, tenantID, displayName string) (*model.Application, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return nil, err
	}

	app := graphmodels.NewApplication()
	app.SetDisplayName(to.Ptr(displayName))
	app.SetSignInAudience(to.Ptr("AzureADMyOrg"))

	created, err := client.Applications().Post(ctx, app, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", graphError(err))
	}
	if created.GetId() == nil || created.GetAppId() == nil {
		return nil, fmt.Errorf("application %q was created without an id", displayName)
	}

	return &model.Application{
		ObjectID:    *created.GetId(),
		ClientID:    *created.GetAppId(),
		DisplayName: displayName,
	}, nil
}

// FindServicePrincipal implements service.DirectoryService. clientID may be
// any application id, including the well-known Microsoft Graph one.
func (s *service) FindServicePrincipal(ctx context.Context, tenantID, clientID string) (*model.ServicePrincipal, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return nil, err
	}

	resp, err := client.ServicePrincipalsWithAppId(to.Ptr(clientID)).Get(ctx, nil)
	if err != nil {
		if hasODataCode(err, "Request_ResourceNotFound") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up service principal: %w", graphError(err))
	}
	return servicePrincipalFromGraph(resp), nil
}

// CreateServicePrincipal implements service.DirectoryService
func (s *service) CreateServicePrincipal(ctx context.Context, tenantID, clientID string) (*model.ServicePrincipal, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return nil, err
	}

	sp := graphmodels.NewServicePrincipal()
	sp.SetAppId(to.Ptr(clientID))

	created, err := client.ServicePrincipals().Post(ctx, sp, nil)
	if err != nil {
		// Another actor created it between our check and this call.
		if hasODataCode(err, "Request_MultipleObjectsWithSameKeyValue") {
			return s.FindServicePrincipal(ctx, tenantID, clientID)
		}
		return nil, fmt.Errorf("failed to create service principal: %w", graphError(err))
	}
	return servicePrincipalFromGraph(created), nil
}

// ListActiveCredentials implements service.DirectoryService. Only
// credentials expiring after now are returned, and never their secret
// values, which the directory does not re-disclose.
func (s *service) ListActiveCredentials(ctx context.Context, tenantID, appObjectID string) ([]model.Credential, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return nil, err
	}

	app, err := client.Applications().ByApplicationId(appObjectID).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read application credentials: %w", graphError(err))
	}

	now := time.Now()
	var creds []model.Credential
	for _, pc := range app.GetPasswordCredentials() {
		if pc.GetEndDateTime() == nil || !pc.GetEndDateTime().After(now) {
			continue
		}
		cred := model.Credential{Expires: *pc.GetEndDateTime()}
		if pc.GetKeyId() != nil {
			cred.KeyID = pc.GetKeyId().String()
		}
		if pc.GetDisplayName() != nil {
			cred.DisplayName = *pc.GetDisplayName()
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// AddCredential implements service.DirectoryService
func (s *service) AddCredential(ctx context.Context, tenantID, appObjectID, displayName string, expires time.Time) (*model.Credential, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return nil, err
	}

	pc := graphmodels.NewPasswordCredential()
	pc.SetDisplayName(to.Ptr(displayName))
	pc.SetEndDateTime(to.Ptr(expires))

	body := graphapplications.NewItemAddPasswordPostRequestBody()
	body.SetPasswordCredential(pc)

	created, err := client.Applications().ByApplicationId(appObjectID).AddPassword().Post(ctx, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to add client secret: %w", graphError(err))
	}
	if created.GetSecretText() == nil {
		return nil, fmt.Errorf("the directory returned a credential without a secret value")
	}

	cred := &model.Credential{
		DisplayName: displayName,
		Secret:      *created.GetSecretText(),
		Expires:     expires,
	}
	if created.GetKeyId() != nil {
		cred.KeyID = created.GetKeyId().String()
	}
	if created.GetEndDateTime() != nil {
		cred.Expires = *created.GetEndDateTime()
	}
	return cred, nil
}

// HasAppRoleGrant implements service.DirectoryService
func (s *service) HasAppRoleGrant(ctx context.Context, tenantID, principalObjectID, resourceObjectID, appRoleID string) (bool, error) {
	client, err := s.client(tenantID)
	if err != nil {
		return false, err
	}

	resp, err := client.ServicePrincipals().ByServicePrincipalId(principalObjectID).AppRoleAssignments().Get(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to list app-role grants: %w", graphError(err))
	}

	for _, grant := range resp.GetValue() {
		if grant.GetResourceId() == nil || grant.GetAppRoleId() == nil {
			continue
		}
		if grant.GetResourceId().String() == resourceObjectID && grant.GetAppRoleId().String() == appRoleID {
			return true, nil
		}
	}
	return false, nil
}

// GrantAppRole implements service.DirectoryService
func (s *service) GrantAppRole(ctx context.Context, tenantID, principalObjectID, resourceObjectID, appRoleID string) error {
	client, err := s.client(tenantID)
	if err != nil {
		return err
	}

	principalUUID, err := uuid.Parse(principalObjectID)
	if err != nil {
		return fmt.Errorf("invalid principal id %q: %w", principalObjectID, err)
	}
	resourceUUID, err := uuid.Parse(resourceObjectID)
	if err != nil {
		return fmt.Errorf("invalid resource id %q: %w", resourceObjectID, err)
	}
	roleUUID, err := uuid.Parse(appRoleID)
	if err != nil {
		return fmt.Errorf("invalid app role id %q: %w", appRoleID, err)
	}

	grant := graphmodels.NewAppRoleAssignment()
	grant.SetPrincipalId(&principalUUID)
	grant.SetResourceId(&resourceUUID)
	grant.SetAppRoleId(&roleUUID)

	if _, err := client.ServicePrincipals().ByServicePrincipalId(principalObjectID).AppRoleAssignments().Post(ctx, grant, nil); err != nil {
		return fmt.Errorf("failed to grant app role: %w", graphError(err))
	}
	return nil
}

func servicePrincipalFromGraph(sp graphmodels.ServicePrincipalable) *model.ServicePrincipal {
	if sp == nil || sp.GetId() == nil {
		return nil
	}

	out := &model.ServicePrincipal{ObjectID: *sp.GetId()}
	if sp.GetAppId() != nil {
		out.ClientID = *sp.GetAppId()
	}
	if sp.GetDisplayName() != nil {
		out.DisplayName = *sp.GetDisplayName()
	}
	for _, role := range sp.GetAppRoles() {
		if role.GetId() == nil || role.GetValue() == nil {
			continue
		}
		out.AppRoles = append(out.AppRoles, model.AppRole{
			ID:    role.GetId().String(),
			Value: *role.GetValue(),
		})
	}
	return out
}

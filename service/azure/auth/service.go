package azureauth

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/spottoai/spotto-tools/model"
	"github.com/spottoai/spotto-tools/utils"
)

const armScope = "https://management.azure.com/.default"

func NewService() (*service, error) {
	cred, err := newCredential(azidentity.AuthenticationRecord{}, "")
	if err != nil {
		return nil, err
	}

	return &service{
		cred:        cred,
		tenantCreds: map[string]azcore.TokenCredential{},
	}, nil
}

func newCredential(record azidentity.AuthenticationRecord, tenantID string) (*azidentity.InteractiveBrowserCredential, error) {
	opts := &azidentity.InteractiveBrowserCredentialOptions{
		AdditionallyAllowedTenants: []string{"*"},
		AuthenticationRecord:       record,
	}
	if tenantID != "" {
		opts.TenantID = tenantID
	}

	cred, err := azidentity.NewInteractiveBrowserCredential(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser credential: %w", err)
	}
	return cred, nil
}

// SignIn opens the system browser and blocks until the operator completes
// the provider's login flow.
func (s *service) SignIn(ctx context.Context) (*model.Account, error) {
	record, err := s.cred.Authenticate(ctx, &policy.TokenRequestOptions{Scopes: []string{armScope}})
	if err != nil {
		return nil, fmt.Errorf("interactive login failed: %w", err)
	}
	s.record = record

	return &model.Account{
		Username:     record.Username,
		HomeTenantID: record.TenantID,
	}, nil
}

// SwitchAccount discards the current session and starts a fresh browser
// login.
func (s *service) SwitchAccount(ctx context.Context) (*model.Account, error) {
	cred, err := newCredential(azidentity.AuthenticationRecord{}, "")
	if err != nil {
		return nil, err
	}
	s.cred = cred
	s.tenantCreds = map[string]azcore.TokenCredential{}

	return s.SignIn(ctx)
}

// ListTenants implements service.AuthService
func (s *service) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	client, err := armsubscriptions.NewTenantsClient(s.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenants client: %w", err)
	}

	utils.StartSpinner("Listing accessible tenants")
	defer utils.StopSpinner()

	var tenants []model.Tenant
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tenants: %w", err)
		}
		for _, t := range page.Value {
			if t.TenantID == nil {
				continue
			}
			tenant := model.Tenant{ID: *t.TenantID}
			if t.DisplayName != nil {
				tenant.DisplayName = *t.DisplayName
			}
			for _, d := range t.Domains {
				if d != nil {
					tenant.Domains = append(tenant.Domains, *d)
				}
			}
			tenants = append(tenants, tenant)
		}
	}
	return tenants, nil
}

// ForTenant implements CredentialSource
func (s *service) ForTenant(tenantID string) (azcore.TokenCredential, error) {
	if cred, ok := s.tenantCreds[tenantID]; ok {
		return cred, nil
	}

	cred, err := newCredential(s.record, tenantID)
	if err != nil {
		return nil, err
	}
	s.tenantCreds[tenantID] = cred
	return cred, nil
}

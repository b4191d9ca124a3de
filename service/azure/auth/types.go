package azureauth

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/spottoai/spotto-tools/model"
)

type service struct {
	cred        *azidentity.InteractiveBrowserCredential
	record      azidentity.AuthenticationRecord
	tenantCreds map[string]azcore.TokenCredential
}

// AuthService is the interactive browser session with Microsoft Entra ID
type AuthService interface {
	SignIn(ctx context.Context) (*model.Account, error)
	SwitchAccount(ctx context.Context) (*model.Account, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
}

// CredentialSource hands out tenant-bound credentials to the management and
// directory services. The shared authentication record keeps per-tenant
// token exchanges silent once the operator has signed in.
type CredentialSource interface {
	ForTenant(tenantID string) (azcore.TokenCredential, error)
}

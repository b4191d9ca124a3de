package azuresubscription

import (
	"context"

	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"

	"github.com/spottoai/spotto-tools/model"
)

type service struct {
	creds azureauth.CredentialSource
}

// SubscriptionService lists the subscriptions visible in a tenant
type SubscriptionService interface {
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error)
}

package azuresubscription

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/spottoai/spotto-tools/model"
	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"
	"github.com/spottoai/spotto-tools/utils"
)

func NewService(creds azureauth.CredentialSource) *service {
	return &service{creds: creds}
}

// ListSubscriptions implements service.SubscriptionService
func (s *service) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	cred, err := s.creds.ForTenant(tenantID)
	if err != nil {
		return nil, err
	}

	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}

	utils.StartSpinner("Listing subscriptions")
	defer utils.StopSpinner()

	var subs []model.Subscription
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub.SubscriptionID == nil {
				continue
			}
			item := model.Subscription{ID: *sub.SubscriptionID, TenantID: tenantID}
			if sub.DisplayName != nil {
				item.DisplayName = *sub.DisplayName
			}
			subs = append(subs, item)
		}
	}
	return subs, nil
}

package orchestrator

import (
	"context"

	"github.com/juju/clock"

	"github.com/spottoai/spotto-tools/model"
	"github.com/spottoai/spotto-tools/service"
)

type orchestratorService struct {
	auth          service.AuthService
	subscriptions service.SubscriptionService
	directory     service.DirectoryService
	roles         service.RoleService
	prompt        service.PromptService
	console       service.ConsoleService
	clock         clock.Clock
}

// OrchestratorService runs the full onboarding sequence
type OrchestratorService interface {
	Run(ctx context.Context) (*model.ProvisionResult, error)
}

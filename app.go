package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/juju/clock"

	azureauth "github.com/spottoai/spotto-tools/service/azure/auth"
	azuredirectory "github.com/spottoai/spotto-tools/service/azure/directory"
	azurerbac "github.com/spottoai/spotto-tools/service/azure/rbac"
	azuresubscription "github.com/spottoai/spotto-tools/service/azure/subscription"
	"github.com/spottoai/spotto-tools/service/console"
	"github.com/spottoai/spotto-tools/service/orchestrator"
	"github.com/spottoai/spotto-tools/service/prompt"
	"github.com/spottoai/spotto-tools/utils"
)

func main() {
	consoleService, err := console.NewService(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer consoleService.Close()

	utils.DrawBanner(consoleService.Writer())
	consoleService.Infof("A transcript of this run is written to %s", consoleService.Path())

	authService, err := azureauth.NewService()
	if err != nil {
		consoleService.Errorf("%v", err)
		os.Exit(1)
	}

	subscriptionService := azuresubscription.NewService(authService)
	directoryService := azuredirectory.NewService(authService)
	roleService := azurerbac.NewService(authService, clock.WallClock)
	promptService := prompt.NewService()

	orchestratorService := orchestrator.NewService(
		authService,
		subscriptionService,
		directoryService,
		roleService,
		promptService,
		consoleService,
		clock.WallClock,
	)

	if _, err := orchestratorService.Run(context.Background()); err != nil {
		if errors.Is(err, orchestrator.ErrCancelled) {
			consoleService.Infof("Nothing was changed.")
			return
		}
		consoleService.Errorf("Onboarding failed: %v", err)
		consoleService.Close()
		os.Exit(1)
	}
}

package router

import (
	"github.com/ManuelReschke/AdGenie/app/controllers"
	"github.com/ManuelReschke/AdGenie/internal/pkg/admin"
)

type handlers struct {
	auth       *controllers.AuthController
	connection *controllers.ConnectionController
	exchange   *controllers.TokenExchangeController
	admin      *controllers.AdminController
	campaign   *controllers.CampaignController
}

func newControllers(deps *Dependencies) *handlers {
	return &handlers{
		auth:       controllers.NewAuthController(deps.Repos.User, deps.Auth, deps.Store, deps.Captcha),
		connection: controllers.NewConnectionController(deps.Orchestrator, deps.Repos.AccountLink, deps.Store, deps.Counters, deps.Providers.Timeout()),
		exchange:   controllers.NewTokenExchangeController(deps.Providers),
		admin:      controllers.NewAdminController(admin.NewService(deps.Auth, deps.Repos, deps.Statistics), deps.Store),
		campaign:   controllers.NewCampaignController(deps.Repos.Campaign, deps.Generator, deps.Storage, deps.Counters),
	}
}

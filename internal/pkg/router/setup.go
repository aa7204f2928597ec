package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adgen"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adplatform"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/connection"
	"github.com/ManuelReschke/AdGenie/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AdGenie/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/AdGenie/internal/pkg/statistics"
	"github.com/ManuelReschke/AdGenie/internal/pkg/storage"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the shared services the routers hand to controllers.
type Dependencies struct {
	Repos        *repository.Repositories
	Store        *session.Store
	Auth         *authz.Authorizer
	Providers    *adplatform.Registry
	Orchestrator *connection.Orchestrator
	Generator    *adgen.Generator
	Storage      storage.Backend
	Counters     *counter.Counter
	Statistics   *statistics.Collector
	Captcha      *hcaptcha.Verifier
}

func InstallRouter(app *fiber.App, deps *Dependencies) {
	// The HttpRouter installs the UserContext middleware the API routes
	// depend on, so it goes first.
	h := newControllers(deps)
	setup(app, NewHttpRouter(deps, h), NewApiRouter(h))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

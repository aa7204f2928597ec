package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
)

type HttpRouter struct {
	deps *Dependencies
	h    *handlers
}

func (r HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.NewUserContextMiddleware(r.deps.Store, r.deps.Auth))

	r.registerPublicRoutes(app)
	r.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps *Dependencies, h *handlers) *HttpRouter {
	return &HttpRouter{deps: deps, h: h}
}

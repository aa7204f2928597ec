package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
)

func (r HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Token exchange endpoints called by browser code on other origins
	functions := app.Group("/functions", middleware.EdgeCORS)
	functions.Get("/auth-:platform", r.h.exchange.HandleExchange)
	functions.Options("/auth-:platform", r.h.exchange.HandleExchange)

	// Ad account connection. The callback has to be registered before the
	// social sign-in routes, /auth/:provider would match it otherwise.
	app.Get(constants.ConnectionCallbackRoute, middleware.RequireAuth, r.h.connection.HandleCallback)
	app.Get("/connections/:platform/start", middleware.RequireAuth, r.h.connection.HandleStart)
	app.Post("/connections/:platform", middleware.RequireAPISessionAuth, r.h.connection.HandleInitiate)

	// Social sign-in
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", r.h.auth.HandleOAuthCallback)
}

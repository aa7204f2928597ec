package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/AdGenie/app/controllers"
	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
)

func (r HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ALLOW_ORIGINS", "*"),
	}), csrf.New(csrfConf))
	group.Get(constants.PublicRoute, controllers.HandleHome)
	group.Get(constants.LoginRoute, r.h.auth.HandleLoginPage)
	group.Post(constants.LoginRoute, r.h.auth.HandleLogin)
	group.Get(constants.RegisterRoute, r.h.auth.HandleRegisterPage)
	group.Post(constants.RegisterRoute, r.h.auth.HandleRegister)
	group.Post("/logout", middleware.RequireAuth, r.h.auth.HandleLogout)

	group.Get(constants.ConnectionsRoute, middleware.RequireAuth, r.h.connection.HandleConnectionsPage)
	group.Post("/connections/:id/delete", middleware.RequireAuth, r.h.connection.HandleDeleteLinkForm)
}

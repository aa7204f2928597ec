package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
)

type ApiRouter struct {
	h *handlers
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        env.GetInt("API_RATE_LIMIT", 120),
		Expiration: 1 * time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Post("/register", r.h.auth.HandleAPIRegister)
	v1.Post("/login", r.h.auth.HandleAPILogin)
	v1.Post("/logout", r.h.auth.HandleAPILogout)

	authed := v1.Group("", middleware.RequireAPISessionAuth)
	authed.Get("/me", r.h.auth.HandleAPIMe)

	authed.Get("/connections", r.h.connection.HandleListLinks)
	authed.Post("/connections/:platform/attempts", r.h.connection.HandleInitiate)
	authed.Delete("/connections/:id", r.h.connection.HandleDeleteLink)

	authed.Post("/images", r.h.campaign.HandleUploadImage)
	authed.Post("/generate", r.h.campaign.HandleGenerate)
	authed.Get("/previews/:platform", r.h.campaign.HandlePreview)
	authed.Get("/campaigns", r.h.campaign.HandleList)
	authed.Post("/campaigns", r.h.campaign.HandleCreate)
	authed.Get("/campaigns/:id", r.h.campaign.HandleGet)
	authed.Delete("/campaigns/:id", r.h.campaign.HandleDelete)

	admin := v1.Group("/admin", middleware.RequireAPIAdmin)
	admin.Get("/users", r.h.admin.HandleListUsers)
	admin.Put("/users/:id/role", r.h.admin.HandleSetRole)
	admin.Get("/connections", r.h.admin.HandleListConnections)
	admin.Get("/stats", r.h.admin.HandleStats)
}

func NewApiRouter(h *handlers) *ApiRouter {
	return &ApiRouter{h: h}
}

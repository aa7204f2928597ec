package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

// HandleHome renders the creative workflow page.
func HandleHome(c *fiber.Ctx) error {
	csrfToken, _ := c.Locals("csrf").(string)
	return c.Render("index", fiber.Map{
		"Title":     "Create ads",
		"User":      usercontext.GetUserContext(c),
		"Platforms": models.Platforms(),
		"Flash":     flash.Get(c),
		"CSRF":      csrfToken,
		"IsDev":     env.IsDev(),
	}, "layouts/main")
}

// HandleNotFound is the catch-all for unknown routes.
func HandleNotFound(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api/") {
		return apiError(c, fiber.StatusNotFound, "not_found", "route not found")
	}
	return c.Status(fiber.StatusNotFound).Render("404", fiber.Map{
		"Title": "Not found",
		"User":  usercontext.GetUserContext(c),
	}, "layouts/main")
}

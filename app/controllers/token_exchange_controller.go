package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adplatform"
)

// TokenExchangeController serves the stateless per-platform exchange
// endpoints under /functions/auth-:platform. Without a code it returns the
// authorization URL, with a code it exchanges it and reports the account.
type TokenExchangeController struct {
	providers *adplatform.Registry
}

func NewTokenExchangeController(providers *adplatform.Registry) *TokenExchangeController {
	return &TokenExchangeController{providers: providers}
}

func (tc *TokenExchangeController) HandleExchange(c *fiber.Ctx) error {
	platform, err := models.ParsePlatform(c.Params("platform"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	provider, err := tc.providers.Get(platform)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	code := c.Query("code")
	if code == "" {
		return c.JSON(fiber.Map{"url": provider.AuthorizationURL(c.Query("state"))})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), tc.providers.Timeout())
	defer cancel()

	token, err := adplatform.Connect(ctx, provider, code)
	if err != nil {
		log.Errorf("[TokenExchange] %s: %v", platform, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": edgeErrorMessage(platform, err)})
	}

	resp := fiber.Map{
		"success":  true,
		"platform": platform,
		"message":  "Successfully authenticated with " + platform.DisplayName(),
	}
	if platform == models.PlatformGoogle {
		resp["refresh_token"] = token.RefreshToken
	} else if token.AccountID != "" {
		resp["account_id"] = token.AccountID
	} else {
		resp["account_id"] = nil
	}
	return c.JSON(resp)
}

func edgeErrorMessage(platform models.Platform, err error) string {
	switch {
	case errors.Is(err, adplatform.ErrTokenExchangeFailed):
		return adplatform.ErrTokenExchangeFailed.Error()
	case errors.Is(err, adplatform.ErrUpstream):
		return "Failed to authenticate with " + platform.DisplayName()
	}
	return err.Error()
}

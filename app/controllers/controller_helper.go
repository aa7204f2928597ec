package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adplatform"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/connection"
	"github.com/ManuelReschke/AdGenie/internal/pkg/storage"
)

// apiError writes the JSON error shape shared by all API handlers
func apiError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// apiErrorFrom maps domain errors to HTTP status codes
func apiErrorFrom(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, connection.ErrMissingAuthorizationCode),
		errors.Is(err, connection.ErrUnknownPendingPlatform),
		errors.Is(err, models.ErrUnknownPlatform):
		return apiError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, authz.ErrUnauthorized):
		return apiError(c, fiber.StatusForbidden, "forbidden", "admin role required")
	case errors.Is(err, adplatform.ErrTokenExchangeFailed):
		return apiError(c, fiber.StatusBadGateway, "token_exchange_failed", err.Error())
	case errors.Is(err, adplatform.ErrUpstream):
		return apiError(c, fiber.StatusBadGateway, "bad_gateway", "ad platform unreachable")
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, storage.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, "not_found", "resource not found")
	}
	return apiError(c, fiber.StatusInternalServerError, "internal_server_error", "unexpected error")
}

func parseUintParam(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

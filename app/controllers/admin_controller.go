package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/internal/pkg/admin"
	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

const defaultPageSize = 50

// AdminController exposes the admin service over the JSON API.
type AdminController struct {
	service *admin.Service
	store   *session.Store
}

func NewAdminController(service *admin.Service, store *session.Store) *AdminController {
	return &AdminController{service: service, store: store}
}

func (ac *AdminController) HandleListUsers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > 200 {
		limit = defaultPageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	users, total, err := ac.service.ListUsers(usercontext.GetUserContext(c), offset, limit)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(fiber.Map{
		"users":  users,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

func (ac *AdminController) HandleListConnections(c *fiber.Ctx) error {
	links, err := ac.service.ListAllLinks(usercontext.GetUserContext(c))
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(fiber.Map{"connections": links})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (ac *AdminController) HandleSetRole(c *fiber.Ctx) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "invalid user id")
	}
	var req setRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	actor := usercontext.GetUserContext(c)
	user, err := ac.service.SetRole(c.UserContext(), actor, id, req.Role)
	if err != nil {
		if admin.IsValidationError(err) {
			return apiError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		return apiErrorFrom(c, err)
	}
	if user.ID == actor.UserID {
		ac.storeOwnRole(c, actor, user)
	}
	return c.JSON(user)
}

// storeOwnRole writes a role change of the acting admin into their session,
// so it applies on the next request instead of after the refresh interval.
func (ac *AdminController) storeOwnRole(c *fiber.Ctx, actor usercontext.UserContext, user *models.User) {
	actor.Role = user.Role
	actor.RefreshedAt = time.Now()
	usercontext.SetUserContext(c, actor)

	if ac.store == nil {
		return
	}
	sess, err := ac.store.Get(c)
	if err != nil {
		log.Warnf("[AdminController] session of user=%d: %v", actor.UserID, err)
		return
	}
	middleware.StoreUserContext(sess, actor)
	if err := sess.Save(); err != nil {
		log.Warnf("[AdminController] save session of user=%d: %v", actor.UserID, err)
	}
}

func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	stats, err := ac.service.Stats(c.UserContext(), usercontext.GetUserContext(c))
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(stats)
}

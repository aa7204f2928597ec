package usercontext

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AdGenie/app/models"
)

// UserContext is the authorization context of a request. It is built once by
// middleware and passed explicitly to services; RefreshedAt tells how old the
// role is.
type UserContext struct {
	UserID      uint      `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IsLoggedIn  bool      `json:"is_logged_in"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// IsAdmin reports whether the context carries the admin role.
func (u UserContext) IsAdmin() bool {
	return u.IsLoggedIn && u.Role == models.ROLE_ADMIN
}

// Stale reports whether the role should be re-read.
func (u UserContext) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(u.RefreshedAt) >= maxAge
}

// SetUserContext stores the context for the rest of the handler chain
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(localsKey, uc)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(localsKey).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin()
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

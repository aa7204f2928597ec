package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

// NewUserContextMiddleware builds the authorization context of every request
// from the session. The role stored in the session is re-read from the
// database once it is older than the authorizer's refresh interval.
func NewUserContextMiddleware(store *session.Store, auth *authz.Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session on the social login routes
		if isSocialLoginRoute(c.Path()) {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		sess, err := store.Get(c)
		if err != nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, ok := sess.Get(usercontext.KeyUserID).(uint)
		if !ok || userID == 0 {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		name, _ := sess.Get(usercontext.KeyName).(string)
		email, _ := sess.Get(usercontext.KeyEmail).(string)
		role, _ := sess.Get(usercontext.KeyRole).(string)
		checkedAt, _ := sess.Get(usercontext.KeyRoleCheckedAt).(int64)

		uc := usercontext.UserContext{
			UserID:      userID,
			Name:        name,
			Email:       email,
			Role:        role,
			IsLoggedIn:  true,
			RefreshedAt: time.Unix(checkedAt, 0),
		}

		refreshed, err := auth.Refresh(uc)
		if err != nil {
			log.Warnf("[UserContext] dropping session of user=%d: %v", userID, err)
			_ = sess.Destroy()
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		if !refreshed.RefreshedAt.Equal(uc.RefreshedAt) {
			if refreshed.Role != uc.Role {
				log.Infof("[UserContext] role of user=%d changed from %q to %q", userID, uc.Role, refreshed.Role)
			}
			StoreUserContext(sess, refreshed)
			if err := sess.Save(); err != nil {
				log.Warnf("[UserContext] failed to save refreshed session: %v", err)
			}
		}

		usercontext.SetUserContext(c, refreshed)
		return c.Next()
	}
}

// StoreUserContext writes uc into sess. The caller saves the session.
func StoreUserContext(sess *session.Session, uc usercontext.UserContext) {
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, uc.UserID)
	sess.Set(usercontext.KeyName, uc.Name)
	sess.Set(usercontext.KeyEmail, uc.Email)
	sess.Set(usercontext.KeyRole, uc.Role)
	sess.Set(usercontext.KeyRoleCheckedAt, uc.RefreshedAt.Unix())
}

func isSocialLoginRoute(path string) bool {
	if !strings.HasPrefix(path, "/auth/") {
		return false
	}
	// /auth/callback is the ad account callback and needs the app session
	return path != constants.ConnectionCallbackRoute
}

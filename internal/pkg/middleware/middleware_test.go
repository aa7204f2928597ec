package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

func setupApp(t *testing.T, maxAge time.Duration) (*fiber.App, *gorm.DB, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	user := &models.User{Name: "Ann", Email: "ann@example.com", Password: "x", Role: models.ROLE_USER}
	require.NoError(t, db.Create(user).Error)

	store := session.New()
	auth := authz.NewAuthorizer(repository.NewUserRepository(db), maxAge)

	app := fiber.New()
	app.Use(NewUserContextMiddleware(store, auth))
	app.Get("/login", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		StoreUserContext(sess, auth.FromUser(user))
		return sess.Save()
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/admin", RequireAPIAdmin, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/private", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, db, user
}

func login(t *testing.T, app *fiber.App) *http.Cookie {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			return ck
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func get(t *testing.T, app *fiber.App, path string, ck *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ck != nil {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAnonymousRequests(t *testing.T) {
	app, _, _ := setupApp(t, time.Hour)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/private", nil).StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/admin", nil).StatusCode)
}

func TestRoleIsCachedWithinInterval(t *testing.T) {
	app, db, user := setupApp(t, time.Hour)
	ck := login(t, app)

	assert.Equal(t, fiber.StatusOK, get(t, app, "/private", ck).StatusCode)
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/admin", ck).StatusCode)

	require.NoError(t, db.Model(user).Update("role", models.ROLE_ADMIN).Error)
	// still inside the refresh interval, the session role wins
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/admin", ck).StatusCode)
}

func TestRoleIsRefreshedAfterInterval(t *testing.T) {
	app, db, user := setupApp(t, time.Nanosecond)
	ck := login(t, app)
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/admin", ck).StatusCode)

	require.NoError(t, db.Model(user).Update("role", models.ROLE_ADMIN).Error)
	assert.Equal(t, fiber.StatusOK, get(t, app, "/admin", ck).StatusCode)
}

func TestDeletedUserLosesSession(t *testing.T) {
	app, db, user := setupApp(t, time.Nanosecond)
	ck := login(t, app)

	require.NoError(t, db.Delete(user).Error)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/private", ck).StatusCode)
}

func TestEdgeCORS(t *testing.T) {
	app := fiber.New()
	app.Use(EdgeCORS)
	app.Get("/fn", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	resp, err := app.Test(httptest.NewRequest(http.MethodOptions, "/fn", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, edgeAllowHeaders, resp.Header.Get(fiber.HeaderAccessControlAllowHeaders))
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/fn", nil))
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestIsSocialLoginRoute(t *testing.T) {
	assert.True(t, isSocialLoginRoute("/auth/google"))
	assert.True(t, isSocialLoginRoute("/auth/facebook/callback"))
	assert.False(t, isSocialLoginRoute("/auth/callback"))
	assert.False(t, isSocialLoginRoute("/connections"))
}

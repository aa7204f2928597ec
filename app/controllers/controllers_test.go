package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adgen"
	"github.com/ManuelReschke/AdGenie/internal/pkg/admin"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adplatform"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/connection"
	"github.com/ManuelReschke/AdGenie/internal/pkg/database"
	"github.com/ManuelReschke/AdGenie/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
	"github.com/ManuelReschke/AdGenie/internal/pkg/statistics"
	"github.com/ManuelReschke/AdGenie/internal/pkg/storage"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

const testUserHeader = "X-Test-User"

type fakeProvider struct {
	platform  models.Platform
	accountID string
	err       error
}

func (f *fakeProvider) Platform() models.Platform { return f.platform }

func (f *fakeProvider) AuthorizationURL(state string) string {
	return "https://provider.example.com/" + string(f.platform) + "?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (*adplatform.TokenResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &adplatform.TokenResult{Platform: f.platform, AccessToken: "token-" + code, RefreshToken: "refresh-" + code}, nil
}

func (f *fakeProvider) ExtractAccountID(context.Context, *adplatform.TokenResult) (string, error) {
	return f.accountID, nil
}

type testApp struct {
	app *fiber.App
	// sessionApp authenticates through the session cookie like the real router
	sessionApp *fiber.App
	repos      *repository.Repositories
	fakes      map[models.Platform]*fakeProvider
	alice      *models.User
	bob        *models.User
	admin      *models.User
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	repos := repository.NewRepositories(db)
	ta := &testApp{repos: repos}
	ta.alice = createUser(t, repos, "Alice", "alice@example.com", models.ROLE_USER)
	ta.bob = createUser(t, repos, "Bob", "bob@example.com", models.ROLE_USER)
	ta.admin = createUser(t, repos, "Ada", "ada@example.com", models.ROLE_ADMIN)

	ta.fakes = map[models.Platform]*fakeProvider{
		models.PlatformGoogle: {platform: models.PlatformGoogle},
		models.PlatformMeta:   {platform: models.PlatformMeta, accountID: "act_42"},
		models.PlatformTikTok: {platform: models.PlatformTikTok, accountID: "7000001"},
	}
	registry := adplatform.NewRegistry(ta.fakes[models.PlatformGoogle], ta.fakes[models.PlatformMeta], ta.fakes[models.PlatformTikTok])

	store := session.New()
	auth := authz.NewAuthorizer(repos.User, time.Minute)
	orch := connection.NewOrchestrator(connection.NewPendingStore(rdb, time.Hour), registry, repos.AccountLink)

	backend, err := storage.NewLocalBackend(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	counters := counter.New(rdb)
	connections := NewConnectionController(orch, repos.AccountLink, store, counters, 5*time.Second)
	exchange := NewTokenExchangeController(registry)
	admins := NewAdminController(admin.NewService(auth, repos, statistics.NewCollector(repos, counters, nil, 0)), store)
	campaigns := NewCampaignController(repos.Campaign, adgen.NewGenerator(0), backend, counters)
	authc := NewAuthController(repos.User, auth, store, nil)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if raw := c.Get(testUserHeader); raw != "" {
			id, _ := strconv.ParseUint(raw, 10, 64)
			if u, err := repos.User.GetByID(uint(id)); err == nil {
				usercontext.SetUserContext(c, auth.FromUser(u))
			}
		}
		return c.Next()
	})

	app.Get("/functions/auth-:platform", middleware.EdgeCORS, exchange.HandleExchange)
	app.Options("/functions/auth-:platform", middleware.EdgeCORS, exchange.HandleExchange)
	app.Get("/auth/callback", connections.HandleCallback)
	app.Post("/connections/:platform", connections.HandleInitiate)
	app.Get("/connections/:platform/start", connections.HandleStart)

	api := app.Group("/api/v1")
	api.Post("/register", authc.HandleAPIRegister)
	api.Post("/login", authc.HandleAPILogin)
	api.Get("/me", middleware.RequireAPISessionAuth, authc.HandleAPIMe)
	api.Get("/connections", connections.HandleListLinks)
	api.Delete("/connections/:id", connections.HandleDeleteLink)
	api.Post("/images", campaigns.HandleUploadImage)
	api.Post("/generate", campaigns.HandleGenerate)
	api.Get("/previews/:platform", campaigns.HandlePreview)
	api.Post("/campaigns", campaigns.HandleCreate)
	api.Get("/campaigns", campaigns.HandleList)
	api.Get("/campaigns/:id", campaigns.HandleGet)
	api.Delete("/campaigns/:id", campaigns.HandleDelete)
	api.Get("/admin/users", admins.HandleListUsers)
	api.Put("/admin/users/:id/role", admins.HandleSetRole)
	api.Get("/admin/connections", admins.HandleListConnections)
	api.Get("/admin/stats", admins.HandleStats)

	ta.app = app

	sessionApp := fiber.New()
	sessionApp.Use(middleware.NewUserContextMiddleware(store, auth))
	sessionApp.Post("/api/v1/login", authc.HandleAPILogin)
	sessionAdmin := sessionApp.Group("/api/v1/admin", middleware.RequireAPIAdmin)
	sessionAdmin.Get("/users", admins.HandleListUsers)
	sessionAdmin.Put("/users/:id/role", admins.HandleSetRole)
	ta.sessionApp = sessionApp

	return ta
}

func createUser(t *testing.T, repos *repository.Repositories, name, email, role string) *models.User {
	t.Helper()
	u, err := models.CreateUser(name, email, "secret123")
	require.NoError(t, err)
	u.Role = role
	require.NoError(t, repos.User.Create(u))
	return u
}

func (ta *testApp) do(t *testing.T, method, target string, user *models.User, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if user != nil {
		req.Header.Set(testUserHeader, strconv.FormatUint(uint64(user.ID), 10))
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ta *testApp) doJSON(t *testing.T, method, target string, user *models.User, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return ta.do(t, method, target, user, body, fiber.MIMEApplicationJSON)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ta *testApp) initiate(t *testing.T, user *models.User, platform models.Platform) connection.Attempt {
	t.Helper()
	resp := ta.do(t, http.MethodPost, "/connections/"+string(platform), user, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return decode[connection.Attempt](t, resp)
}

func TestTokenExchange_ReturnsAuthorizationURLWithoutCode(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.do(t, http.MethodGet, "/functions/auth-meta?state=abc", nil, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	body := decode[map[string]string](t, resp)
	assert.Equal(t, "https://provider.example.com/meta?state=abc", body["url"])
}

func TestTokenExchange_Preflight(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.do(t, http.MethodOptions, "/functions/auth-google", nil, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestTokenExchange_WithCode(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.do(t, http.MethodGet, "/functions/auth-google?code=c1", nil, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "google", body["platform"])
	assert.Equal(t, "refresh-c1", body["refresh_token"])
	assert.Equal(t, "Successfully authenticated with Google Ads", body["message"])

	resp = ta.do(t, http.MethodGet, "/functions/auth-tiktok?code=c2", nil, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode[map[string]any](t, resp)
	assert.Equal(t, "7000001", body["account_id"])
	assert.NotContains(t, body, "refresh_token")
}

func TestTokenExchange_Failure(t *testing.T) {
	ta := setupTestApp(t)
	ta.fakes[models.PlatformMeta].err = fmt.Errorf("meta: %w", adplatform.ErrTokenExchangeFailed)

	resp := ta.do(t, http.MethodGet, "/functions/auth-meta?code=bad", nil, nil, "")
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "failed to obtain access token", body["error"])
}

func TestTokenExchange_UnknownPlatform(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.do(t, http.MethodGet, "/functions/auth-linkedin", nil, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestConnection_InitiateAndCallback(t *testing.T) {
	ta := setupTestApp(t)

	attempt := ta.initiate(t, ta.alice, models.PlatformMeta)
	require.NotEmpty(t, attempt.State)
	assert.Equal(t, models.PlatformMeta, attempt.Platform)
	assert.Contains(t, attempt.AuthorizationURL, url.QueryEscape(attempt.State))

	resp := ta.do(t, http.MethodGet, "/auth/callback?code=xyz&state="+url.QueryEscape(attempt.State), ta.alice, nil, "")
	assert.Contains(t, []int{fiber.StatusFound, fiber.StatusSeeOther}, resp.StatusCode)
	assert.Equal(t, "/connections", resp.Header.Get(fiber.HeaderLocation))

	links, err := ta.repos.AccountLink.ListByUserID(ta.alice.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, models.PlatformMeta, links[0].Platform)
	assert.Equal(t, "act_42", links[0].AccountID)

	// the attempt is consumed
	resp = ta.do(t, http.MethodGet, "/auth/callback?code=xyz&state="+url.QueryEscape(attempt.State), ta.alice, nil, "")
	assert.Equal(t, "/connections", resp.Header.Get(fiber.HeaderLocation))
	links, err = ta.repos.AccountLink.ListByUserID(ta.alice.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestConnection_CallbackWithoutCodeStoresNothing(t *testing.T) {
	ta := setupTestApp(t)
	attempt := ta.initiate(t, ta.alice, models.PlatformGoogle)

	resp := ta.do(t, http.MethodGet, "/auth/callback?error=access_denied&state="+url.QueryEscape(attempt.State), ta.alice, nil, "")
	assert.Equal(t, "/connections", resp.Header.Get(fiber.HeaderLocation))

	count, err := ta.repos.AccountLink.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConnection_StartRedirectsToProvider(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.do(t, http.MethodGet, "/connections/tiktok/start", ta.alice, nil, "")
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderLocation), "https://provider.example.com/tiktok?state="))
}

func TestConnection_InitiateUnknownPlatform(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.do(t, http.MethodPost, "/connections/snapchat", ta.alice, nil, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestConnection_DeleteOnlyOwnLinks(t *testing.T) {
	ta := setupTestApp(t)
	link := &models.AccountLink{UserID: ta.alice.ID, Platform: models.PlatformMeta, AccountID: "act_1"}
	require.NoError(t, ta.repos.AccountLink.Upsert(link))

	resp := ta.do(t, http.MethodDelete, "/api/v1/connections/"+link.ID, ta.bob, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.do(t, http.MethodDelete, "/api/v1/connections/"+link.ID, ta.alice, nil, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, err := ta.repos.AccountLink.GetByID(link.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestConnection_ListLinks(t *testing.T) {
	ta := setupTestApp(t)
	require.NoError(t, ta.repos.AccountLink.Upsert(&models.AccountLink{UserID: ta.alice.ID, Platform: models.PlatformGoogle}))
	require.NoError(t, ta.repos.AccountLink.Upsert(&models.AccountLink{UserID: ta.bob.ID, Platform: models.PlatformMeta}))

	resp := ta.do(t, http.MethodGet, "/api/v1/connections", ta.alice, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[struct {
		Connections []models.AccountLink `json:"connections"`
	}](t, resp)
	require.Len(t, body.Connections, 1)
	assert.Equal(t, models.PlatformGoogle, body.Connections[0].Platform)
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	ta := setupTestApp(t)

	for _, target := range []string{"/api/v1/admin/users", "/api/v1/admin/connections", "/api/v1/admin/stats"} {
		resp := ta.do(t, http.MethodGet, target, ta.alice, nil, "")
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, target)
	}

	resp := ta.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/role", ta.alice.ID), ta.bob, map[string]string{"role": "admin"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdmin_SetRole(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/role", ta.alice.ID), ta.admin, map[string]string{"role": "admin"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	user := decode[models.User](t, resp)
	assert.Equal(t, models.ROLE_ADMIN, user.Role)

	resp = ta.doJSON(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/role", ta.alice.ID), ta.admin, map[string]string{"role": "owner"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.doJSON(t, http.MethodPut, "/api/v1/admin/users/9999/role", ta.admin, map[string]string{"role": "user"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdmin_OwnDemotionAppliesOnNextRequest(t *testing.T) {
	ta := setupTestApp(t)

	var cookies []*http.Cookie
	send := func(method, target string, payload any) *http.Response {
		var body io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			require.NoError(t, err)
			body = bytes.NewReader(b)
		}
		req := httptest.NewRequest(method, target, body)
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		resp, err := ta.sessionApp.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := send(http.MethodPost, "/api/v1/login", map[string]string{"email": ta.admin.Email, "password": "secret123"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookies = resp.Cookies()
	require.NotEmpty(t, cookies)

	resp = send(http.MethodGet, "/api/v1/admin/users", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = send(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/role", ta.admin.ID), map[string]string{"role": "user"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// well within the one minute refresh interval of the authorizer
	resp = send(http.MethodGet, "/api/v1/admin/users", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdmin_ListsAndStats(t *testing.T) {
	ta := setupTestApp(t)
	require.NoError(t, ta.repos.AccountLink.Upsert(&models.AccountLink{UserID: ta.alice.ID, Platform: models.PlatformMeta, AccountID: "act_1"}))
	require.NoError(t, ta.repos.AccountLink.Upsert(&models.AccountLink{UserID: ta.bob.ID, Platform: models.PlatformMeta, AccountID: "act_2"}))

	resp := ta.do(t, http.MethodGet, "/api/v1/admin/users?limit=2", ta.admin, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	users := decode[struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}](t, resp)
	assert.Len(t, users.Users, 2)
	assert.EqualValues(t, 3, users.Total)

	resp = ta.do(t, http.MethodGet, "/api/v1/admin/connections", ta.admin, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	links := decode[struct {
		Connections []models.AccountLink `json:"connections"`
	}](t, resp)
	require.Len(t, links.Connections, 2)
	for _, l := range links.Connections {
		require.NotNil(t, l.User)
		assert.NotEmpty(t, l.User.Email)
	}

	resp = ta.do(t, http.MethodGet, "/api/v1/admin/stats", ta.admin, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := decode[models.DashboardStats](t, resp)
	assert.EqualValues(t, 3, stats.Users)
	assert.EqualValues(t, 1, stats.Admins)
	assert.EqualValues(t, 2, stats.AccountLinks)
	assert.EqualValues(t, 2, stats.LinksByPlatform[models.PlatformMeta])
}

func TestAdmin_StatsCountEvents(t *testing.T) {
	ta := setupTestApp(t)

	attempt := ta.initiate(t, ta.alice, models.PlatformTikTok)
	ta.do(t, http.MethodGet, "/auth/callback?auth_code=abc&state="+url.QueryEscape(attempt.State), ta.alice, nil, "")
	ta.doJSON(t, http.MethodPost, "/api/v1/generate", ta.alice, map[string]string{"platform": "google"})

	resp := ta.do(t, http.MethodGet, "/api/v1/admin/stats", ta.admin, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	stats := decode[models.DashboardStats](t, resp)
	assert.EqualValues(t, 1, stats.ConnectionsLinked[models.PlatformTikTok])
	assert.EqualValues(t, 1, stats.Generations[models.PlatformGoogle])
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.doJSON(t, http.MethodPost, "/api/v1/register", nil, map[string]string{
		"name": "Carol", "email": "Carol@Example.com", "password": "hunter22",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decode[models.User](t, resp)
	assert.Equal(t, "carol@example.com", created.Email)
	assert.Equal(t, models.ROLE_USER, created.Role)

	resp = ta.doJSON(t, http.MethodPost, "/api/v1/register", nil, map[string]string{
		"name": "Carol", "email": "carol@example.com", "password": "hunter22",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.doJSON(t, http.MethodPost, "/api/v1/login", nil, map[string]string{"email": "carol@example.com", "password": "wrong"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ta.doJSON(t, http.MethodPost, "/api/v1/login", nil, map[string]string{"email": "carol@example.com", "password": "hunter22"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderSetCookie))

	resp = ta.do(t, http.MethodGet, "/api/v1/me", nil, nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(t, http.MethodGet, "/api/v1/me", ta.bob, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	me := decode[models.User](t, resp)
	assert.Equal(t, ta.bob.Email, me.Email)
	assert.True(t, strings.HasPrefix(me.AvatarURL, "https://www.gravatar.com/avatar/"))
	assert.True(t, strings.HasSuffix(me.AvatarURL, "s=200"), me.AvatarURL)

	resp = ta.do(t, http.MethodGet, "/api/v1/me?avatar_size=48", ta.bob, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasSuffix(decode[models.User](t, resp).AvatarURL, "s=48"))
}

func TestAuth_SocialUser(t *testing.T) {
	ta := setupTestApp(t)
	ac := NewAuthController(ta.repos.User, authz.NewAuthorizer(ta.repos.User, time.Minute), session.New(), nil)

	t.Run("existing account takes the provider avatar", func(t *testing.T) {
		user, err := ac.socialUser(goth.User{Provider: "google", Email: " Alice@Example.com", AvatarURL: "https://lh3.example.com/alice.png"})
		require.NoError(t, err)
		assert.Equal(t, ta.alice.ID, user.ID)

		stored, err := ta.repos.User.GetByID(ta.alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://lh3.example.com/alice.png", stored.AvatarURL)
		assert.True(t, stored.CheckPassword("secret123"), "password is untouched")
	})

	t.Run("stored avatar wins", func(t *testing.T) {
		_, err := ac.socialUser(goth.User{Provider: "facebook", Email: "alice@example.com", AvatarURL: "https://fb.example.com/other.png"})
		require.NoError(t, err)
		stored, err := ta.repos.User.GetByID(ta.alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://lh3.example.com/alice.png", stored.AvatarURL)
	})

	t.Run("new identity without email", func(t *testing.T) {
		user, err := ac.socialUser(goth.User{Provider: "facebook", UserID: "99", NickName: "dan"})
		require.NoError(t, err)
		assert.Equal(t, "facebook_99@facebook.oauth.local", user.Email)
		assert.Equal(t, "dan", user.Name)
		assert.Equal(t, models.ROLE_USER, user.Role)
	})
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (ta *testApp) uploadImage(t *testing.T, user *models.User, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return ta.do(t, http.MethodPost, "/api/v1/images", user, &body, w.FormDataContentType())
}

func TestCampaign_UploadPreviewAndSave(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.uploadImage(t, ta.alice, "product.png", pngBytes(t))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	uploaded := decode[map[string]string](t, resp)
	prefix := fmt.Sprintf("product-images/%d/", ta.alice.ID)
	require.True(t, strings.HasPrefix(uploaded["path"], prefix), uploaded["path"])
	assert.True(t, strings.HasSuffix(uploaded["path"], ".png"))
	assert.Equal(t, "http://localhost/uploads/"+uploaded["path"], uploaded["url"])

	resp = ta.do(t, http.MethodGet, "/api/v1/previews/tiktok?path="+url.QueryEscape(uploaded["path"]), ta.alice, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/webp", resp.Header.Get(fiber.HeaderContentType))

	// someone else's image is invisible
	resp = ta.do(t, http.MethodGet, "/api/v1/previews/tiktok?path="+url.QueryEscape(uploaded["path"]), ta.bob, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.doJSON(t, http.MethodPost, "/api/v1/generate", ta.alice, map[string]string{"platform": "tiktok"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	generated := decode[struct {
		AdContent models.AdContent `json:"ad_content"`
	}](t, resp)
	assert.Len(t, generated.AdContent.Headlines, 3)
	assert.Equal(t, "Shop Now", generated.AdContent.CTA)

	resp = ta.doJSON(t, http.MethodPost, "/api/v1/campaigns", ta.bob, map[string]any{
		"platform": "tiktok", "image_path": uploaded["path"], "ad_content": generated.AdContent,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = ta.doJSON(t, http.MethodPost, "/api/v1/campaigns", ta.alice, map[string]any{
		"platform": "tiktok", "image_path": uploaded["path"], "ad_content": generated.AdContent,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	campaign := decode[models.AdCampaign](t, resp)
	require.NotEmpty(t, campaign.ID)

	saved, err := ta.repos.Campaign.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, ta.alice.ID, saved.UserID)
	assert.Equal(t, models.PlatformTikTok, saved.Platform)
	assert.Equal(t, uploaded["path"], saved.ImagePath)
	assert.Equal(t, "Shop Now", saved.AdContent.CTA)
	assert.Equal(t, generated.AdContent.Headlines, saved.AdContent.Headlines)

	resp = ta.do(t, http.MethodGet, "/api/v1/campaigns/"+campaign.ID, ta.bob, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = ta.do(t, http.MethodGet, "/api/v1/campaigns", ta.alice, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[struct {
		Campaigns []models.AdCampaign `json:"campaigns"`
	}](t, resp)
	require.Len(t, list.Campaigns, 1)
	assert.Equal(t, generated.AdContent.Hashtags, list.Campaigns[0].AdContent.Hashtags)

	resp = ta.do(t, http.MethodDelete, "/api/v1/campaigns/"+campaign.ID, ta.alice, nil, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestCampaign_DeleteRemovesImageWhenUnused(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.uploadImage(t, ta.alice, "product.png", pngBytes(t))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	path := decode[map[string]string](t, resp)["path"]
	content := models.AdContent{Headlines: []string{"h"}, Descriptions: []string{"d"}, CTA: "Buy"}

	ids := make([]string, 0, 2)
	for _, platform := range []string{"google", "meta"} {
		resp = ta.doJSON(t, http.MethodPost, "/api/v1/campaigns", ta.alice, map[string]any{
			"platform": platform, "image_path": path, "ad_content": content,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		ids = append(ids, decode[models.AdCampaign](t, resp).ID)
	}
	previewStatus := func() int {
		return ta.do(t, http.MethodGet, "/api/v1/previews/meta?path="+url.QueryEscape(path), ta.alice, nil, "").StatusCode
	}

	resp = ta.do(t, http.MethodDelete, "/api/v1/campaigns/"+ids[0], ta.alice, nil, "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, fiber.StatusOK, previewStatus(), "image is still used by the meta campaign")

	resp = ta.do(t, http.MethodDelete, "/api/v1/campaigns/"+ids[1], ta.alice, nil, "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, fiber.StatusNotFound, previewStatus())
}

func TestCampaign_RejectsScriptableUpload(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.uploadImage(t, ta.alice, "evil.png", []byte("<html><script>alert(1)</script></html>"))
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	resp = ta.uploadImage(t, ta.alice, "vector.svg", []byte("<svg></svg>"))
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestCampaign_GenerateUnknownPlatform(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.doJSON(t, http.MethodPost, "/api/v1/generate", ta.alice, map[string]string{"platform": "myspace"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCallbackFailureMessage(t *testing.T) {
	err := &connection.AttemptError{Platform: models.PlatformTikTok, Err: adplatform.ErrTokenExchangeFailed}
	assert.Equal(t, "Failed to complete TikTok authentication: failed to obtain access token", callbackFailureMessage(err))
	assert.Equal(t, "Failed to complete authentication: authorization code not found in the callback URL",
		callbackFailureMessage(connection.ErrMissingAuthorizationCode))
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/AdGenie/app/controllers"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adgen"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adplatform"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/cache"
	"github.com/ManuelReschke/AdGenie/internal/pkg/connection"
	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/database"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
	"github.com/ManuelReschke/AdGenie/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AdGenie/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/AdGenie/internal/pkg/oauth"
	"github.com/ManuelReschke/AdGenie/internal/pkg/router"
	"github.com/ManuelReschke/AdGenie/internal/pkg/session"
	"github.com/ManuelReschke/AdGenie/internal/pkg/statistics"
	"github.com/ManuelReschke/AdGenie/internal/pkg/storage"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/adgenie to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	backend, err := storage.NewFromEnv(context.Background())
	if err != nil {
		panic(fmt.Sprintf("storage setup failed: %v", err))
	}

	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()
	providers := adplatform.NewRegistryFromEnv()
	store := session.NewSessionStore()
	oauth.Setup()

	counters := counter.New(cache.GetClient())

	deps := &router.Dependencies{
		Repos:        repos,
		Store:        store,
		Auth:         authz.NewAuthorizer(repos.User, env.GetDuration("AUTHZ_REFRESH_INTERVAL", authz.DefaultRefreshInterval)),
		Providers:    providers,
		Orchestrator: connection.NewOrchestrator(connection.NewPendingStore(cache.GetClient(), session.Lifetime), providers, repos.AccountLink),
		Generator:    adgen.NewGeneratorFromEnv(),
		Storage:      backend,
		Counters:     counters,
		Captcha:      hcaptcha.NewFromEnv(),
		Statistics:   statistics.NewCollector(repos, counters, cache.GetClient(), statistics.CacheExpiration),
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 12 << 20, // product images are capped at 10 MB
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "changeme"),
		},
	}), monitor.New(monitor.Config{Title: "AdGenie Metrics"}))

	// static files
	app.Static(constants.PublicRoute, basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// static uploads, only used by the local storage backend
	if local, ok := backend.(*storage.LocalBackend); ok {
		app.Static(constants.UploadsRoute, local.Root(), fiber.Static{
			CacheDuration: 10 * time.Second,
			Compress:      false,
			MaxAge:        604800, // 7 days
		})
	}

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
		Title:    "AdGenie API",
	}))

	// ROUTER
	router.InstallRouter(app, deps)

	app.Use(controllers.HandleNotFound)

	return app
}

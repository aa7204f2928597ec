package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/AdGenie/internal/pkg/cache"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

// SocialProviders are the sign-in providers offered on the login page.
var SocialProviders = []string{"google", "facebook"}

// Setup registers the sign-in providers and keeps goth's state in Redis
// database 2. These are login identities only; ad accounts are connected
// through the adplatform package.
func Setup() {
	RegisterProviders(baseURL())

	cacheOpts := cache.GetClient().Options()
	host, port := "127.0.0.1", 6379
	if cacheOpts != nil && cacheOpts.Addr != "" {
		if h, p, err := net.SplitHostPort(cacheOpts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else {
			host = cacheOpts.Addr
		}
	}

	UseStorage(redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Username: cacheOpts.Username,
		Password: cacheOpts.Password,
		Database: 2,
		Reset:    false,
	}))
}

// RegisterProviders installs the goth providers with callbacks below base.
func RegisterProviders(base string) {
	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		),
		facebook.New(
			env.GetEnv("FACEBOOK_KEY", ""),
			env.GetEnv("FACEBOOK_SECRET", ""),
			base+"/auth/facebook/callback",
			"email", "public_profile",
		),
	)
}

// UseStorage sets the session store goth_fiber keeps its state in.
func UseStorage(storage fiber.Storage) {
	gothfiber.SessionStore = session.New(session.Config{
		Storage:        storage,
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
}

func baseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/AdGenie/internal/pkg/cache"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

// Lifetime is how long an idle session survives. Pending OAuth attempts
// share it so they never outlive the session that started them.
const Lifetime = time.Hour * 1

func NewSessionStore() *session.Store {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Sessions live in database 1, the cache and pending attempts in 0
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	return session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     Lifetime,
		KeyLookup:      "cookie:session_id",
	})
}

// SetSessionValue stores a key-value pair in the user's individual session
func SetSessionValue(store *session.Store, c *fiber.Ctx, key string, value string) error {
	if store == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// PopSessionValue returns the value for key and removes it from the session.
func PopSessionValue(store *session.Store, c *fiber.Ctx, key string) string {
	if store == nil {
		return ""
	}
	sess, err := store.Get(c)
	if err != nil {
		return ""
	}
	value, _ := sess.Get(key).(string)
	if value != "" {
		sess.Delete(key)
		_ = sess.Save()
	}
	return value
}

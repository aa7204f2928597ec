package adplatform

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

// Registry resolves the Provider variant for a platform.
type Registry struct {
	providers map[models.Platform]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.Platform]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Platform()] = p
	}
	return r
}

// NewRegistryFromEnv wires all platforms from <PLATFORM>_CLIENT_ID,
// <PLATFORM>_CLIENT_SECRET and <PLATFORM>_REDIRECT_URI.
func NewRegistryFromEnv() *Registry {
	client := &http.Client{Timeout: defaultHTTPTimeout}
	return NewRegistry(
		NewGoogleProvider(configFromEnv("GOOGLE", client)),
		NewMetaProvider(configFromEnv("META", client)),
		NewTikTokProvider(configFromEnv("TIKTOK", client)),
	)
}

func configFromEnv(prefix string, client *http.Client) Config {
	return Config{
		ClientID:     strings.TrimSpace(env.GetEnv(prefix+"_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv(prefix+"_CLIENT_SECRET", "")),
		RedirectURI:  strings.TrimSpace(env.GetEnv(prefix+"_REDIRECT_URI", "")),
		AuthorizeURL: env.GetEnv(prefix+"_AUTHORIZE_URL", ""),
		TokenURL:     env.GetEnv(prefix+"_TOKEN_URL", ""),
		APIBaseURL:   env.GetEnv(prefix+"_API_BASE_URL", ""),
		HTTPClient:   client,
	}
}

// Get returns the provider for platform.
func (r *Registry) Get(platform models.Platform) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownPlatform, platform)
	}
	return p, nil
}

// Timeout is the upper bound the HTTP layer should give a full exchange.
func (r *Registry) Timeout() time.Duration {
	// token POST plus one identity lookup
	return 2 * defaultHTTPTimeout
}

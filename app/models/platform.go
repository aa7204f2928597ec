package models

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifies one of the supported advertising networks.
type Platform string

const (
	PlatformGoogle Platform = "google"
	PlatformMeta   Platform = "meta"
	PlatformTikTok Platform = "tiktok"
)

// ErrUnknownPlatform is returned when a value is not one of the supported platforms.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platforms lists every supported platform in display order.
func Platforms() []Platform {
	return []Platform{PlatformGoogle, PlatformMeta, PlatformTikTok}
}

// ParsePlatform normalizes raw input and checks it against the closed set.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, raw)
	}
	return p, nil
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformGoogle, PlatformMeta, PlatformTikTok:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}

// DisplayName returns the human readable network name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformGoogle:
		return "Google Ads"
	case PlatformMeta:
		return "Meta"
	case PlatformTikTok:
		return "TikTok"
	}
	return string(p)
}

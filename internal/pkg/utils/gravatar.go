package utils

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultAvatarSize = 200
	// Gravatar serves at most 2048px
	maxAvatarSize = 2048
)

// GravatarURL returns the avatar of email at size pixels. Sizes outside
// 1..2048 fall back to DefaultAvatarSize. Unknown addresses get the
// mystery-person image.
func GravatarURL(email string, size int) string {
	if size <= 0 || size > maxAvatarSize {
		size = DefaultAvatarSize
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))

	q := url.Values{}
	q.Set("d", "mp")
	q.Set("s", strconv.Itoa(size))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}

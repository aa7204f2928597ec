// Package storage keeps uploaded product images on the local disk or in an
// S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

const productImagePrefix = "product-images"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Backend stores objects by key.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL is the public address of key.
	URL(key string) string
}

// ProductImageKey builds product-images/<userID>/<unixMillis><ext>.
func ProductImageKey(userID uint, now time.Time, ext string) string {
	return fmt.Sprintf("%s/%d/%d%s", productImagePrefix, userID, now.UnixMilli(), ext)
}

// OwnedBy reports whether key is a product image uploaded by userID.
func OwnedBy(key string, userID uint) bool {
	prefix := productImagePrefix + "/" + strconv.FormatUint(uint64(userID), 10) + "/"
	return strings.HasPrefix(key, prefix) && cleanKey(key) == key
}

// cleanKey normalizes key and returns "" for keys that escape the root.
func cleanKey(key string) string {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ""
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	return cleaned
}

// NewFromEnv builds the backend selected by STORAGE_DRIVER (local or s3).
func NewFromEnv(ctx context.Context) (Backend, error) {
	switch driver := strings.ToLower(env.GetEnv("STORAGE_DRIVER", "local")); driver {
	case "local", "":
		base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/") + constants.UploadsRoute
		b, err := NewLocalBackend(env.GetEnv("UPLOAD_DIR", constants.UploadsPath), base)
		if err != nil {
			return nil, err
		}
		log.Infof("[Storage] Using local backend in %s", b.root)
		return b, nil
	case "s3":
		cfg, err := LoadS3Config()
		if err != nil {
			return nil, err
		}
		return NewS3Backend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}

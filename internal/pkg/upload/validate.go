package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxImageSize is the largest product image accepted.
const MaxImageSize = 10 << 20

var (
	ErrUnsupportedFormat = errors.New("only JPG, JPEG, PNG, GIF and WEBP images are supported")
	ErrScriptableContent = errors.New("HTML, SVG and XML content is not allowed")
	ErrTooLarge          = errors.New("image exceeds the 10 MB limit")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	// SVG stays excluded until uploads are sanitized
}

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImageBySniff checks the provided filename (extension) and the first bytes (head)
// against a whitelist of image types. Returns detected mime or an error.
func ValidateImageBySniff(filename string, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedFormat
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", ErrScriptableContent
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		return "", ErrScriptableContent
	}

	if allowedMime[detected] {
		return detected, nil
	}
	return "", ErrUnsupportedFormat
}

// ExtensionFor returns the canonical file extension for a sniffed mime type.
func ExtensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// Package preview renders a product image into the frame an ad occupies on
// each platform.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/ManuelReschke/AdGenie/app/models"
)

const (
	maxSourceBytes = 20 << 20
	webpQuality    = 85
	backdropBlur   = 24
)

// Frame is the pixel size of a rendered preview.
type Frame struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var frames = map[models.Platform]Frame{
	models.PlatformGoogle: {Width: 1200, Height: 628},  // responsive display, 1.91:1
	models.PlatformMeta:   {Width: 1080, Height: 1080}, // feed, 1:1
	models.PlatformTikTok: {Width: 1080, Height: 1920}, // in-feed, 9:16
}

// FrameFor returns the preview size of platform.
func FrameFor(platform models.Platform) (Frame, error) {
	f, ok := frames[platform]
	if !ok {
		return Frame{}, fmt.Errorf("%w: %q", models.ErrUnknownPlatform, platform)
	}
	return f, nil
}

// Render decodes src, fits it into the platform frame over a blurred copy of
// itself and writes the result as WebP.
func Render(src io.Reader, platform models.Platform, dst io.Writer) error {
	frame, err := FrameFor(platform)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(src, maxSourceBytes))
	if err != nil {
		return fmt.Errorf("read source image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode source image: %w", err)
	}
	img = applyOrientation(img, readOrientation(data))

	out := Compose(img, frame)

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetPhoto, webpQuality)
	if err != nil {
		return fmt.Errorf("error creating encoder options: %w", err)
	}
	if err := webp.Encode(dst, out, options); err != nil {
		return fmt.Errorf("error encoding WebP image: %w", err)
	}
	return nil
}

// Compose places img centered in frame. Letterbox areas are filled with a
// blurred, cropped copy of the image.
func Compose(img image.Image, frame Frame) *image.NRGBA {
	backdrop := imaging.Fill(img, frame.Width, frame.Height, imaging.Center, imaging.Linear)
	backdrop = imaging.Blur(backdrop, backdropBlur)
	backdrop = imaging.AdjustBrightness(backdrop, -15)

	fg := imaging.Fit(img, frame.Width, frame.Height, imaging.Lanczos)
	return imaging.OverlayCenter(backdrop, fg, 1.0)
}

// readOrientation returns the EXIF orientation tag, 1 when there is none.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		log.Debugf("[Preview] Ignoring orientation tag %v", tag)
		return 1
	}
	return o
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// Package imaging normalizes uploaded captures before analysis: EXIF orientation is applied,
// large photos are downscaled and everything is re-encoded as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kirillkom/collector-appraisal/internal/core/domain"
)

const (
	DefaultMaxDimension = 1600
	jpegQuality         = 90
	maxSourcePixels     = 50_000_000
)

type Decoder struct {
	maxDimension int
}

func NewDecoder(maxDimension int) *Decoder {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Decoder{maxDimension: maxDimension}
}

func (d *Decoder) Decode(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("empty image data"))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnsupportedImageFormat, "decode image", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode image", fmt.Errorf("unsupported dimensions %dx%d", cfg.Width, cfg.Height))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnsupportedImageFormat, "decode image", err)
	}

	img = downscale(img, d.maxDimension)
	orientation := 1
	if format == "jpeg" {
		orientation = readOrientation(data)
		img = orient(img, orientation)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("image_normalized",
		"source_format", format,
		"source_width", cfg.Width,
		"source_height", cfg.Height,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"orientation", orientation,
		"bytes", buf.Len(),
	)
	return domain.NewImage(buf.Bytes(), "jpeg", bounds.Dx(), bounds.Dy()), nil
}

func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// downscale fits img into a limit x limit box, keeping the aspect ratio.
func downscale(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}

	scale := min(float64(limit)/float64(w), float64(limit)/float64(h))
	nw := max(1, min(limit, int(float64(w)*scale)))
	nh := max(1, min(limit, int(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// orient applies an EXIF orientation (1-8) so the result is upright.
func orient(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if orientation >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2:
				dx, dy = w-1-x, y
			case 3:
				dx, dy = w-1-x, h-1-y
			case 4:
				dx, dy = x, h-1-y
			case 5:
				dx, dy = y, x
			case 6:
				dx, dy = h-1-y, x
			case 7:
				dx, dy = h-1-y, w-1-x
			case 8:
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

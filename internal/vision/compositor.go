package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Compositor overlays garment artwork onto the torso area of a photo.
// Garments without artwork are drawn as a translucent swatch of their color.
type Compositor struct {
	Scale   float64 // garment width as a fraction of photo width
	OffsetY float64 // top of the garment as a fraction of photo height
	Opacity float64
	Quality int
}

// NewCompositor creates a compositor with default placement
func NewCompositor() *Compositor {
	return &Compositor{Scale: 0.6, OffsetY: 0.45, Opacity: 0.85, Quality: 90}
}

// ApplyOverlay implements workflows.Compositor and returns a JPEG
func (c *Compositor) ApplyOverlay(ctx context.Context, data []byte, garment *tryon.Garment) ([]byte, error) {
	if garment == nil {
		return nil, fmt.Errorf("no garment")
	}

	photo, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	bounds := photo.Bounds()

	width := max(int(float64(bounds.Dx())*c.Scale), 1)
	maxHeight := max(bounds.Dy()-int(float64(bounds.Dy())*c.OffsetY), 1)

	var art image.Image
	if len(garment.Image) > 0 {
		decoded, _, err := image.Decode(bytes.NewReader(garment.Image))
		if err != nil {
			return nil, fmt.Errorf("decode garment %s: %w", garment.ID, err)
		}
		art = imaging.Resize(decoded, width, 0, imaging.Lanczos)
		if art.Bounds().Dy() > maxHeight {
			art = imaging.Fit(decoded, width, maxHeight, imaging.Lanczos)
		}
	} else {
		art = imaging.New(width, maxHeight, ParseColor(garment.Color))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pos := image.Pt(
		bounds.Min.X+(bounds.Dx()-art.Bounds().Dx())/2,
		bounds.Min.Y+int(float64(bounds.Dy())*c.OffsetY),
	)
	composed := imaging.Overlay(photo, art, pos, c.Opacity)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, composed, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("JPEG encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

var namedColors = map[string]color.NRGBA{
	"black":  {0x11, 0x11, 0x11, 0xFF},
	"white":  {0xF5, 0xF5, 0xF5, 0xFF},
	"gray":   {0x80, 0x80, 0x80, 0xFF},
	"grey":   {0x80, 0x80, 0x80, 0xFF},
	"red":    {0xC0, 0x1C, 0x28, 0xFF},
	"pink":   {0xE8, 0x8A, 0xB4, 0xFF},
	"purple": {0x7E, 0x3F, 0xBF, 0xFF},
	"blue":   {0x1F, 0x5F, 0xBF, 0xFF},
	"navy":   {0x1B, 0x26, 0x4F, 0xFF},
	"green":  {0x2E, 0x7D, 0x32, 0xFF},
	"yellow": {0xF2, 0xC9, 0x4C, 0xFF},
	"beige":  {0xD8, 0xC3, 0xA5, 0xFF},
	"brown":  {0x6D, 0x4C, 0x41, 0xFF},
}

// ParseColor understands "#rrggbb", "rrggbb" and a few color names.
// Anything else is gray.
func ParseColor(s string) color.NRGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 6 {
		if v, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
		}
	}
	return namedColors["gray"]
}

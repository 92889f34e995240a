package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Skin range in YCbCr, the same bounds the OpenCV portrait detector uses
const (
	skinCrMin = 133
	skinCrMax = 173
	skinCbMin = 77
	skinCbMax = 127
)

// SkinDetector reports a face when enough of the image falls in the skin tone range.
// It is a cheap heuristic for hosts without OpenCV.
type SkinDetector struct {
	MinRatio float64 // fraction of skin pixels required, default 0.15
	MaxSide  int     // images are downscaled to fit this square first, default 256
}

// NewSkinDetector creates a detector with default thresholds
func NewSkinDetector() *SkinDetector {
	return &SkinDetector{MinRatio: 0.15, MaxSide: 256}
}

// DetectFace implements workflows.Detector
func (d *SkinDetector) DetectFace(ctx context.Context, data []byte) (bool, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ratio := SkinRatio(imaging.Fit(img, d.MaxSide, d.MaxSide, imaging.Box))
	return ratio > d.MinRatio, nil
}

// SkinRatio returns the fraction of pixels in img that fall in the skin range
func SkinRatio(img image.Image) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	skin := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			_, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			if cr >= skinCrMin && cr <= skinCrMax && cb >= skinCbMin && cb <= skinCbMax {
				skin++
			}
		}
	}
	return float64(skin) / float64(total)
}

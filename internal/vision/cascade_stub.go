//go:build !gocv

package vision

import (
	"context"
	"errors"
)

// ErrGoCVDisabled is returned by the cascade detector in builds without the gocv tag
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

// CascadeDetector is a placeholder for builds without OpenCV
type CascadeDetector struct{}

// NewCascadeDetector returns the placeholder detector
func NewCascadeDetector(path string) *CascadeDetector {
	return &CascadeDetector{}
}

// Warmup always fails so hosts can fall back early
func (d *CascadeDetector) Warmup(ctx context.Context) error {
	return ErrGoCVDisabled
}

// DetectFace always fails
func (d *CascadeDetector) DetectFace(ctx context.Context, data []byte) (bool, error) {
	return false, ErrGoCVDisabled
}

// Close is a no-op
func (d *CascadeDetector) Close() error {
	return nil
}

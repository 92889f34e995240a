//go:build gocv

package vision

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// CascadeDetector finds faces with an OpenCV Haar cascade
type CascadeDetector struct {
	path string

	mu         sync.Mutex
	classifier *gocv.CascadeClassifier
}

// NewCascadeDetector creates a detector for the cascade file at path.
// The cascade is loaded lazily, or eagerly by Warmup.
func NewCascadeDetector(path string) *CascadeDetector {
	if path == "" {
		path = "haarcascade_frontalface_default.xml"
	}
	return &CascadeDetector{path: path}
}

// Warmup loads the cascade
func (d *CascadeDetector) Warmup(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

func (d *CascadeDetector) load() error {
	if d.classifier != nil {
		return nil
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(d.path) {
		classifier.Close()
		return fmt.Errorf("failed to load cascade %s", d.path)
	}
	d.classifier = &classifier
	return nil
}

// DetectFace implements workflows.Detector
func (d *CascadeDetector) DetectFace(ctx context.Context, data []byte) (bool, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return false, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return false, fmt.Errorf("decode image: empty matrix")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	if err := ctx.Err(); err != nil {
		return false, err
	}

	// CascadeClassifier is not safe for concurrent use
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return false, err
	}
	return len(d.classifier.DetectMultiScale(gray)) > 0, nil
}

// Close releases the cascade
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.classifier == nil {
		return nil
	}
	err := d.classifier.Close()
	d.classifier = nil
	return err
}

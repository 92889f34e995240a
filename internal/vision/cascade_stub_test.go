//go:build !gocv

package vision

import (
	"context"
	"errors"
	"testing"
)

func TestCascadeDetectorStub(t *testing.T) {
	d := NewCascadeDetector("")
	if _, err := d.DetectFace(context.Background(), nil); !errors.Is(err, ErrGoCVDisabled) {
		t.Errorf("DetectFace() error = %v, want ErrGoCVDisabled", err)
	}
	if err := d.Warmup(context.Background()); !errors.Is(err, ErrGoCVDisabled) {
		t.Errorf("Warmup() error = %v, want ErrGoCVDisabled", err)
	}
}

package vision

import (
	"context"
	"time"

	"github.com/tendant/tryon-pipeline/internal/workflows"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Sleep waits for d or until ctx is done. The timer is always released.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SlowDetector adds fixed latency in front of a detector, and to its warm-up
type SlowDetector struct {
	workflows.Detector
	Delay       time.Duration
	WarmupDelay time.Duration
}

// DetectFace waits Delay, then detects
func (s *SlowDetector) DetectFace(ctx context.Context, data []byte) (bool, error) {
	if err := Sleep(ctx, s.Delay); err != nil {
		return false, err
	}
	return s.Detector.DetectFace(ctx, data)
}

// Warmup waits WarmupDelay, then warms the wrapped detector if it supports it
func (s *SlowDetector) Warmup(ctx context.Context) error {
	if err := Sleep(ctx, s.WarmupDelay); err != nil {
		return err
	}
	if w, ok := s.Detector.(workflows.Warmer); ok {
		return w.Warmup(ctx)
	}
	return nil
}

// SlowCompositor adds fixed latency in front of a compositor
type SlowCompositor struct {
	workflows.Compositor
	Delay time.Duration
}

// ApplyOverlay waits Delay, then composites
func (s *SlowCompositor) ApplyOverlay(ctx context.Context, data []byte, garment *tryon.Garment) ([]byte, error) {
	if err := Sleep(ctx, s.Delay); err != nil {
		return nil, err
	}
	return s.Compositor.ApplyOverlay(ctx, data, garment)
}

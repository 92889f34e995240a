package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Camera opens a live video stream
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera stream
type Stream interface {
	// Snapshot encodes the current frame as JPEG
	Snapshot() ([]byte, error)
	Close() error
}

// CameraCapture acquires images by snapshotting an open camera stream.
// Start negotiates the stream; captures are refused until it is ready.
type CameraCapture struct {
	camera Camera
	logger *zap.Logger

	mu      sync.Mutex
	stream  Stream
	openErr error
}

// NewCameraCapture creates the camera strategy
func NewCameraCapture(camera Camera, logger *zap.Logger) *CameraCapture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CameraCapture{camera: camera, logger: logger}
}

// Mode returns tryon.ModeCamera
func (c *CameraCapture) Mode() tryon.Mode {
	return tryon.ModeCamera
}

// Finalized is false: snapshots go through the pipeline
func (c *CameraCapture) Finalized() bool {
	return false
}

// Start opens the camera stream. It blocks until the stream is ready or fails.
func (c *CameraCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stream != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.camera == nil {
		return c.fail(errors.New("no camera configured"))
	}

	stream, err := c.camera.Open(ctx)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		// stopped while negotiating
		stream.Close()
		return ctx.Err()
	}
	if c.stream != nil {
		stream.Close()
		return nil
	}
	c.stream = stream
	c.openErr = nil
	c.logger.Debug("camera stream ready")
	return nil
}

func (c *CameraCapture) fail(err error) error {
	c.mu.Lock()
	c.openErr = err
	c.mu.Unlock()
	c.logger.Warn("camera stream unavailable", zap.Error(err))
	return newError(ErrCameraUnavailable, err)
}

// Stop closes the stream if one is open. Idempotent.
func (c *CameraCapture) Stop() error {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.openErr = nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}
	return stream.Close()
}

// Validate fails with ErrCameraUnavailable until the stream is ready
func (c *CameraCapture) Validate(req Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return newError(ErrCameraUnavailable, c.openErr)
	}
	return nil
}

// Acquire snapshots the current frame
func (c *CameraCapture) Acquire(ctx context.Context, req Request) (*tryon.RawImage, error) {
	c.mu.Lock()
	stream, openErr := c.stream, c.openErr
	c.mu.Unlock()

	if stream == nil {
		return nil, newError(ErrCameraUnavailable, openErr)
	}

	data, err := stream.Snapshot()
	if err != nil {
		return nil, newError(ErrCaptureError, err)
	}
	if len(data) == 0 {
		return nil, newError(ErrCaptureError, errors.New("no frame available"))
	}

	return tryon.NewRawImage(data, tryon.MimeJPEG, tryon.ModeCamera, ""), nil
}

// FrameSource returns the latest decoded frame, or nil when none is available yet
type FrameSource func() (image.Image, error)

// FrameCamera adapts a frame source into a Camera that produces JPEG snapshots
// constrained to Width x Height.
type FrameCamera struct {
	Source  FrameSource
	Width   int
	Height  int
	Quality int
}

// NewFrameCamera creates a 640x480 camera over source
func NewFrameCamera(source FrameSource) *FrameCamera {
	return &FrameCamera{Source: source, Width: 640, Height: 480, Quality: 90}
}

// Open returns a stream over the frame source
func (f *FrameCamera) Open(ctx context.Context) (Stream, error) {
	if f.Source == nil {
		return nil, errors.New("no frame source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &frameStream{cam: f}, nil
}

type frameStream struct {
	cam *FrameCamera
}

func (s *frameStream) Snapshot() ([]byte, error) {
	frame, err := s.cam.Source()
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, nil
	}

	fitted := imaging.Fit(frame, s.cam.Width, s.cam.Height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitted, &jpeg.Options{Quality: s.cam.Quality}); err != nil {
		return nil, fmt.Errorf("JPEG encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *frameStream) Close() error {
	return nil
}

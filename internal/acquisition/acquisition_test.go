package acquisition

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to create test JPEG: %v", err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to create test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestUploadValidate(t *testing.T) {
	u := NewUpload(UploadConfig{}, nil)
	photo := testJPEG(t, 8, 8)

	tooLarge := NewFile("big.jpg", tryon.MimeJPEG, photo)
	tooLarge.Size = 6 << 20

	tests := []struct {
		name    string
		files   []File
		wantErr error
	}{
		{
			name:    "no file",
			files:   nil,
			wantErr: ErrNoFile,
		},
		{
			name:    "multiple files",
			files:   []File{NewFile("a.jpg", tryon.MimeJPEG, photo), NewFile("b.jpg", tryon.MimeJPEG, photo)},
			wantErr: ErrMultipleFiles,
		},
		{
			name:    "six MiB file",
			files:   []File{tooLarge},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "non-image file",
			files:   []File{NewFile("notes.txt", "text/plain", []byte("hello"))},
			wantErr: ErrInvalidType,
		},
		{
			name:    "jpg alias accepted",
			files:   []File{NewFile("a.jpg", "image/jpg", photo)},
			wantErr: nil,
		},
		{
			name:    "jpeg accepted",
			files:   []File{NewFile("a.jpg", tryon.MimeJPEG, photo)},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.Validate(Request{Files: tt.files})
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			var acqErr *Error
			if !errors.As(err, &acqErr) {
				t.Errorf("Validate() error should be *Error, got %T", err)
			}
		})
	}
}

func TestUploadAcquire(t *testing.T) {
	u := NewUpload(UploadConfig{}, nil)
	ctx := context.Background()

	t.Run("jpeg decoded", func(t *testing.T) {
		data := testJPEG(t, 8, 8)
		img, err := u.Acquire(ctx, Request{Files: []File{NewFile("me.jpg", tryon.MimeJPEG, data)}})
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if img.Mode != tryon.ModeUpload {
			t.Errorf("Mode = %s, want upload", img.Mode)
		}
		if img.MimeType != tryon.MimeJPEG {
			t.Errorf("MimeType = %s, want image/jpeg", img.MimeType)
		}
		if !bytes.Equal(img.Data, data) {
			t.Errorf("Data mismatch")
		}
		if img.Filename != "me.jpg" {
			t.Errorf("Filename = %s", img.Filename)
		}
	})

	t.Run("png content reported as jpeg is sniffed", func(t *testing.T) {
		img, err := u.Acquire(ctx, Request{Files: []File{NewFile("me.jpg", tryon.MimeJPEG, testPNG(t))}})
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if img.MimeType != tryon.MimePNG {
			t.Errorf("MimeType = %s, want image/png", img.MimeType)
		}
	})

	t.Run("garbage content is a read error", func(t *testing.T) {
		_, err := u.Acquire(ctx, Request{Files: []File{NewFile("me.jpg", tryon.MimeJPEG, []byte{0x00, 0x01, 0x02})}})
		if !errors.Is(err, ErrReadError) {
			t.Errorf("Acquire() error = %v, want ErrReadError", err)
		}
	})

	t.Run("truncated body is a read error", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for i := range img.Pix {
			img.Pix[i] = uint8(i * 7919 % 251)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			t.Fatalf("Failed to create test JPEG: %v", err)
		}
		data := buf.Bytes()
		if _, _, err := image.DecodeConfig(bytes.NewReader(data[:len(data)/2])); err != nil {
			t.Fatalf("Expected header to survive truncation: %v", err)
		}

		_, err := u.Acquire(ctx, Request{Files: []File{NewFile("me.jpg", tryon.MimeJPEG, data[:len(data)/2])}})
		if !errors.Is(err, ErrReadError) {
			t.Errorf("Acquire() error = %v, want ErrReadError", err)
		}
	})

	t.Run("open failure is a read error", func(t *testing.T) {
		f := NewFile("me.jpg", tryon.MimeJPEG, nil)
		cause := errors.New("disk gone")
		f.Open = func() (io.ReadCloser, error) { return nil, cause }
		_, err := u.Acquire(ctx, Request{Files: []File{f}})
		if !errors.Is(err, ErrReadError) || !errors.Is(err, cause) {
			t.Errorf("Acquire() error = %v, want ErrReadError wrapping cause", err)
		}
	})

	t.Run("under-reported size still capped", func(t *testing.T) {
		small := NewUpload(UploadConfig{MaxBytes: 16}, nil)
		f := NewFile("me.jpg", tryon.MimeJPEG, testJPEG(t, 8, 8))
		f.Size = 1
		_, err := small.Acquire(ctx, Request{Files: []File{f}})
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("Acquire() error = %v, want ErrFileTooLarge", err)
		}
	})
}

func TestUploadWildcardTypes(t *testing.T) {
	u := NewUpload(UploadConfig{AllowedTypes: []string{"image/*"}}, nil)
	if err := u.Validate(Request{Files: []File{NewFile("a.heic", "image/heic", []byte{1})}}); err != nil {
		t.Errorf("wildcard should accept image/heic: %v", err)
	}
	if err := u.Validate(Request{Files: []File{NewFile("a.pdf", "application/pdf", []byte{1})}}); !errors.Is(err, ErrInvalidType) {
		t.Errorf("wildcard should reject application/pdf: %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selfie.png")
	data := testPNG(t)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if f.MimeType != tryon.MimePNG {
		t.Errorf("MimeType = %q, want image/png", f.MimeType)
	}
	if f.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", f.Size, len(data))
	}

	img, err := NewUpload(UploadConfig{}, nil).Acquire(context.Background(), Request{Files: []File{f}})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if img.Filename != "selfie.png" {
		t.Errorf("Filename = %q", img.Filename)
	}
}

type fakeCamera struct {
	err    error
	stream *fakeStream
}

func (c *fakeCamera) Open(ctx context.Context) (Stream, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

type fakeStream struct {
	frame  []byte
	err    error
	closed bool
}

func (s *fakeStream) Snapshot() ([]byte, error) { return s.frame, s.err }
func (s *fakeStream) Close() error              { s.closed = true; return nil }

func TestCameraCapture(t *testing.T) {
	ctx := context.Background()

	t.Run("capture refused before stream is ready", func(t *testing.T) {
		c := NewCameraCapture(&fakeCamera{stream: &fakeStream{frame: []byte{1}}}, nil)
		if err := c.Validate(Request{}); !errors.Is(err, ErrCameraUnavailable) {
			t.Errorf("Validate() error = %v, want ErrCameraUnavailable", err)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		denied := errors.New("permission denied")
		c := NewCameraCapture(&fakeCamera{err: denied}, nil)
		err := c.Start(ctx)
		if !errors.Is(err, ErrCameraUnavailable) {
			t.Fatalf("Start() error = %v, want ErrCameraUnavailable", err)
		}
		if err := c.Validate(Request{}); !errors.Is(err, denied) {
			t.Errorf("Validate() should carry the open error, got %v", err)
		}
	})

	t.Run("snapshot", func(t *testing.T) {
		stream := &fakeStream{frame: []byte{0xFF, 0xD8}}
		c := NewCameraCapture(&fakeCamera{stream: stream}, nil)
		if err := c.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := c.Validate(Request{}); err != nil {
			t.Fatalf("Validate() after Start error = %v", err)
		}
		img, err := c.Acquire(ctx, Request{})
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if img.Mode != tryon.ModeCamera || img.MimeType != tryon.MimeJPEG {
			t.Errorf("unexpected image metadata: %+v", img)
		}

		if err := c.Stop(); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		if !stream.closed {
			t.Error("Stop() should close the stream")
		}
		if err := c.Validate(Request{}); !errors.Is(err, ErrCameraUnavailable) {
			t.Errorf("Validate() after Stop error = %v, want ErrCameraUnavailable", err)
		}
		if err := c.Stop(); err != nil {
			t.Errorf("second Stop() error = %v", err)
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		c := NewCameraCapture(&fakeCamera{stream: &fakeStream{}}, nil)
		if err := c.Start(ctx); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if _, err := c.Acquire(ctx, Request{}); !errors.Is(err, ErrCaptureError) {
			t.Errorf("Acquire() error = %v, want ErrCaptureError", err)
		}
	})
}

func TestFrameCamera(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 1280, 960))
	cam := NewFrameCamera(func() (image.Image, error) { return frame, nil })

	stream, err := cam.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := stream.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("snapshot is not an image: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %s, want jpeg", format)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("snapshot is %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
}

func TestAR(t *testing.T) {
	a := NewAR()
	if !a.Finalized() {
		t.Error("AR captures should be finalized")
	}
	if err := a.Validate(Request{}); !errors.Is(err, ErrCaptureError) {
		t.Errorf("Validate() error = %v, want ErrCaptureError", err)
	}

	img, err := a.Acquire(context.Background(), Request{Payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if img.Mode != tryon.ModeAR || img.MimeType != tryon.MimeJPEG {
		t.Errorf("unexpected image metadata: %+v", img)
	}
}

package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// DefaultMaxUploadBytes is the upload ceiling (5 MiB)
const DefaultMaxUploadBytes = 5 << 20

// DefaultAllowedTypes are the image types accepted by uploads
var DefaultAllowedTypes = []string{tryon.MimeJPEG, tryon.MimePNG, tryon.MimeWebP}

// UploadConfig bounds what an upload may contain
type UploadConfig struct {
	MaxBytes     int64
	AllowedTypes []string // exact types or wildcards like "image/*"
}

// WithDefaults fills in default values for unset fields
func (c *UploadConfig) WithDefaults() {
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxUploadBytes
	}
	if len(c.AllowedTypes) == 0 {
		c.AllowedTypes = DefaultAllowedTypes
	}
}

// Upload acquires images from user-selected files
type Upload struct {
	cfg    UploadConfig
	logger *zap.Logger
}

// NewUpload creates the upload strategy
func NewUpload(cfg UploadConfig, logger *zap.Logger) *Upload {
	cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upload{cfg: cfg, logger: logger}
}

// Mode returns tryon.ModeUpload
func (u *Upload) Mode() tryon.Mode {
	return tryon.ModeUpload
}

// Finalized is false: uploads go through the pipeline
func (u *Upload) Finalized() bool {
	return false
}

// Validate rejects empty, multi-file, oversized and non-image uploads
func (u *Upload) Validate(req Request) error {
	switch {
	case len(req.Files) == 0:
		return newError(ErrNoFile, nil)
	case len(req.Files) > 1:
		return newError(ErrMultipleFiles, fmt.Errorf("got %d files", len(req.Files)))
	}

	f := req.Files[0]
	if f.Size > u.cfg.MaxBytes {
		return newError(ErrFileTooLarge, fmt.Errorf("%d bytes exceeds limit of %d", f.Size, u.cfg.MaxBytes))
	}
	if !u.allowed(f.MimeType) {
		return newError(ErrInvalidType, fmt.Errorf("type %q not accepted", f.MimeType))
	}
	if f.Open == nil {
		return newError(ErrReadError, fmt.Errorf("file %q has no content", f.Name))
	}

	return nil
}

// Acquire reads and fully decodes the file, checking that its content is an accepted image
func (u *Upload) Acquire(ctx context.Context, req Request) (*tryon.RawImage, error) {
	if err := u.Validate(req); err != nil {
		return nil, err
	}
	f := req.Files[0]

	rc, err := f.Open()
	if err != nil {
		return nil, newError(ErrReadError, err)
	}
	defer rc.Close()

	// Size is caller-reported; never trust it past the ceiling
	data, err := io.ReadAll(io.LimitReader(rc, u.cfg.MaxBytes+1))
	if err != nil {
		return nil, newError(ErrReadError, err)
	}
	if int64(len(data)) > u.cfg.MaxBytes {
		return nil, newError(ErrFileTooLarge, fmt.Errorf("content exceeds limit of %d bytes", u.cfg.MaxBytes))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrReadError, fmt.Errorf("decode %s: %w", f.Name, err))
	}

	sniffed := "image/" + format
	if !u.allowed(sniffed) {
		return nil, newError(ErrInvalidType, fmt.Errorf("content is %s", format))
	}

	u.logger.Debug("upload decoded",
		zap.String("file", f.Name),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("bytes", len(data)))

	return tryon.NewRawImage(data, sniffed, tryon.ModeUpload, f.Name), nil
}

func (u *Upload) allowed(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	if mt == "image/jpg" {
		mt = tryon.MimeJPEG
	}

	for _, a := range u.cfg.AllowedTypes {
		a = strings.ToLower(a)
		if a == mt {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "/*"); ok && strings.HasPrefix(mt, prefix+"/") {
			return true
		}
	}
	return false
}

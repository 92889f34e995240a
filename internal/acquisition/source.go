// Package acquisition normalizes the three ways of obtaining a photo
// (file upload, camera snapshot, AR capture) into a single tryon.RawImage.
package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Strategy acquires a still image for one mode
type Strategy interface {
	// Mode returns the acquisition mode this strategy serves
	Mode() tryon.Mode

	// Validate checks a request synchronously, before any work starts
	Validate(req Request) error

	// Acquire produces the raw image. It may block on I/O.
	Acquire(ctx context.Context, req Request) (*tryon.RawImage, error)

	// Finalized reports whether acquired images are already composited
	// and must bypass the processing pipeline
	Finalized() bool
}

// Request carries the caller's input for one acquisition
type Request struct {
	Files    []File // upload
	Payload  []byte // AR capture
	MimeType string // AR capture
}

// File is a file-like object handed over by the caller's file selection UI
type File struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// NewFile wraps an in-memory payload as a File
func NewFile(name, mimeType string, data []byte) File {
	return File{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// OpenFile describes a file on disk. The MIME type is derived from the extension.
func OpenFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("not a file: %s", path)
	}

	return File{
		Name:     filepath.Base(path),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
		Size:     info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

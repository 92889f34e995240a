package acquisition

import (
	"context"
	"errors"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// AR accepts images handed back by the augmented-reality capture surface.
// Those images are already composited, so they bypass detection and overlay.
type AR struct{}

// NewAR creates the AR strategy
func NewAR() *AR {
	return &AR{}
}

// Mode returns tryon.ModeAR
func (a *AR) Mode() tryon.Mode {
	return tryon.ModeAR
}

// Finalized is true
func (a *AR) Finalized() bool {
	return true
}

// Validate requires a non-empty payload
func (a *AR) Validate(req Request) error {
	if len(req.Payload) == 0 {
		return newError(ErrCaptureError, errors.New("AR surface returned no image"))
	}
	return nil
}

// Acquire wraps the payload as a raw image
func (a *AR) Acquire(ctx context.Context, req Request) (*tryon.RawImage, error) {
	if err := a.Validate(req); err != nil {
		return nil, err
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = tryon.MimeJPEG
	}
	return tryon.NewRawImage(req.Payload, mimeType, tryon.ModeAR, ""), nil
}

package tryon

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode identifies how the user's photo is acquired
type Mode string

// Mode constants
const (
	ModeUpload Mode = "upload"
	ModeCamera Mode = "camera"
	ModeAR     Mode = "ar"
)

// Valid reports whether m is one of the known acquisition modes
func (m Mode) Valid() bool {
	switch m {
	case ModeUpload, ModeCamera, ModeAR:
		return true
	}
	return false
}

// Stage is the position of the current acquisition in the try-on workflow
type Stage string

// Stage constants
const (
	StageIdle       Stage = "idle"
	StageAcquiring  Stage = "acquiring"
	StageDetecting  Stage = "detecting"
	StageOverlaying Stage = "overlaying"
	StageReady      Stage = "ready"
	StageFailed     Stage = "failed"
)

// Garment references the wardrobe item being tried on.
// It is owned by the caller and never mutated by the workflow.
type Garment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Color        string `json:"color"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Image        []byte `json:"-"` // artwork used by the compositor, optional
}

// RawImage is an encoded still image plus where it came from. Immutable once created.
type RawImage struct {
	ID         uuid.UUID `json:"id"`
	Data       []byte    `json:"-"`
	MimeType   string    `json:"mime_type"`
	Mode       Mode      `json:"mode"`
	Filename   string    `json:"filename,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewRawImage stamps an encoded image with an ID and capture time
func NewRawImage(data []byte, mimeType string, mode Mode, filename string) *RawImage {
	return &RawImage{
		ID:         uuid.New(),
		Data:       data,
		MimeType:   mimeType,
		Mode:       mode,
		Filename:   filename,
		CapturedAt: time.Now(),
	}
}

// DataURL renders the image as a base64 data URL
func (r *RawImage) DataURL() string {
	return DataURL(r.MimeType, r.Data)
}

// StageTiming records entry and exit of one pipeline stage.
// Times come from time.Now and carry monotonic readings.
type StageTiming struct {
	Stage    Stage     `json:"stage"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Duration returns the elapsed time spent in the stage
func (t StageTiming) Duration() time.Duration {
	return t.Finished.Sub(t.Started)
}

// Result is the composited try-on image produced by a successful run
type Result struct {
	Image        []byte        `json:"-"`
	MimeType     string        `json:"mime_type"`
	FaceDetected bool          `json:"face_detected"`
	Timings      []StageTiming `json:"timings,omitempty"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// DataURL renders the result image as a base64 data URL
func (r *Result) DataURL() string {
	return DataURL(r.MimeType, r.Image)
}

// DataURL encodes data as a data URL with the given MIME type
func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// MIME types produced and accepted by the workflow
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

package acquisition

import "errors"

var (
	// ErrNoFile is returned when an upload carries no file at all
	ErrNoFile = errors.New("no file supplied")

	// ErrFileTooLarge is returned when an upload exceeds the configured byte ceiling
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidType is returned when an upload is not an accepted image type
	ErrInvalidType = errors.New("invalid file type")

	// ErrMultipleFiles is returned when more than one file is supplied in one upload
	ErrMultipleFiles = errors.New("multiple files supplied")

	// ErrReadError is returned when an accepted upload cannot be read or decoded
	ErrReadError = errors.New("failed to read file")

	// ErrCameraUnavailable is returned when the camera stream could not be opened
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrCaptureError is returned when no frame could be captured
	ErrCaptureError = errors.New("capture failed")
)

// Error is an acquisition failure classified by one of the sentinel kinds above.
// errors.Is matches both the kind and the underlying cause.
type Error struct {
	Kind error
	Err  error
}

func newError(kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

package controller

import "errors"

var (
	// ErrClosed is returned when no session is open
	ErrClosed = errors.New("try-on session is not open")

	// ErrUnknownMode is returned for a mode with no acquisition strategy
	ErrUnknownMode = errors.New("unknown acquisition mode")

	// ErrModeMismatch is returned when acquiring through a mode other than the active one
	ErrModeMismatch = errors.New("acquisition mode is not active")

	// ErrNothingToRetry is returned when there is no failed run with an image to retry
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrNotRetryable is returned when retrying cannot succeed without caller action
	ErrNotRetryable = errors.New("run is not retryable")

	// ErrNoExporter is returned when export is requested but no exporter was configured
	ErrNoExporter = errors.New("no exporter configured")

	// ErrModelsUnavailable wraps warm-up failures
	ErrModelsUnavailable = errors.New("face detection models unavailable")
)

package workflows

import (
	"errors"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidRequest is returned when the request carries no image
	ErrInvalidRequest = errors.New("invalid workflow request")

	// ErrDetectionFailed is returned when the face detector errors
	ErrDetectionFailed = errors.New("face detection failed")

	// ErrNoGarmentSelected is returned when there is no garment to overlay.
	// It is terminal: retrying without selecting a garment cannot succeed.
	ErrNoGarmentSelected = errors.New("no garment selected")

	// ErrOverlayFailed is returned when the compositor errors or returns nothing
	ErrOverlayFailed = errors.New("overlay failed")
)

// StageError is a pipeline failure tagged with the stage it happened in
type StageError struct {
	Stage tryon.Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	msg := string(e.Stage) + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

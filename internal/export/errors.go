package export

import "errors"

var (
	// ErrNoResult is returned when there is no completed result to export
	ErrNoResult = errors.New("no result to export")

	// ErrNoSaver is returned when the host supplied no file-save capability
	ErrNoSaver = errors.New("file saving unavailable")

	// ErrSaveFailed is returned when the host failed to save the file
	ErrSaveFailed = errors.New("failed to save file")

	// ErrShareUnavailable is returned when neither native share nor a clipboard exists
	ErrShareUnavailable = errors.New("sharing unavailable")

	// ErrClipboardFailed is returned when the clipboard fallback fails
	ErrClipboardFailed = errors.New("failed to copy to clipboard")
)

// Error is an export failure classified by one of the sentinel kinds above
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

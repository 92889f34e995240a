package controller

import (
	"errors"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/export"
	"github.com/tendant/tryon-pipeline/internal/workflows"
)

var messages = []struct {
	kind error
	text string
}{
	{acquisition.ErrFileTooLarge, "File size must be less than 5MB"},
	{acquisition.ErrInvalidType, "Only image files are allowed"},
	{acquisition.ErrMultipleFiles, "Invalid file"},
	{acquisition.ErrNoFile, "Invalid file"},
	{acquisition.ErrReadError, "Failed to read file"},
	{acquisition.ErrCameraUnavailable, "Failed to access camera. Please check permissions or try uploading a photo instead."},
	{acquisition.ErrCaptureError, "Failed to capture image"},
	{workflows.ErrDetectionFailed, "Failed to process image. Please try again or use AR mode."},
	{workflows.ErrNoGarmentSelected, "No wardrobe item selected"},
	{workflows.ErrOverlayFailed, "Failed to apply virtual try-on. Please try again or use AR mode."},
	{ErrModelsUnavailable, "Failed to load face detection models. Please try the AR option instead."},
	{export.ErrNoResult, "There is no try-on result yet"},
	{export.ErrShareUnavailable, "Sharing is not available on this device"},
	{export.ErrClipboardFailed, "Could not copy the image to the clipboard"},
	{export.ErrSaveFailed, "Failed to save image"},
}

// Message maps an error to the text shown to the user. nil maps to "".
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.kind) {
			return m.text
		}
	}
	return "Something went wrong. Please try again."
}

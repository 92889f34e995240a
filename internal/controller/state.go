package controller

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// ModelStatus tracks warm-up of the detection models
type ModelStatus string

// ModelStatus constants
const (
	ModelsIdle    ModelStatus = "idle"
	ModelsLoading ModelStatus = "loading"
	ModelsReady   ModelStatus = "ready"
	ModelsFailed  ModelStatus = "failed"
)

// State is a snapshot of the workflow.
//
// Invariants:
//   - Result != nil implies Stage == ready
//   - Stage == failed implies Err != nil
//   - Stage in {detecting, overlaying, ready} implies RawImage != nil
//   - Err != nil implies Stage in {idle, failed}; idle only for rejected acquisitions
type State struct {
	Session     uuid.UUID
	Open        bool
	Mode        tryon.Mode
	Garment     *tryon.Garment
	Generation  uint64
	Stage       tryon.Stage
	RawImage    *tryon.RawImage
	Result      *tryon.Result
	Err         error
	Models      ModelStatus
	ModelsErr   error
	CameraReady bool
}

// Busy reports whether an acquisition or pipeline run is in flight
func (s State) Busy() bool {
	switch s.Stage {
	case tryon.StageAcquiring, tryon.StageDetecting, tryon.StageOverlaying:
		return true
	}
	return false
}

// Message is the single user-visible message for the current error, if any
func (s State) Message() string {
	return Message(s.Err)
}

// Check returns an error describing the first violated invariant
func (s State) Check() error {
	if s.Result != nil && s.Stage != tryon.StageReady {
		return fmt.Errorf("result present in stage %s", s.Stage)
	}
	if s.Stage == tryon.StageFailed && s.Err == nil {
		return fmt.Errorf("failed stage without error")
	}
	if s.Err != nil && s.Stage != tryon.StageIdle && s.Stage != tryon.StageFailed {
		return fmt.Errorf("error present in stage %s", s.Stage)
	}
	switch s.Stage {
	case tryon.StageDetecting, tryon.StageOverlaying, tryon.StageReady:
		if s.RawImage == nil {
			return fmt.Errorf("stage %s without raw image", s.Stage)
		}
	}
	return nil
}

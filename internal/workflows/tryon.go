package workflows

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/metrics"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// TryOnWorkflow runs face detection followed by garment overlay
type TryOnWorkflow struct {
	detector   Detector
	compositor Compositor
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a TryOnWorkflow
type Option func(*TryOnWorkflow)

// WithLogger sets the workflow logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *TryOnWorkflow) { w.logger = logger }
}

// WithMetrics sets the collectors stage timings are reported to
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *TryOnWorkflow) { w.metrics = m }
}

// WithClock overrides time.Now for stage timings
func WithClock(now func() time.Time) Option {
	return func(w *TryOnWorkflow) { w.now = now }
}

// NewTryOnWorkflow creates a new try-on workflow
func NewTryOnWorkflow(detector Detector, compositor Compositor, opts ...Option) *TryOnWorkflow {
	w := &TryOnWorkflow{
		detector:   detector,
		compositor: compositor,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the workflow name
func (w *TryOnWorkflow) Name() string {
	return "TryOnWorkflow"
}

// Warmup forwards to capabilities that load models
func (w *TryOnWorkflow) Warmup(ctx context.Context) error {
	for _, c := range []any{w.detector, w.compositor} {
		if warmer, ok := c.(Warmer); ok {
			if err := warmer.Warmup(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Execute runs detection then overlay.
// A negative detection does not stop the run; only a detector error does.
func (w *TryOnWorkflow) Execute(wctx *WorkflowContext) (*tryon.Result, error) {
	if wctx.Image == nil || len(wctx.Image.Data) == 0 {
		return nil, ErrInvalidRequest
	}
	if wctx.RunID == "" {
		wctx.RunID = uuid.NewString()
	}

	ctx := wctx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	obs := wctx.observer()
	log := w.logger.With(zap.String("run_id", wctx.RunID), zap.String("mode", string(wctx.Image.Mode)))
	timings := make([]tryon.StageTiming, 0, 2)

	// Stage 1: detection
	log.Debug("detection started")
	timing := w.enter(obs, tryon.StageDetecting)
	faceDetected, err := w.detector.DetectFace(ctx, wctx.Image.Data)
	timing = w.exit(obs, timing, err)
	timings = append(timings, timing)
	if err != nil {
		log.Warn("detection failed", zap.Error(err), zap.Duration("elapsed", timing.Duration()))
		return nil, &StageError{Stage: tryon.StageDetecting, Kind: ErrDetectionFailed, Err: err}
	}
	if !faceDetected {
		log.Info("no face detected, continuing to overlay")
	}

	if wctx.Garment == nil {
		log.Info("no garment selected")
		return nil, &StageError{Stage: tryon.StageOverlaying, Kind: ErrNoGarmentSelected}
	}

	// Stage 2: overlay
	log.Debug("overlay started", zap.String("garment_id", wctx.Garment.ID))
	timing = w.enter(obs, tryon.StageOverlaying)
	out, err := w.compositor.ApplyOverlay(ctx, wctx.Image.Data, wctx.Garment)
	if err == nil && len(out) == 0 {
		err = errors.New("compositor returned no image")
	}
	timing = w.exit(obs, timing, err)
	timings = append(timings, timing)
	if err != nil {
		log.Warn("overlay failed", zap.Error(err), zap.Duration("elapsed", timing.Duration()))
		return nil, &StageError{Stage: tryon.StageOverlaying, Kind: ErrOverlayFailed, Err: err}
	}

	log.Info("try-on completed",
		zap.Bool("face_detected", faceDetected),
		zap.Int("bytes", len(out)))

	return &tryon.Result{
		Image:        out,
		MimeType:     http.DetectContentType(out),
		FaceDetected: faceDetected,
		Timings:      timings,
		CompletedAt:  w.now(),
	}, nil
}

func (w *TryOnWorkflow) enter(obs Observer, stage tryon.Stage) tryon.StageTiming {
	obs.StageStarted(stage)
	return tryon.StageTiming{Stage: stage, Started: w.now()}
}

func (w *TryOnWorkflow) exit(obs Observer, t tryon.StageTiming, err error) tryon.StageTiming {
	t.Finished = w.now()
	w.metrics.ObserveStage(string(t.Stage), outcome(err), t.Duration())
	obs.StageFinished(t, err)
	return t
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeFailure
	}
}

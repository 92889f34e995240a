package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/metrics"
	"github.com/tendant/tryon-pipeline/internal/workflows"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// AcquireUpload acquires the user's photo from a selected file.
// It returns the generation of the started run.
func (c *Controller) AcquireUpload(files ...acquisition.File) (uint64, error) {
	return c.acquire(tryon.ModeUpload, acquisition.Request{Files: files})
}

// AcquireCamera snapshots the live camera stream
func (c *Controller) AcquireCamera() (uint64, error) {
	return c.acquire(tryon.ModeCamera, acquisition.Request{})
}

// AcquireAR accepts an already composited AR capture
func (c *Controller) AcquireAR(payload []byte, mimeType string) (uint64, error) {
	return c.acquire(tryon.ModeAR, acquisition.Request{Payload: payload, MimeType: mimeType})
}

func (c *Controller) acquire(mode tryon.Mode, req acquisition.Request) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Open {
		return 0, ErrClosed
	}
	if c.state.Mode != mode {
		return 0, fmt.Errorf("%w: %s requested, %s active", ErrModeMismatch, mode, c.state.Mode)
	}
	strategy, err := c.strategy(mode)
	if err != nil {
		return 0, err
	}

	// a rejected request leaves any in-flight run and finished result alone
	if err := strategy.Validate(req); err != nil {
		c.logger.Info("acquisition rejected", zap.String("mode", string(mode)), zap.Error(err))
		if c.state.Stage == tryon.StageIdle || c.state.Stage == tryon.StageFailed {
			c.state.Err = err
			c.notify()
		}
		return c.state.Generation, err
	}

	// a new acquisition supersedes whatever is in flight
	c.cancelRun()
	c.state.Generation++
	c.state.RawImage = nil
	c.state.Result = nil
	c.state.Err = nil

	gen := c.state.Generation
	ctx := c.startRun()
	garment := c.state.Garment
	c.wg.Add(1)
	go c.execute(ctx, gen, strategy, req, garment)
	return gen, nil
}

// Retry re-runs the pipeline on the image of a failed run
func (c *Controller) Retry() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Open {
		return 0, ErrClosed
	}
	if c.state.Stage != tryon.StageFailed || c.state.RawImage == nil {
		return 0, ErrNothingToRetry
	}
	if errors.Is(c.state.Err, workflows.ErrNoGarmentSelected) && c.state.Garment == nil {
		return 0, ErrNotRetryable
	}

	img, garment := c.state.RawImage, c.state.Garment
	c.cancelRun()
	c.state.Generation++
	c.state.Err = nil
	gen := c.state.Generation
	ctx := c.startRun()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.process(ctx, gen, img, garment)
	}()
	return gen, nil
}

// startRun enters Acquiring with a context scoped to the current generation
func (c *Controller) startRun() context.Context {
	ctx, cancel := context.WithCancel(c.session)
	c.runCancel = cancel
	c.state.Stage = tryon.StageAcquiring
	c.notify()
	return ctx
}

func (c *Controller) execute(ctx context.Context, gen uint64, strategy acquisition.Strategy, req acquisition.Request, garment *tryon.Garment) {
	defer c.wg.Done()

	img, err := strategy.Acquire(ctx, req)
	if err != nil {
		c.fail(gen, err)
		return
	}
	if strategy.Finalized() {
		c.finish(gen, img, &tryon.Result{
			Image:        img.Data,
			MimeType:     img.MimeType,
			FaceDetected: true,
			CompletedAt:  time.Now(),
		})
		return
	}

	c.mu.Lock()
	if c.state.Generation != gen {
		c.stale(gen)
		c.mu.Unlock()
		return
	}
	c.state.RawImage = img
	c.notify()
	c.mu.Unlock()

	c.process(ctx, gen, img, garment)
}

func (c *Controller) process(ctx context.Context, gen uint64, img *tryon.RawImage, garment *tryon.Garment) {
	result, err := c.runner.Run(&workflows.WorkflowContext{
		Ctx:      ctx,
		Job:      c.job,
		RunID:    uuid.NewString(),
		Image:    img,
		Garment:  garment,
		Observer: &observer{c: c, gen: gen},
	})
	if err != nil {
		c.fail(gen, err)
		return
	}
	c.finish(gen, img, result)
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != gen {
		c.stale(gen)
		return
	}
	c.cancelRun()
	c.state.Stage = tryon.StageFailed
	c.state.Err = err
	c.metrics.RunFinished(metrics.OutcomeFailure)
	c.logger.Warn("try-on run failed", zap.Uint64("generation", gen), zap.Error(err))
	c.notify()
}

func (c *Controller) finish(gen uint64, img *tryon.RawImage, result *tryon.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Generation != gen {
		c.stale(gen)
		return
	}
	c.cancelRun()
	c.state.RawImage = img
	c.state.Result = result
	c.state.Err = nil
	c.state.Stage = tryon.StageReady
	c.metrics.RunFinished(metrics.OutcomeSuccess)
	c.logger.Info("try-on run ready",
		zap.Uint64("generation", gen),
		zap.Bool("face_detected", result.FaceDetected))
	c.notify()
}

func (c *Controller) stale(gen uint64) {
	c.metrics.StaleCompletion()
	c.logger.Debug("dropped stale completion",
		zap.Uint64("generation", gen),
		zap.Uint64("current", c.state.Generation))
}

// observer moves the workflow through pipeline stages for one generation
type observer struct {
	c   *Controller
	gen uint64
}

func (o *observer) StageStarted(stage tryon.Stage) {
	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	if o.c.state.Generation != o.gen {
		return
	}
	o.c.state.Stage = stage
	o.c.notify()
}

func (o *observer) StageFinished(tryon.StageTiming, error) {}

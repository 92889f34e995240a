package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Open starts a session for garment. An open session is closed first.
func (c *Controller) Open(garment *tryon.Garment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Open {
		c.closeLocked()
	}
	c.session, c.endSession = context.WithCancel(context.Background())

	models, modelsErr := c.state.Models, c.state.ModelsErr
	if models != ModelsReady {
		models, modelsErr = ModelsIdle, nil
	}
	c.state = State{
		Session:    uuid.New(),
		Open:       true,
		Mode:       c.state.Mode,
		Garment:    garment,
		Generation: c.state.Generation + 1,
		Stage:      tryon.StageIdle,
		Models:     models,
		ModelsErr:  modelsErr,
	}
	c.logger.Info("try-on session opened",
		zap.String("session", c.state.Session.String()),
		zap.String("mode", string(c.state.Mode)))

	c.enterMode(c.state.Mode)
	c.notify()
}

// Close ends the session. Timers, warm-up and camera streams are released. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Open {
		return
	}
	c.closeLocked()
	c.notify()
}

func (c *Controller) closeLocked() {
	c.resetLocked()
	c.leaveMode(c.state.Mode)
	c.endSession()
	c.session, c.endSession = nil, nil
	c.state.Open = false
	if c.state.Models == ModelsLoading {
		c.state.Models = ModelsIdle
	}
	c.logger.Info("try-on session closed", zap.String("session", c.state.Session.String()))
}

// SelectMode resets the workflow and switches acquisition mode
func (c *Controller) SelectMode(mode tryon.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.strategy(mode); err != nil {
		return err
	}

	if !c.resetLocked() {
		c.state.Generation++
	}
	if c.state.Open {
		if mode != c.state.Mode {
			c.leaveMode(c.state.Mode)
		}
		c.state.Mode = mode
		c.enterMode(mode)
	} else {
		c.state.Mode = mode
	}
	c.notify()
	return nil
}

// enterMode starts whatever the mode needs while it is active
func (c *Controller) enterMode(mode tryon.Mode) {
	if c.modeCancel != nil {
		c.modeCancel()
	}
	ctx, cancel := context.WithCancel(c.session)
	c.modeCancel = cancel
	c.state.CameraReady = false

	if mode == tryon.ModeUpload || mode == tryon.ModeCamera {
		c.warmup()
	}
	if s, ok := c.strategies[mode].(streamer); ok {
		c.negotiate(ctx, s)
	}
}

func (c *Controller) leaveMode(mode tryon.Mode) {
	if c.modeCancel != nil {
		c.modeCancel()
		c.modeCancel = nil
	}
	c.state.CameraReady = false
	if s, ok := c.strategies[mode].(streamer); ok {
		if err := s.Stop(); err != nil {
			c.logger.Warn("failed to stop stream", zap.String("mode", string(mode)), zap.Error(err))
		}
	}
}

// warmup loads detection models in the background once per process
func (c *Controller) warmup() {
	if c.runner == nil || c.state.Models == ModelsLoading || c.state.Models == ModelsReady {
		return
	}
	c.state.Models = ModelsLoading
	c.state.ModelsErr = nil

	ctx, session := c.session, c.state.Session
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.runner.Warmup(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ctx.Err() != nil || c.state.Session != session {
			return
		}
		if err != nil {
			c.state.Models = ModelsFailed
			c.state.ModelsErr = fmt.Errorf("%w: %w", ErrModelsUnavailable, err)
			c.logger.Warn("model warm-up failed", zap.Error(err))
		} else {
			c.state.Models = ModelsReady
			c.logger.Debug("models ready")
		}
		c.notify()
	}()
}

// negotiate opens the mode's stream in the background
func (c *Controller) negotiate(ctx context.Context, s streamer) {
	session := c.state.Session
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := s.Start(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ctx.Err() != nil || c.state.Session != session {
			return
		}
		if err != nil {
			if c.state.Stage == tryon.StageIdle {
				c.state.Err = err
			}
		} else {
			c.state.CameraReady = true
		}
		c.notify()
	}()
}

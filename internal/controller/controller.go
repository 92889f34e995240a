// Package controller owns the try-on workflow state machine. It sequences
// acquisition, the processing pipeline and export for one modal session,
// and guarantees that only the latest acquisition can publish a result.
package controller

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/export"
	"github.com/tendant/tryon-pipeline/internal/metrics"
	"github.com/tendant/tryon-pipeline/internal/workflows"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// streamer is implemented by strategies that hold a live stream while their mode is active
type streamer interface {
	Start(ctx context.Context) error
	Stop() error
}

// Controller drives one try-on session at a time. All methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state State

	strategies map[tryon.Mode]acquisition.Strategy
	runner     *workflows.WorkflowRunner
	job        string
	exporter   *export.Exporter
	metrics    *metrics.Metrics
	logger     *zap.Logger
	listeners  []func(State)

	session    context.Context
	endSession context.CancelFunc
	modeCancel context.CancelFunc
	runCancel  context.CancelFunc

	wg sync.WaitGroup
}

// Option configures a Controller
type Option func(*Controller)

// WithExporter sets the exporter used by DownloadResult and ShareResult
func WithExporter(e *export.Exporter) Option {
	return func(c *Controller) { c.exporter = e }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithJob overrides the workflow job name runs are dispatched to
func WithJob(job string) Option {
	return func(c *Controller) { c.job = job }
}

// WithMode sets the initial acquisition mode
func WithMode(mode tryon.Mode) Option {
	return func(c *Controller) { c.state.Mode = mode }
}

// WithListener registers fn to observe every state change.
// fn runs with the controller lock held and must not call back into the controller.
func WithListener(fn func(State)) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, fn) }
}

// New creates a closed controller. Strategies are keyed by their Mode.
func New(strategies []acquisition.Strategy, runner *workflows.WorkflowRunner, opts ...Option) *Controller {
	c := &Controller{
		strategies: make(map[tryon.Mode]acquisition.Strategy, len(strategies)),
		runner:     runner,
		job:        workflows.JobTryOn,
		logger:     zap.NewNop(),
		state: State{
			Mode:   tryon.ModeUpload,
			Stage:  tryon.StageIdle,
			Models: ModelsIdle,
		},
	}
	for _, s := range strategies {
		c.strategies[s.Mode()] = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the workflow
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until every goroutine started by the controller has returned
func (c *Controller) Wait() {
	c.wg.Wait()
}

// SelectGarment replaces the garment used by subsequent runs
func (c *Controller) SelectGarment(garment *tryon.Garment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Garment = garment
	c.notify()
}

// Reset returns to Idle and invalidates anything in flight. Idempotent.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resetLocked() {
		c.notify()
	}
}

// resetLocked clears the run and reports whether anything changed
func (c *Controller) resetLocked() bool {
	if c.runCancel == nil && c.state.Stage == tryon.StageIdle && c.state.Err == nil &&
		c.state.RawImage == nil && c.state.Result == nil {
		return false
	}
	c.cancelRun()
	c.state.Generation++
	c.state.Stage = tryon.StageIdle
	c.state.RawImage = nil
	c.state.Result = nil
	c.state.Err = nil
	return true
}

func (c *Controller) cancelRun() {
	if c.runCancel != nil {
		c.runCancel()
		c.runCancel = nil
	}
}

// DownloadResult saves the current result through the exporter
func (c *Controller) DownloadResult(ctx context.Context) (string, error) {
	result, err := c.exportable()
	if err != nil {
		return "", err
	}
	return c.exporter.Download(ctx, result)
}

// ShareResult shares the current result, falling back to the clipboard
func (c *Controller) ShareResult(ctx context.Context) (export.Method, error) {
	result, err := c.exportable()
	if err != nil {
		return "", err
	}
	return c.exporter.Share(ctx, result)
}

func (c *Controller) exportable() (*tryon.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exporter == nil {
		return nil, ErrNoExporter
	}
	if c.state.Stage != tryon.StageReady || c.state.Result == nil {
		return nil, export.ErrNoResult
	}
	return c.state.Result, nil
}

func (c *Controller) notify() {
	s := c.state
	for _, fn := range c.listeners {
		fn(s)
	}
}

func (c *Controller) strategy(mode tryon.Mode) (acquisition.Strategy, error) {
	s, ok := c.strategies[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return s, nil
}

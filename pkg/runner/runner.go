// Package runner assembles a ready-to-use try-on controller from configuration.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/simple-content/pkg/simplecontent/presets"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/config"
	"github.com/tendant/tryon-pipeline/internal/controller"
	"github.com/tendant/tryon-pipeline/internal/export"
	"github.com/tendant/tryon-pipeline/internal/metrics"
	"github.com/tendant/tryon-pipeline/internal/share"
	"github.com/tendant/tryon-pipeline/internal/storage"
	"github.com/tendant/tryon-pipeline/internal/vision"
	"github.com/tendant/tryon-pipeline/internal/workflows"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

const pingTimeout = 2 * time.Second

// ErrNoContentSource is returned by ContentFile for backends that cannot serve source photos
var ErrNoContentSource = errors.New("export backend cannot serve source content")

// Options supplies host capabilities that configuration cannot describe
type Options struct {
	Logger    *zap.Logger
	Registry  *prometheus.Registry // defaults to a private registry
	Camera    acquisition.Camera
	Sharer    export.Sharer    // overrides the redis sharer
	Clipboard export.Clipboard // overrides the clipboard file
	Listeners []func(controller.State)

	// Detector and Compositor replace the configured ones when set
	Detector   workflows.Detector
	Compositor workflows.Compositor
}

// Input is one acquisition request
type Input struct {
	Mode     tryon.Mode
	File     acquisition.File // upload
	Payload  []byte           // AR
	MimeType string           // AR
}

type contentSource interface {
	File(ctx context.Context, contentID string) (acquisition.File, error)
}

// Runner owns a controller and everything it was built from
type Runner struct {
	Controller *controller.Controller
	Exporter   *export.Exporter
	Metrics    *metrics.Metrics

	cfg      *config.Config
	registry *prometheus.Registry
	source   contentSource
	closers  []func() error
	logger   *zap.Logger
}

// New wires configuration into a controller
func New(cfg *config.Config, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Runner{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		Metrics:  metrics.New(registry),
	}

	detector, err := r.detector(opts)
	if err != nil {
		return nil, err
	}
	compositor := opts.Compositor
	if compositor == nil {
		compositor = &vision.Compositor{
			Scale:   cfg.Vision.OverlayScale,
			OffsetY: cfg.Vision.OverlayOffsetY,
			Opacity: 0.85,
			Quality: 90,
		}
	}
	if cfg.Vision.OverlayDelay > 0 {
		compositor = &vision.SlowCompositor{Compositor: compositor, Delay: cfg.Vision.OverlayDelay}
	}

	workflowRunner := workflows.NewWorkflowRunner(logger)
	tryOnWorkflow := workflows.NewTryOnWorkflow(detector, compositor,
		workflows.WithLogger(logger),
		workflows.WithMetrics(r.Metrics))
	workflowRunner.Register(workflows.JobTryOn, tryOnWorkflow)

	saver, err := r.saver()
	if err != nil {
		r.Close()
		return nil, err
	}
	exportOpts := []export.Option{
		export.WithPrefix(cfg.Export.Prefix),
		export.WithSaver(saver),
		export.WithLogger(logger),
		export.WithMetrics(r.Metrics),
	}
	if sharer := r.sharer(opts); sharer != nil {
		exportOpts = append(exportOpts, export.WithSharer(sharer))
	}
	if clipboard := r.clipboard(opts); clipboard != nil {
		exportOpts = append(exportOpts, export.WithClipboard(clipboard))
	}
	r.Exporter = export.New(exportOpts...)

	strategies := []acquisition.Strategy{
		acquisition.NewUpload(acquisition.UploadConfig{
			MaxBytes:     cfg.Upload.MaxBytes,
			AllowedTypes: cfg.Upload.AllowedTypes,
		}, logger),
		acquisition.NewCameraCapture(opts.Camera, logger),
		acquisition.NewAR(),
	}

	ctrlOpts := []controller.Option{
		controller.WithExporter(r.Exporter),
		controller.WithLogger(logger),
		controller.WithMetrics(r.Metrics),
	}
	for _, l := range opts.Listeners {
		ctrlOpts = append(ctrlOpts, controller.WithListener(l))
	}
	r.Controller = controller.New(strategies, workflowRunner, ctrlOpts...)

	logger.Info("try-on runner ready",
		zap.String("detector", cfg.Vision.Detector),
		zap.String("export_backend", cfg.Export.Backend))
	return r, nil
}

func (r *Runner) detector(opts Options) (workflows.Detector, error) {
	v := r.cfg.Vision
	detector := opts.Detector
	if detector == nil {
		switch v.Detector {
		case config.DetectorGoCV:
			cascade := vision.NewCascadeDetector(v.CascadeFile)
			r.closers = append(r.closers, cascade.Close)
			detector = cascade
		case config.DetectorSkin, "":
			skin := vision.NewSkinDetector()
			skin.MinRatio = v.SkinRatio
			detector = skin
		default:
			return nil, fmt.Errorf("unknown detector %q", v.Detector)
		}
	}
	if v.DetectDelay > 0 {
		detector = &vision.SlowDetector{Detector: detector, Delay: v.DetectDelay}
	}
	return detector, nil
}

func (r *Runner) saver() (export.Saver, error) {
	e := r.cfg.Export
	switch e.Backend {
	case config.BackendFilesystem:
		return storage.NewFilesystemSaver(e.Dir)

	case config.BackendContent:
		owner, err := uuid.Parse(e.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("invalid export.owner_id: %w", err)
		}
		tenant, err := uuid.Parse(e.TenantID)
		if err != nil {
			return nil, fmt.Errorf("invalid export.tenant_id: %w", err)
		}
		// in-memory repository + filesystem blobs
		svc, cleanup, err := presets.NewDevelopment(presets.WithDevStorage(e.Dir))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize simple-content service: %w", err)
		}
		r.closers = append(r.closers, func() error { cleanup(); return nil })
		r.source = storage.NewContentReader(svc)
		return storage.NewContentSaver(svc, owner, tenant), nil

	case config.BackendHTTP:
		r.source = storage.NewHTTPContentReader(e.ContentAPIURL)
		return storage.NewHTTPSaver(e.ContentAPIURL, e.OwnerID, e.TenantID), nil
	}
	return nil, fmt.Errorf("unknown export backend %q", e.Backend)
}

func (r *Runner) sharer(opts Options) export.Sharer {
	if opts.Sharer != nil {
		return opts.Sharer
	}
	rc := r.cfg.Share.Redis
	if rc.Addr == "" {
		return nil
	}
	s := share.NewRedisSharer(share.RedisConfig{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		TTL:      rc.TTL,
		Channel:  rc.Channel,
	}, r.logger)
	r.closers = append(r.closers, s.Close)

	// an unreachable server is not fatal: Share falls back to the clipboard
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		r.logger.Warn("redis share target unreachable", zap.String("addr", rc.Addr), zap.Error(err))
	}
	return s
}

func (r *Runner) clipboard(opts Options) export.Clipboard {
	if opts.Clipboard != nil {
		return opts.Clipboard
	}
	if r.cfg.Share.ClipboardFile == "" {
		return nil
	}
	return &share.FileClipboard{Path: r.cfg.Share.ClipboardFile}
}

// ContentFile loads a stored photo from the content backend as an upload candidate
func (r *Runner) ContentFile(ctx context.Context, contentID string) (acquisition.File, error) {
	if r.source == nil {
		return acquisition.File{}, ErrNoContentSource
	}
	return r.source.File(ctx, contentID)
}

// TryOn opens a session for garment, acquires in, and blocks until the run
// settles. Cancelling ctx closes the session.
func (r *Runner) TryOn(ctx context.Context, garment *tryon.Garment, in Input) (controller.State, error) {
	c := r.Controller
	c.Open(garment)
	if err := c.SelectMode(in.Mode); err != nil {
		return c.State(), err
	}
	// warm-up and stream negotiation
	if err := r.wait(ctx); err != nil {
		return c.State(), err
	}

	var err error
	switch in.Mode {
	case tryon.ModeUpload:
		_, err = c.AcquireUpload(in.File)
	case tryon.ModeCamera:
		_, err = c.AcquireCamera()
	case tryon.ModeAR:
		_, err = c.AcquireAR(in.Payload, in.MimeType)
	}
	if err != nil {
		return c.State(), err
	}
	if err := r.wait(ctx); err != nil {
		return c.State(), err
	}

	s := c.State()
	if s.Stage == tryon.StageFailed {
		return s, s.Err
	}
	return s, nil
}

func (r *Runner) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.Controller.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.Controller.Close()
		<-done
		return ctx.Err()
	}
}

// WriteMetrics dumps collected metrics to the configured textfile, if any
func (r *Runner) WriteMetrics() error {
	if r.cfg.Metrics.Textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(r.cfg.Metrics.Textfile, r.registry)
}

// Close ends the session, waits for background work and releases backends
func (r *Runner) Close() error {
	if r.Controller != nil {
		r.Controller.Close()
		r.Controller.Wait()
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/config"
	"github.com/tendant/tryon-pipeline/internal/controller"
	"github.com/tendant/tryon-pipeline/internal/logging"
	"github.com/tendant/tryon-pipeline/pkg/runner"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Command-line try-on host.
// Drives one session against a local photo (or a stored content ID),
// then downloads and optionally shares the result.
func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	mode := flag.String("mode", string(tryon.ModeUpload), "acquisition mode: upload, camera or ar")
	photo := flag.String("photo", "", "photo to upload, camera frame to snapshot, or AR capture")
	contentID := flag.String("content-id", "", "upload a photo stored in the content backend instead of -photo")
	garmentName := flag.String("garment", "Wardrobe Item", "garment name")
	garmentColor := flag.String("color", "#1f2a44", "garment colour, #rrggbb or a name")
	garmentImage := flag.String("garment-image", "", "garment artwork to overlay (optional)")
	noGarment := flag.Bool("no-garment", false, "run without a selected garment")
	download := flag.Bool("download", true, "save the result through the export backend")
	shareResult := flag.Bool("share", false, "share the result (redis, falling back to the clipboard file)")
	timeout := flag.Duration("timeout", 30*time.Second, "give up after this long")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(2)
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, options{
		mode:         tryon.Mode(*mode),
		photo:        *photo,
		contentID:    *contentID,
		garmentName:  *garmentName,
		garmentColor: *garmentColor,
		garmentImage: *garmentImage,
		noGarment:    *noGarment,
		download:     *download,
		share:        *shareResult,
	}); err != nil {
		logger.Error("try-on failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, controller.Message(err))
		logging.Sync(logger)
		os.Exit(1)
	}
}

type options struct {
	mode         tryon.Mode
	photo        string
	contentID    string
	garmentName  string
	garmentColor string
	garmentImage string
	noGarment    bool
	download     bool
	share        bool
}

// summary is printed to stdout as JSON
type summary struct {
	Session      string              `json:"session"`
	Generation   uint64              `json:"generation"`
	Mode         tryon.Mode          `json:"mode"`
	Stage        tryon.Stage         `json:"stage"`
	FaceDetected bool                `json:"face_detected"`
	Timings      []tryon.StageTiming `json:"timings,omitempty"`
	Location     string              `json:"location,omitempty"`
	ShareMethod  string              `json:"share_method,omitempty"`
	Message      string              `json:"message,omitempty"`
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts options) error {
	if !opts.mode.Valid() {
		return fmt.Errorf("%w: %q", controller.ErrUnknownMode, opts.mode)
	}

	rOpts := runner.Options{
		Logger: logger,
		Listeners: []func(controller.State){
			func(s controller.State) {
				logger.Debug("state",
					zap.Uint64("generation", s.Generation),
					zap.String("stage", string(s.Stage)),
					zap.String("models", string(s.Models)))
			},
		},
	}
	if opts.mode == tryon.ModeCamera {
		rOpts.Camera = acquisition.NewFrameCamera(func() (image.Image, error) {
			return imaging.Open(opts.photo, imaging.AutoOrientation(true))
		})
	}

	r, err := runner.New(cfg, rOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.WriteMetrics(); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
		if err := r.Close(); err != nil {
			logger.Warn("failed to release backends", zap.Error(err))
		}
	}()

	garment, err := loadGarment(opts)
	if err != nil {
		return err
	}
	in, err := input(ctx, r, opts)
	if err != nil {
		return err
	}

	state, runErr := r.TryOn(ctx, garment, in)
	out := summary{
		Session:    state.Session.String(),
		Generation: state.Generation,
		Mode:       state.Mode,
		Stage:      state.Stage,
		Message:    state.Message(),
	}
	if state.Result != nil {
		out.FaceDetected = state.Result.FaceDetected
		out.Timings = state.Result.Timings
	}

	if runErr == nil && opts.download {
		loc, err := r.Controller.DownloadResult(ctx)
		if err != nil {
			runErr = err
		}
		out.Location = loc
	}
	if runErr == nil && opts.share {
		method, err := r.Controller.ShareResult(ctx)
		if err != nil {
			// export failures are reported, the result stays
			logger.Warn("share failed", zap.Error(err))
			out.Message = controller.Message(err)
		}
		out.ShareMethod = string(method)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return runErr
}

func loadGarment(opts options) (*tryon.Garment, error) {
	if opts.noGarment {
		return nil, nil
	}
	g := &tryon.Garment{
		ID:    "cli",
		Name:  opts.garmentName,
		Color: opts.garmentColor,
	}
	if opts.garmentImage != "" {
		data, err := os.ReadFile(opts.garmentImage)
		if err != nil {
			return nil, fmt.Errorf("failed to read garment image: %w", err)
		}
		g.Image = data
	}
	return g, nil
}

func input(ctx context.Context, r *runner.Runner, opts options) (runner.Input, error) {
	in := runner.Input{Mode: opts.mode}
	switch opts.mode {
	case tryon.ModeUpload:
		if opts.contentID != "" {
			f, err := r.ContentFile(ctx, opts.contentID)
			if err != nil {
				return in, err
			}
			in.File = f
			return in, nil
		}
		if opts.photo == "" {
			return in, errors.New("-photo or -content-id is required for upload")
		}
		f, err := acquisition.OpenFile(opts.photo)
		if err != nil {
			return in, err
		}
		in.File = f

	case tryon.ModeCamera:
		if opts.photo == "" {
			return in, errors.New("-photo is required as the camera frame")
		}

	case tryon.ModeAR:
		if opts.photo == "" {
			return in, errors.New("-photo is required as the AR capture")
		}
		f, err := acquisition.OpenFile(opts.photo)
		if err != nil {
			return in, err
		}
		data, err := os.ReadFile(opts.photo)
		if err != nil {
			return in, fmt.Errorf("failed to read AR capture: %w", err)
		}
		in.Payload = data
		in.MimeType = f.MimeType
	}
	return in, nil
}

// Package export turns a completed try-on result into a saved file or a shared payload.
// Saving, sharing and clipboard access are host capabilities injected as ports.
package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/internal/metrics"
	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// DefaultPrefix starts every exported filename
const DefaultPrefix = "styleai-tryon"

// Share texts
const (
	ShareTitle = "My StyleAI Virtual Try-On"
	ShareText  = "Check out my virtual try-on with StyleAI!"
)

// File is an exported result ready to hand to the host
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Payload is what native share receives
type Payload struct {
	Title string
	Text  string
	File  File
}

// Saver is the host's file-save trigger. It returns where the file ended up.
type Saver interface {
	Save(ctx context.Context, f File) (string, error)
}

// Sharer is the host's native share capability
type Sharer interface {
	// Available probes the capability without invoking it
	Available() bool
	Share(ctx context.Context, p Payload) error
}

// Clipboard copies text for the user
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Method says how a result was shared
type Method string

// Method constants
const (
	MethodNative    Method = "native"
	MethodClipboard Method = "clipboard"
)

// Exporter exports results through the injected host capabilities
type Exporter struct {
	prefix    string
	saver     Saver
	sharer    Sharer
	clipboard Clipboard
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Exporter
type Option func(*Exporter)

// WithPrefix sets the filename prefix
func WithPrefix(prefix string) Option {
	return func(e *Exporter) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

// WithSaver sets the file-save capability
func WithSaver(s Saver) Option {
	return func(e *Exporter) { e.saver = s }
}

// WithSharer sets the native share capability
func WithSharer(s Sharer) Option {
	return func(e *Exporter) { e.sharer = s }
}

// WithClipboard sets the clipboard capability
func WithClipboard(c Clipboard) Option {
	return func(e *Exporter) { e.clipboard = c }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) { e.logger = logger }
}

// WithMetrics sets the export counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// WithClock overrides time.Now for filename timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter
func New(opts ...Option) *Exporter {
	e := &Exporter{
		prefix: DefaultPrefix,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportAsFile names the result with a capture timestamp.
// It fails only when there is no result.
func (e *Exporter) ExportAsFile(result *tryon.Result) (File, error) {
	if result == nil || len(result.Image) == 0 {
		return File{}, newError(ErrNoResult, nil)
	}

	mimeType := result.MimeType
	if mimeType == "" {
		mimeType = tryon.MimeJPEG
	}

	return File{
		Name:     fmt.Sprintf("%s-%d%s", e.prefix, e.now().UnixMilli(), extension(mimeType)),
		MimeType: mimeType,
		Data:     result.Image,
	}, nil
}

// Download exports the result and hands it to the Saver
func (e *Exporter) Download(ctx context.Context, result *tryon.Result) (string, error) {
	f, err := e.ExportAsFile(result)
	if err != nil {
		return "", err
	}
	if e.saver == nil {
		e.metrics.Export("download", metrics.OutcomeFailure)
		return "", newError(ErrNoSaver, nil)
	}

	location, err := e.saver.Save(ctx, f)
	if err != nil {
		e.metrics.Export("download", metrics.OutcomeFailure)
		e.logger.Warn("save failed", zap.String("file", f.Name), zap.Error(err))
		return "", newError(ErrSaveFailed, err)
	}

	e.metrics.Export("download", metrics.OutcomeSuccess)
	e.logger.Info("result saved", zap.String("file", f.Name), zap.String("location", location))
	return location, nil
}

// Share tries native share first and falls back to copying the image data URL
// to the clipboard when native share is absent or fails.
func (e *Exporter) Share(ctx context.Context, result *tryon.Result) (Method, error) {
	f, err := e.ExportAsFile(result)
	if err != nil {
		return "", err
	}

	if e.sharer != nil && e.sharer.Available() {
		err := e.sharer.Share(ctx, Payload{Title: ShareTitle, Text: ShareText, File: f})
		if err == nil {
			e.metrics.Export(string(MethodNative), metrics.OutcomeSuccess)
			e.logger.Info("result shared", zap.String("file", f.Name))
			return MethodNative, nil
		}
		e.metrics.Export(string(MethodNative), metrics.OutcomeFailure)
		e.logger.Warn("native share failed, falling back to clipboard", zap.Error(err))
	}

	if e.clipboard == nil {
		return "", newError(ErrShareUnavailable, nil)
	}

	if err := e.clipboard.WriteText(ctx, tryon.DataURL(f.MimeType, f.Data)); err != nil {
		e.metrics.Export(string(MethodClipboard), metrics.OutcomeFailure)
		e.logger.Warn("clipboard copy failed", zap.Error(err))
		return "", newError(ErrClipboardFailed, err)
	}

	e.metrics.Export(string(MethodClipboard), metrics.OutcomeSuccess)
	e.logger.Info("result copied to clipboard", zap.String("file", f.Name))
	return MethodClipboard, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case tryon.MimePNG:
		return ".png"
	case tryon.MimeWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}

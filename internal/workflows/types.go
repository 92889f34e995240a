package workflows

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tendant/tryon-pipeline/pkg/tryon"
)

// Detector reports whether an image contains a face
type Detector interface {
	DetectFace(ctx context.Context, image []byte) (bool, error)
}

// Compositor overlays a garment onto a photo and returns the encoded result
type Compositor interface {
	ApplyOverlay(ctx context.Context, image []byte, garment *tryon.Garment) ([]byte, error)
}

// Warmer is implemented by capabilities that load models before first use
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Observer is told when a run enters and leaves each stage.
// Calls for one run arrive in stage order from a single goroutine.
type Observer interface {
	StageStarted(stage tryon.Stage)
	StageFinished(timing tryon.StageTiming, err error)
}

type nopObserver struct{}

func (nopObserver) StageStarted(tryon.Stage)               {}
func (nopObserver) StageFinished(tryon.StageTiming, error) {}

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx      context.Context
	Job      string
	RunID    string
	Image    *tryon.RawImage
	Garment  *tryon.Garment
	Observer Observer
}

func (w *WorkflowContext) observer() Observer {
	if w.Observer == nil {
		return nopObserver{}
	}
	return w.Observer
}

// Workflow defines the interface for processing workflows
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*tryon.Result, error)

	// Name returns the workflow name
	Name() string
}

// JobTryOn is the job name the try-on workflow is registered under
const JobTryOn = "tryon"

// WorkflowRunner executes registered workflows by job name
type WorkflowRunner struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
	logger    *zap.Logger
}

// NewWorkflowRunner creates an empty runner
func NewWorkflowRunner(logger *zap.Logger) *WorkflowRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowRunner{
		workflows: make(map[string]Workflow),
		logger:    logger,
	}
}

// Register registers a workflow
func (r *WorkflowRunner) Register(job string, workflow Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[job] = workflow
	r.logger.Debug("registered workflow", zap.String("job", job), zap.String("workflow", workflow.Name()))
}

// Run executes the workflow registered for wctx.Job
func (r *WorkflowRunner) Run(wctx *WorkflowContext) (*tryon.Result, error) {
	r.mu.RLock()
	workflow, ok := r.workflows[wctx.Job]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrWorkflowNotFound
	}
	return workflow.Execute(wctx)
}

// Warmup warms every registered workflow capability that supports it
func (r *WorkflowRunner) Warmup(ctx context.Context) error {
	r.mu.RLock()
	var warmers []Warmer
	for _, wf := range r.workflows {
		if w, ok := wf.(Warmer); ok {
			warmers = append(warmers, w)
		}
	}
	r.mu.RUnlock()

	for _, w := range warmers {
		if err := w.Warmup(ctx); err != nil {
			return err
		}
	}
	return nil
}

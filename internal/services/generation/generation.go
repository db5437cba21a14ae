package generation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/zimage-studio/zimage-server/internal/notification"
	"github.com/zimage-studio/zimage-server/internal/services/fileuploader"
	"github.com/zimage-studio/zimage-server/internal/services/pipeline"
	"github.com/zimage-studio/zimage-server/internal/types"
	"github.com/zimage-studio/zimage-server/internal/utils/imageutil"
	"github.com/zimage-studio/zimage-server/pkg/safetyfilter"
	"go.uber.org/zap"
)

// notifier is satisfied by notification.Publisher.
type notifier interface {
	Publish(n notification.Notification)
}

// Orchestrator validates generation requests, obtains the pipeline from the
// lifecycle manager and runs inference. Inference is serialized: the worker
// owns one device-resident pipeline, and concurrent runs against it are
// undefined behavior, so a second request queues on genMu until the device
// is free.
type Orchestrator struct {
	manager  *pipeline.Manager
	notifier notifier
	tracker  *Tracker
	uploader *fileuploader.Uploader
	filter   *safetyfilter.Filter
	logger   *zap.Logger

	genMu sync.Mutex
}

type Option func(*Orchestrator)

// WithUploader enables async archiving of generated images.
func WithUploader(u *fileuploader.Uploader) Option {
	return func(o *Orchestrator) {
		o.uploader = u
	}
}

// WithSafetyFilter screens prompts before any pipeline work.
func WithSafetyFilter(f *safetyfilter.Filter) Option {
	return func(o *Orchestrator) {
		o.filter = f
	}
}

func NewOrchestrator(manager *pipeline.Manager, notifier notifier, tracker *Tracker, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		manager:  manager,
		notifier: notifier,
		tracker:  tracker,
		logger:   logger.Named("generation"),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// Generate runs one text-to-image request end to end and returns the
// encoded PNG. Validation failures surface as *ValidationError before the
// pipeline is touched; a load failure has already reset the lifecycle to
// absent; an inference failure leaves the pipeline ready, since a transient
// inference error is no reason to reload the model.
func (o *Orchestrator) Generate(ctx context.Context, req types.GenerateRequest) ([]byte, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if o.filter != nil {
		verdict, err := o.filter.Evaluate(ctx, req.Prompt)
		if err != nil {
			o.logger.Warn("Safety filter unavailable, letting prompt through", zap.Error(err))
		} else if !verdict.Allowed {
			return nil, validationErrorf(fmt.Sprintf("prompt rejected: %s", verdict.Reason))
		}
	}

	if o.manager.State() != pipeline.StateReady {
		o.tracker.SetMessage("Loading Model...")
	}

	handle, err := o.manager.Acquire(ctx)
	if err != nil {
		o.tracker.Fail(err.Error())
		return nil, err
	}

	o.genMu.Lock()
	defer o.genMu.Unlock()

	o.tracker.Begin()
	o.logger.Info("Generating image",
		zap.String("request_id", req.ID),
		zap.String("prompt", req.Prompt),
		zap.Int("steps", req.Steps),
	)

	seed := req.Seed
	if seed == -1 {
		// Non-deterministic by request; the drawn seed still travels to
		// the worker so the run is loggable.
		seed = rand.Int63()
	}

	params := pipeline.GenerateParams{
		Prompt:        req.Prompt,
		Height:        req.Height,
		Width:         req.Width,
		Steps:         req.Steps,
		GuidanceScale: req.GuidanceScale,
		Seed:          seed,
	}

	var bmpFrame []byte
	err = handle.Generate(ctx, params, func(f pipeline.Frame) error {
		switch f.Type {
		case pipeline.FrameProgress:
			o.tracker.SetProgress(f.Step, f.TotalSteps)
			o.notifier.Publish(notification.Info(
				fmt.Sprintf("Generating... step %d/%d", f.Step, f.TotalSteps)))
		case pipeline.FrameImage:
			bmpFrame = f.Data
		}
		return nil
	})
	if err != nil {
		o.tracker.Fail(err.Error())
		o.logger.Error("Inference failed", zap.String("request_id", req.ID), zap.Error(err))
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if bmpFrame == nil {
		o.tracker.Fail("worker returned no image")
		return nil, fmt.Errorf("generation failed: worker returned no image")
	}

	o.tracker.SetMessage("Processing Image...")
	pngBytes, err := imageutil.BMPToPNG(bmpFrame)
	if err != nil {
		o.tracker.Fail(err.Error())
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if o.uploader != nil {
		o.uploader.ArchiveBytes(pngBytes, ".png")
	}

	o.tracker.Finish()
	return pngBytes, nil
}

func validate(req types.GenerateRequest) error {
	if req.Height <= 0 || req.Width <= 0 || req.Height%16 != 0 || req.Width%16 != 0 {
		return validationErrorf("Height and Width must be divisible by 16.")
	}

	if req.Steps <= 0 {
		return validationErrorf("Steps must be a positive integer.")
	}

	return nil
}

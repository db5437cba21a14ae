package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/zimage-studio/zimage-server/internal/config"
	"github.com/zimage-studio/zimage-server/internal/mq"
	"github.com/zimage-studio/zimage-server/internal/notification"
	"github.com/zimage-studio/zimage-server/internal/services/fileuploader"
	"github.com/zimage-studio/zimage-server/internal/services/filestorage"
	"github.com/zimage-studio/zimage-server/internal/services/generation"
	"github.com/zimage-studio/zimage-server/internal/services/modelresolver"
	"github.com/zimage-studio/zimage-server/internal/services/pipeline"
	"github.com/zimage-studio/zimage-server/internal/settings"
	"github.com/zimage-studio/zimage-server/pkg/logger"
	"github.com/zimage-studio/zimage-server/pkg/safetyfilter"
	"go.uber.org/zap"
)

// App wires the services together and owns their lifetimes.
type App struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	config     *config.Config
	queue      mq.MQ
	uploader   *fileuploader.Uploader
	filter     *safetyfilter.Filter
	runtime    pipeline.Runtime

	Logger       *zap.Logger
	Settings     *settings.Store
	Hub          *notification.Hub
	Notifier     *notification.Publisher
	Resolver     *modelresolver.Resolver
	Pipeline     *pipeline.Manager
	Orchestrator *generation.Orchestrator
}

// OptionFunc configures optional pieces of the App.
type OptionFunc func(app *App) error

func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(app.config)
		if err != nil {
			return err
		}
		app.queue = queue
		return nil
	}
}

func WithFileUploader() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.config)
		if err != nil {
			return err
		}
		app.uploader = fileuploader.NewFileUploader(storage, 10, app.Logger)
		return nil
	}
}

func WithSafetyFilter() OptionFunc {
	return func(app *App) error {
		if app.config.OpenAI == nil || app.config.OpenAI.APIKey == "" {
			return fmt.Errorf("openAI API key is not set, cannot enable safety filter")
		}

		filter, err := safetyfilter.NewFilter(app.config.OpenAI.APIKey)
		if err != nil {
			return err
		}

		app.filter = filter
		return nil
	}
}

// WithWorkerRuntime dials the inference worker. Failure is not fatal here:
// the pipeline manager fails fast on Acquire when no runtime is attached.
func WithWorkerRuntime() OptionFunc {
	return func(app *App) error {
		timeout := time.Duration(app.config.WorkerTimeout) * time.Second
		runtime, err := pipeline.NewWorkerRuntime(app.config.WorkerAddr, timeout, app.Logger)
		if err != nil {
			return err
		}

		app.runtime = runtime
		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	log, err := logger.NewLogger(cfg.Environment)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		cancelFunc: cancel,
		config:     cfg,
		Logger:     log,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			// Optional services degrade instead of aborting startup.
			app.Logger.Error("failed to apply option", zap.Error(err))
		}
	}

	if app.queue == nil {
		queue, err := mq.NewInMemoryMQ(64)
		if err != nil {
			cancel()
			return nil, err
		}
		app.queue = queue
	}

	app.Settings = settings.NewStore(filepath.Join(cfg.ZImageHome, "config.json"), app.Logger)
	app.Hub = notification.NewHub(app.Logger)
	app.Notifier = notification.NewPublisher(app.queue, app.Logger)

	cacheDir := app.Settings.Get().CacheDir
	app.Resolver = modelresolver.NewResolver(cacheDir, cfg.ModelsDir, app.Logger)
	app.Pipeline = pipeline.NewManager(app.runtime, app.Resolver, app.Settings, app.Notifier, app.Logger)

	orchOpts := []generation.Option{}
	if app.uploader != nil {
		orchOpts = append(orchOpts, generation.WithUploader(app.uploader))
	}
	if app.filter != nil {
		orchOpts = append(orchOpts, generation.WithSafetyFilter(app.filter))
	}
	app.Orchestrator = generation.NewOrchestrator(
		app.Pipeline, app.Notifier, generation.NewTracker(), app.Logger, orchOpts...)

	return app, nil
}

// RunNotificationDispatcher drains published notifications into the hub.
// Blocks until the app context is cancelled.
func (app *App) RunNotificationDispatcher() error {
	return notification.RunDispatcher(app.ctx, app.queue, app.Hub, app.Logger)
}

func (app *App) Close() {
	app.cancelFunc()

	if app.uploader != nil {
		app.uploader.Stop()
	}
	if app.runtime != nil {
		app.runtime.Close()
	}
	if app.queue != nil {
		app.queue.Close()
	}
	app.Logger.Sync()
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.queue
}

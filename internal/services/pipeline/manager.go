package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zimage-studio/zimage-server/internal/notification"
	"github.com/zimage-studio/zimage-server/internal/settings"
	"go.uber.org/zap"
)

// State is the pipeline lifecycle state. The machine is cyclical:
// Absent -> Loading -> Ready, and back to Absent on release or load failure.
type State int32

const (
	StateAbsent State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "absent"
	}
}

// Handle is the loaded, device-placed pipeline. It is read-only: all
// lifecycle mutation goes through the manager.
type Handle struct {
	ModelID    string
	Device     Device
	Dtype      string
	CPUOffload bool

	runtime Runtime
}

// Generate runs inference on the loaded pipeline. The caller is responsible
// for serializing calls (see generation.Orchestrator).
func (h *Handle) Generate(ctx context.Context, params GenerateParams, onFrame FrameFunc) error {
	return h.runtime.Generate(ctx, params, onFrame)
}

// resolver is satisfied by modelresolver.Resolver.
type resolver interface {
	Resolve(ctx context.Context, modelID string) (string, error)
}

// notifier is satisfied by notification.Publisher.
type notifier interface {
	Publish(n notification.Notification)
}

// Manager owns the single pipeline instance for the process. A mutex guards
// the whole state machine, so concurrent first requests produce exactly one
// load and a settings release serializes against an in-flight load.
type Manager struct {
	mu       sync.Mutex
	state    atomic.Int32
	handle   *Handle
	runtime  Runtime
	resolver resolver
	store    *settings.Store
	notifier notifier
	logger   *zap.Logger
}

func NewManager(runtime Runtime, resolver resolver, store *settings.Store, notifier notifier, logger *zap.Logger) *Manager {
	return &Manager{
		runtime:  runtime,
		resolver: resolver,
		store:    store,
		notifier: notifier,
		logger:   logger.Named("pipeline"),
	}
}

// State reports the lifecycle state without blocking on an in-flight load.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Acquire returns the ready pipeline handle, performing the full load
// sequence if none is loaded. Callers blocked on a load in progress all
// receive the handle that load produced. On failure the state is reset to
// absent and the error propagates; retrying is the caller's call.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateReady {
		return m.handle, nil
	}

	if m.runtime == nil {
		return nil, &LoadError{Err: fmt.Errorf("inference worker is not configured")}
	}

	cfg := m.store.Get()
	m.setState(StateLoading)
	m.notifier.Publish(notification.Info(fmt.Sprintf("Loading model %s...", cfg.ModelID)))
	m.logger.Info("Loading model", zap.String("model_id", cfg.ModelID))

	handle, err := m.load(ctx, cfg)
	if err != nil {
		m.setState(StateAbsent)
		m.notifier.Publish(notification.Error(fmt.Sprintf("Failed to load model: %s", err), true))
		m.logger.Error("Model load failed", zap.Error(err))
		return nil, &LoadError{Err: err}
	}

	m.handle = handle
	m.setState(StateReady)
	m.notifier.Publish(notification.Success(
		fmt.Sprintf("Model %s loaded on %s", handle.ModelID, handle.Device.Kind), true))
	m.logger.Info("Model loaded",
		zap.String("model_id", handle.ModelID),
		zap.String("device", handle.Device.Kind),
		zap.String("dtype", handle.Dtype),
		zap.Bool("cpu_offload", handle.CPUOffload),
	)

	return m.handle, nil
}

func (m *Manager) load(ctx context.Context, cfg settings.Settings) (*Handle, error) {
	modelDir, err := m.resolver.Resolve(ctx, cfg.ModelID)
	if err != nil {
		return nil, err
	}

	device, err := m.runtime.Probe(ctx)
	if err != nil {
		return nil, err
	}

	dtype := DtypeFloat32
	if device.Kind == DeviceCUDA {
		dtype = DtypeBFloat16
	}

	// Offload only means anything when an accelerator is present.
	offload := cfg.CPUOffload && device.Kind == DeviceCUDA

	err = m.runtime.Load(ctx, LoadParams{
		ModelID:    cfg.ModelID,
		ModelDir:   modelDir,
		Device:     device.Kind,
		Dtype:      dtype,
		CPUOffload: offload,
	})
	if err != nil {
		return nil, err
	}

	return &Handle{
		ModelID:    cfg.ModelID,
		Device:     device,
		Dtype:      dtype,
		CPUOffload: offload,
		runtime:    m.runtime,
	}, nil
}

// Release unconditionally drops the current handle and asks the worker to
// reclaim device memory. Called after every settings mutation so the next
// request reloads with the new configuration.
func (m *Manager) Release(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateAbsent {
		return
	}

	if m.runtime != nil {
		if err := m.runtime.Unload(ctx); err != nil {
			m.logger.Warn("Failed to unload worker pipeline", zap.Error(err))
		}
	}

	m.handle = nil
	m.setState(StateAbsent)
	m.logger.Info("Pipeline released")
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zimage-studio/zimage-server/pkg/tcpclient"
	"go.uber.org/zap"
)

// Worker ops.
const (
	opProbe    = "probe"
	opLoad     = "load"
	opUnload   = "unload"
	opGenerate = "generate"
)

type workerRequest struct {
	Op     string      `msgpack:"op"`
	Params interface{} `msgpack:"params,omitempty"`
}

// WorkerRuntime talks to the inference worker process over TCP. Every
// exchange is length-prefixed msgpack: one request frame out, one or more
// response frames back, terminated by an end or error frame.
type WorkerRuntime struct {
	client *tcpclient.TCPClient
	logger *zap.Logger
}

// NewWorkerRuntime dials the worker. A dial failure is returned immediately
// so the caller can fail fast instead of discovering a missing worker on the
// first generation.
func NewWorkerRuntime(addr string, timeout time.Duration, logger *zap.Logger) (*WorkerRuntime, error) {
	client, err := tcpclient.NewTCPClient(addr, timeout, 1, tcpclient.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("inference worker unavailable at %s: %w", addr, err)
	}

	return &WorkerRuntime{
		client: client,
		logger: logger.Named("worker"),
	}, nil
}

func (w *WorkerRuntime) Probe(ctx context.Context) (Device, error) {
	var device Device
	err := w.roundTrip(ctx, workerRequest{Op: opProbe}, func(f Frame) error {
		return msgpack.Unmarshal(f.Data, &device)
	})
	if err != nil {
		return Device{}, fmt.Errorf("device probe failed: %w", err)
	}

	return device, nil
}

func (w *WorkerRuntime) Load(ctx context.Context, params LoadParams) error {
	if err := w.roundTrip(ctx, workerRequest{Op: opLoad, Params: params}, nil); err != nil {
		return fmt.Errorf("pipeline load failed: %w", err)
	}
	return nil
}

func (w *WorkerRuntime) Unload(ctx context.Context) error {
	if err := w.roundTrip(ctx, workerRequest{Op: opUnload}, nil); err != nil {
		return fmt.Errorf("pipeline unload failed: %w", err)
	}
	return nil
}

func (w *WorkerRuntime) Generate(ctx context.Context, params GenerateParams, onFrame FrameFunc) error {
	return w.stream(ctx, workerRequest{Op: opGenerate, Params: params}, onFrame)
}

func (w *WorkerRuntime) Close() error {
	return w.client.Close()
}

// roundTrip sends a request and drains the response stream, forwarding
// non-terminal frames to onFrame when given.
func (w *WorkerRuntime) roundTrip(ctx context.Context, req workerRequest, onFrame FrameFunc) error {
	return w.stream(ctx, req, func(f Frame) error {
		if onFrame != nil {
			return onFrame(f)
		}
		return nil
	})
}

func (w *WorkerRuntime) stream(ctx context.Context, req workerRequest, onFrame FrameFunc) error {
	conn, err := w.client.Acquire(ctx)
	if err != nil {
		return err
	}

	healthy := false
	defer func() {
		if healthy {
			w.client.Release(conn)
		} else {
			w.client.Discard(conn)
		}
	}()

	payload, err := msgpack.Marshal(&req)
	if err != nil {
		return fmt.Errorf("failed to marshal worker request: %w", err)
	}

	if err := w.client.SendFrame(ctx, conn, payload); err != nil {
		return err
	}

	for {
		data, err := w.client.ReceiveFrame(ctx, conn)
		if err != nil {
			return err
		}

		var frame Frame
		if err := msgpack.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("failed to unmarshal worker frame: %w", err)
		}

		switch frame.Type {
		case FrameEnd:
			healthy = true
			return nil
		case FrameError:
			// The stream terminated cleanly; the failure is the worker's.
			healthy = true
			return fmt.Errorf("worker error: %s", frame.Message)
		default:
			if onFrame != nil {
				if err := onFrame(frame); err != nil {
					return err
				}
			}
		}
	}
}

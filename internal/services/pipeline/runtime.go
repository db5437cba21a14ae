package pipeline

import (
	"context"
)

// Device kinds reported by the worker's capability probe.
const (
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// Numeric precision chosen per device: reduced on the accelerator for
// throughput, full width on CPU to preserve accuracy.
const (
	DtypeBFloat16 = "bfloat16"
	DtypeFloat32  = "float32"
)

type Device struct {
	Kind string `msgpack:"kind"`
	Name string `msgpack:"name"`
}

type LoadParams struct {
	ModelID    string `msgpack:"model_id"`
	ModelDir   string `msgpack:"model_dir"`
	Device     string `msgpack:"device"`
	Dtype      string `msgpack:"dtype"`
	CPUOffload bool   `msgpack:"cpu_offload"`
}

type GenerateParams struct {
	Prompt        string  `msgpack:"prompt"`
	Height        int     `msgpack:"height"`
	Width         int     `msgpack:"width"`
	Steps         int     `msgpack:"steps"`
	GuidanceScale float64 `msgpack:"guidance_scale"`
	Seed          int64   `msgpack:"seed"`
}

// Frame types streamed back by the worker during generation.
const (
	FrameProgress = "progress"
	FrameImage    = "image"
	FrameEnd      = "end"
	FrameError    = "error"
)

// Frame is one streamed message from the worker: step progress, the raw
// bitmap result, a terminal error, or the end-of-stream marker.
type Frame struct {
	Type       string `msgpack:"type"`
	Step       int    `msgpack:"step,omitempty"`
	TotalSteps int    `msgpack:"total_steps,omitempty"`
	Data       []byte `msgpack:"data,omitempty"`
	Message    string `msgpack:"message,omitempty"`
}

// FrameFunc receives streamed frames during generation. Returning an error
// aborts the read loop.
type FrameFunc func(Frame) error

// Runtime is the link to the external inference worker. Implementations
// must tolerate being called from one goroutine at a time; serialization is
// the manager's and orchestrator's job.
type Runtime interface {
	// Probe reports the compute device the worker will place models on.
	Probe(ctx context.Context) (Device, error)
	// Load constructs the pipeline on the worker. Blocking; may take
	// minutes on a cold cache.
	Load(ctx context.Context, params LoadParams) error
	// Unload drops the worker's pipeline and reclaims device memory.
	Unload(ctx context.Context) error
	// Generate runs inference, streaming frames to onFrame until the end
	// marker. The image arrives as one FrameImage payload.
	Generate(ctx context.Context, params GenerateParams, onFrame FrameFunc) error
	Close() error
}

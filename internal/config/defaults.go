package config

import "errors"

const (
	DefaultZImageHome = "~/.zimage"
	DefaultHost       = "localhost"
	DefaultPort       = 8000
	DefaultWorkerAddr = "localhost:8500"

	// DefaultWorkerTimeout is generous because a cold model load on the
	// worker can take minutes.
	DefaultWorkerTimeout = 500
)

var (
	ErrHomeNotSet       = errors.New("zimage home directory is not set")
	ErrHomeExpandFailed = errors.New("failed to expand zimage home directory")
)

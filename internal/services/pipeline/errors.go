package pipeline

import "errors"

// LoadError marks a failure during the load sequence: model fetch, device
// probe, or pipeline construction. The lifecycle has already been reset to
// absent when one of these surfaces.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return "failed to load pipeline: " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

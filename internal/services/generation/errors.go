package generation

import "errors"

// ValidationError rejects a request before it touches the pipeline; the API
// maps it to HTTP 400. Everything else out of Generate is a 500.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationErrorf(detail string) error {
	return &ValidationError{Detail: detail}
}

package logger

import (
	"go.uber.org/zap"
)

// NewLogger builds a zap logger for the given environment. "prod" gets the
// JSON production config, "test" the deterministic example config, everything
// else the development console config.
func NewLogger(environment string) (*zap.Logger, error) {
	switch environment {
	case "prod":
		return zap.NewProduction()
	case "test":
		return zap.NewExample(), nil
	default:
		return zap.NewDevelopment()
	}
}

func MustNewLogger(environment string) *zap.Logger {
	return zap.Must(NewLogger(environment))
}

package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates a zap logger for the given environment. local and
// development log human readable output at debug level, production logs
// JSON at info level.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production", "prod":
		return zap.NewProduction()
	case "development", "dev":
		return zap.NewDevelopment()
	case "local", "":
		cfg := zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
		return cfg.Build()
	}
	return nil, fmt.Errorf("unknown environment %q", env)
}

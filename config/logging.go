package config

import (
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/logging"
)

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

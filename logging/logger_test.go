package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewProductionSkipsDebug(t *testing.T) {
	l, err := New("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
}

func TestNewLocalLogsDebug(t *testing.T) {
	l, err := New("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestNewUnknownEnvironment(t *testing.T) {
	_, err := New("staging-eu")
	assert.Error(t, err)
}

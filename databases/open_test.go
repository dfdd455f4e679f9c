package databases_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/databases"
	"github.com/linesmerrill/custody-ledger-api/models"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := databases.Open(ctx, &config.Config{
		DBDriver: "sqlite",
		SQLDSN:   "file:open_test?mode=memory&cache=private",
	})
	require.NoError(t, err)
	defer b.Close(ctx)

	assert.Equal(t, "sqlite", b.Driver())
	require.NoError(t, b.Ping(ctx, time.Second))

	exists, err := b.RecordExists(ctx, "CASE-1234-A")
	require.NoError(t, err)
	assert.False(t, exists)

	rec := models.Record{ID: "CASE-1234-A", DetaineeName: "R. Kumar", Status: models.StatusDetained, RiskLevel: models.RiskLow}
	require.NoError(t, b.InsertRecord(ctx, rec))
	exists, err = b.RecordExists(ctx, "CASE-1234-A")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := databases.Open(context.Background(), &config.Config{DBDriver: "cassandra"})
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

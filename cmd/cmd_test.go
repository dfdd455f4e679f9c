package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/databases/sqlstore"
	"github.com/linesmerrill/custody-ledger-api/models"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := RootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "verify"}, names)
}

func TestVerifyCommand(t *testing.T) {
	// shared cache so the command's connection sees the rows written here
	dsn := "file:verify_cmd?mode=memory&cache=shared"
	store, err := sqlstore.Open("sqlite", dsn)
	require.NoError(t, err)
	defer store.Close()

	t.Setenv("ENV", "local")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQL_DSN", dsn)

	var out bytes.Buffer
	root := RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"verify"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "all active records have audit entries")

	// a record row without its seed entry
	require.NoError(t, store.InsertRecord(context.Background(), models.Record{
		ID: "CASE-1234-A", DetaineeName: "R. Kumar", Status: models.StatusDetained, RiskLevel: models.RiskLow,
	}))
	orphans, err := custody.NewRepository(store).VerifyIntegrity(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"CASE-1234-A"}, orphans)

	out.Reset()
	root = RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"verify"})
	err = root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "1 active records have no audit entries")
	assert.Contains(t, out.String(), "CASE-1234-A")
}

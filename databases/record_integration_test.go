//go:build integration

package databases_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/databases"
	"github.com/linesmerrill/custody-ledger-api/models"
)

func newMongoRecordDatabase(t *testing.T) *databases.RecordDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7", tcmongo.WithReplicaSet("rs0"))
	if err != nil {
		t.Fatalf("failed to start mongodb container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	u, err := url.Parse(uri)
	require.NoError(t, err)
	q := u.Query()
	q.Set("directConnection", "true")
	u.RawQuery = q.Encode()

	conf := &config.Config{URL: u.String(), DatabaseName: "custody_it"}
	client, err := databases.NewClient(conf)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	store := databases.NewRecordDatabase(databases.NewDatabase(conf, client), true)
	require.NoError(t, store.Ping(ctx, 10*time.Second))
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestRecordDatabase_RepositoryLifecycle(t *testing.T) {
	store := newMongoRecordDatabase(t)
	repo := custody.NewRepository(store)
	ctx := context.Background()

	id, err := repo.Intake(ctx, custody.IntakeRequest{
		DetaineeName:    "Arun Kumar",
		Age:             34,
		Location:        "T. Nagar",
		PoliceStation:   "T. Nagar PS",
		OfficerInCharge: "Officer Reed",
	}, "POLICE")
	require.NoError(t, err)

	require.NoError(t, repo.ChangeStatus(ctx, id, models.StatusReleased, "bail granted", "POLICE", false))
	require.NoError(t, repo.Update(ctx, id, models.RecordPatch{}, models.LogEntry{Action: "Internal Note", IsInternal: true}))

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReleased, rec.Status)
	require.Len(t, rec.Logs, 3)
	assert.Len(t, custody.Project(custody.RolePublic, *rec).Logs, 2)

	require.NoError(t, repo.Archive(ctx, id))
	require.NoError(t, repo.Archive(ctx, id))
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRecordDatabase_DuplicateLogIDRollsBackPatch(t *testing.T) {
	store := newMongoRecordDatabase(t)
	repo := custody.NewRepository(store)
	ctx := context.Background()

	id, err := repo.Intake(ctx, custody.IntakeRequest{DetaineeName: "Meena", Location: "Adyar"}, "POLICE")
	require.NoError(t, err)
	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)

	released := models.StatusReleased
	err = repo.Update(ctx, id, models.RecordPatch{Status: &released}, models.LogEntry{ID: rec.Logs[0].ID, Action: "Status Change: Released"})

	var ve *custody.ValidationError
	require.ErrorAs(t, err, &ve)
	after, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDetained, after.Status)
	assert.Len(t, after.Logs, 1)
}

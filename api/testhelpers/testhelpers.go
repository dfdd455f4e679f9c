// Package testhelpers builds real repositories for handler tests
package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/custody-ledger-api/blobstore"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/databases/sqlstore"
)

// Ledger is a repository over a private in-memory sqlite database with
// uploads written under a temporary directory
type Ledger struct {
	Repo      *custody.Repository
	Store     *sqlstore.Store
	UploadDir string
}

// NewLedger creates a Ledger that is closed when the test ends
func NewLedger(t testing.TB, opts ...custody.Option) *Ledger {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := sqlstore.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=private", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	disk, err := blobstore.NewDisk(t.TempDir(), "http://ledger.test")
	require.NoError(t, err)

	opts = append([]custody.Option{custody.WithBlobStore(disk)}, opts...)
	return &Ledger{
		Repo:      custody.NewRepository(store, opts...),
		Store:     store,
		UploadDir: disk.Root(),
	}
}

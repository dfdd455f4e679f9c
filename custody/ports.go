package custody

import (
	"context"
	"io"

	"github.com/linesmerrill/custody-ledger-api/models"
)

// Store is the persistence collaborator: three relations (records, logs,
// evidence) keyed by record id. Log entries have no update or delete path.
type Store interface {
	RecordExists(ctx context.Context, id string) (bool, error)
	// FindRecord returns the record row without logs or files, ErrNotFound if absent.
	FindRecord(ctx context.Context, id string) (*models.Record, error)
	// InsertRecord returns ErrDuplicate if the id is taken.
	InsertRecord(ctx context.Context, rec models.Record) error
	// PatchRecord sets the given fields, ErrNotFound if the id is unknown.
	PatchRecord(ctx context.Context, id string, fields map[string]interface{}) error
	// SetArchived marks the record archived, ErrNotFound if the id is unknown.
	SetArchived(ctx context.Context, id string) error
	// InsertLog returns ErrDuplicate if the entry id is taken within the record.
	InsertLog(ctx context.Context, recordID string, entry models.LogEntry) error
	InsertEvidence(ctx context.Context, ev models.Evidence) error

	ActiveRecords(ctx context.Context) ([]models.Record, error)
	// LogsFor groups entries by record id, each group ordered by timestamp ascending.
	LogsFor(ctx context.Context, recordIDs []string) (map[string][]models.LogEntry, error)
	// EvidenceFor groups registrations by record id in upload order.
	EvidenceFor(ctx context.Context, recordIDs []string) (map[string][]models.Evidence, error)

	// WithTransaction runs fn so that its writes commit or fail together.
	// Stores without transaction support run fn directly.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BlobStore holds uploaded file bytes under a key and resolves keys to URLs
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Notifier tells connected viewers that authoritative state changed.
// Delivery is best-effort and carries no state.
type Notifier interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Escalator is told when a record enters an urgent status
type Escalator interface {
	Escalate(ctx context.Context, rec models.Record, entry models.LogEntry) error
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, models.ChangeEvent) error { return nil }

package custody

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linesmerrill/custody-ledger-api/models"
)

// Actors used by the system-generated entries
const (
	ActorSystem        = "SYSTEM"
	ActorPublicCitizen = "PUBLIC_CITIZEN"
)

// AuditLog appends entries to a record's history. It owns the timestamp
// and id assignment; entries are never edited once stored.
type AuditLog struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewAuditLog creates an audit log writing through store
func NewAuditLog(store Store, now func() time.Time) *AuditLog {
	if now == nil {
		now = time.Now
	}
	return &AuditLog{store: store, now: now, newID: uuid.NewString}
}

// Stamp assigns the append-time timestamp, overriding anything the caller
// sent, and an id when the caller left it blank.
func (a *AuditLog) Stamp(entry models.LogEntry) models.LogEntry {
	entry.Timestamp = models.NormalizeTime(a.now())
	if entry.ID == "" {
		entry.ID = a.newID()
	}
	if entry.PerformedBy == "" {
		entry.PerformedBy = ActorSystem
	}
	return entry
}

// Append stamps entry and stores it against recordID
func (a *AuditLog) Append(ctx context.Context, recordID string, entry models.LogEntry) (models.LogEntry, error) {
	if entry.Action == "" {
		return entry, invalid("log.action", "is required")
	}
	entry = a.Stamp(entry)
	if err := a.store.InsertLog(ctx, recordID, entry); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return entry, invalid("log.id", fmt.Sprintf("%s already used in record %s", entry.ID, recordID))
		}
		return entry, datastore(err)
	}
	return entry, nil
}

// IntakeEntry seeds a record created by a police intake
func IntakeEntry(performedBy string) models.LogEntry {
	return models.LogEntry{
		Action:      "Intake Protocol Initialized",
		PerformedBy: performedBy,
	}
}

// AlertEntry seeds a record created from a public unregistered-detention report
func AlertEntry(location, details string) models.LogEntry {
	return models.LogEntry{
		Action:      "Unregistered Detention Reported by Public",
		PerformedBy: ActorPublicCitizen,
		Notes:       fmt.Sprintf("LOCATION: %s | DETAILS: %s", location, details),
	}
}

// StatusChangeEntry records a status transition
func StatusChangeEntry(status models.Status, notes, performedBy string, internal bool) models.LogEntry {
	return models.LogEntry{
		Action:      "Status Change: " + string(status),
		PerformedBy: performedBy,
		Notes:       notes,
		IsInternal:  internal,
	}
}

// ProfileModifiedEntry records a field edit
func ProfileModifiedEntry(notes, performedBy string) models.LogEntry {
	return models.LogEntry{
		Action:      "Profile Modified",
		PerformedBy: performedBy,
		Notes:       notes,
	}
}

// UploadEntry records a file attachment
func UploadEntry(category models.FileCategory, token, performedBy string) models.LogEntry {
	action := "Evidence Uploaded"
	if category == models.CategoryMedical {
		action = "Medical Document Uploaded"
	}
	return models.LogEntry{
		Action:      action,
		PerformedBy: performedBy,
		Notes:       token,
	}
}

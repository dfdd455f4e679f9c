package models

// EventType tags a change notification
type EventType string

// Change notification types. RESYNC carries no record id and asks every
// viewer to refetch the full record set.
const (
	EventCreate  EventType = "CREATE"
	EventUpdate  EventType = "UPDATE"
	EventArchive EventType = "ARCHIVE"
	EventUpload  EventType = "UPLOAD"
	EventResync  EventType = "RESYNC"
)

// ChangeEvent is an invalidation signal, never a diff. Receivers refetch.
type ChangeEvent struct {
	Type     EventType `json:"type"`
	RecordID string    `json:"recordId,omitempty"`
}

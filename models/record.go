package models

import "time"

// Status is the custody state of a record
type Status string

// Custody statuses. Any status may follow any other.
const (
	StatusDetained          Status = "Detained"
	StatusMedicalCheck      Status = "Medical Check Required"
	StatusTransferPending   Status = "Transfer Pending"
	StatusReleased          Status = "Released"
	StatusEmergency         Status = "Emergency Flag"
	StatusUnregisteredAlert Status = "Unregistered Detention Alert"
)

// Statuses lists every known status in display order
var Statuses = []Status{
	StatusDetained,
	StatusMedicalCheck,
	StatusTransferPending,
	StatusReleased,
	StatusEmergency,
	StatusUnregisteredAlert,
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Urgent reports whether a record in this status must be escalated
func (s Status) Urgent() bool {
	return s == StatusEmergency || s == StatusUnregisteredAlert
}

// RiskLevel is assigned at creation and never derived
type RiskLevel string

// Risk levels
const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Valid reports whether r is a known risk level
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Record holds the structure for a custody record as stored in the records
// collection together with its logs and file references.
type Record struct {
	ID               string     `json:"id" bson:"_id"`
	DetaineeName     string     `json:"detaineeName" bson:"detaineeName"`
	Age              int        `json:"age" bson:"age"`
	Gender           string     `json:"gender" bson:"gender"`
	DateTimeDetained time.Time  `json:"dateTimeDetained" bson:"dateTimeDetained"`
	Location         string     `json:"location" bson:"location"`
	Reason           string     `json:"reason" bson:"reason"`
	Status           Status     `json:"status" bson:"status"`
	PoliceStation    string     `json:"policeStation" bson:"policeStation"`
	OfficerInCharge  string     `json:"officerInCharge" bson:"officerInCharge"`
	LastMedicalCheck *time.Time `json:"lastMedicalCheck,omitempty" bson:"lastMedicalCheck,omitempty"`
	RiskLevel        RiskLevel  `json:"riskLevel" bson:"riskLevel"`
	IsArchived       bool       `json:"isArchived" bson:"isArchived"`

	// assembled from the logs and evidence collections, never stored on the record row
	Logs             []LogEntry `json:"logs" bson:"-"`
	EvidenceURLs     []string   `json:"evidenceUrls" bson:"-"`
	MedicalDocuments []string   `json:"medicalDocuments" bson:"-"`
}

// LogEntry is one immutable audit event attached to a record
type LogEntry struct {
	ID          string    `json:"id" bson:"id"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Action      string    `json:"action" bson:"action"`
	PerformedBy string    `json:"performedBy" bson:"performedBy"`
	Notes       string    `json:"notes,omitempty" bson:"notes"`
	IsInternal  bool      `json:"isInternal" bson:"isInternal"`
}

// FileCategory separates medical documents from general evidence
type FileCategory string

// File categories, stored as the evidence row type
const (
	CategoryMedical  FileCategory = "MEDICAL"
	CategoryEvidence FileCategory = "EVIDENCE"
)

// Valid reports whether c is a known category
func (c FileCategory) Valid() bool {
	return c == CategoryMedical || c == CategoryEvidence
}

// Evidence registers an uploaded file against a record
type Evidence struct {
	RecordID   string       `json:"recordId" bson:"recordId"`
	Filename   string       `json:"filename" bson:"filename"`
	Category   FileCategory `json:"type" bson:"type"`
	UploadedAt time.Time    `json:"uploadedAt" bson:"uploadedAt"`
}

// NormalizeTime truncates t to the precision every store can round-trip
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}

package custody

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/models"
)

const (
	maxIDAttempts     = 5
	escalationTimeout = 10 * time.Second
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// IntakeRequest is the police intake form. ID is optional; the repository
// assigns a CASE id when it is blank.
type IntakeRequest struct {
	ID               string        `json:"id,omitempty"`
	DetaineeName     string        `json:"detaineeName"`
	Age              int           `json:"age"`
	Gender           string        `json:"gender"`
	DateTimeDetained time.Time     `json:"dateTimeDetained"`
	Location         string        `json:"location"`
	Reason           string        `json:"reason"`
	Status           models.Status `json:"status,omitempty"`
	PoliceStation    string        `json:"policeStation"`
	OfficerInCharge  string        `json:"officerInCharge"`
	Notes            string        `json:"notes,omitempty"`
}

// AlertReport is a public report of a detention nobody registered
type AlertReport struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// AttachRequest carries one uploaded file
type AttachRequest struct {
	RecordID    string
	Filename    string
	Content     io.Reader
	Category    models.FileCategory
	PerformedBy string
}

// Repository is the record façade: CRUD over the three relations, audit
// appends, file attachment and change notification.
type Repository struct {
	store     Store
	audit     *AuditLog
	blobs     BlobStore
	notifier  Notifier
	escalator Escalator
	ids       IDSource
	now       func() time.Time
	log       *zap.SugaredLogger
}

// Option configures a Repository
type Option func(*Repository)

// WithBlobStore sets where attached files are written
func WithBlobStore(b BlobStore) Option {
	return func(r *Repository) { r.blobs = b }
}

// WithNotifier sets the change notification sink
func WithNotifier(n Notifier) Option {
	return func(r *Repository) { r.notifier = n }
}

// WithEscalator sets who is told about urgent records
func WithEscalator(e Escalator) Option {
	return func(r *Repository) { r.escalator = e }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDSource replaces the random source used for record ids
func WithIDSource(src IDSource) Option {
	return func(r *Repository) { r.ids = src }
}

// WithLogger replaces the global zap logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Repository) { r.log = l }
}

// NewRepository creates a repository over store
func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		notifier: noopNotifier{},
		ids:      globalSource{},
		now:      time.Now,
		log:      zap.S(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.audit = NewAuditLog(store, r.now)
	return r
}

// ListActive returns every non-archived record with its logs and file lists
func (r *Repository) ListActive(ctx context.Context) ([]models.Record, error) {
	recs, err := r.store.ActiveRecords(ctx)
	if err != nil {
		return nil, datastore(err)
	}
	return r.assemble(ctx, recs)
}

// Get returns one record, archived or not
func (r *Repository) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := r.findRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	recs, err := r.assemble(ctx, []models.Record{*rec})
	if err != nil {
		return nil, err
	}
	return &recs[0], nil
}

// Create inserts rec and its single seed log entry in one transaction
func (r *Repository) Create(ctx context.Context, rec models.Record) error {
	err := r.create(ctx, rec)
	observe("create", err)
	return err
}

func (r *Repository) create(ctx context.Context, rec models.Record) error {
	if err := validateNew(rec); err != nil {
		return err
	}
	exists, err := r.store.RecordExists(ctx, rec.ID)
	if err != nil {
		return datastore(err)
	}
	if exists {
		return invalid("id", rec.ID+" already exists")
	}

	seed := rec.Logs[0]
	row := normalize(rec)
	var stamped models.LogEntry
	err = r.inTx(ctx, func(ctx context.Context) error {
		if err := r.store.InsertRecord(ctx, row); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return invalid("id", rec.ID+" already exists")
			}
			return datastore(err)
		}
		var err error
		stamped, err = r.audit.Append(ctx, rec.ID, seed)
		if err != nil {
			r.log.Errorw("seed audit entry failed after record insert",
				"recordId", rec.ID,
				"error", err,
			)
		}
		return err
	})
	if err != nil {
		return err
	}

	r.publish(ctx, models.EventCreate, rec.ID)
	if rec.Status.Urgent() {
		r.escalate(ctx, row, stamped)
	}
	return nil
}

// Intake creates a police intake record and returns its id
func (r *Repository) Intake(ctx context.Context, in IntakeRequest, actor string) (string, error) {
	id := in.ID
	if id == "" {
		var err error
		if id, err = r.freshID(ctx, NewCaseID); err != nil {
			return "", err
		}
	}
	status := in.Status
	if status == "" {
		status = models.StatusDetained
	}
	detained := in.DateTimeDetained
	if detained.IsZero() {
		detained = r.now()
	}
	performedBy := actor
	if performedBy == "" {
		performedBy = in.OfficerInCharge
	}
	seed := IntakeEntry(performedBy)
	seed.Notes = in.Notes

	rec := models.Record{
		ID:               id,
		DetaineeName:     in.DetaineeName,
		Age:              in.Age,
		Gender:           in.Gender,
		DateTimeDetained: detained,
		Location:         in.Location,
		Reason:           in.Reason,
		Status:           status,
		PoliceStation:    in.PoliceStation,
		OfficerInCharge:  in.OfficerInCharge,
		RiskLevel:        models.RiskLow,
		Logs:             []models.LogEntry{seed},
		EvidenceURLs:     []string{},
		MedicalDocuments: []string{},
	}
	if err := r.Create(ctx, rec); err != nil {
		return "", err
	}
	return id, nil
}

// ReportUnregistered creates an ALERT record from a public report and returns its id
func (r *Repository) ReportUnregistered(ctx context.Context, report AlertReport) (string, error) {
	if strings.TrimSpace(report.Location) == "" {
		err := invalid("location", "is required")
		observe("create", err)
		return "", err
	}
	name := report.Name
	if strings.TrimSpace(name) == "" {
		name = "Unknown"
	}
	id, err := r.freshID(ctx, NewAlertID)
	if err != nil {
		return "", err
	}
	rec := models.Record{
		ID:               id,
		DetaineeName:     name,
		Gender:           "Unknown",
		DateTimeDetained: r.now(),
		Location:         report.Location,
		Reason:           report.Description,
		Status:           models.StatusUnregisteredAlert,
		PoliceStation:    "N/A",
		OfficerInCharge:  "N/A",
		RiskLevel:        models.RiskHigh,
		Logs:             []models.LogEntry{AlertEntry(report.Location, report.Description)},
		EvidenceURLs:     []string{},
		MedicalDocuments: []string{},
	}
	if err := r.Create(ctx, rec); err != nil {
		return "", err
	}
	return id, nil
}

// Update applies patch and appends entry. An empty patch only appends.
// Concurrent updates apply in arrival order; the later write wins per field.
func (r *Repository) Update(ctx context.Context, id string, patch models.RecordPatch, entry models.LogEntry) error {
	err := r.update(ctx, id, patch, entry)
	observe("update", err)
	return err
}

func (r *Repository) update(ctx context.Context, id string, patch models.RecordPatch, entry models.LogEntry) error {
	if err := validatePatch(patch); err != nil {
		return err
	}
	rec, err := r.findRecord(ctx, id)
	if err != nil {
		return err
	}

	var stamped models.LogEntry
	err = r.inTx(ctx, func(ctx context.Context) error {
		if !patch.IsEmpty() {
			if err := r.store.PatchRecord(ctx, id, patch.Fields()); err != nil {
				if errors.Is(err, ErrNotFound) {
					return &NotFoundError{ID: id}
				}
				return datastore(err)
			}
		}
		var err error
		stamped, err = r.audit.Append(ctx, id, entry)
		return err
	})
	if err != nil {
		return err
	}

	r.publish(ctx, models.EventUpdate, id)
	if patch.Status != nil && patch.Status.Urgent() {
		patch.ApplyTo(rec)
		r.escalate(ctx, *rec, stamped)
	}
	return nil
}

// ChangeStatus moves a record to status and audits the change
func (r *Repository) ChangeStatus(ctx context.Context, id string, status models.Status, notes, actor string, internal bool) error {
	return r.Update(ctx, id, models.RecordPatch{Status: &status}, StatusChangeEntry(status, notes, actor, internal))
}

// ModifyProfile edits record fields and audits the edit
func (r *Repository) ModifyProfile(ctx context.Context, id string, patch models.RecordPatch, notes, actor string) error {
	return r.Update(ctx, id, patch, ProfileModifiedEntry(notes, actor))
}

// ReportConcern flags a record as an emergency on behalf of the public
func (r *Repository) ReportConcern(ctx context.Context, id, concern string) error {
	if strings.TrimSpace(concern) == "" {
		return invalid("concern", "is required")
	}
	return r.ChangeStatus(ctx, id, models.StatusEmergency, "PUBLIC_REPORT: "+concern, string(RolePublic), false)
}

// TriggerSOS flags a record as an emergency from the public SOS button
func (r *Repository) TriggerSOS(ctx context.Context, id string) error {
	return r.ChangeStatus(ctx, id, models.StatusEmergency, "SOS_SIGNAL_TRIGGERED", string(RolePublic), false)
}

// Archive hides a record from active listings. It is idempotent and does
// not touch the log.
func (r *Repository) Archive(ctx context.Context, id string) error {
	err := r.archive(ctx, id)
	observe("archive", err)
	return err
}

func (r *Repository) archive(ctx context.Context, id string) error {
	if err := r.store.SetArchived(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return datastore(err)
	}
	r.publish(ctx, models.EventArchive, id)
	return nil
}

// AttachFile stores the bytes, then registers the file and audits the
// upload in one transaction. It returns the file token.
func (r *Repository) AttachFile(ctx context.Context, req AttachRequest) (string, error) {
	token, err := r.attachFile(ctx, req)
	observe("upload", err)
	return token, err
}

func (r *Repository) attachFile(ctx context.Context, req AttachRequest) (string, error) {
	if !req.Category.Valid() {
		return "", invalid("type", fmt.Sprintf("must be %s or %s", models.CategoryMedical, models.CategoryEvidence))
	}
	name := SanitizeFilename(req.Filename)
	if name == "" {
		return "", invalid("file", "name is required")
	}
	if req.Content == nil {
		return "", invalid("file", "content is required")
	}
	if r.blobs == nil {
		return "", &UploadError{Op: "store", Err: errors.New("no blob store configured")}
	}
	if _, err := r.findRecord(ctx, req.RecordID); err != nil {
		return "", err
	}

	now := r.now()
	token := fmt.Sprintf("%s/%d-%s", req.RecordID, now.UnixMilli(), name)
	if err := r.blobs.Put(ctx, token, req.Content); err != nil {
		return "", &UploadError{Op: "store", Err: err}
	}

	err := r.inTx(ctx, func(ctx context.Context) error {
		ev := models.Evidence{
			RecordID:   req.RecordID,
			Filename:   token,
			Category:   req.Category,
			UploadedAt: models.NormalizeTime(now),
		}
		if err := r.store.InsertEvidence(ctx, ev); err != nil {
			return &UploadError{Op: "register", Err: err}
		}
		if _, err := r.audit.Append(ctx, req.RecordID, UploadEntry(req.Category, token, req.PerformedBy)); err != nil {
			return &UploadError{Op: "register", Err: err}
		}
		return nil
	})
	if err != nil {
		if derr := r.blobs.Delete(context.WithoutCancel(ctx), token); derr != nil {
			r.log.Errorw("blob left behind after failed registration",
				"token", token,
				"error", derr,
			)
		}
		var ue *UploadError
		if !errors.As(err, &ue) {
			err = &UploadError{Op: "register", Err: err}
		}
		return "", err
	}

	r.publish(ctx, models.EventUpload, req.RecordID)
	return token, nil
}

// FileURL resolves a file token to a fetchable URL
func (r *Repository) FileURL(ctx context.Context, token string) (string, error) {
	if token == "" || strings.Contains(token, "..") {
		return "", invalid("token", "is malformed")
	}
	if r.blobs == nil {
		return "", &UploadError{Op: "resolve", Err: errors.New("no blob store configured")}
	}
	url, err := r.blobs.URL(ctx, token)
	if err != nil {
		return "", &UploadError{Op: "resolve", Err: err}
	}
	return url, nil
}

// VerifyIntegrity lists active records that have no audit entries, which
// only a partially failed create can produce.
func (r *Repository) VerifyIntegrity(ctx context.Context) ([]string, error) {
	recs, err := r.store.ActiveRecords(ctx)
	if err != nil {
		return nil, datastore(err)
	}
	ids := recordIDs(recs)
	logs, err := r.store.LogsFor(ctx, ids)
	if err != nil {
		return nil, datastore(err)
	}
	orphans := []string{}
	for _, id := range ids {
		if len(logs[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	orphanedRecords.Set(float64(len(orphans)))
	return orphans, nil
}

// SanitizeFilename strips directories and replaces anything outside
// [a-zA-Z0-9.-] with an underscore.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

func (r *Repository) findRecord(ctx context.Context, id string) (*models.Record, error) {
	rec, err := r.store.FindRecord(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, datastore(err)
	}
	return rec, nil
}

func (r *Repository) freshID(ctx context.Context, gen func(IDSource) string) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := gen(r.ids)
		exists, err := r.store.RecordExists(ctx, id)
		if err != nil {
			return "", datastore(err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", &ConnectivityError{
		Component: "id generator",
		Err:       fmt.Errorf("no free id after %d attempts", maxIDAttempts),
	}
}

// inTx runs fn in a store transaction and keeps typed errors intact
func (r *Repository) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.store.WithTransaction(ctx, fn)
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		nf *NotFoundError
		ue *UploadError
		ce *ConnectivityError
	)
	if errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ue) || errors.As(err, &ce) {
		return err
	}
	return datastore(err)
}

func (r *Repository) publish(ctx context.Context, t models.EventType, id string) {
	ev := models.ChangeEvent{Type: t, RecordID: id}
	if err := r.notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		notifyFailuresTotal.Inc()
		r.log.Warnw("change notification not delivered",
			"type", t,
			"recordId", id,
			"error", &ConnectivityError{Component: "notifier", Err: err},
		)
	}
}

func (r *Repository) escalate(ctx context.Context, rec models.Record, entry models.LogEntry) {
	if r.escalator == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), escalationTimeout)
	defer cancel()
	if err := r.escalator.Escalate(ctx, rec, entry); err != nil {
		r.log.Warnw("escalation failed",
			"recordId", rec.ID,
			"status", rec.Status,
			"error", err,
		)
	}
}

func (r *Repository) assemble(ctx context.Context, recs []models.Record) ([]models.Record, error) {
	ids := recordIDs(recs)
	logs, err := r.store.LogsFor(ctx, ids)
	if err != nil {
		return nil, datastore(err)
	}
	files, err := r.store.EvidenceFor(ctx, ids)
	if err != nil {
		return nil, datastore(err)
	}

	out := make([]models.Record, len(recs))
	for i, rec := range recs {
		rec.Logs = logs[rec.ID]
		if rec.Logs == nil {
			rec.Logs = []models.LogEntry{}
		}
		rec.EvidenceURLs = []string{}
		rec.MedicalDocuments = []string{}
		for _, f := range files[rec.ID] {
			switch f.Category {
			case models.CategoryMedical:
				rec.MedicalDocuments = append(rec.MedicalDocuments, f.Filename)
			case models.CategoryEvidence:
				rec.EvidenceURLs = append(rec.EvidenceURLs, f.Filename)
			}
		}
		out[i] = rec
	}
	return out, nil
}

func recordIDs(recs []models.Record) []string {
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

func normalize(rec models.Record) models.Record {
	rec.DateTimeDetained = models.NormalizeTime(rec.DateTimeDetained)
	if rec.LastMedicalCheck != nil {
		t := models.NormalizeTime(*rec.LastMedicalCheck)
		rec.LastMedicalCheck = &t
	}
	rec.IsArchived = false
	rec.Logs = nil
	rec.EvidenceURLs = nil
	rec.MedicalDocuments = nil
	return rec
}

func validateNew(rec models.Record) error {
	switch {
	case !ValidRecordID(rec.ID):
		return invalid("id", "must look like CASE-1234-A or ALERT-1234")
	case strings.TrimSpace(rec.DetaineeName) == "":
		return invalid("detaineeName", "is required")
	case rec.Age < 0:
		return invalid("age", "must not be negative")
	case rec.DateTimeDetained.IsZero():
		return invalid("dateTimeDetained", "is required")
	case !rec.Status.Valid():
		return invalid("status", fmt.Sprintf("unknown status %q", rec.Status))
	case !rec.RiskLevel.Valid():
		return invalid("riskLevel", fmt.Sprintf("unknown risk level %q", rec.RiskLevel))
	case len(rec.Logs) != 1:
		return invalid("logs", "exactly one seed entry is required")
	case len(rec.EvidenceURLs) > 0 || len(rec.MedicalDocuments) > 0:
		return invalid("evidenceUrls", "files are attached after creation")
	}
	return nil
}

func validatePatch(p models.RecordPatch) error {
	switch {
	case p.DetaineeName != nil && strings.TrimSpace(*p.DetaineeName) == "":
		return invalid("detaineeName", "must not be blank")
	case p.Age != nil && *p.Age < 0:
		return invalid("age", "must not be negative")
	case p.DateTimeDetained != nil && p.DateTimeDetained.IsZero():
		return invalid("dateTimeDetained", "must not be zero")
	case p.Status != nil && !p.Status.Valid():
		return invalid("status", fmt.Sprintf("unknown status %q", *p.Status))
	case p.RiskLevel != nil && !p.RiskLevel.Valid():
		return invalid("riskLevel", fmt.Sprintf("unknown risk level %q", *p.RiskLevel))
	}
	return nil
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/api"
	"github.com/linesmerrill/custody-ledger-api/config"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

// maxUploadBytes bounds a multipart upload body
const maxUploadBytes = 25 << 20

// RecordService is what the record handlers need from the repository
type RecordService interface {
	ListActive(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	Intake(ctx context.Context, in custody.IntakeRequest, actor string) (string, error)
	ReportUnregistered(ctx context.Context, report custody.AlertReport) (string, error)
	Update(ctx context.Context, id string, patch models.RecordPatch, entry models.LogEntry) error
	ChangeStatus(ctx context.Context, id string, status models.Status, notes, actor string, internal bool) error
	ModifyProfile(ctx context.Context, id string, patch models.RecordPatch, notes, actor string) error
	ReportConcern(ctx context.Context, id, concern string) error
	TriggerSOS(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	AttachFile(ctx context.Context, req custody.AttachRequest) (string, error)
	FileURL(ctx context.Context, token string) (string, error)
}

// Record exported for testing purposes
type Record struct {
	Service RecordService
}

type updateRequest struct {
	Updates models.RecordPatch `json:"updates"`
	Log     models.LogEntry    `json:"log"`
}

type statusRequest struct {
	Status     models.Status `json:"status"`
	Notes      string        `json:"notes"`
	IsInternal bool          `json:"isInternal"`
}

type profileRequest struct {
	Updates models.RecordPatch `json:"updates"`
	Notes   string             `json:"notes"`
}

type concernRequest struct {
	Concern string `json:"concern"`
}

// RecordsHandler returns every active record as the caller's role may see it
func (h Record) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	recs, err := h.Service.ListActive(ctx)
	if err != nil {
		writeError(w, "failed to list records", err)
		return
	}
	writeJSON(w, http.StatusOK, custody.ProjectAll(api.IdentityFrom(r.Context()).Role, recs))
}

// RecordByIDHandler returns one record, archived or not
func (h Record) RecordByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rec, err := h.Service.Get(ctx, id)
	if err != nil {
		writeError(w, "failed to get record", err)
		return
	}
	writeJSON(w, http.StatusOK, custody.Project(api.IdentityFrom(r.Context()).Role, *rec))
}

// CreateRecordHandler registers a police intake
func (h Record) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var in custody.IntakeRequest
	if !decode(w, r, &in) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	id, err := h.Service.Intake(ctx, in, api.IdentityFrom(r.Context()).Actor)
	if err != nil {
		writeError(w, "failed to create record", err)
		return
	}
	zap.S().Infow("record created", "recordId", id)
	writeJSON(w, http.StatusCreated, models.CreatedResponse{ID: id})
}

// CreateAlertHandler registers a public report of an unregistered detention
func (h Record) CreateAlertHandler(w http.ResponseWriter, r *http.Request) {
	var report custody.AlertReport
	if !decode(w, r, &report) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	id, err := h.Service.ReportUnregistered(ctx, report)
	if err != nil {
		writeError(w, "failed to report detention", err)
		return
	}
	zap.S().Infow("unregistered detention reported", "recordId", id)
	writeJSON(w, http.StatusCreated, models.CreatedResponse{ID: id})
}

// UpdateRecordHandler applies {updates, log} as one audited change
func (h Record) UpdateRecordHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Log.PerformedBy == "" {
		req.Log.PerformedBy = api.IdentityFrom(r.Context()).Actor
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Service.Update(ctx, id, req.Updates, req.Log); err != nil {
		writeError(w, "failed to update record", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ModifyProfileHandler edits record fields with a PROFILE_MODIFIED entry
func (h Record) ModifyProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Service.ModifyProfile(ctx, id, req.Updates, req.Notes, api.IdentityFrom(r.Context()).Actor); err != nil {
		writeError(w, "failed to modify record", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ChangeStatusHandler moves a record to a new status
func (h Record) ChangeStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		writeError(w, "failed to change status", &custody.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", req.Status)})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Service.ChangeStatus(ctx, id, req.Status, req.Notes, api.IdentityFrom(r.Context()).Actor, req.IsInternal); err != nil {
		writeError(w, "failed to change status", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ArchiveRecordHandler hides a record from the active list
func (h Record) ArchiveRecordHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Service.Archive(ctx, id); err != nil {
		writeError(w, "failed to archive record", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ReportConcernHandler lets the public flag a record as an emergency
func (h Record) ReportConcernHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]
	var req concernRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Service.ReportConcern(ctx, id, req.Concern); err != nil {
		writeError(w, "failed to report concern", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// TriggerSOSHandler raises the SOS emergency flag on a record
func (h Record) TriggerSOSHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := h.Service.TriggerSOS(ctx, id); err != nil {
		writeError(w, "failed to trigger sos", err)
		return
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// UploadHandler attaches a multipart file to a record
func (h Record) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, "failed to parse upload", &custody.ValidationError{Field: "file", Reason: err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "failed to read upload", &custody.ValidationError{Field: "file", Reason: "is required"})
		return
	}
	defer file.Close()

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	token, err := h.Service.AttachFile(ctx, custody.AttachRequest{
		RecordID:    r.FormValue("recordId"),
		Filename:    header.Filename,
		Content:     file,
		Category:    models.FileCategory(strings.ToUpper(r.FormValue("type"))),
		PerformedBy: api.IdentityFrom(r.Context()).Actor,
	})
	if err != nil {
		writeError(w, "failed to attach file", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.UploadResponse{Filename: token})
}

// FileURLHandler resolves ?token= to a fetchable URL
func (h Record) FileURLHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	url, err := h.Service.FileURL(ctx, r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, "failed to resolve file", err)
		return
	}
	writeJSON(w, http.StatusOK, models.FileURLResponse{URL: url})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, "failed to decode request", &custody.ValidationError{Field: "body", Reason: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError maps the custody error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, message string, err error) {
	var (
		ve *custody.ValidationError
		nf *custody.NotFoundError
		ue *custody.UploadError
		ce *custody.ConnectivityError
		fe *custody.ForbiddenError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &nf):
		status = http.StatusNotFound
	case errors.As(err, &fe):
		status = http.StatusForbidden
	case errors.As(err, &ue):
		status = http.StatusBadGateway
	case errors.As(err, &ce), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	config.ErrorStatus(message, status, w, err)
}

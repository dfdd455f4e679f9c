package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/custody-ledger-api/api"
	"github.com/linesmerrill/custody-ledger-api/api/handlers"
	"github.com/linesmerrill/custody-ledger-api/api/handlers/mocks"
	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

var detained = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleRecord() models.Record {
	return models.Record{
		ID:               "CASE-1234-A",
		DetaineeName:     "R. Kumar",
		Age:              34,
		Gender:           "Male",
		DateTimeDetained: detained,
		Location:         "Sector 9 Market",
		Reason:           "Questioning",
		Status:           models.StatusDetained,
		PoliceStation:    "Central PS",
		OfficerInCharge:  "SI Mehta",
		RiskLevel:        models.RiskLow,
		Logs: []models.LogEntry{
			{ID: "l1", Timestamp: detained, Action: "INTAKE_REGISTERED", PerformedBy: "SI Mehta"},
			{ID: "l2", Timestamp: detained.Add(time.Hour), Action: "STATUS_CHANGE: Detained", PerformedBy: "SI Mehta", Notes: "cell 4", IsInternal: true},
		},
		EvidenceURLs:     []string{},
		MedicalDocuments: []string{},
	}
}

func router(svc handlers.RecordService) *mux.Router {
	a := handlers.App{Service: svc}
	return a.New()
}

func do(r http.Handler, method, target, role string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if role != "" {
		req.Header.Set(api.RoleHeader, role)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorMessageResponse {
	t.Helper()
	var resp models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestRecord_RecordsHandlerProjectsByRole(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("ListActive", mock.Anything).Return([]models.Record{sampleRecord()}, nil)
	r := router(svc)

	tests := []struct {
		role string
		logs int
	}{
		{"", 1},
		{"PUBLIC", 1},
		{"POLICE", 2},
		{"LAWYER_NGO", 2},
	}
	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			rr := do(r, http.MethodGet, "/api/v1/records", tt.role, nil)
			require.Equal(t, http.StatusOK, rr.Code)

			var recs []models.Record
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
			require.Len(t, recs, 1)
			assert.Len(t, recs[0].Logs, tt.logs)
		})
	}
}

func TestRecord_RecordByIDHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	rec := sampleRecord()
	svc.On("Get", mock.Anything, "CASE-1234-A").Return(&rec, nil)
	svc.On("Get", mock.Anything, "CASE-0000-Z").Return(nil, &custody.NotFoundError{ID: "CASE-0000-Z"})
	r := router(svc)

	rr := do(r, http.MethodGet, "/api/v1/records/CASE-1234-A", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "R. Kumar", got.DetaineeName)
	assert.Len(t, got.Logs, 1)

	rr = do(r, http.MethodGet, "/api/v1/records/CASE-0000-Z", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "record CASE-0000-Z not found", errorBody(t, rr).Response.Error)
}

func TestRecord_CreateRecordHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("Intake", mock.Anything, mock.MatchedBy(func(in custody.IntakeRequest) bool {
		return in.DetaineeName == "R. Kumar" && in.Age == 34
	}), "SI Mehta").Return("CASE-4821-K", nil).Once()
	r := router(svc)

	body := `{"detaineeName":"R. Kumar","age":34,"gender":"Male","location":"Sector 9","reason":"Questioning","policeStation":"Central PS","officerInCharge":"SI Mehta"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(body))
	req.Header.Set(api.RoleHeader, "POLICE")
	req.Header.Set(api.ActorHeader, "SI Mehta")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"CASE-4821-K"}`, rr.Body.String())
}

func TestRecord_CreateRecordHandlerForbidden(t *testing.T) {
	r := router(mocks.NewRecordService(t))

	for _, role := range []string{"", "LAWYER_NGO"} {
		rr := do(r, http.MethodPost, "/api/v1/records", role, strings.NewReader(`{}`))
		assert.Equal(t, http.StatusForbidden, rr.Code, role)
	}
}

func TestRecord_CreateRecordHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &custody.ValidationError{Field: "id", Reason: "already exists"}, http.StatusBadRequest},
		{"datastore", &custody.ConnectivityError{Component: "datastore", Err: errors.New("no reachable servers")}, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewRecordService(t)
			svc.On("Intake", mock.Anything, mock.Anything, mock.Anything).Return("", tt.err)

			rr := do(router(svc), http.MethodPost, "/api/v1/records", "POLICE", strings.NewReader(`{"detaineeName":"x"}`))

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "failed to create record", errorBody(t, rr).Response.Message)
		})
	}
}

func TestRecord_CreateRecordHandlerBadJSON(t *testing.T) {
	rr := do(router(mocks.NewRecordService(t)), http.MethodPost, "/api/v1/records", "POLICE", strings.NewReader(`{`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "failed to decode request", errorBody(t, rr).Response.Message)
}

func TestRecord_CreateAlertHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("ReportUnregistered", mock.Anything, custody.AlertReport{
		Name: "unknown", Location: "Bus depot", Description: "taken in a white van",
	}).Return("ALERT-4821", nil)

	rr := do(router(svc), http.MethodPost, "/api/v1/alerts", "",
		strings.NewReader(`{"name":"unknown","location":"Bus depot","description":"taken in a white van"}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"ALERT-4821"}`, rr.Body.String())
}

func TestRecord_UpdateRecordHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("Update", mock.Anything, "CASE-1234-A",
		mock.MatchedBy(func(p models.RecordPatch) bool {
			return p.Status != nil && *p.Status == models.StatusReleased && p.Location == nil
		}),
		mock.MatchedBy(func(e models.LogEntry) bool {
			return e.Action == "STATUS_CHANGE: Released" && e.PerformedBy == "Adv. Rao"
		}),
	).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/records/CASE-1234-A",
		strings.NewReader(`{"updates":{"status":"Released"},"log":{"action":"STATUS_CHANGE: Released"}}`))
	req.Header.Set(api.RoleHeader, "LAWYER_NGO")
	req.Header.Set(api.ActorHeader, "Adv. Rao")
	rr := httptest.NewRecorder()
	router(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
}

func TestRecord_UpdateRecordHandlerPublicForbidden(t *testing.T) {
	rr := do(router(mocks.NewRecordService(t)), http.MethodPut, "/api/v1/records/CASE-1234-A", "PUBLIC",
		strings.NewReader(`{"updates":{},"log":{"action":"X"}}`))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRecord_ModifyProfileHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("ModifyProfile", mock.Anything, "CASE-1234-A",
		mock.MatchedBy(func(p models.RecordPatch) bool { return p.Age != nil && *p.Age == 35 }),
		"age corrected", "POLICE").Return(nil).Once()

	rr := do(router(svc), http.MethodPatch, "/api/v1/records/CASE-1234-A", "POLICE",
		strings.NewReader(`{"updates":{"age":35},"notes":"age corrected"}`))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRecord_ChangeStatusHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("ChangeStatus", mock.Anything, "CASE-1234-A", models.StatusTransferPending, "to district jail", "POLICE", true).
		Return(nil).Once()
	r := router(svc)

	rr := do(r, http.MethodPut, "/api/v1/records/CASE-1234-A/status", "POLICE",
		strings.NewReader(`{"status":"Transfer Pending","notes":"to district jail","isInternal":true}`))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodPut, "/api/v1/records/CASE-1234-A/status", "POLICE",
		strings.NewReader(`{"status":"Vanished"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRecord_ArchiveRecordHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("Archive", mock.Anything, "CASE-1234-A").Return(nil).Once()
	svc.On("Archive", mock.Anything, "CASE-0000-Z").Return(&custody.NotFoundError{ID: "CASE-0000-Z"}).Once()
	r := router(svc)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/api/v1/records/CASE-1234-A/archive", "LAWYER_NGO", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/api/v1/records/CASE-0000-Z/archive", "POLICE", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/api/v1/records/CASE-1234-A/archive", "PUBLIC", nil).Code)
}

func TestRecord_PublicEmergencyHandlers(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("ReportConcern", mock.Anything, "CASE-1234-A", "no medical check for 2 days").Return(nil).Once()
	svc.On("TriggerSOS", mock.Anything, "CASE-1234-A").Return(nil).Once()
	r := router(svc)

	rr := do(r, http.MethodPost, "/api/v1/records/CASE-1234-A/concern", "",
		strings.NewReader(`{"concern":"no medical check for 2 days"}`))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodPost, "/api/v1/records/CASE-1234-A/sos", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// LAWYER_NGO holds no TRIGGER_EMERGENCY
	rr = do(r, http.MethodPost, "/api/v1/records/CASE-1234-A/sos", "LAWYER_NGO", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRecord_UploadHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	var got custody.AttachRequest
	var content []byte
	svc.On("AttachFile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(custody.AttachRequest)
		content, _ = io.ReadAll(got.Content)
	}).Return("CASE-1234-A/1709285400000-xray.png", nil).Once()

	body, contentType := multipartBody(t, map[string]string{"recordId": "CASE-1234-A", "type": "medical"}, "xray.png", "png-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(api.RoleHeader, "POLICE")
	rr := httptest.NewRecorder()
	router(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"filename":"CASE-1234-A/1709285400000-xray.png"}`, rr.Body.String())
	assert.Equal(t, "CASE-1234-A", got.RecordID)
	assert.Equal(t, "xray.png", got.Filename)
	assert.Equal(t, models.CategoryMedical, got.Category)
	assert.Equal(t, "POLICE", got.PerformedBy)
	assert.Equal(t, "png-bytes", string(content))
}

func TestRecord_UploadHandlerErrors(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("AttachFile", mock.Anything, mock.Anything).
		Return("", &custody.UploadError{Op: "store", Err: errors.New("cloudinary down")}).Once()
	r := router(svc)

	body, contentType := multipartBody(t, map[string]string{"recordId": "CASE-1234-A", "type": "EVIDENCE"}, "scene.jpg", "jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(api.RoleHeader, "POLICE")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	body, contentType = multipartBody(t, map[string]string{"recordId": "CASE-1234-A"}, "", "")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(api.RoleHeader, "POLICE")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodPost, "/api/v1/upload", "LAWYER_NGO", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRecord_FileURLHandler(t *testing.T) {
	svc := mocks.NewRecordService(t)
	svc.On("FileURL", mock.Anything, "CASE-1234-A/1-x.pdf").Return("http://localhost:8080/uploads/CASE-1234-A/1-x.pdf", nil)

	rr := do(router(svc), http.MethodGet, "/api/v1/files?token=CASE-1234-A/1-x.pdf", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"url":"http://localhost:8080/uploads/CASE-1234-A/1-x.pdf"}`, rr.Body.String())
}

func TestRecord_RecordByIDHandlerDirect(t *testing.T) {
	svc := mocks.NewRecordService(t)
	rec := sampleRecord()
	svc.On("Get", mock.Anything, "CASE-1234-A").Return(&rec, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/CASE-1234-A", nil)
	req = mux.SetURLVars(req, map[string]string{"record_id": "CASE-1234-A"})
	req = req.WithContext(api.WithIdentity(req.Context(), api.Identity{Role: custody.RolePolice, Actor: "SI Mehta"}))
	rr := httptest.NewRecorder()
	http.HandlerFunc(handlers.Record{Service: svc}.RecordByIDHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got.Logs, 2)
}

func TestApp_UnknownClaimedRole(t *testing.T) {
	rr := do(router(mocks.NewRecordService(t)), http.MethodGet, "/api/v1/records", "JUDGE", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

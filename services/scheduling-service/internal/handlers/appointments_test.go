package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/curaplan/clinicops/libs/cachex"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/catalog"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/scheduling"
)

type memStore struct {
	mu    sync.Mutex
	appts map[string]model.Appointment
}

func (s *memStore) conflicts(appt model.Appointment, excludeID string) (string, bool) {
	for _, other := range s.appts {
		if other.ID == excludeID || other.TenantID != appt.TenantID || other.PractitionerID != appt.PractitionerID {
			continue
		}
		if other.Occupies() && appt.Overlaps(other) {
			return other.ID, true
		}
	}
	return "", false
}

func (s *memStore) Insert(_ context.Context, appt *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if appt.Occupies() {
		if _, hit := s.conflicts(*appt, ""); hit {
			return &scheduling.ConflictError{}
		}
	}
	s.appts[appt.ID] = *appt
	return nil
}

func (s *memStore) Update(_ context.Context, appt *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appts[appt.ID]; !ok {
		return &scheduling.NotFoundError{Kind: "appointment", ID: appt.ID}
	}
	if appt.Occupies() {
		if _, hit := s.conflicts(*appt, appt.ID); hit {
			return &scheduling.ConflictError{}
		}
	}
	s.appts[appt.ID] = *appt
	return nil
}

func (s *memStore) Delete(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.appts[id]; !ok || a.TenantID != tenantID {
		return &scheduling.NotFoundError{Kind: "appointment", ID: id}
	}
	delete(s.appts, id)
	return nil
}

func (s *memStore) Get(_ context.Context, tenantID, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok || a.TenantID != tenantID {
		return model.Appointment{}, &scheduling.NotFoundError{Kind: "appointment", ID: id}
	}
	return a, nil
}

func (s *memStore) list(match func(model.Appointment) bool) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appts {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *memStore) ListByTenant(_ context.Context, tenantID string) ([]model.Appointment, error) {
	return s.list(func(a model.Appointment) bool { return a.TenantID == tenantID }), nil
}

func (s *memStore) ListByPatient(_ context.Context, tenantID, patientID string) ([]model.Appointment, error) {
	return s.list(func(a model.Appointment) bool { return a.TenantID == tenantID && a.PatientID == patientID }), nil
}

func (s *memStore) ListByPractitioner(_ context.Context, tenantID, practitionerID string) ([]model.Appointment, error) {
	return s.list(func(a model.Appointment) bool {
		return a.TenantID == tenantID && a.PractitionerID == practitionerID
	}), nil
}

func (s *memStore) ListOccupying(_ context.Context, tenantID, practitionerID string, from, to time.Time) ([]model.Appointment, error) {
	return s.list(func(a model.Appointment) bool {
		return a.TenantID == tenantID && a.PractitionerID == practitionerID &&
			a.Occupies() && a.Start.Before(to) && a.End.After(from)
	}), nil
}

func (s *memStore) FindConflict(_ context.Context, tenantID, practitionerID string, start, end time.Time, excludeID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe := model.Appointment{TenantID: tenantID, PractitionerID: practitionerID, Start: start, End: end}
	id, hit := s.conflicts(probe, excludeID)
	return id, hit, nil
}

type staticDirectory struct{}

func (staticDirectory) Exists(_ context.Context, _, id string) (bool, error) {
	return strings.HasPrefix(id, "pat-") || strings.HasPrefix(id, "doc-"), nil
}

func (staticDirectory) DisplayName(_ context.Context, id string) (string, error) {
	return "Name of " + id, nil
}

func (staticDirectory) Bookable(_ context.Context, _, id string) (bool, error) {
	return strings.HasPrefix(id, "doc-"), nil
}

type workday struct{}

func (workday) Hours(_ context.Context, _ string, date time.Time) (time.Time, time.Time, error) {
	open := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, time.UTC)
	return open, open.Add(8 * time.Hour), nil
}

func newTestHandler() *AppointmentHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &memStore{appts: map[string]model.Appointment{}}
	svc := scheduling.New(store, cachex.NewMemory(), staticDirectory{}, staticDirectory{}, workday{}, catalog.NewStatic(), nil, logger, scheduling.Config{})
	return NewAppointmentHandler(svc, logger)
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("X-Tenant-Id", "tenant-1")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateGetCancelRoundTrip(t *testing.T) {
	h := newTestHandler()

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{
		"patient_id": "pat-1",
		"practitioner_id": "doc-1",
		"start_time": "2026-03-09T10:00:00Z",
		"end_time": "2026-03-09T10:30:00Z",
		"type": "consultation",
		"reason": "annual checkup"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created scheduling.AppointmentView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if created.ID == "" || created.Status != model.StatusScheduled {
		t.Fatalf("unexpected created view: %+v", created)
	}
	if created.PatientName != "Name of pat-1" {
		t.Fatalf("expected denormalized patient name, got %q", created.PatientName)
	}

	rec = doJSON(t, h.Get, http.MethodGet, "/api/v1/appointments/get?id="+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h.Cancel, http.MethodPost, "/api/v1/appointments/cancel",
		`{"appointment_id": "`+created.ID+`", "reason": "patient request"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cancelled scheduling.AppointmentView
	if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.CancelReason != "patient request" {
		t.Fatalf("unexpected cancelled view: %+v", cancelled)
	}
}

func TestCreateConflictReturns409WithCollider(t *testing.T) {
	h := newTestHandler()

	body := `{
		"patient_id": "pat-1",
		"practitioner_id": "doc-1",
		"start_time": "2026-03-09T10:00:00Z",
		"end_time": "2026-03-09T10:30:00Z",
		"type": "consultation",
		"reason": "first"
	}`
	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var winner scheduling.AppointmentView
	_ = json.Unmarshal(rec.Body.Bytes(), &winner)

	rec = doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{
		"patient_id": "pat-2",
		"practitioner_id": "doc-1",
		"start_time": "2026-03-09T10:15:00Z",
		"end_time": "2026-03-09T10:45:00Z",
		"type": "consultation",
		"reason": "second"
	}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["conflicting_id"] != winner.ID {
		t.Fatalf("expected conflicting_id %s, got %q", winner.ID, resp["conflicting_id"])
	}
}

func TestCreateValidationStatusCodes(t *testing.T) {
	h := newTestHandler()

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{"patient_id": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields should be 400, got %d", rec.Code)
	}

	rec = doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{
		"patient_id": "pat-1",
		"practitioner_id": "doc-1",
		"start_time": "2026-03-09T10:30:00Z",
		"end_time": "2026-03-09T10:00:00Z",
		"type": "consultation",
		"reason": "backwards"
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("end before start should be 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var errBody struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil || errBody.Field != "end_time" {
		t.Fatalf("expected field end_time in error body, got %s", rec.Body.String())
	}

	rec = doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body should be 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/book", strings.NewReader(`{}`))
	rec2 := httptest.NewRecorder()
	h.Create(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Fatalf("missing tenant should be 400, got %d", rec2.Code)
	}
}

func TestGetUnknownAppointmentReturns404(t *testing.T) {
	h := newTestHandler()
	rec := doJSON(t, h.Get, http.MethodGet, "/api/v1/appointments/get?id=missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListFiltersByQuery(t *testing.T) {
	h := newTestHandler()

	for i, practitioner := range []string{"doc-1", "doc-1", "doc-2"} {
		start := time.Date(2026, 3, 9, 9+i, 0, 0, 0, time.UTC)
		rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{
			"patient_id": "pat-1",
			"practitioner_id": "`+practitioner+`",
			"start_time": "`+start.Format(time.RFC3339)+`",
			"end_time": "`+start.Add(30*time.Minute).Format(time.RFC3339)+`",
			"type": "consultation",
			"reason": "visit"
		}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: expected 201, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, h.List, http.MethodGet, "/api/v1/appointments?practitioner_id=doc-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp listAppointmentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("expected 2 appointments for doc-1, got total=%d items=%d", resp.Total, len(resp.Items))
	}

	rec = doJSON(t, h.List, http.MethodGet, "/api/v1/appointments?limit=1&page=2", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Total != 3 || len(resp.Items) != 1 || resp.Page != 2 {
		t.Fatalf("pagination wrong: total=%d items=%d page=%d", resp.Total, len(resp.Items), resp.Page)
	}
}

func TestDeleteReturnsNoContent(t *testing.T) {
	h := newTestHandler()

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{
		"patient_id": "pat-1",
		"practitioner_id": "doc-1",
		"start_time": "2026-03-09T10:00:00Z",
		"end_time": "2026-03-09T10:30:00Z",
		"type": "consultation",
		"reason": "visit"
	}`)
	var created scheduling.AppointmentView
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(t, h.Delete, http.MethodDelete, "/api/v1/appointments/delete?id="+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h.Get, http.MethodGet, "/api/v1/appointments/get?id="+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSlotsEndpoint(t *testing.T) {
	h := newTestHandler()

	rec := doJSON(t, h.Create, http.MethodPost, "/api/v1/appointments/book", `{
		"patient_id": "pat-1",
		"practitioner_id": "doc-1",
		"start_time": "2026-03-09T10:00:00Z",
		"end_time": "2026-03-09T10:30:00Z",
		"type": "consultation",
		"reason": "visit"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h.Slots, http.MethodGet, "/api/v1/public/slots?practitioner_id=doc-1&date=2026-03-09&duration_minutes=60", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var slots []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(slots) == 0 {
		t.Fatalf("expected slots, got none")
	}
	for _, s := range slots {
		if s.StartTime == "2026-03-09T10:00:00Z" {
			t.Fatalf("booked interval offered as free: %+v", s)
		}
	}

	rec = doJSON(t, h.Slots, http.MethodGet, "/api/v1/public/slots?practitioner_id=doc-1&date=banana", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date should be 400, got %d", rec.Code)
	}

	rec = doJSON(t, h.Slots, http.MethodGet, "/api/v1/public/slots?practitioner_id=nurse-404&date=2026-03-09", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown practitioner should be 404, got %d", rec.Code)
	}
}

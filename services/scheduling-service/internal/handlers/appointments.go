package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/curaplan/clinicops/libs/httpx"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/model"
	"github.com/curaplan/clinicops/services/scheduling-service/internal/scheduling"
)

// AppointmentHandler is the REST binding over the scheduling engine. It
// parses transport concerns (tenant header, query params, JSON bodies)
// and maps engine errors to status codes; all domain rules live in the
// engine.
type AppointmentHandler struct {
	svc    *scheduling.Service
	logger *slog.Logger
}

func NewAppointmentHandler(svc *scheduling.Service, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, logger: logger}
}

type createAppointmentRequest struct {
	PatientID      string `json:"patient_id"`
	PractitionerID string `json:"practitioner_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Type           string `json:"type"`
	Urgency        string `json:"urgency"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes"`
}

type updateAppointmentRequest struct {
	PatientID      *string `json:"patient_id"`
	PractitionerID *string `json:"practitioner_id"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	Type           *string `json:"type"`
	Urgency        *string `json:"urgency"`
	Reason         *string `json:"reason"`
	Notes          *string `json:"notes"`
	Status         *string `json:"status"`
}

type cancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type listAppointmentsResponse struct {
	Items []scheduling.AppointmentView `json:"items"`
	Total int                          `json:"total"`
	Page  int                          `json:"page"`
	Limit int                          `json:"limit"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return err
	}
	return nil
}

func tenantID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Tenant-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("tenant_id"))
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	if tenant == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "tenant required", "tenant_id")
		return
	}

	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	cand := scheduling.Candidate{
		PatientID:      strings.TrimSpace(req.PatientID),
		PractitionerID: strings.TrimSpace(req.PractitionerID),
		Type:           model.AppointmentType(strings.TrimSpace(req.Type)),
		Urgency:        model.Urgency(strings.TrimSpace(req.Urgency)),
		Reason:         strings.TrimSpace(req.Reason),
		Notes:          strings.TrimSpace(req.Notes),
	}
	if raw := strings.TrimSpace(req.StartTime); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid start_time", "start_time")
			return
		}
		cand.Start = t
	}
	if raw := strings.TrimSpace(req.EndTime); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid end_time", "end_time")
			return
		}
		cand.End = t
	}

	view, err := h.svc.Create(r.Context(), tenant, cand)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, view)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if tenant == "" || id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "tenant_id and id required")
		return
	}

	view, err := h.svc.Get(r.Context(), tenant, id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	if tenant == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "tenant required", "tenant_id")
		return
	}

	q := r.URL.Query()
	filter := scheduling.ListFilter{
		PractitionerID: strings.TrimSpace(q.Get("practitioner_id")),
		PatientID:      strings.TrimSpace(q.Get("patient_id")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, err.Error(), "status")
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid from", "from")
			return
		}
		filter.From = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid to", "to")
			return
		}
		filter.To = t
	}
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Page = n
		}
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	items, total, err := h.svc.List(r.Context(), tenant, filter)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	httpx.WriteJSON(w, http.StatusOK, listAppointmentsResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if tenant == "" || id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "tenant_id and id required")
		return
	}

	var req updateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	var patch scheduling.Patch
	if req.PatientID != nil {
		v := strings.TrimSpace(*req.PatientID)
		patch.PatientID = &v
	}
	if req.PractitionerID != nil {
		v := strings.TrimSpace(*req.PractitionerID)
		patch.PractitionerID = &v
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.StartTime))
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid start_time", "start_time")
			return
		}
		patch.Start = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EndTime))
		if err != nil {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid end_time", "end_time")
			return
		}
		patch.End = &t
	}
	if req.Type != nil {
		v := model.AppointmentType(strings.TrimSpace(*req.Type))
		patch.Type = &v
	}
	if req.Urgency != nil {
		v := model.Urgency(strings.TrimSpace(*req.Urgency))
		patch.Urgency = &v
	}
	if req.Reason != nil {
		v := strings.TrimSpace(*req.Reason)
		patch.Reason = &v
	}
	if req.Notes != nil {
		v := strings.TrimSpace(*req.Notes)
		patch.Notes = &v
	}
	if req.Status != nil {
		v := model.Status(strings.TrimSpace(*req.Status))
		patch.Status = &v
	}

	view, err := h.svc.Update(r.Context(), tenant, id, patch)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	if tenant == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "tenant required", "tenant_id")
		return
	}

	var req cancelAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	id := strings.TrimSpace(req.AppointmentID)
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if id == "" {
		httpx.WriteFieldError(w, http.StatusBadRequest, "appointment_id required", "appointment_id")
		return
	}

	view, err := h.svc.Cancel(r.Context(), tenant, id, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if tenant == "" || id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "tenant_id and id required")
		return
	}

	if err := h.svc.Delete(r.Context(), tenant, id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Slots serves the public availability lookup: free slots for a
// practitioner on a date, optionally for an explicit duration.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := tenantID(r)
	practitionerID := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if tenant == "" || practitionerID == "" || dateStr == "" {
		httpx.WriteError(w, http.StatusBadRequest, "tenant_id, practitioner_id, and date are required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		httpx.WriteFieldError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD", "date")
		return
	}

	duration := 30 * time.Minute
	if raw := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			httpx.WriteFieldError(w, http.StatusBadRequest, "invalid duration_minutes", "duration_minutes")
			return
		}
		duration = time.Duration(n) * time.Minute
	}

	slots, err := h.svc.FreeSlots(r.Context(), tenant, practitionerID, date, duration)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// writeEngineError maps the engine's typed errors onto status codes.
// ValidationErrors on semantic rules (status transitions, multi-day
// spans) return 422; structurally missing or malformed fields return
// 400 at parse time above.
func (h *AppointmentHandler) writeEngineError(w http.ResponseWriter, err error) {
	var verr *scheduling.ValidationError
	if errors.As(err, &verr) {
		status := http.StatusBadRequest
		if verr.Reason != "required" {
			status = http.StatusUnprocessableEntity
		}
		httpx.WriteFieldError(w, status, verr.Error(), verr.Field)
		return
	}
	var nf *scheduling.NotFoundError
	if errors.As(err, &nf) {
		httpx.WriteError(w, http.StatusNotFound, nf.Error())
		return
	}
	var conflict *scheduling.ConflictError
	if errors.As(err, &conflict) {
		httpx.WriteJSON(w, http.StatusConflict, map[string]string{
			"error":          conflict.Error(),
			"conflicting_id": conflict.ConflictingID,
		})
		return
	}
	var serr *scheduling.StoreError
	if errors.As(err, &serr) {
		h.logger.Error("store failure", "op", serr.Op, "timeout", serr.Timeout, "err", serr)
		httpx.WriteError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
		return
	}
	h.logger.Error("unhandled engine error", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}

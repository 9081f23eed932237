package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/frontdesk"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/hub"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

type Handler struct {
	services     *frontdesk.Services
	hub          *hub.Hub
	storeTimeout time.Duration
	authEnabled  bool
}

type Options struct {
	// StoreTimeout bounds each request's calls into the store. Zero means no bound.
	StoreTimeout time.Duration
	// JWTSecret enables role checks; it must match the secret given to AuthMiddleware.
	JWTSecret string
	Hub       *hub.Hub
}

type errorResponse struct {
	RequestID   string              `json:"request_id,omitempty"`
	Error       responseError       `json:"error"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type bookingResponse struct {
	Appointment models.Appointment `json:"appointment"`
	QueueEntry  *models.QueueEntry `json:"queue_entry,omitempty"`
}

type transitionRequest struct {
	Status models.Status `json:"status"`
}

type previewResponse struct {
	DoctorID    string `json:"doctor_id"`
	QueueNumber int    `json:"queue_number"`
}

func NewHandler(services *frontdesk.Services, options Options) *Handler {
	return &Handler{
		services:     services,
		hub:          options.Hub,
		storeTimeout: options.StoreTimeout,
		authEnabled:  options.JWTSecret != "",
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/patients", h.handlePatients)
	mux.HandleFunc("/api/patients/", h.handlePatientResource)
	mux.HandleFunc("/api/appointments", h.handleAppointments)
	mux.HandleFunc("/api/appointments/", h.handleAppointmentResource)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/queue/preview", h.handleQueuePreview)
	mux.HandleFunc("/api/queue/", h.handleQueueResource)
	mux.HandleFunc("/api/doctors", h.handleDoctors)
	if h.hub != nil {
		mux.HandleFunc("/ws/queue", hub.ServeWS(h.hub))
	}
	return mux
}

func (h *Handler) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.storeTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.storeTimeout)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handlePatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireRole(w, r, RoleReception, RoleKiosk) {
		return
	}

	var draft frontdesk.PatientDraft
	if !decodeJSON(w, r, &draft) {
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()
	patient, err := h.services.Registration.Register(ctx, draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, patient)
}

// handlePatientResource serves /api/patients/{uid} and /api/patients/{uid}/vitals.
func (h *Handler) handlePatientResource(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/patients/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	uid, err := frontdesk.ParsePatientUID(parts[0])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := h.storeContext(r)
		defer cancel()
		patient, err := h.services.Registration.Get(ctx, uid)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, patient)
		return
	}

	if parts[1] != "vitals" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleListVitals(w, r, uid)
	case http.MethodPost:
		h.handleRecordVitals(w, r, uid)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleListVitals(w http.ResponseWriter, r *http.Request, uid int64) {
	if !h.requireRole(w, r, RoleNurse, RoleDoctor) {
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	records, err := h.services.Vitals.List(ctx, uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleRecordVitals(w http.ResponseWriter, r *http.Request, uid int64) {
	if !h.requireRole(w, r, RoleNurse, RoleDoctor) {
		return
	}
	var input frontdesk.VitalsInput
	if !decodeJSON(w, r, &input) {
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	record, err := h.services.Vitals.Record(ctx, uid, input, actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireRole(w, r, RoleReception, RoleKiosk) {
		return
	}

	var req frontdesk.AppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := h.storeContext(r)
	defer cancel()
	appointment, err := h.services.Booking.Book(ctx, req)
	if err != nil {
		if errors.Is(err, frontdesk.ErrQueueAdmission) {
			writeAdmissionFailure(w, r, appointment, err)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	resp := bookingResponse{Appointment: appointment}
	if !appointment.IsOnlineBooking {
		entry, ok, err := h.services.Queue.ForAppointment(ctx, appointment.AppointmentID)
		if err != nil {
			telemetry.LoggerFromContext(ctx).Warn().Err(err).
				Str("appointment_id", appointment.AppointmentID).
				Msg("booked but queue entry lookup failed")
		} else if ok {
			resp.QueueEntry = &entry
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleAppointmentResource serves /api/appointments/{id}, .../check-in and .../transition.
func (h *Handler) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/appointments/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	appointmentID := parts[0]
	if !isValidUUID(appointmentID) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "appointment_id must be a UUID")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := h.storeContext(r)
		defer cancel()
		appointment, err := h.services.Booking.Get(ctx, appointmentID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appointment)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "check-in":
		h.handleCheckIn(w, r, appointmentID)
	case "transition":
		h.handleAppointmentTransition(w, r, appointmentID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request, appointmentID string) {
	if !h.requireRole(w, r, RoleReception, RoleKiosk) {
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	appointment, entry, err := h.services.Booking.CheckIn(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, frontdesk.ErrQueueAdmission) {
			writeAdmissionFailure(w, r, appointment, err)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Appointment: appointment, QueueEntry: &entry})
}

func (h *Handler) handleAppointmentTransition(w http.ResponseWriter, r *http.Request, appointmentID string) {
	if !h.requireRole(w, r, RoleReception, RoleNurse, RoleDoctor) {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	appointment, err := h.services.Lifecycle.TransitionAppointment(ctx, appointmentID, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appointment)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	entries, err := h.services.Queue.List(ctx, r.URL.Query().Get("doctor_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleQueuePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	ctx, cancel := h.storeContext(r)
	defer cancel()
	number, err := h.services.Queue.Preview(ctx, doctorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{DoctorID: doctorID, QueueNumber: number})
}

// handleQueueResource serves /api/queue/{entry_id} and /api/queue/{entry_id}/transition.
func (h *Handler) handleQueueResource(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/queue/")
	if len(parts) == 0 || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	entryID := parts[0]
	if !isValidUUID(entryID) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "entry_id must be a UUID")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := h.storeContext(r)
		defer cancel()
		entry, err := h.services.Queue.Get(ctx, entryID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
		return
	}

	if parts[1] != "transition" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireRole(w, r, RoleReception, RoleNurse, RoleDoctor) {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	entry, err := h.services.Lifecycle.Transition(ctx, entryID, req.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleDoctors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := h.storeContext(r)
	defer cancel()
	doctors, err := h.services.Queue.Doctors(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

func pathParts(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	var notFound *frontdesk.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Entity + "_not_found", err.Error()
	case errors.Is(err, frontdesk.ErrValidation):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, frontdesk.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, frontdesk.ErrConflict):
		return http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, frontdesk.ErrStorage):
		return http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		telemetry.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, requestIDFromRequest(r), status, code, msg)
}

// writeAdmissionFailure reports a booking that was stored without a queue entry. The
// appointment is included so the desk can retry check-in with its id.
func writeAdmissionFailure(w http.ResponseWriter, r *http.Request, appointment models.Appointment, err error) {
	writeJSON(w, http.StatusAccepted, errorResponse{
		RequestID: requestIDFromRequest(r),
		Error: responseError{
			Code:    "queue_admission_failed",
			Message: err.Error(),
		},
		Appointment: &appointment,
	})
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

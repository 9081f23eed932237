package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

const (
	DefaultDurationMinutes = 15
	maxDurationMinutes     = 480
	maxNotesLength         = 2000

	entityQueueEntry = "queue_entry"
)

type AppointmentRequest struct {
	PatientUID              int64           `json:"patient_uid"`
	DoctorID                string          `json:"doctor_id"`
	AppointmentTime         time.Time       `json:"appointment_time"`
	Status                  models.Status   `json:"status"`
	Priority                models.Priority `json:"priority"`
	IsOnlineBooking         bool            `json:"is_online_booking"`
	IsWalkIn                bool            `json:"is_walk_in"`
	IsKioskRegistration     bool            `json:"is_kiosk_registration"`
	DurationEstimateMinutes int             `json:"duration_estimate_minutes"`
	Notes                   string          `json:"notes"`
}

// normalize fills defaults and rejects malformed requests. A zero appointment time means now.
func (r AppointmentRequest) normalize(now time.Time, defaultDuration int) (AppointmentRequest, error) {
	if r.PatientUID < MinPatientUID || r.PatientUID > MaxPatientUID {
		return r, &ValidationError{Field: "patient_uid", Reason: "must be an 11-digit number"}
	}
	r.DoctorID = strings.TrimSpace(r.DoctorID)
	if r.DoctorID == "" {
		return r, &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if !store.ValidInitialStatus(r.Status) {
		return r, &ValidationError{Field: "status", Reason: "must be PENDING, CONFIRMED or WALK_IN"}
	}
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	if !r.Priority.Valid() {
		return r, &ValidationError{Field: "priority", Reason: "must be LOW, MEDIUM, HIGH or URGENT"}
	}
	channels := 0
	for _, flag := range []bool{r.IsOnlineBooking, r.IsWalkIn, r.IsKioskRegistration} {
		if flag {
			channels++
		}
	}
	if channels > 1 {
		return r, &ValidationError{Field: "channel", Reason: "at most one of is_online_booking, is_walk_in, is_kiosk_registration"}
	}
	switch {
	case r.DurationEstimateMinutes < 0 || r.DurationEstimateMinutes > maxDurationMinutes:
		return r, &ValidationError{Field: "duration_estimate_minutes", Reason: fmt.Sprintf("must be between 1 and %d", maxDurationMinutes)}
	case r.DurationEstimateMinutes == 0:
		r.DurationEstimateMinutes = defaultDuration
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return r, &ValidationError{Field: "notes", Reason: "too long"}
	}
	if r.AppointmentTime.IsZero() {
		r.AppointmentTime = now
	}
	r.AppointmentTime = r.AppointmentTime.UTC()
	return r, nil
}

// BookingStore is the part of the store a booking touches.
type BookingStore interface {
	store.PatientStore
	store.DoctorStore
	store.AppointmentStore
	store.QueueStore
}

type BookingService struct {
	store           BookingStore
	allocator       *QueueAllocator
	defaultDuration int
	now             func() time.Time
	newID           func() string
	tokenSuffix     func() string
	metrics         *telemetry.Metrics
}

func NewBookingService(st BookingStore, allocator *QueueAllocator, defaultDuration int, now func() time.Time, metrics *telemetry.Metrics) *BookingService {
	if allocator == nil {
		allocator = NewQueueAllocator(st)
	}
	if defaultDuration <= 0 {
		defaultDuration = DefaultDurationMinutes
	}
	if now == nil {
		now = utcNow
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	return &BookingService{
		store:           st,
		allocator:       allocator,
		defaultDuration: defaultDuration,
		now:             now,
		newID:           uuid.NewString,
		tokenSuffix:     randomTokenSuffix,
		metrics:         metrics,
	}
}

// QueueToken composes the booking-time token. It is a label only and is not rewritten when
// the status changes later.
func QueueToken(status models.Status, suffix string) string {
	return string(status) + "-" + suffix
}

func randomTokenSuffix() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:3]))
}

// Book stores the appointment and, unless it is an online booking, admits it to the
// doctor's queue. When admission fails after the appointment was stored, the stored
// appointment is returned together with an *AdmissionError.
func (b *BookingService) Book(ctx context.Context, req AppointmentRequest) (models.Appointment, error) {
	ctx, span := telemetry.StartSpan(ctx, "frontdesk.Book", attribute.String("doctor.id", req.DoctorID))
	defer span.End()

	now := b.now()
	req, err := req.normalize(now, b.defaultDuration)
	if err != nil {
		return models.Appointment{}, err
	}

	if err := b.requireReferences(ctx, req.PatientUID, req.DoctorID); err != nil {
		telemetry.RecordError(span, err)
		return models.Appointment{}, err
	}

	appointment := models.Appointment{
		AppointmentID:           b.newID(),
		PatientUID:              req.PatientUID,
		DoctorID:                req.DoctorID,
		ScheduledAt:             req.AppointmentTime,
		Status:                  req.Status,
		QueueToken:              QueueToken(req.Status, b.tokenSuffix()),
		Priority:                req.Priority,
		IsOnlineBooking:         req.IsOnlineBooking,
		IsWalkIn:                req.IsWalkIn,
		IsKioskRegistration:     req.IsKioskRegistration,
		DurationEstimateMinutes: req.DurationEstimateMinutes,
		Notes:                   req.Notes,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	stored, err := b.store.InsertAppointment(ctx, appointment)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, store.ErrConflict) {
			return models.Appointment{}, &ConflictError{Entity: "appointment", ID: appointment.AppointmentID}
		}
		return models.Appointment{}, storageErr("insert appointment", err)
	}
	channel := stored.Channel()
	telemetry.Add(ctx, b.metrics.AppointmentsBooked, attribute.String("channel", channel))

	log := telemetry.LoggerFromContext(ctx)
	if stored.IsOnlineBooking {
		log.Info().
			Str("appointment_id", stored.AppointmentID).
			Str("doctor_id", stored.DoctorID).
			Str("queue_token", stored.QueueToken).
			Msg("online appointment booked")
		return stored, nil
	}

	entry, err := b.admit(ctx, stored)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.Add(ctx, b.metrics.AdmissionFailures, attribute.String("channel", channel))
		log.Error().Err(err).
			Str("appointment_id", stored.AppointmentID).
			Str("doctor_id", stored.DoctorID).
			Msg("appointment stored without queue entry")
		return stored, &AdmissionError{AppointmentID: stored.AppointmentID, DoctorID: stored.DoctorID, Err: err}
	}

	log.Info().
		Str("appointment_id", stored.AppointmentID).
		Str("doctor_id", stored.DoctorID).
		Str("queue_token", stored.QueueToken).
		Int("queue_number", entry.QueueNumber).
		Str("channel", channel).
		Msg("appointment booked")
	return stored, nil
}

func (b *BookingService) requireReferences(ctx context.Context, patientUID int64, doctorID string) error {
	ok, err := b.store.PatientExists(ctx, patientUID)
	if err != nil {
		return storageErr("check patient", err)
	}
	if !ok {
		return &NotFoundError{Entity: "patient", ID: strconv.FormatInt(patientUID, 10)}
	}
	ok, err = b.store.DoctorExists(ctx, doctorID)
	if err != nil {
		return storageErr("check doctor", err)
	}
	if !ok {
		return &NotFoundError{Entity: "doctor", ID: doctorID}
	}
	return nil
}

// admit reserves the next number for the appointment's doctor and creates its queue entry.
// The wait estimate is the summed duration estimate of the doctor's active entries.
func (b *BookingService) admit(ctx context.Context, appointment models.Appointment) (models.QueueEntry, error) {
	number, err := b.allocator.NextQueueNumber(ctx, appointment.DoctorID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	ahead, err := b.store.ActiveQueueMinutes(ctx, appointment.DoctorID)
	if err != nil {
		return models.QueueEntry{}, storageErr("sum queue durations", err)
	}
	now := b.now()
	entry := models.QueueEntry{
		EntryID:              b.newID(),
		AppointmentID:        appointment.AppointmentID,
		PatientUID:           appointment.PatientUID,
		DoctorID:             appointment.DoctorID,
		QueueNumber:          number,
		Status:               appointment.Status,
		Priority:             appointment.Priority,
		EstimatedWaitMinutes: ahead,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	stored, err := b.store.InsertQueueEntry(ctx, entry)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.QueueEntry{}, b.queueConflict(ctx, entry)
		}
		return models.QueueEntry{}, storageErr("insert queue entry", err)
	}
	telemetry.Add(ctx, b.metrics.QueueAdmissions)
	return stored, nil
}

// queueConflict tells an appointment that already has an entry apart from a queue number
// the doctor already holds. Only the first is reported as already queued.
func (b *BookingService) queueConflict(ctx context.Context, entry models.QueueEntry) error {
	_, err := b.store.FindQueueEntryByAppointment(ctx, entry.AppointmentID)
	switch {
	case err == nil:
		return &ConflictError{Entity: entityQueueEntry, ID: entry.AppointmentID, Reason: "appointment already queued"}
	case errors.Is(err, store.ErrQueueEntryNotFound):
		return &ConflictError{
			Entity: "queue_number",
			ID:     entry.DoctorID + "/" + strconv.Itoa(entry.QueueNumber),
			Reason: "number already taken",
		}
	default:
		return storageErr("load queue entry", err)
	}
}

func alreadyQueued(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Entity == entityQueueEntry
}

func (b *BookingService) Get(ctx context.Context, appointmentID string) (models.Appointment, error) {
	appointment, err := b.store.FindAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, store.ErrAppointmentNotFound) {
			return models.Appointment{}, &NotFoundError{Entity: "appointment", ID: appointmentID}
		}
		return models.Appointment{}, storageErr("load appointment", err)
	}
	return appointment, nil
}

// CheckIn admits an appointment that has no queue entry yet, typically an online booking
// arriving at the desk. The appointment status is left as it is.
func (b *BookingService) CheckIn(ctx context.Context, appointmentID string) (models.Appointment, models.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "frontdesk.CheckIn", attribute.String("appointment.id", appointmentID))
	defer span.End()

	appointment, err := b.Get(ctx, appointmentID)
	if err != nil {
		return models.Appointment{}, models.QueueEntry{}, err
	}
	if appointment.Status.IsTerminal() {
		return models.Appointment{}, models.QueueEntry{}, &TransitionError{ID: appointmentID, From: appointment.Status, To: appointment.Status}
	}
	if _, err := b.store.FindQueueEntryByAppointment(ctx, appointmentID); err == nil {
		return models.Appointment{}, models.QueueEntry{}, &ConflictError{Entity: entityQueueEntry, ID: appointmentID, Reason: "appointment already queued"}
	} else if !errors.Is(err, store.ErrQueueEntryNotFound) {
		return models.Appointment{}, models.QueueEntry{}, storageErr("load queue entry", err)
	}

	now := b.now()
	checkedIn, err := b.store.UpdateAppointmentStatus(ctx, appointmentID, store.AppointmentPatch{
		ExpectStatus: appointment.Status,
		UpdatedAt:    now,
		CheckedInAt:  &now,
	})
	if err != nil {
		if errors.Is(err, store.ErrStatusMismatch) {
			return models.Appointment{}, models.QueueEntry{}, &ConflictError{Entity: "appointment", ID: appointmentID, Reason: "status changed during check-in"}
		}
		return models.Appointment{}, models.QueueEntry{}, storageErr("stamp check-in", err)
	}

	entry, err := b.admit(ctx, checkedIn)
	if err != nil {
		if alreadyQueued(err) {
			return checkedIn, models.QueueEntry{}, err
		}
		telemetry.RecordError(span, err)
		telemetry.Add(ctx, b.metrics.AdmissionFailures, attribute.String("channel", checkedIn.Channel()))
		telemetry.LoggerFromContext(ctx).Error().Err(err).
			Str("appointment_id", appointmentID).
			Msg("checked in without queue entry")
		return checkedIn, models.QueueEntry{}, &AdmissionError{AppointmentID: appointmentID, DoctorID: checkedIn.DoctorID, Err: err}
	}

	// The appointment may have been moved on its own while the entry was being created.
	current, err := b.Get(ctx, appointmentID)
	if err != nil {
		return checkedIn, entry, err
	}
	if entry, err = syncEntry(ctx, b.store, entry, current, b.now()); err != nil {
		return current, entry, err
	}
	if current.Status.IsTerminal() {
		return current, entry, &ConflictError{Entity: "appointment", ID: appointmentID, Reason: "closed during check-in"}
	}

	telemetry.LoggerFromContext(ctx).Info().
		Str("appointment_id", appointmentID).
		Int("queue_number", entry.QueueNumber).
		Msg("appointment checked in")
	return current, entry, nil
}

package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

const dateLayout = "2006-01-02"

type PatientDraft struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	DateOfBirth      string   `json:"dob"`
	ContactNumber    string   `json:"contact_number"`
	Address          string   `json:"address"`
	EmergencyContact string   `json:"emergency_contact"`
	MedicalHistory   []string `json:"medical_history"`
	Allergies        []string `json:"allergies"`
}

// Validate checks the draft and returns the patient it describes, without a uid or timestamps.
func (d PatientDraft) Validate(now time.Time) (models.Patient, error) {
	first := strings.TrimSpace(d.FirstName)
	if first == "" {
		return models.Patient{}, &ValidationError{Field: "first_name", Reason: "required"}
	}
	last := strings.TrimSpace(d.LastName)
	if last == "" {
		return models.Patient{}, &ValidationError{Field: "last_name", Reason: "required"}
	}
	if strings.TrimSpace(d.DateOfBirth) == "" {
		return models.Patient{}, &ValidationError{Field: "dob", Reason: "required"}
	}
	dob, err := time.Parse(dateLayout, strings.TrimSpace(d.DateOfBirth))
	if err != nil {
		return models.Patient{}, &ValidationError{Field: "dob", Reason: "must be YYYY-MM-DD"}
	}
	if dob.After(now) {
		return models.Patient{}, &ValidationError{Field: "dob", Reason: "must not be in the future"}
	}
	contact := strings.TrimSpace(d.ContactNumber)
	if contact == "" {
		return models.Patient{}, &ValidationError{Field: "contact_number", Reason: "required"}
	}
	if !validPhone(contact) {
		return models.Patient{}, &ValidationError{Field: "contact_number", Reason: "must be a phone number"}
	}

	history := make([]string, 0, len(d.MedicalHistory))
	for _, item := range d.MedicalHistory {
		if item = strings.TrimSpace(item); item != "" {
			history = append(history, item)
		}
	}

	return models.Patient{
		FirstName:        first,
		LastName:         last,
		DateOfBirth:      dob,
		ContactNumber:    contact,
		Address:          strings.TrimSpace(d.Address),
		EmergencyContact: strings.TrimSpace(d.EmergencyContact),
		MedicalHistory:   history,
		Allergies:        dedupe(d.Allergies),
	}, nil
}

func validPhone(s string) bool {
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6 && digits <= 15
}

// dedupe keeps the first spelling of each entry, compared case-insensitively.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

type RegistrationService struct {
	patients    store.PatientStore
	ids         *IdentifierGenerator
	maxAttempts int
	now         func() time.Time
	metrics     *telemetry.Metrics
}

func NewRegistrationService(patients store.PatientStore, ids *IdentifierGenerator, maxAttempts int, now func() time.Time, metrics *telemetry.Metrics) *RegistrationService {
	if ids == nil {
		ids = NewIdentifierGenerator()
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	if now == nil {
		now = utcNow
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if ids.collisions == nil {
		ids.collisions = func(ctx context.Context) { telemetry.Add(ctx, metrics.UIDCollisions) }
	}
	return &RegistrationService{patients: patients, ids: ids, maxAttempts: maxAttempts, now: now, metrics: metrics}
}

// Register validates the draft, allocates a patient_uid and stores the patient.
// A uid lost to a concurrent insert between the existence check and the write is
// re-allocated, up to maxAttempts times.
func (r *RegistrationService) Register(ctx context.Context, draft PatientDraft) (models.Patient, error) {
	ctx, span := telemetry.StartSpan(ctx, "frontdesk.Register")
	defer span.End()

	now := r.now()
	patient, err := draft.Validate(now)
	if err != nil {
		return models.Patient{}, err
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		uid, err := r.ids.AllocateUnique(ctx, r.patients.PatientExists)
		if err != nil {
			telemetry.RecordError(span, err)
			return models.Patient{}, err
		}
		patient.PatientUID = uid

		stored, err := r.patients.InsertPatient(ctx, patient)
		if err == nil {
			span.SetAttributes(attribute.Int64("patient.uid", stored.PatientUID))
			telemetry.Add(ctx, r.metrics.PatientsRegistered)
			telemetry.LoggerFromContext(ctx).Info().
				Int64("patient_uid", stored.PatientUID).
				Int("attempt", attempt).
				Msg("patient registered")
			return stored, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			telemetry.RecordError(span, err)
			return models.Patient{}, storageErr("insert patient", err)
		}
		telemetry.Add(ctx, r.metrics.UIDCollisions)
	}

	return models.Patient{}, &ConflictError{
		Entity: "patient_uid",
		ID:     strconv.FormatInt(patient.PatientUID, 10),
		Reason: fmt.Sprintf("no free uid after %d attempts", r.maxAttempts),
	}
}

func (r *RegistrationService) Get(ctx context.Context, patientUID int64) (models.Patient, error) {
	patient, err := r.patients.FindPatient(ctx, patientUID)
	if err != nil {
		if errors.Is(err, store.ErrPatientNotFound) {
			return models.Patient{}, &NotFoundError{Entity: "patient", ID: strconv.FormatInt(patientUID, 10)}
		}
		return models.Patient{}, storageErr("load patient", err)
	}
	return patient, nil
}

// ParsePatientUID validates the textual form of a patient_uid.
func ParsePatientUID(raw string) (int64, error) {
	uid, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || uid < MinPatientUID || uid > MaxPatientUID {
		return 0, &ValidationError{Field: "patient_uid", Reason: "must be an 11-digit number"}
	}
	return uid, nil
}

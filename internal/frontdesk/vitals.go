package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

type VitalsInput struct {
	Temperature            *float64       `json:"temperature"`
	BloodPressureSystolic  *int           `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *int           `json:"blood_pressure_diastolic"`
	HeartRate              *int           `json:"heart_rate"`
	RespiratoryRate        *int           `json:"respiratory_rate"`
	OxygenSaturation       *float64       `json:"oxygen_saturation"`
	Weight                 *float64       `json:"weight"`
	Height                 *float64       `json:"height"`
	Notes                  string         `json:"notes"`
	DeviceInfo             map[string]any `json:"device_info"`
}

type floatRange struct {
	field    string
	value    *float64
	min, max float64
}

type intRange struct {
	field    string
	value    *int
	min, max int
}

func (in VitalsInput) validate() error {
	measured := false
	for _, r := range []floatRange{
		{"temperature", in.Temperature, 30, 45},
		{"oxygen_saturation", in.OxygenSaturation, 50, 100},
		{"weight", in.Weight, 0.5, 500},
		{"height", in.Height, 20, 272},
	} {
		if r.value == nil {
			continue
		}
		measured = true
		if *r.value < r.min || *r.value > r.max {
			return &ValidationError{Field: r.field, Reason: fmt.Sprintf("must be between %g and %g", r.min, r.max)}
		}
	}
	for _, r := range []intRange{
		{"blood_pressure_systolic", in.BloodPressureSystolic, 50, 260},
		{"blood_pressure_diastolic", in.BloodPressureDiastolic, 30, 160},
		{"heart_rate", in.HeartRate, 20, 250},
		{"respiratory_rate", in.RespiratoryRate, 4, 60},
	} {
		if r.value == nil {
			continue
		}
		measured = true
		if *r.value < r.min || *r.value > r.max {
			return &ValidationError{Field: r.field, Reason: fmt.Sprintf("must be between %d and %d", r.min, r.max)}
		}
	}
	if !measured {
		return &ValidationError{Field: "vitals", Reason: "at least one measurement is required"}
	}
	if in.BloodPressureSystolic != nil && in.BloodPressureDiastolic != nil && *in.BloodPressureDiastolic >= *in.BloodPressureSystolic {
		return &ValidationError{Field: "blood_pressure_diastolic", Reason: "must be lower than systolic"}
	}
	return nil
}

type VitalsService struct {
	patients store.PatientStore
	vitals   store.VitalsStore
	now      func() time.Time
	metrics  *telemetry.Metrics
}

func NewVitalsService(patients store.PatientStore, vitals store.VitalsStore, now func() time.Time, metrics *telemetry.Metrics) *VitalsService {
	if now == nil {
		now = utcNow
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	return &VitalsService{patients: patients, vitals: vitals, now: now, metrics: metrics}
}

func (v *VitalsService) Record(ctx context.Context, patientUID int64, in VitalsInput, recordedBy string) (models.Vitals, error) {
	if err := in.validate(); err != nil {
		return models.Vitals{}, err
	}
	if err := v.requirePatient(ctx, patientUID); err != nil {
		return models.Vitals{}, err
	}
	record := models.Vitals{
		VitalsID:               uuid.NewString(),
		PatientUID:             patientUID,
		RecordedBy:             strings.TrimSpace(recordedBy),
		Temperature:            in.Temperature,
		BloodPressureSystolic:  in.BloodPressureSystolic,
		BloodPressureDiastolic: in.BloodPressureDiastolic,
		HeartRate:              in.HeartRate,
		RespiratoryRate:        in.RespiratoryRate,
		OxygenSaturation:       in.OxygenSaturation,
		Weight:                 in.Weight,
		Height:                 in.Height,
		Notes:                  strings.TrimSpace(in.Notes),
		DeviceInfo:             in.DeviceInfo,
		RecordedAt:             v.now(),
	}
	stored, err := v.vitals.InsertVitals(ctx, record)
	if err != nil {
		if errors.Is(err, store.ErrPatientNotFound) {
			return models.Vitals{}, &NotFoundError{Entity: "patient", ID: strconv.FormatInt(patientUID, 10)}
		}
		return models.Vitals{}, storageErr("insert vitals", err)
	}
	telemetry.Add(ctx, v.metrics.VitalsRecorded)
	return stored, nil
}

// List returns the patient's vitals, newest first.
func (v *VitalsService) List(ctx context.Context, patientUID int64) ([]models.Vitals, error) {
	if err := v.requirePatient(ctx, patientUID); err != nil {
		return nil, err
	}
	records, err := v.vitals.ListVitals(ctx, patientUID)
	if err != nil {
		return nil, storageErr("list vitals", err)
	}
	return records, nil
}

func (v *VitalsService) requirePatient(ctx context.Context, patientUID int64) error {
	ok, err := v.patients.PatientExists(ctx, patientUID)
	if err != nil {
		return storageErr("check patient", err)
	}
	if !ok {
		return &NotFoundError{Entity: "patient", ID: strconv.FormatInt(patientUID, 10)}
	}
	return nil
}

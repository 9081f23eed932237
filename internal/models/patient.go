package models

import "time"

type Patient struct {
	PatientUID       int64     `json:"patient_uid"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	DateOfBirth      time.Time `json:"dob"`
	ContactNumber    string    `json:"contact_number"`
	Address          string    `json:"address,omitempty"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	MedicalHistory   []string  `json:"medical_history"`
	Allergies        []string  `json:"allergies"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Vitals struct {
	VitalsID               string         `json:"vitals_id"`
	PatientUID             int64          `json:"patient_uid"`
	RecordedBy             string         `json:"recorded_by"`
	Temperature            *float64       `json:"temperature,omitempty"`
	BloodPressureSystolic  *int           `json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *int           `json:"blood_pressure_diastolic,omitempty"`
	HeartRate              *int           `json:"heart_rate,omitempty"`
	RespiratoryRate        *int           `json:"respiratory_rate,omitempty"`
	OxygenSaturation       *float64       `json:"oxygen_saturation,omitempty"`
	Weight                 *float64       `json:"weight,omitempty"`
	Height                 *float64       `json:"height,omitempty"`
	Notes                  string         `json:"notes,omitempty"`
	DeviceInfo             map[string]any `json:"device_info,omitempty"`
	RecordedAt             time.Time      `json:"recorded_at"`
}

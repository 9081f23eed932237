package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/Pallinder/go-randomdata"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/frontdesk"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

func weekdays(start, end string) map[string]models.WorkingHours {
	hours := make(map[string]models.WorkingHours, 5)
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		hours[day] = models.WorkingHours{Start: start, End: end}
	}
	return hours
}

// Doctors is the default directory for a fresh clinic.
func Doctors() []models.Doctor {
	return []models.Doctor{
		{
			DoctorID:       "DOC001",
			Name:           "Dr. John Smith",
			Specialization: "General Medicine",
			Department:     "Internal Medicine",
			IsAvailable:    true,
			WorkingHours:   weekdays("09:00", "17:00"),
		},
		{
			DoctorID:       "DOC002",
			Name:           "Dr. Sarah Johnson",
			Specialization: "Cardiology",
			Department:     "Cardiology",
			IsAvailable:    true,
			WorkingHours:   weekdays("08:00", "16:00"),
		},
		{
			DoctorID:       "DOC003",
			Name:           "Dr. Michael Brown",
			Specialization: "Pediatrics",
			Department:     "Pediatrics",
			IsAvailable:    true,
			WorkingHours:   weekdays("10:00", "18:00"),
		},
	}
}

// SeedDoctors upserts the default directory and returns how many doctors were written.
func SeedDoctors(ctx context.Context, doctors store.DoctorStore, now time.Time) (int, error) {
	written := 0
	for _, doctor := range Doctors() {
		doctor.CreatedAt = now
		if err := doctors.UpsertDoctor(ctx, doctor); err != nil {
			return written, fmt.Errorf("upsert doctor %s: %w", doctor.DoctorID, err)
		}
		written++
	}
	return written, nil
}

var (
	sampleHistory   = []string{"Hypertension", "Diabetes Type 2", "Asthma", "Migraine"}
	sampleAllergies = []string{"Penicillin", "Shellfish", "Peanuts", "Latex"}
)

// RandomPatientDraft builds a plausible walk-in registration.
func RandomPatientDraft() frontdesk.PatientDraft {
	dob := time.Date(randomdata.Number(1940, 2020), time.Month(randomdata.Number(1, 13)), randomdata.Number(1, 29), 0, 0, 0, 0, time.UTC)
	draft := frontdesk.PatientDraft{
		FirstName:        randomdata.FirstName(randomdata.RandomGender),
		LastName:         randomdata.LastName(),
		DateOfBirth:      dob.Format("2006-01-02"),
		ContactNumber:    fmt.Sprintf("+1-555-%04d", randomdata.Number(0, 10000)),
		Address:          fmt.Sprintf("%d %s St, %s", randomdata.Number(1, 999), randomdata.LastName(), randomdata.City()),
		EmergencyContact: fmt.Sprintf("+1-555-%04d", randomdata.Number(0, 10000)),
	}
	if randomdata.Boolean() {
		draft.MedicalHistory = []string{sampleHistory[randomdata.Number(0, len(sampleHistory))]}
	}
	if randomdata.Boolean() {
		draft.Allergies = []string{sampleAllergies[randomdata.Number(0, len(sampleAllergies))]}
	}
	return draft
}

// SeedPatients registers n random patients through the normal registration path so every
// one receives a fresh unique patient_uid.
func SeedPatients(ctx context.Context, registration *frontdesk.RegistrationService, n int) ([]models.Patient, error) {
	patients := make([]models.Patient, 0, n)
	for i := 0; i < n; i++ {
		patient, err := registration.Register(ctx, RandomPatientDraft())
		if err != nil {
			return patients, fmt.Errorf("register sample patient %d: %w", i+1, err)
		}
		patients = append(patients, patient)
	}
	return patients, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

func (s *Store) PatientExists(ctx context.Context, patientUID int64) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE patient_uid = $1)`, patientUID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// InsertPatient relies on the unique index on patient_uid; a duplicate returns store.ErrConflict.
func (s *Store) InsertPatient(ctx context.Context, patient models.Patient) (models.Patient, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patients (
			patient_uid, first_name, last_name, dob, contact_number, address,
			emergency_contact, medical_history, allergies, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, patient.PatientUID, patient.FirstName, patient.LastName, patient.DateOfBirth, patient.ContactNumber,
		patient.Address, patient.EmergencyContact, nonNil(patient.MedicalHistory), nonNil(patient.Allergies),
		patient.CreatedAt, patient.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Patient{}, store.ErrConflict
		}
		return models.Patient{}, err
	}
	return patient, nil
}

func (s *Store) FindPatient(ctx context.Context, patientUID int64) (models.Patient, error) {
	var patient models.Patient
	row := s.pool.QueryRow(ctx, `
		SELECT patient_uid, first_name, last_name, dob, contact_number, address,
			emergency_contact, medical_history, allergies, created_at, updated_at
		FROM patients
		WHERE patient_uid = $1
	`, patientUID)
	if err := row.Scan(&patient.PatientUID, &patient.FirstName, &patient.LastName, &patient.DateOfBirth,
		&patient.ContactNumber, &patient.Address, &patient.EmergencyContact, &patient.MedicalHistory,
		&patient.Allergies, &patient.CreatedAt, &patient.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Patient{}, store.ErrPatientNotFound
		}
		return models.Patient{}, err
	}
	return patient, nil
}

func (s *Store) DoctorExists(ctx context.Context, doctorID string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE doctor_id = $1)`, doctorID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doctor_id, name, specialization, department, is_available, working_hours, created_at
		FROM doctors
		ORDER BY doctor_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []models.Doctor
	for rows.Next() {
		var doctor models.Doctor
		var hours []byte
		if err := rows.Scan(&doctor.DoctorID, &doctor.Name, &doctor.Specialization, &doctor.Department,
			&doctor.IsAvailable, &hours, &doctor.CreatedAt); err != nil {
			return nil, err
		}
		if len(hours) > 0 {
			if err := json.Unmarshal(hours, &doctor.WorkingHours); err != nil {
				return nil, err
			}
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (s *Store) UpsertDoctor(ctx context.Context, doctor models.Doctor) error {
	hours, err := jsonBytes(doctor.WorkingHours)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO doctors (doctor_id, name, specialization, department, is_available, working_hours, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (doctor_id) DO UPDATE SET
			name = EXCLUDED.name,
			specialization = EXCLUDED.specialization,
			department = EXCLUDED.department,
			is_available = EXCLUDED.is_available,
			working_hours = EXCLUDED.working_hours
	`, doctor.DoctorID, doctor.Name, doctor.Specialization, doctor.Department, doctor.IsAvailable, hours, doctor.CreatedAt)
	return err
}

func (s *Store) InsertVitals(ctx context.Context, vitals models.Vitals) (models.Vitals, error) {
	device, err := jsonBytes(vitals.DeviceInfo)
	if err != nil {
		return models.Vitals{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO vitals (
			vitals_id, patient_uid, recorded_by, temperature, blood_pressure_systolic,
			blood_pressure_diastolic, heart_rate, respiratory_rate, oxygen_saturation,
			weight, height, notes, device_info, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, vitals.VitalsID, vitals.PatientUID, vitals.RecordedBy, vitals.Temperature, vitals.BloodPressureSystolic,
		vitals.BloodPressureDiastolic, vitals.HeartRate, vitals.RespiratoryRate, vitals.OxygenSaturation,
		vitals.Weight, vitals.Height, vitals.Notes, device, vitals.RecordedAt)
	if err != nil {
		if pgErrCode(err) == foreignKeyViolation {
			return models.Vitals{}, store.ErrPatientNotFound
		}
		return models.Vitals{}, err
	}
	return vitals, nil
}

func (s *Store) ListVitals(ctx context.Context, patientUID int64) ([]models.Vitals, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT vitals_id, patient_uid, recorded_by, temperature, blood_pressure_systolic,
			blood_pressure_diastolic, heart_rate, respiratory_rate, oxygen_saturation,
			weight, height, notes, device_info, recorded_at
		FROM vitals
		WHERE patient_uid = $1
		ORDER BY recorded_at DESC
	`, patientUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.Vitals, 0)
	for rows.Next() {
		var v models.Vitals
		var device []byte
		if err := rows.Scan(&v.VitalsID, &v.PatientUID, &v.RecordedBy, &v.Temperature, &v.BloodPressureSystolic,
			&v.BloodPressureDiastolic, &v.HeartRate, &v.RespiratoryRate, &v.OxygenSaturation,
			&v.Weight, &v.Height, &v.Notes, &device, &v.RecordedAt); err != nil {
			return nil, err
		}
		if len(device) > 0 && string(device) != "null" {
			if err := json.Unmarshal(device, &v.DeviceInfo); err != nil {
				return nil, err
			}
		}
		records = append(records, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

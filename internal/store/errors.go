package store

import "errors"

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrQueueEntryNotFound  = errors.New("queue entry not found")
	ErrConflict            = errors.New("unique constraint violated")
	ErrStatusMismatch      = errors.New("status changed concurrently")
)

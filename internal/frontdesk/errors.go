package frontdesk

import (
	"errors"
	"fmt"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
)

// Sentinel kinds. Every error returned by this package matches exactly one of these
// with errors.Is, except AdmissionError which also unwraps to its cause.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStorage           = errors.New("storage unavailable")
	ErrQueueAdmission    = errors.New("queue admission failed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type TransitionError struct {
	ID   string
	From models.Status
	To   models.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move %s from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// AdmissionError reports a booking that was persisted but could not be placed in the queue.
type AdmissionError struct {
	AppointmentID string
	DoctorID      string
	Err           error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("appointment %s saved but not queued for %s: %v", e.AppointmentID, e.DoctorID, e.Err)
}

func (e *AdmissionError) Is(target error) bool { return target == ErrQueueAdmission }

func (e *AdmissionError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

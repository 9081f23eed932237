// Package memory keeps the whole front desk in process memory. It backs tests and
// single-node demos; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

type sequence struct {
	mu   sync.Mutex
	last int
}

type Store struct {
	mu            sync.RWMutex
	patients      map[int64]models.Patient
	doctors       map[string]models.Doctor
	appointments  map[string]models.Appointment
	entries       map[string]models.QueueEntry
	byAppointment map[string]string
	byDoctor      map[string][]string
	vitals        map[int64][]models.Vitals
	outbox        []store.OutboxEvent

	seqMu     sync.Mutex
	sequences map[string]*sequence
}

func New() *Store {
	return &Store{
		patients:      make(map[int64]models.Patient),
		doctors:       make(map[string]models.Doctor),
		appointments:  make(map[string]models.Appointment),
		entries:       make(map[string]models.QueueEntry),
		byAppointment: make(map[string]string),
		byDoctor:      make(map[string][]string),
		vitals:        make(map[int64][]models.Vitals),
		sequences:     make(map[string]*sequence),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) PatientExists(ctx context.Context, patientUID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.patients[patientUID]
	return ok, nil
}

func (s *Store) InsertPatient(ctx context.Context, patient models.Patient) (models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return models.Patient{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patient.PatientUID]; ok {
		return models.Patient{}, store.ErrConflict
	}
	patient.MedicalHistory = cloneStrings(patient.MedicalHistory)
	patient.Allergies = cloneStrings(patient.Allergies)
	s.patients[patient.PatientUID] = patient
	return patient, nil
}

func (s *Store) FindPatient(ctx context.Context, patientUID int64) (models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return models.Patient{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	patient, ok := s.patients[patientUID]
	if !ok {
		return models.Patient{}, store.ErrPatientNotFound
	}
	patient.MedicalHistory = cloneStrings(patient.MedicalHistory)
	patient.Allergies = cloneStrings(patient.Allergies)
	return patient, nil
}

func (s *Store) DoctorExists(ctx context.Context, doctorID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doctors[doctorID]
	return ok, nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Doctor, 0, len(s.doctors))
	for _, doctor := range s.doctors {
		out = append(out, doctor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DoctorID < out[j].DoctorID })
	return out, nil
}

func (s *Store) UpsertDoctor(ctx context.Context, doctor models.Doctor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[doctor.DoctorID] = doctor
	return nil
}

func (s *Store) InsertAppointment(ctx context.Context, appointment models.Appointment) (models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return models.Appointment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[appointment.AppointmentID]; ok {
		return models.Appointment{}, store.ErrConflict
	}
	s.appointments[appointment.AppointmentID] = appointment
	s.appendEvent(store.AppointmentEvent(store.EventAppointmentBooked, appointment))
	return appointment, nil
}

func (s *Store) FindAppointment(ctx context.Context, appointmentID string) (models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return models.Appointment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	appointment, ok := s.appointments[appointmentID]
	if !ok {
		return models.Appointment{}, store.ErrAppointmentNotFound
	}
	return appointment, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, appointmentID string, patch store.AppointmentPatch) (models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return models.Appointment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	appointment, ok := s.appointments[appointmentID]
	if !ok {
		return models.Appointment{}, store.ErrAppointmentNotFound
	}
	if patch.ExpectStatus != "" && appointment.Status != patch.ExpectStatus {
		return appointment, store.ErrStatusMismatch
	}
	if patch.Status != "" {
		appointment.Status = patch.Status
	}
	if !patch.UpdatedAt.IsZero() {
		appointment.UpdatedAt = patch.UpdatedAt
	}
	if patch.CheckedInAt != nil {
		appointment.CheckedInAt = patch.CheckedInAt
	}
	if patch.StartedAt != nil {
		appointment.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		appointment.CompletedAt = patch.CompletedAt
	}
	if patch.ActualDurationMinutes != nil {
		appointment.ActualDurationMinutes = patch.ActualDurationMinutes
	}
	s.appointments[appointmentID] = appointment
	if patch.Status != "" {
		s.appendEvent(store.AppointmentEvent(store.EventAppointmentStatusChanged, appointment))
	}
	return appointment, nil
}

func (s *Store) MaxQueueNumber(ctx context.Context, doctorID string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	max, found := 0, false
	s.seqMu.Lock()
	if seq, ok := s.sequences[doctorID]; ok {
		seq.mu.Lock()
		if seq.last > 0 {
			max, found = seq.last, true
		}
		seq.mu.Unlock()
	}
	s.seqMu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.byDoctor[doctorID] {
		if n := s.entries[id].QueueNumber; n > max || !found {
			max, found = n, true
		}
	}
	return max, found, nil
}

func (s *Store) ReserveQueueNumber(ctx context.Context, doctorID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	seq := s.sequenceFor(doctorID)
	seq.mu.Lock()
	defer seq.mu.Unlock()
	seq.last++
	return seq.last, nil
}

// sequenceFor creates the doctor's counter on first use, starting from the highest stored number.
func (s *Store) sequenceFor(doctorID string) *sequence {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	if seq, ok := s.sequences[doctorID]; ok {
		return seq
	}
	seq := &sequence{}
	s.mu.RLock()
	for _, id := range s.byDoctor[doctorID] {
		if n := s.entries[id].QueueNumber; n > seq.last {
			seq.last = n
		}
	}
	s.mu.RUnlock()
	s.sequences[doctorID] = seq
	return seq
}

func (s *Store) ActiveQueueMinutes(ctx context.Context, doctorID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	minutes := 0
	for _, id := range s.byDoctor[doctorID] {
		entry := s.entries[id]
		if entry.Status.IsActive() {
			minutes += s.appointments[entry.AppointmentID].DurationEstimateMinutes
		}
	}
	return minutes, nil
}

func (s *Store) InsertQueueEntry(ctx context.Context, entry models.QueueEntry) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.EntryID]; ok {
		return models.QueueEntry{}, store.ErrConflict
	}
	if _, ok := s.byAppointment[entry.AppointmentID]; ok {
		return models.QueueEntry{}, store.ErrConflict
	}
	for _, id := range s.byDoctor[entry.DoctorID] {
		if s.entries[id].QueueNumber == entry.QueueNumber {
			return models.QueueEntry{}, store.ErrConflict
		}
	}
	s.entries[entry.EntryID] = entry
	s.byAppointment[entry.AppointmentID] = entry.EntryID
	s.byDoctor[entry.DoctorID] = append(s.byDoctor[entry.DoctorID], entry.EntryID)
	s.appendEvent(store.QueueEntryEvent(store.EventQueueAdmitted, entry))
	return entry, nil
}

func (s *Store) FindQueueEntry(ctx context.Context, entryID string) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return models.QueueEntry{}, store.ErrQueueEntryNotFound
	}
	return entry, nil
}

func (s *Store) FindQueueEntryByAppointment(ctx context.Context, appointmentID string) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAppointment[appointmentID]
	if !ok {
		return models.QueueEntry{}, store.ErrQueueEntryNotFound
	}
	return s.entries[id], nil
}

func (s *Store) ListQueue(ctx context.Context, doctorID string) ([]models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QueueEntry, 0, len(s.byDoctor[doctorID]))
	for _, id := range s.byDoctor[doctorID] {
		out = append(out, s.entries[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueNumber < out[j].QueueNumber })
	return out, nil
}

func (s *Store) UpdateQueueStatus(ctx context.Context, entryID string, patch store.QueuePatch) (models.QueueEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.QueueEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return models.QueueEntry{}, store.ErrQueueEntryNotFound
	}
	if patch.ExpectStatus != "" && entry.Status != patch.ExpectStatus {
		return entry, store.ErrStatusMismatch
	}
	if patch.Status != "" {
		entry.Status = patch.Status
	}
	if !patch.UpdatedAt.IsZero() {
		entry.UpdatedAt = patch.UpdatedAt
	}
	if patch.CalledAt != nil {
		entry.CalledAt = patch.CalledAt
	}
	if patch.ServedAt != nil {
		entry.ServedAt = patch.ServedAt
	}
	s.entries[entryID] = entry
	s.appendEvent(store.QueueEntryEvent(store.EventQueueStatusChanged, entry))
	return entry, nil
}

func (s *Store) InsertVitals(ctx context.Context, vitals models.Vitals) (models.Vitals, error) {
	if err := ctx.Err(); err != nil {
		return models.Vitals{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[vitals.PatientUID]; !ok {
		return models.Vitals{}, store.ErrPatientNotFound
	}
	s.vitals[vitals.PatientUID] = append(s.vitals[vitals.PatientUID], vitals)
	return vitals, nil
}

func (s *Store) ListVitals(ctx context.Context, patientUID int64) ([]models.Vitals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.vitals[patientUID]
	out := make([]models.Vitals, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]store.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.OutboxEvent, 0)
	for _, event := range s.outbox {
		if event.Seq <= afterSeq {
			continue
		}
		out = append(out, event)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) LatestOutboxSeq(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.outbox)), nil
}

// appendEvent must be called with s.mu held for writing.
func (s *Store) appendEvent(event store.OutboxEvent) {
	event.Seq = int64(len(s.outbox)) + 1
	s.outbox = append(s.outbox, event)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

package frontdesk

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
)

type mockPatientStore struct {
	mock.Mock
}

func (m *mockPatientStore) PatientExists(ctx context.Context, uid int64) (bool, error) {
	args := m.Called(ctx, uid)
	return args.Bool(0), args.Error(1)
}

func (m *mockPatientStore) InsertPatient(ctx context.Context, patient models.Patient) (models.Patient, error) {
	args := m.Called(ctx, patient)
	return args.Get(0).(models.Patient), args.Error(1)
}

func (m *mockPatientStore) FindPatient(ctx context.Context, uid int64) (models.Patient, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(models.Patient), args.Error(1)
}

func TestRegisterAliceTwiceYieldsDistinctUIDs(t *testing.T) {
	env := newTestEnv(t)

	first := env.register(t, "Alice", "Tan")
	second := env.register(t, "Alice", "Tan")

	assert.Len(t, formatUID(first.PatientUID), 11)
	assert.Len(t, formatUID(second.PatientUID), 11)
	assert.NotEqual(t, first.PatientUID, second.PatientUID)
	assert.Equal(t, "Alice", first.FirstName)
	assert.Equal(t, env.clock.Now(), first.CreatedAt)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	stored, err := env.services.Registration.Get(context.Background(), first.PatientUID)
	require.NoError(t, err)
	assert.Equal(t, first.PatientUID, stored.PatientUID)
}

func TestConcurrentRegistrationsAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	const n = 200

	uids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			patient, err := env.services.Registration.Register(context.Background(), PatientDraft{
				FirstName:     "Alice",
				LastName:      "Tan",
				DateOfBirth:   "1990-01-01",
				ContactNumber: "+65-9000-0000",
			})
			if err != nil {
				t.Errorf("register: %v", err)
				return
			}
			uids <- patient.PatientUID
		}()
	}
	wg.Wait()
	close(uids)

	seen := make(map[int64]struct{})
	for uid := range uids {
		seen[uid] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	valid := PatientDraft{FirstName: "Alice", LastName: "Tan", DateOfBirth: "1990-01-01", ContactNumber: "+65-9000-0000"}

	cases := []struct {
		name  string
		edit  func(d *PatientDraft)
		field string
	}{
		{"missing first name", func(d *PatientDraft) { d.FirstName = "  " }, "first_name"},
		{"missing last name", func(d *PatientDraft) { d.LastName = "" }, "last_name"},
		{"missing dob", func(d *PatientDraft) { d.DateOfBirth = "" }, "dob"},
		{"malformed dob", func(d *PatientDraft) { d.DateOfBirth = "01/01/1990" }, "dob"},
		{"future dob", func(d *PatientDraft) { d.DateOfBirth = "2099-01-01" }, "dob"},
		{"missing contact", func(d *PatientDraft) { d.ContactNumber = "" }, "contact_number"},
		{"letters in contact", func(d *PatientDraft) { d.ContactNumber = "call me" }, "contact_number"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			draft := valid
			tt.edit(&draft)
			_, err := env.services.Registration.Register(context.Background(), draft)
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRegisterNormalisesLists(t *testing.T) {
	env := newTestEnv(t)
	patient, err := env.services.Registration.Register(context.Background(), PatientDraft{
		FirstName:      "Alice",
		LastName:       "Tan",
		DateOfBirth:    "1990-01-01",
		ContactNumber:  "91234567",
		MedicalHistory: []string{"asthma", " ", "appendectomy 2010"},
		Allergies:      []string{"Penicillin", "penicillin", "peanuts"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"asthma", "appendectomy 2010"}, patient.MedicalHistory)
	assert.Equal(t, []string{"Penicillin", "peanuts"}, patient.Allergies)
}

func TestRegisterRetriesInsertConflict(t *testing.T) {
	patients := &mockPatientStore{}
	patients.On("PatientExists", mock.Anything, mock.Anything).Return(false, nil)
	patients.On("InsertPatient", mock.Anything, mock.Anything).Return(models.Patient{}, store.ErrConflict).Twice()
	patients.On("InsertPatient", mock.Anything, mock.Anything).
		Return(models.Patient{PatientUID: MinPatientUID + 42, FirstName: "Alice"}, nil).Once()

	svc := NewRegistrationService(patients, nil, 5, newFakeClock().Now, nil)
	patient, err := svc.Register(context.Background(), PatientDraft{FirstName: "Alice", LastName: "Tan", DateOfBirth: "1990-01-01", ContactNumber: "+6590000000"})
	require.NoError(t, err)
	assert.Equal(t, MinPatientUID+42, patient.PatientUID)
	patients.AssertNumberOfCalls(t, "InsertPatient", 3)
}

func TestRegisterGivesUpAfterMaxAttempts(t *testing.T) {
	patients := &mockPatientStore{}
	patients.On("PatientExists", mock.Anything, mock.Anything).Return(false, nil)
	patients.On("InsertPatient", mock.Anything, mock.Anything).Return(models.Patient{}, store.ErrConflict)

	svc := NewRegistrationService(patients, nil, 3, nil, nil)
	_, err := svc.Register(context.Background(), PatientDraft{FirstName: "Alice", LastName: "Tan", DateOfBirth: "1990-01-01", ContactNumber: "+6590000000"})
	assert.ErrorIs(t, err, ErrConflict)
	patients.AssertNumberOfCalls(t, "InsertPatient", 3)
}

func TestRegisterSurfacesInsertFailure(t *testing.T) {
	patients := &mockPatientStore{}
	patients.On("PatientExists", mock.Anything, mock.Anything).Return(false, nil)
	patients.On("InsertPatient", mock.Anything, mock.Anything).Return(models.Patient{}, errors.New("disk full"))

	svc := NewRegistrationService(patients, nil, 3, nil, nil)
	_, err := svc.Register(context.Background(), PatientDraft{FirstName: "Alice", LastName: "Tan", DateOfBirth: "1990-01-01", ContactNumber: "+6590000000"})
	assert.ErrorIs(t, err, ErrStorage)
	patients.AssertNumberOfCalls(t, "InsertPatient", 1)
}

func TestGetUnknownPatient(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.services.Registration.Get(context.Background(), MinPatientUID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParsePatientUID(t *testing.T) {
	uid, err := ParsePatientUID("12345678901")
	require.NoError(t, err)
	assert.Equal(t, int64(12345678901), uid)

	for _, raw := range []string{"", "abc", "123", "999999999999"} {
		_, err := ParsePatientUID(raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func formatUID(uid int64) string {
	return strconv.FormatInt(uid, 10)
}

package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/frontdesk"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/memory"
)

func TestSeedDoctorsIsIdempotent(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	n, err := SeedDoctors(ctx, st, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = SeedDoctors(ctx, st, now)
	require.NoError(t, err)

	doctors, err := st.ListDoctors(ctx)
	require.NoError(t, err)
	require.Len(t, doctors, 3)
	for _, doctor := range doctors {
		assert.Len(t, doctor.WorkingHours, 5)
	}
}

func TestRandomPatientDraftValidates(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		draft := RandomPatientDraft()
		_, err := draft.Validate(now)
		require.NoError(t, err, "%+v", draft)
	}
}

func TestSeedPatientsRegistersDistinctUIDs(t *testing.T) {
	st := memory.New()
	services := frontdesk.NewServices(st, frontdesk.Options{})

	patients, err := SeedPatients(context.Background(), services.Registration, 25)
	require.NoError(t, err)
	require.Len(t, patients, 25)

	seen := make(map[int64]struct{}, len(patients))
	for _, patient := range patients {
		_, dup := seen[patient.PatientUID]
		assert.False(t, dup)
		seen[patient.PatientUID] = struct{}{}
	}
}

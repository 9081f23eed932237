package frontdesk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRecordVitals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := env.register(t, "Alice", "Tan")

	first, err := env.services.Vitals.Record(ctx, patient.PatientUID, VitalsInput{
		Temperature:            ptr(37.2),
		BloodPressureSystolic:  ptr(120),
		BloodPressureDiastolic: ptr(80),
		HeartRate:              ptr(72),
	}, "nurse-7")
	require.NoError(t, err)
	assert.NotEmpty(t, first.VitalsID)
	assert.Equal(t, "nurse-7", first.RecordedBy)

	env.clock.Advance(time.Hour)
	second, err := env.services.Vitals.Record(ctx, patient.PatientUID, VitalsInput{OxygenSaturation: ptr(98.0)}, "nurse-7")
	require.NoError(t, err)

	records, err := env.services.Vitals.List(ctx, patient.PatientUID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.VitalsID, records[0].VitalsID)
}

func TestRecordVitalsValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	patient := env.register(t, "Alice", "Tan")

	cases := map[string]VitalsInput{
		"empty":             {},
		"fever too high":    {Temperature: ptr(51.0)},
		"heart rate":        {HeartRate: ptr(400)},
		"inverted pressure": {BloodPressureSystolic: ptr(80), BloodPressureDiastolic: ptr(90)},
		"oxygen":            {OxygenSaturation: ptr(120.0)},
	}
	for name, in := range cases {
		_, err := env.services.Vitals.Record(ctx, patient.PatientUID, in, "nurse-7")
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	_, err := env.services.Vitals.Record(ctx, MinPatientUID, VitalsInput{HeartRate: ptr(70)}, "nurse-7")
	assert.ErrorIs(t, err, ErrNotFound)
}

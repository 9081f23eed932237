package frontdesk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExistence struct {
	mock.Mock
}

func (m *mockExistence) Exists(ctx context.Context, uid int64) (bool, error) {
	args := m.Called(ctx, uid)
	return args.Bool(0), args.Error(1)
}

func TestGenerateStaysInRange(t *testing.T) {
	g := &IdentifierGenerator{randInt64N: func(n int64) int64 { return 0 }}
	assert.Equal(t, MinPatientUID, g.Generate())

	g.randInt64N = func(n int64) int64 { return n - 1 }
	assert.Equal(t, MaxPatientUID, g.Generate())

	gen := NewIdentifierGenerator()
	for i := 0; i < 1000; i++ {
		uid := gen.Generate()
		require.GreaterOrEqual(t, uid, MinPatientUID)
		require.LessOrEqual(t, uid, MaxPatientUID)
	}
}

func TestAllocateUniqueRetriesPastCollisions(t *testing.T) {
	draws := []int64{5, 5, 7, 9}
	i := 0
	g := &IdentifierGenerator{randInt64N: func(int64) int64 {
		v := draws[i]
		i++
		return v
	}}
	collisions := 0
	g.collisions = func(context.Context) { collisions++ }

	m := &mockExistence{}
	m.On("Exists", mock.Anything, MinPatientUID+5).Return(true, nil).Twice()
	m.On("Exists", mock.Anything, MinPatientUID+7).Return(true, nil).Once()
	m.On("Exists", mock.Anything, MinPatientUID+9).Return(false, nil).Once()

	uid, err := g.AllocateUnique(context.Background(), m.Exists)
	require.NoError(t, err)
	assert.Equal(t, MinPatientUID+9, uid)
	assert.Equal(t, 3, collisions)
	m.AssertExpectations(t)
}

func TestAllocateUniqueSurfacesStoreFailure(t *testing.T) {
	g := NewIdentifierGenerator()
	m := &mockExistence{}
	down := errors.New("connection refused")
	m.On("Exists", mock.Anything, mock.Anything).Return(false, down).Once()

	_, err := g.AllocateUnique(context.Background(), m.Exists)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, down)
	m.AssertNumberOfCalls(t, "Exists", 1)
}

func TestAllocateUniqueStopsWhenContextDone(t *testing.T) {
	g := NewIdentifierGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	exists := func(context.Context, int64) (bool, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return true, nil
	}

	_, err := g.AllocateUnique(ctx, exists)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
}

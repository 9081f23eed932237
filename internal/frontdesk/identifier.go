package frontdesk

import (
	"context"
	"math/rand/v2"
)

// patient_uid range. The keyspace holds 9e10 values. With 50,000 registered patients a fresh
// candidate is taken with probability about 5.6e-7, so AllocateUnique almost always returns
// on the first draw. The chance that any two of 50,000 independent draws coincide is about
// 1.4%, which is why every candidate is checked against the store and the insert itself is
// guarded by a unique index.
const (
	MinPatientUID int64 = 10_000_000_000
	MaxPatientUID int64 = 99_999_999_999
)

// ExistsFunc reports whether a patient_uid is already taken.
type ExistsFunc func(ctx context.Context, uid int64) (bool, error)

type IdentifierGenerator struct {
	randInt64N func(n int64) int64
	// collisions is called once for every candidate found taken.
	collisions func(ctx context.Context)
}

func NewIdentifierGenerator() *IdentifierGenerator {
	return &IdentifierGenerator{randInt64N: rand.Int64N}
}

// Generate draws a candidate uniformly from [MinPatientUID, MaxPatientUID].
func (g *IdentifierGenerator) Generate() int64 {
	return MinPatientUID + g.randInt64N(MaxPatientUID-MinPatientUID+1)
}

// AllocateUnique draws candidates until exists reports one as free. There is no attempt
// limit; the loop ends when ctx is done. A failing existence check is returned as a
// StorageError and is never retried.
func (g *IdentifierGenerator) AllocateUnique(ctx context.Context, exists ExistsFunc) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, storageErr("allocate patient uid", err)
		}
		candidate := g.Generate()
		taken, err := exists(ctx, candidate)
		if err != nil {
			return 0, storageErr("check patient uid", err)
		}
		if !taken {
			return candidate, nil
		}
		if g.collisions != nil {
			g.collisions(ctx)
		}
	}
}

package frontdesk

import (
	"time"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/telemetry"
)

type Options struct {
	DefaultDurationMinutes int
	UIDMaxAttempts         int
	Now                    func() time.Time
	Metrics                *telemetry.Metrics
}

// Services wires every front-desk service to one store.
type Services struct {
	Registration *RegistrationService
	Booking      *BookingService
	Lifecycle    *Lifecycle
	Queue        *QueueService
	Vitals       *VitalsService
}

func NewServices(st store.Store, opts Options) *Services {
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewMetrics()
	}
	allocator := NewQueueAllocator(st)
	return &Services{
		Registration: NewRegistrationService(st, NewIdentifierGenerator(), opts.UIDMaxAttempts, opts.Now, opts.Metrics),
		Booking:      NewBookingService(st, allocator, opts.DefaultDurationMinutes, opts.Now, opts.Metrics),
		Lifecycle:    NewLifecycle(st, st, opts.Now, opts.Metrics),
		Queue:        NewQueueService(st, st, st, allocator),
		Vitals:       NewVitalsService(st, st, opts.Now, opts.Metrics),
	}
}

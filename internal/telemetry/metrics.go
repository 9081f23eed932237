package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the front-desk counters. The zero value is not usable; call NewMetrics.
type Metrics struct {
	PatientsRegistered  metric.Int64Counter
	UIDCollisions       metric.Int64Counter
	AppointmentsBooked  metric.Int64Counter
	QueueAdmissions     metric.Int64Counter
	AdmissionFailures   metric.Int64Counter
	StatusTransitions   metric.Int64Counter
	TransitionsRejected metric.Int64Counter
	VitalsRecorded      metric.Int64Counter
}

// NewMetrics registers counters on the global meter provider. When registration fails
// the counters fall back to no-ops so callers never need nil checks.
func NewMetrics() *Metrics {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	return &Metrics{
		PatientsRegistered:  counter("frontdesk.registrations", "Number of patients registered"),
		UIDCollisions:       counter("frontdesk.uid_collisions", "Number of patient uid candidates rejected as taken"),
		AppointmentsBooked:  counter("frontdesk.bookings", "Number of appointments booked"),
		QueueAdmissions:     counter("frontdesk.queue_admissions", "Number of queue entries created"),
		AdmissionFailures:   counter("frontdesk.queue_admission_failures", "Number of bookings persisted without a queue entry"),
		StatusTransitions:   counter("frontdesk.transitions", "Number of applied status transitions"),
		TransitionsRejected: counter("frontdesk.transitions_rejected", "Number of rejected status transitions"),
		VitalsRecorded:      counter("frontdesk.vitals", "Number of vitals records stored"),
	}
}

func Add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records err on span when it is non-nil.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

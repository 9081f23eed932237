package models

import "time"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusWalkIn     Status = "WALK_IN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWalkIn, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether an entry in this status still occupies a place in the queue.
func (s Status) IsActive() bool {
	return s.Valid() && !s.IsTerminal()
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

const (
	ChannelOnline = "online"
	ChannelWalkIn = "walk_in"
	ChannelKiosk  = "kiosk"
	ChannelDesk   = "desk"
)

type Appointment struct {
	AppointmentID           string     `json:"appointment_id"`
	PatientUID              int64      `json:"patient_uid"`
	DoctorID                string     `json:"doctor_id"`
	ScheduledAt             time.Time  `json:"appointment_time"`
	Status                  Status     `json:"status"`
	QueueToken              string     `json:"queue_token"`
	Priority                Priority   `json:"priority"`
	IsOnlineBooking         bool       `json:"is_online_booking"`
	IsWalkIn                bool       `json:"is_walk_in"`
	IsKioskRegistration     bool       `json:"is_kiosk_registration"`
	DurationEstimateMinutes int        `json:"duration_estimate_minutes"`
	ActualDurationMinutes   *int       `json:"actual_duration_minutes,omitempty"`
	Notes                   string     `json:"notes,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	CheckedInAt             *time.Time `json:"checked_in_at,omitempty"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
}

// Channel names the booking origin. Bookings without a channel flag came from the front desk.
func (a Appointment) Channel() string {
	switch {
	case a.IsOnlineBooking:
		return ChannelOnline
	case a.IsWalkIn:
		return ChannelWalkIn
	case a.IsKioskRegistration:
		return ChannelKiosk
	default:
		return ChannelDesk
	}
}

type QueueEntry struct {
	EntryID              string     `json:"entry_id"`
	AppointmentID        string     `json:"appointment_id"`
	PatientUID           int64      `json:"patient_uid"`
	DoctorID             string     `json:"doctor_id"`
	QueueNumber          int        `json:"queue_number"`
	Status               Status     `json:"status"`
	Priority             Priority   `json:"priority"`
	EstimatedWaitMinutes int        `json:"estimated_wait_time"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CalledAt             *time.Time `json:"called_at,omitempty"`
	ServedAt             *time.Time `json:"served_at,omitempty"`
}

package models

import "time"

type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Doctor struct {
	DoctorID       string                  `json:"doctor_id"`
	Name           string                  `json:"name"`
	Specialization string                  `json:"specialization"`
	Department     string                  `json:"department"`
	IsAvailable    bool                    `json:"is_available"`
	WorkingHours   map[string]WorkingHours `json:"working_hours,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

package store

import (
	"testing"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from  models.Status
		to    models.Status
		valid bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusWalkIn, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusPending, models.StatusInProgress, false},
		{models.StatusPending, models.StatusCompleted, false},
		{models.StatusConfirmed, models.StatusInProgress, true},
		{models.StatusConfirmed, models.StatusCancelled, true},
		{models.StatusConfirmed, models.StatusCompleted, false},
		{models.StatusWalkIn, models.StatusInProgress, true},
		{models.StatusWalkIn, models.StatusConfirmed, false},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusCancelled, true},
		{models.StatusInProgress, models.StatusPending, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCompleted, models.StatusInProgress, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.Status("UNKNOWN"), models.StatusPending, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.from, tt.to); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestValidInitialStatus(t *testing.T) {
	for _, status := range []models.Status{models.StatusPending, models.StatusConfirmed, models.StatusWalkIn} {
		if !ValidInitialStatus(status) {
			t.Fatalf("expected %q to be a valid initial status", status)
		}
	}
	for _, status := range []models.Status{models.StatusInProgress, models.StatusCompleted, models.StatusCancelled, ""} {
		if ValidInitialStatus(status) {
			t.Fatalf("expected %q to be rejected as initial status", status)
		}
	}
}

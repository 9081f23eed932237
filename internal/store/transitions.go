package store

import "github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/models"

var transitionMap = map[models.Status][]models.Status{
	models.StatusPending:    {models.StatusConfirmed, models.StatusWalkIn, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled},
	models.StatusWalkIn:     {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
}

// InitialStatuses are the statuses a booking may be created in.
var InitialStatuses = []models.Status{models.StatusPending, models.StatusConfirmed, models.StatusWalkIn}

func ValidTransition(from, to models.Status) bool {
	allowed, ok := transitionMap[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}

func ValidInitialStatus(status models.Status) bool {
	for _, s := range InitialStatuses {
		if s == status {
			return true
		}
	}
	return false
}

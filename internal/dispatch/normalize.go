package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/backend/internal/models"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// DayRange converts a YYYY-MM-DD date string into the half-open instant
// window [local midnight of d, local midnight of d+1).
func DayRange(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, date, err)
	}
	return start, start.AddDate(0, 0, 1), nil
}

// NormalizeAppointment converts a storage-shaped record into the dispatch
// shape. A nil technician id becomes the empty string.
func NormalizeAppointment(r models.AppointmentRecord) models.Appointment {
	technicianID := ""
	if r.TechnicianID != nil {
		technicianID = strings.TrimSpace(*r.TechnicianID)
	}
	return models.Appointment{
		ID:              strings.TrimSpace(r.ID),
		ScheduledAt:     r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Status:          normalizeStatus(r.Status),
		CustomerName:    strings.TrimSpace(r.CustomerName),
		ServiceID:       strings.TrimSpace(r.ServiceID),
		ServiceName:     strings.TrimSpace(r.ServiceName),
		Address:         strings.TrimSpace(r.Address),
		TechnicianID:    technicianID,
	}
}

func NormalizeTechnician(r models.TechnicianRecord) models.Technician {
	status := strings.ToLower(strings.TrimSpace(r.Status))
	if status == "" {
		status = "active"
	}
	return models.Technician{
		ID:     strings.TrimSpace(r.ID),
		Name:   strings.TrimSpace(r.Name),
		Status: status,
	}
}

func normalizeStatus(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, "-", "_")
	v = strings.ReplaceAll(v, " ", "_")
	switch v {
	case models.StatusScheduled, models.StatusConfirmed, models.StatusInProgress,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow:
		return v
	case "inprogress":
		return models.StatusInProgress
	case "noshow":
		return models.StatusNoShow
	case "":
		return models.StatusScheduled
	default:
		return v
	}
}

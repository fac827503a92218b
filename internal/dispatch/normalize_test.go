package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldline/backend/internal/models"
)

func TestDayRangeCoversOneLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	start, end, err := DayRange("2025-03-10", loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, loc), end)
	require.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestDayRangeRejectsMalformedDates(t *testing.T) {
	for _, date := range []string{"", "2025-3-10", "10-03-2025", "2025-03-10T00:00:00Z", "not-a-date"} {
		_, _, err := DayRange(date, time.UTC)
		require.ErrorIs(t, err, ErrInvalidDate, "date %q", date)
	}
}

func TestNormalizeAppointmentStatusVariants(t *testing.T) {
	cases := map[string]string{
		"":            models.StatusScheduled,
		"Scheduled":   models.StatusScheduled,
		"IN PROGRESS": models.StatusInProgress,
		"in-progress": models.StatusInProgress,
		"InProgress":  models.StatusInProgress,
		"NoShow":      models.StatusNoShow,
		"no-show":     models.StatusNoShow,
		"COMPLETED":   models.StatusCompleted,
		"weird":       "weird",
	}
	for raw, want := range cases {
		got := NormalizeAppointment(models.AppointmentRecord{ID: "a1", Status: raw})
		require.Equal(t, want, got.Status, "status %q", raw)
	}
}

func TestNormalizeAppointmentTechnicianPointer(t *testing.T) {
	got := NormalizeAppointment(models.AppointmentRecord{ID: " a1 "})
	require.Equal(t, "a1", got.ID)
	require.Empty(t, got.TechnicianID)

	techID := " t1 "
	got = NormalizeAppointment(models.AppointmentRecord{ID: "a1", TechnicianID: &techID})
	require.Equal(t, "t1", got.TechnicianID)
}

func TestNormalizeTechnicianDefaults(t *testing.T) {
	got := NormalizeTechnician(models.TechnicianRecord{ID: "t1", Name: " Dana "})
	require.Equal(t, "active", got.Status)
	require.Equal(t, "Dana", got.Name)

	got = NormalizeTechnician(models.TechnicianRecord{ID: "t1", Status: " ON_LEAVE "})
	require.Equal(t, "on_leave", got.Status)
}

package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/models"
)

// Source is the tenant-scoped scheduling backend the board reads from and
// writes assignments through.
type Source interface {
	ListAppointments(ctx context.Context, tenantID string, start, end time.Time) ([]models.AppointmentRecord, error)
	ListTechnicians(ctx context.Context, tenantID string) ([]models.TechnicianRecord, error)
	AssignAppointment(ctx context.Context, tenantID, appointmentID, technicianID string) (models.AppointmentRecord, error)
}

// Loader seeds State with one day's appointments and the technician
// directory. Every call is a full reload, not an incremental diff.
type Loader struct {
	State    *State
	Source   Source
	TenantID string
	Location *time.Location
	Logger   zerolog.Logger
}

// Reload fetches the day's window. On failure a single error message lands
// in state and prior data stays as it was; the loading flag clears either
// way. The route-preview cache is dropped at the start of every reload:
// previews are bound to the set of appointments visible on the loaded day.
func (l *Loader) Reload(ctx context.Context, date string) error {
	l.State.BeginLoad()
	defer l.State.EndLoad()

	l.State.FlushRoutes()

	start, end, err := DayRange(date, l.Location)
	if err != nil {
		l.State.SetError("invalid date")
		return err
	}

	apptRecords, err := l.Source.ListAppointments(ctx, l.TenantID, start, end)
	if err != nil {
		l.Logger.Error().Err(err).Str("date", date).Msg("failed to load appointments")
		l.State.SetError("failed to load appointments")
		return err
	}
	techRecords, err := l.Source.ListTechnicians(ctx, l.TenantID)
	if err != nil {
		l.Logger.Error().Err(err).Msg("failed to load technicians")
		l.State.SetError("failed to load technicians")
		return err
	}

	appointments := make([]models.Appointment, 0, len(apptRecords))
	for _, r := range apptRecords {
		appointments = append(appointments, NormalizeAppointment(r))
	}
	technicians := make([]models.Technician, 0, len(techRecords))
	for _, r := range techRecords {
		technicians = append(technicians, NormalizeTechnician(r))
	}

	l.State.PublishDay(date, appointments, technicians)
	l.Logger.Info().
		Str("date", date).
		Int("appointments", len(appointments)).
		Int("technicians", len(technicians)).
		Msg("board reloaded")
	return nil
}

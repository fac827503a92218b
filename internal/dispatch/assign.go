package dispatch

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/models"
)

var ErrAssignmentInFlight = errors.New("assignment already in flight for this appointment")

// AssignmentCoordinator executes a single appointment→technician binding.
// State is reconciled only from the server's returned record; there is no
// optimistic local mutation.
type AssignmentCoordinator struct {
	State    *State
	Source   Source
	TenantID string
	Logger   zerolog.Logger
}

// Assign mutates exactly one appointment. A second concurrent call for the
// same appointment is rejected; calls for different appointments may run
// concurrently. On failure the appointment list is left unchanged and the
// error surfaces through the shared error slot.
func (c *AssignmentCoordinator) Assign(ctx context.Context, appointmentID, technicianID string) (models.Appointment, error) {
	if !c.State.TryBeginAssign(appointmentID) {
		return models.Appointment{}, ErrAssignmentInFlight
	}
	defer c.State.EndAssign(appointmentID)

	record, err := c.Source.AssignAppointment(ctx, c.TenantID, appointmentID, technicianID)
	if err != nil {
		c.Logger.Error().Err(err).
			Str("appointment_id", appointmentID).
			Str("technician_id", technicianID).
			Msg("assignment failed")
		c.State.SetError("failed to assign appointment")
		return models.Appointment{}, err
	}

	appt := NormalizeAppointment(record)
	c.State.ReplaceAppointment(appt)
	c.Logger.Info().
		Str("appointment_id", appt.ID).
		Str("technician_id", appt.TechnicianID).
		Msg("appointment assigned")
	return appt, nil
}

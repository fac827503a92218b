package dispatch

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/models"
)

type fakeSource struct {
	appointments []models.AppointmentRecord
	technicians  []models.TechnicianRecord
	apptErr      error
	techErr      error
	assign       func(tenantID, appointmentID, technicianID string) (models.AppointmentRecord, error)

	lastStart time.Time
	lastEnd   time.Time
}

func (f *fakeSource) ListAppointments(_ context.Context, _ string, start, end time.Time) ([]models.AppointmentRecord, error) {
	f.lastStart, f.lastEnd = start, end
	if f.apptErr != nil {
		return nil, f.apptErr
	}
	return f.appointments, nil
}

func (f *fakeSource) ListTechnicians(context.Context, string) ([]models.TechnicianRecord, error) {
	if f.techErr != nil {
		return nil, f.techErr
	}
	return f.technicians, nil
}

func (f *fakeSource) AssignAppointment(_ context.Context, tenantID, appointmentID, technicianID string) (models.AppointmentRecord, error) {
	if f.assign == nil {
		return models.AppointmentRecord{}, errors.New("assign not configured")
	}
	return f.assign(tenantID, appointmentID, technicianID)
}

func newTestLoader(src *fakeSource) (*Loader, *State) {
	state := NewState()
	return &Loader{
		State:    state,
		Source:   src,
		TenantID: "demo",
		Location: time.UTC,
		Logger:   zerolog.Nop(),
	}, state
}

func TestReloadPublishesDay(t *testing.T) {
	techID := "t1"
	src := &fakeSource{
		appointments: []models.AppointmentRecord{
			{ID: "a1", Status: "Scheduled", ServiceID: "s1"},
			{ID: "a2", Status: "confirmed", TechnicianID: &techID},
		},
		technicians: []models.TechnicianRecord{
			{ID: "t1", Name: "Dana"},
			{ID: "t2", Name: "Iris", Status: "on_leave"},
		},
	}
	loader, state := newTestLoader(src)

	if err := loader.Reload(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if state.Date() != "2025-03-10" {
		t.Fatalf("unexpected date %q", state.Date())
	}
	wantStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !src.lastStart.Equal(wantStart) || !src.lastEnd.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected query window [%v, %v)", src.lastStart, src.lastEnd)
	}

	appts := state.Appointments()
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].Status != models.StatusScheduled || appts[0].TechnicianID != "" {
		t.Fatalf("unexpected normalization: %+v", appts[0])
	}
	if appts[1].TechnicianID != "t1" {
		t.Fatalf("expected a2 bound to t1, got %+v", appts[1])
	}

	unassigned := state.Unassigned()
	if len(unassigned) != 1 || unassigned[0].ID != "a1" {
		t.Fatalf("unexpected unassigned set %+v", unassigned)
	}
	if state.SelectedTechnicianID() != "t1" {
		t.Fatalf("expected first technician selected, got %q", state.SelectedTechnicianID())
	}
	if state.LastError() != "" {
		t.Fatalf("expected error slot cleared, got %q", state.LastError())
	}
}

func TestReloadInvalidDate(t *testing.T) {
	loader, state := newTestLoader(&fakeSource{})

	err := loader.Reload(context.Background(), "10.03.2025")
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if state.LastError() != "invalid date" {
		t.Fatalf("unexpected error slot %q", state.LastError())
	}
	if state.Date() != "" {
		t.Fatalf("expected no day published, got %q", state.Date())
	}
}

func TestReloadSameDateIsIdempotent(t *testing.T) {
	techID := "t1"
	src := &fakeSource{
		appointments: []models.AppointmentRecord{
			{ID: "a1", Status: "Scheduled", ServiceID: "s1"},
			{ID: "a2", Status: "confirmed", TechnicianID: &techID},
		},
		technicians: []models.TechnicianRecord{
			{ID: "t1", Name: "Dana"},
			{ID: "t2", Name: "Iris", Status: "on_leave"},
		},
	}
	loader, state := newTestLoader(src)

	if err := loader.Reload(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("first reload: %v", err)
	}
	firstAppts := state.Appointments()
	firstTechs := state.Technicians()
	firstSelected := state.SelectedTechnicianID()

	if err := loader.Reload(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("second reload: %v", err)
	}

	if !reflect.DeepEqual(firstAppts, state.Appointments()) {
		t.Fatalf("expected identical appointments across reloads:\n%+v\nvs\n%+v", firstAppts, state.Appointments())
	}
	if !reflect.DeepEqual(firstTechs, state.Technicians()) {
		t.Fatalf("expected identical technicians across reloads:\n%+v\nvs\n%+v", firstTechs, state.Technicians())
	}
	if state.SelectedTechnicianID() != firstSelected {
		t.Fatalf("expected selection stable, got %q then %q", firstSelected, state.SelectedTechnicianID())
	}
}

func TestReloadFailureKeepsPriorDay(t *testing.T) {
	src := &fakeSource{
		appointments: []models.AppointmentRecord{{ID: "a1"}},
		technicians:  []models.TechnicianRecord{{ID: "t1"}},
	}
	loader, state := newTestLoader(src)
	if err := loader.Reload(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("first reload: %v", err)
	}

	src.apptErr = errors.New("db down")
	if err := loader.Reload(context.Background(), "2025-03-11"); err == nil {
		t.Fatalf("expected error")
	}

	if state.Date() != "2025-03-10" {
		t.Fatalf("expected prior day kept, got %q", state.Date())
	}
	if len(state.Appointments()) != 1 {
		t.Fatalf("expected prior appointments kept")
	}
	if state.LastError() != "failed to load appointments" {
		t.Fatalf("unexpected error slot %q", state.LastError())
	}

	src.apptErr = nil
	src.techErr = errors.New("db down")
	if err := loader.Reload(context.Background(), "2025-03-11"); err == nil {
		t.Fatalf("expected error")
	}
	if state.LastError() != "failed to load technicians" {
		t.Fatalf("unexpected error slot %q", state.LastError())
	}
}

func TestReloadFlushesRouteCache(t *testing.T) {
	loader, state := newTestLoader(&fakeSource{})
	state.PutRoute(models.RoutePreview{TechnicianID: "t1"})

	if err := loader.Reload(context.Background(), "2025-03-10"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := state.Route("t1"); ok {
		t.Fatalf("expected route cache flushed on reload")
	}
}

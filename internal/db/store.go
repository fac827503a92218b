package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldline/backend/internal/models"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTechnicianNotFound  = errors.New("technician not found")
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const appointmentColumns = `id, tenant_id, scheduled_at, duration_minutes, status, customer_name, service_id, service_name, address, technician_id, created_at, updated_at`

// ListAppointments returns every appointment of the tenant overlapping the
// half-open window [start, end).
func (s *Store) ListAppointments(ctx context.Context, tenantID string, start, end time.Time) ([]models.AppointmentRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
		  AND scheduled_at < $3
		  AND scheduled_at + make_interval(mins => duration_minutes) > $2
		ORDER BY scheduled_at ASC, id ASC
	`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AppointmentRecord
	for rows.Next() {
		var r models.AppointmentRecord
		if err := scanAppointment(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, tenantID, appointmentID string) (models.AppointmentRecord, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE tenant_id = $1 AND id = $2`, tenantID, appointmentID)
	var r models.AppointmentRecord
	if err := scanAppointment(row, &r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AppointmentRecord{}, ErrAppointmentNotFound
		}
		return models.AppointmentRecord{}, err
	}
	return r, nil
}

func (s *Store) ListTechnicians(ctx context.Context, tenantID string) ([]models.TechnicianRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, tenant_id, name, status, updated_at
		FROM technicians
		WHERE tenant_id = $1
		ORDER BY name ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TechnicianRecord
	for rows.Next() {
		var t models.TechnicianRecord
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Status, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AssignAppointment binds one appointment to a technician and returns the
// updated row. The technician must exist in the same tenant.
func (s *Store) AssignAppointment(ctx context.Context, tenantID, appointmentID, technicianID string) (models.AppointmentRecord, error) {
	var rec models.AppointmentRecord
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM technicians WHERE tenant_id = $1 AND id = $2)`, tenantID, technicianID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTechnicianNotFound
		}

		row := tx.QueryRow(ctx, `
			UPDATE appointments
			SET technician_id = $1, updated_at = NOW()
			WHERE tenant_id = $2 AND id = $3
			RETURNING `+appointmentColumns+`
		`, technicianID, tenantID, appointmentID)
		if err := scanAppointment(row, &rec); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAppointmentNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.AppointmentRecord{}, err
	}
	return rec, nil
}

func (s *Store) InsertAppointments(ctx context.Context, records []models.AppointmentRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.ID, r.TenantID, r.ScheduledAt, r.DurationMinutes, r.Status, r.CustomerName, r.ServiceID, r.ServiceName, r.Address, r.TechnicianID, r.CreatedAt, r.UpdatedAt})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"appointments"},
		[]string{"id", "tenant_id", "scheduled_at", "duration_minutes", "status", "customer_name", "service_id", "service_name", "address", "technician_id", "created_at", "updated_at"},
		pgx.CopyFromRows(rows))
}

func (s *Store) InsertTechnicians(ctx context.Context, records []models.TechnicianRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, t := range records {
		rows = append(rows, []any{t.ID, t.TenantID, t.Name, t.Status, t.UpdatedAt})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"technicians"},
		[]string{"id", "tenant_id", "name", "status", "updated_at"},
		pgx.CopyFromRows(rows))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner, r *models.AppointmentRecord) error {
	return row.Scan(
		&r.ID, &r.TenantID, &r.ScheduledAt, &r.DurationMinutes, &r.Status,
		&r.CustomerName, &r.ServiceID, &r.ServiceName, &r.Address,
		&r.TechnicianID, &r.CreatedAt, &r.UpdatedAt,
	)
}

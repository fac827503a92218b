package models

import "time"

// Appointment status labels as stored by the scheduling backend.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// AppointmentRecord is the storage-shaped appointment row. TechnicianID is
// nil while the appointment is unassigned.
type AppointmentRecord struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CustomerName    string    `json:"customer_name"`
	ServiceID       string    `json:"service_id"`
	ServiceName     string    `json:"service_name"`
	Address         string    `json:"address"`
	TechnicianID    *string   `json:"technician_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TechnicianRecord struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Appointment is the dispatch-board shape. TechnicianID == "" means
// unassigned.
type Appointment struct {
	ID              string    `json:"id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CustomerName    string    `json:"customer_name"`
	ServiceID       string    `json:"service_id"`
	ServiceName     string    `json:"service_name"`
	Address         string    `json:"address"`
	TechnicianID    string    `json:"technician_id,omitempty"`
}

type Technician struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// TechnicianScore is one ranked candidate from the matching service. The
// dispatch layer treats the ranking as opaque and never reorders it.
type TechnicianScore struct {
	TechnicianID   string  `json:"technician_id"`
	TechnicianName string  `json:"technician_name"`
	SkillLevel     string  `json:"skill_level,omitempty"`
	Score          float64 `json:"score"`
}

type RouteStop struct {
	AppointmentID   string    `json:"appointment_id"`
	Address         string    `json:"address"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// RoutePreview is one technician's optimized stop ordering for a day,
// tagged with the instant it was generated.
type RoutePreview struct {
	TechnicianID         string      `json:"technician_id"`
	Stops                []RouteStop `json:"stops"`
	TotalDistanceKm      float64     `json:"total_distance_km"`
	TotalDurationMinutes int         `json:"total_duration_minutes"`
	SavingsPercent       float64     `json:"savings_percent"`
	GeneratedAt          time.Time   `json:"generated_at"`
}

package route

import (
	"context"
	"sort"
	"time"

	"github.com/fieldline/backend/internal/models"
	"github.com/fieldline/backend/internal/utils"
)

// AppointmentLister supplies the day's appointments so the mock can build a
// plausible stop sequence.
type AppointmentLister interface {
	ListAppointments(ctx context.Context, tenantID string, start, end time.Time) ([]models.AppointmentRecord, error)
}

// MockOptimizer orders the technician's stops by scheduled time and derives
// distance and savings deterministically from the stop addresses. Used when
// ROUTE_URL is not configured.
type MockOptimizer struct {
	Source   AppointmentLister
	Location *time.Location
}

func (m MockOptimizer) OptimizeRoute(ctx context.Context, q Query) (models.RoutePreview, error) {
	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation("2006-01-02", q.Date, loc)
	if err != nil {
		return models.RoutePreview{}, err
	}

	records, err := m.Source.ListAppointments(ctx, q.TenantID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return models.RoutePreview{}, err
	}

	preview := models.RoutePreview{TechnicianID: q.TechnicianID}
	for _, r := range records {
		if r.TechnicianID == nil || *r.TechnicianID != q.TechnicianID {
			continue
		}
		preview.Stops = append(preview.Stops, models.RouteStop{
			AppointmentID:   r.ID,
			Address:         r.Address,
			ScheduledAt:     r.ScheduledAt,
			DurationMinutes: r.DurationMinutes,
		})
	}
	if len(preview.Stops) == 0 {
		return models.RoutePreview{}, ErrNoStops
	}

	sort.Slice(preview.Stops, func(i, j int) bool {
		return preview.Stops[i].ScheduledAt.Before(preview.Stops[j].ScheduledAt)
	})

	for i := range preview.Stops {
		preview.TotalDurationMinutes += preview.Stops[i].DurationMinutes
		if i > 0 {
			lat1, lon1 := pseudoCoords(preview.Stops[i-1].Address)
			lat2, lon2 := pseudoCoords(preview.Stops[i].Address)
			preview.TotalDistanceKm += utils.HaversineKm(lat1, lon1, lat2, lon2)
		}
	}

	h := utils.HashStringToUint64(q.TechnicianID + "|" + q.Date)
	preview.SavingsPercent = 10 + float64(h%150)/10
	return preview, nil
}

// pseudoCoords spreads addresses over a ~0.2 degree box so distances between
// distinct addresses are nonzero and stable.
func pseudoCoords(address string) (float64, float64) {
	h := utils.HashStringToUint64(address)
	lat := 40.0 + float64(h%2000)/10000
	lon := -74.0 + float64((h/2000)%2000)/10000
	return lat, lon
}

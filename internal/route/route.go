package route

import (
	"context"
	"errors"

	"github.com/fieldline/backend/internal/models"
)

var ErrNoStops = errors.New("no stops to optimize")

// Query identifies one optimization request: one technician, one calendar
// date (YYYY-MM-DD, tenant-local).
type Query struct {
	TenantID     string
	TechnicianID string
	Date         string
}

// Optimizer computes an ordered stop sequence with distance, duration and
// savings metrics. The ordering algorithm belongs to the provider; this
// service only consumes the result.
type Optimizer interface {
	OptimizeRoute(ctx context.Context, q Query) (models.RoutePreview, error)
}

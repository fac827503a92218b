package match

import (
	"context"
	"time"

	"github.com/fieldline/backend/internal/models"
)

// Query identifies one suggestion request: which service is needed and when.
type Query struct {
	TenantID  string
	ServiceID string
	At        time.Time
}

// Matcher returns ranked technician candidates for a service/time pair.
// Results arrive best-first; callers display them as-is.
type Matcher interface {
	FindBestTechnicians(ctx context.Context, q Query) ([]models.TechnicianScore, error)
}

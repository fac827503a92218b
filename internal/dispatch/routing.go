package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/models"
	"github.com/fieldline/backend/internal/route"
)

var ErrRouteOptimizationInFlight = errors.New("route optimization already in flight")

// RoutingCoordinator requests an optimized route for one technician/date and
// caches the result keyed by technician. One optimization is tracked as in
// progress per board at a time; the in-flight id clears on every path.
type RoutingCoordinator struct {
	State     *State
	Optimizer route.Optimizer
	TenantID  string
	Logger    zerolog.Logger
}

func (c *RoutingCoordinator) Optimize(ctx context.Context, technicianID, date string) (models.RoutePreview, error) {
	if !c.State.TryBeginRouteLoad(technicianID) {
		return models.RoutePreview{}, ErrRouteOptimizationInFlight
	}
	defer c.State.EndRouteLoad()

	preview, err := c.Optimizer.OptimizeRoute(ctx, route.Query{
		TenantID:     c.TenantID,
		TechnicianID: technicianID,
		Date:         date,
	})
	if err != nil {
		c.Logger.Error().Err(err).
			Str("technician_id", technicianID).
			Str("date", date).
			Msg("route optimization failed")
		c.State.SetError("failed to optimize route")
		return models.RoutePreview{}, err
	}

	preview.TechnicianID = technicianID
	preview.GeneratedAt = time.Now().UTC()
	c.State.PutRoute(preview)
	c.Logger.Info().
		Str("technician_id", technicianID).
		Int("stops", len(preview.Stops)).
		Msg("route cached")
	return preview, nil
}

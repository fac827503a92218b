package route

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldline/backend/internal/models"
)

// HTTPOptimizer calls the external route-optimization provider. Requests are
// rate-limited so a busy board cannot exhaust the provider quota.
type HTTPOptimizer struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewHTTPOptimizer(baseURL, apiKey string, perSecond float64) *HTTPOptimizer {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &HTTPOptimizer{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 20 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type requestBody struct {
	TenantID     string `json:"tenant_id"`
	TechnicianID string `json:"technician_id"`
	Date         string `json:"date"`
}

type responseBody struct {
	Stops []struct {
		AppointmentID   string    `json:"appointment_id"`
		Address         string    `json:"address"`
		ScheduledAt     time.Time `json:"scheduled_at"`
		DurationMinutes int       `json:"duration_minutes"`
	} `json:"stops"`
	TotalDistance float64 `json:"total_distance"`
	TotalDuration int     `json:"total_duration"`
	Savings       struct {
		Percentage float64 `json:"percentage"`
	} `json:"savings"`
}

func (o *HTTPOptimizer) OptimizeRoute(ctx context.Context, q Query) (models.RoutePreview, error) {
	if o.Limiter != nil {
		if err := o.Limiter.Wait(ctx); err != nil {
			return models.RoutePreview{}, err
		}
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 20 * time.Second}
	}

	payload := requestBody{
		TenantID:     q.TenantID,
		TechnicianID: q.TechnicianID,
		Date:         q.Date,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/optimize", bytes.NewBuffer(b))
	if err != nil {
		return models.RoutePreview{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return models.RoutePreview{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.RoutePreview{}, errors.New("route optimization service error")
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return models.RoutePreview{}, err
	}

	preview := models.RoutePreview{
		TechnicianID:         q.TechnicianID,
		Stops:                make([]models.RouteStop, 0, len(r.Stops)),
		TotalDistanceKm:      r.TotalDistance,
		TotalDurationMinutes: r.TotalDuration,
		SavingsPercent:       r.Savings.Percentage,
	}
	for _, s := range r.Stops {
		preview.Stops = append(preview.Stops, models.RouteStop{
			AppointmentID:   s.AppointmentID,
			Address:         s.Address,
			ScheduledAt:     s.ScheduledAt,
			DurationMinutes: s.DurationMinutes,
		})
	}
	return preview, nil
}

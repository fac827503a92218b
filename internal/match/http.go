package match

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fieldline/backend/internal/models"
)

// HTTPMatcher calls the external technician-matching provider.
type HTTPMatcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type requestBody struct {
	TenantID  string    `json:"tenant_id"`
	ServiceID string    `json:"service_id"`
	Date      time.Time `json:"date"`
}

type responseBody struct {
	Candidates []struct {
		UserID     string  `json:"user_id"`
		UserName   string  `json:"user_name"`
		SkillLevel string  `json:"skill_level"`
		Score      float64 `json:"score"`
	} `json:"candidates"`
}

func (m HTTPMatcher) FindBestTechnicians(ctx context.Context, q Query) ([]models.TechnicianScore, error) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: 15 * time.Second}
	}

	payload := requestBody{
		TenantID:  q.TenantID,
		ServiceID: q.ServiceID,
		Date:      q.At,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/match", bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("matching service error")
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}

	scores := make([]models.TechnicianScore, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		scores = append(scores, models.TechnicianScore{
			TechnicianID:   c.UserID,
			TechnicianName: c.UserName,
			SkillLevel:     c.SkillLevel,
			Score:          c.Score,
		})
	}
	return scores, nil
}

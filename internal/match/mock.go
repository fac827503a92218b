package match

import (
	"context"
	"sort"

	"github.com/fieldline/backend/internal/models"
	"github.com/fieldline/backend/internal/utils"
)

// TechnicianLister supplies the tenant's directory to the mock so its
// candidates reference technicians that actually exist.
type TechnicianLister interface {
	ListTechnicians(ctx context.Context, tenantID string) ([]models.TechnicianRecord, error)
}

// MockMatcher scores the tenant's technicians deterministically from the
// query hash. Used when MATCH_URL is not configured.
type MockMatcher struct {
	Directory TechnicianLister
}

var skillLevels = []string{"apprentice", "journeyman", "master"}

func (m MockMatcher) FindBestTechnicians(ctx context.Context, q Query) ([]models.TechnicianScore, error) {
	techs, err := m.Directory.ListTechnicians(ctx, q.TenantID)
	if err != nil {
		return nil, err
	}

	scores := make([]models.TechnicianScore, 0, len(techs))
	for _, t := range techs {
		h := utils.HashStringToUint64(q.ServiceID + "|" + t.ID)
		scores = append(scores, models.TechnicianScore{
			TechnicianID:   t.ID,
			TechnicianName: t.Name,
			SkillLevel:     skillLevels[int(h/3)%len(skillLevels)],
			Score:          float64(h%1000) / 1000,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].TechnicianID < scores[j].TechnicianID
		}
		return scores[i].Score > scores[j].Score
	})
	return scores, nil
}

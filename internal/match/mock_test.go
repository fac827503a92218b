package match

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline/backend/internal/models"
)

type staticLister []models.TechnicianRecord

func (l staticLister) ListTechnicians(context.Context, string) ([]models.TechnicianRecord, error) {
	return l, nil
}

func TestMockMatcherScoresDirectory(t *testing.T) {
	m := MockMatcher{Directory: staticLister{
		{ID: "t1", Name: "Dana"},
		{ID: "t2", Name: "Iris"},
		{ID: "t3", Name: "Omar"},
	}}
	q := Query{TenantID: "demo", ServiceID: "hvac-repair", At: time.Now()}

	scores, err := m.FindBestTechnicians(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected every technician scored, got %d", len(scores))
	}
	for i := 1; i < len(scores); i++ {
		if scores[i].Score > scores[i-1].Score {
			t.Fatalf("expected descending scores, got %+v", scores)
		}
	}
	for _, s := range scores {
		if s.Score < 0 || s.Score >= 1 {
			t.Fatalf("score out of range: %+v", s)
		}
		if s.SkillLevel == "" {
			t.Fatalf("expected skill level set: %+v", s)
		}
	}

	again, err := m.FindBestTechnicians(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range scores {
		if scores[i] != again[i] {
			t.Fatalf("expected deterministic ranking, got %+v vs %+v", scores[i], again[i])
		}
	}
}

func TestMockMatcherCoversWholeDirectory(t *testing.T) {
	m := MockMatcher{Directory: staticLister{
		{ID: "t1"}, {ID: "t2"}, {ID: "t3"}, {ID: "t4"}, {ID: "t5"},
	}}

	scores, err := m.FindBestTechnicians(context.Background(), Query{ServiceID: "drain-cleaning"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for _, s := range scores {
		seen[s.TechnicianID] = true
	}
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		if !seen[id] {
			t.Fatalf("expected %s in the ranking, got %+v", id, scores)
		}
	}
}

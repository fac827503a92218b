package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/match"
	"github.com/fieldline/backend/internal/models"
)

type fakeMatcher struct {
	mu    sync.Mutex
	calls []match.Query
	fn    func(q match.Query) ([]models.TechnicianScore, error)
}

func (m *fakeMatcher) FindBestTechnicians(_ context.Context, q match.Query) ([]models.TechnicianScore, error) {
	m.mu.Lock()
	m.calls = append(m.calls, q)
	fn := m.fn
	m.mu.Unlock()
	return fn(q)
}

func (m *fakeMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestEngine(st *State, m *fakeMatcher) *SuggestionEngine {
	return &SuggestionEngine{State: st, Matcher: m, TenantID: "demo", Logger: zerolog.Nop()}
}

func TestRefreshKeysMatchUnassignedSet(t *testing.T) {
	st := NewState()
	st.PublishDay("2025-03-10", []models.Appointment{
		{ID: "a1", ServiceID: "s1"},
		{ID: "a2", ServiceID: "s2", TechnicianID: "t1"},
		{ID: "a3", ServiceID: "s3"},
	}, nil)

	m := &fakeMatcher{fn: func(q match.Query) ([]models.TechnicianScore, error) {
		return []models.TechnicianScore{{TechnicianID: "t-" + q.ServiceID}}, nil
	}}
	e := newTestEngine(st, m)

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got := st.Suggestions()
	if len(got) != 2 {
		t.Fatalf("expected suggestions only for unassigned, got %v", got)
	}
	if _, ok := got["a2"]; ok {
		t.Fatalf("expected no entry for assigned appointment")
	}
	if got["a1"][0].TechnicianID != "t-s1" || got["a3"][0].TechnicianID != "t-s3" {
		t.Fatalf("unexpected candidates %v", got)
	}
}

func TestRefreshEmptySetClearsWithoutCalls(t *testing.T) {
	st := NewState()
	st.ReplaceSuggestions(map[string][]models.TechnicianScore{"stale": {{TechnicianID: "t1"}}})
	st.PublishDay("2025-03-10", []models.Appointment{
		{ID: "a1", TechnicianID: "t1"},
	}, nil)

	m := &fakeMatcher{fn: func(match.Query) ([]models.TechnicianScore, error) {
		return nil, errors.New("should not be called")
	}}
	e := newTestEngine(st, m)

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if m.callCount() != 0 {
		t.Fatalf("expected no matcher calls, got %d", m.callCount())
	}
	if got := st.Suggestions(); len(got) != 0 {
		t.Fatalf("expected cleared map, got %v", got)
	}
}

func TestRefreshSkipsAppointmentsWithoutService(t *testing.T) {
	st := NewState()
	st.PublishDay("2025-03-10", []models.Appointment{
		{ID: "a1"},
	}, nil)

	m := &fakeMatcher{fn: func(match.Query) ([]models.TechnicianScore, error) {
		return nil, errors.New("should not be called")
	}}
	e := newTestEngine(st, m)

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if m.callCount() != 0 {
		t.Fatalf("expected no matcher calls, got %d", m.callCount())
	}
	got := st.Suggestions()
	if scores, ok := got["a1"]; !ok || len(scores) != 0 {
		t.Fatalf("expected empty candidate list for a1, got %v", got)
	}
}

func TestRefreshFailureFailsClosed(t *testing.T) {
	st := NewState()
	st.ReplaceSuggestions(map[string][]models.TechnicianScore{"a1": {{TechnicianID: "t1"}}})
	st.PublishDay("2025-03-10", []models.Appointment{
		{ID: "a1", ServiceID: "s1"},
		{ID: "a2", ServiceID: "s2"},
	}, nil)

	m := &fakeMatcher{fn: func(q match.Query) ([]models.TechnicianScore, error) {
		if q.ServiceID == "s2" {
			return nil, errors.New("matcher down")
		}
		return []models.TechnicianScore{{TechnicianID: "t1"}}, nil
	}}
	e := newTestEngine(st, m)

	if err := e.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if got := st.Suggestions(); len(got) != 0 {
		t.Fatalf("expected map reset on failure, got %v", got)
	}
}

func TestCommitDiscardsSupersededGeneration(t *testing.T) {
	st := NewState()
	e := newTestEngine(st, &fakeMatcher{})

	gen1 := e.gen.Add(1)
	gen2 := e.gen.Add(1)

	e.commit(gen1, map[string][]models.TechnicianScore{"a1": {{TechnicianID: "stale"}}})
	if got := st.Suggestions(); len(got) != 0 {
		t.Fatalf("expected superseded commit discarded, got %v", got)
	}

	e.commit(gen2, map[string][]models.TechnicianScore{"a1": {{TechnicianID: "fresh"}}})
	got := st.Suggestions()["a1"]
	if len(got) != 1 || got[0].TechnicianID != "fresh" {
		t.Fatalf("expected current generation committed, got %+v", got)
	}
}

func TestCommitRacingNewerPassNeverLosesToStale(t *testing.T) {
	staleMap := map[string][]models.TechnicianScore{"a1": {{TechnicianID: "stale"}}}
	freshMap := map[string][]models.TechnicianScore{"a1": {{TechnicianID: "fresh"}}}

	for i := 0; i < 1000; i++ {
		st := NewState()
		e := newTestEngine(st, &fakeMatcher{})
		gen1 := e.gen.Add(1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.commit(gen1, staleMap)
		}()
		go func() {
			defer wg.Done()
			gen2 := e.gen.Add(1)
			e.commit(gen2, freshMap)
		}()
		wg.Wait()

		got := st.Suggestions()["a1"]
		if len(got) != 1 || got[0].TechnicianID != "fresh" {
			t.Fatalf("iteration %d: expected newer pass to win, got %+v", i, got)
		}
	}
}

func TestRefreshStalePassDiscarded(t *testing.T) {
	st := NewState()
	st.PublishDay("2025-03-10", []models.Appointment{
		{ID: "a1", ServiceID: "s1"},
	}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	m := &fakeMatcher{fn: func(match.Query) ([]models.TechnicianScore, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return []models.TechnicianScore{{TechnicianID: "stale"}}, nil
		}
		return []models.TechnicianScore{{TechnicianID: "fresh"}}, nil
	}}
	e := newTestEngine(st, m)

	done := make(chan error, 1)
	go func() { done <- e.Refresh(context.Background()) }()
	<-started

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	got := st.Suggestions()["a1"]
	if len(got) != 1 || got[0].TechnicianID != "fresh" {
		t.Fatalf("expected newer pass to win, got %+v", got)
	}
}

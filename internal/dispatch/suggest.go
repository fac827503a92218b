package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/match"
	"github.com/fieldline/backend/internal/models"
)

// SuggestionEngine keeps the suggestion map in sync with the derived
// unassigned subset. Each Refresh is a pass tagged with a monotonically
// increasing generation; a pass commits its result only if it is still the
// newest started, so a slow pass can never overwrite a newer one.
type SuggestionEngine struct {
	State    *State
	Matcher  match.Matcher
	TenantID string
	Logger   zerolog.Logger

	gen      atomic.Uint64
	commitMu sync.Mutex
}

// Refresh recomputes suggestions for the current unassigned set. An empty
// set clears the map without any network call. Appointments lacking a
// service id map to an empty candidate list, also without a call. All other
// requests run concurrently and the collected result replaces the map
// atomically. Any request failure fails the pass closed: the map resets to
// empty rather than keeping stale or partial data.
func (e *SuggestionEngine) Refresh(ctx context.Context) error {
	gen := e.gen.Add(1)

	unassigned := e.State.Unassigned()
	if len(unassigned) == 0 {
		e.commit(gen, map[string][]models.TechnicianScore{})
		return nil
	}

	e.State.BeginSuggestionLoad()
	defer e.State.EndSuggestionLoad()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make(map[string][]models.TechnicianScore, len(unassigned))
		firstErr error
	)
	for _, appt := range unassigned {
		if appt.ServiceID == "" {
			results[appt.ID] = []models.TechnicianScore{}
			continue
		}
		wg.Add(1)
		go func(appt models.Appointment) {
			defer wg.Done()
			scores, err := e.Matcher.FindBestTechnicians(ctx, match.Query{
				TenantID:  e.TenantID,
				ServiceID: appt.ServiceID,
				At:        appt.ScheduledAt,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if scores == nil {
				scores = []models.TechnicianScore{}
			}
			results[appt.ID] = scores
		}(appt)
	}
	wg.Wait()

	if firstErr != nil {
		e.Logger.Error().Err(firstErr).Msg("suggestion batch failed")
		e.commit(gen, map[string][]models.TechnicianScore{})
		return firstErr
	}

	e.commit(gen, results)
	return nil
}

// commit holds commitMu across the generation check and the replace so a
// superseded pass cannot slip its map in after a newer pass has committed.
func (e *SuggestionEngine) commit(gen uint64, m map[string][]models.TechnicianScore) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	if gen != e.gen.Load() {
		return
	}
	e.State.ReplaceSuggestions(m)
}

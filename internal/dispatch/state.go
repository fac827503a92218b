package dispatch

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/fieldline/backend/internal/models"
)

// State holds one board's view of a single day: appointments, technicians,
// per-appointment suggestion lists, per-technician route previews, and the
// transient in-flight flags. Mutation responsibility is partitioned: the
// Loader owns appointments/technicians/selection, the SuggestionEngine owns
// the suggestion map, the AssignmentCoordinator owns appointment replacement
// and the assigning flags, the RoutingCoordinator owns the route cache and
// the route-loading id. Coordinators never write outside their slice.
type State struct {
	mu sync.RWMutex

	date      string
	loading   bool
	lastError string

	appointments []models.Appointment
	technicians  []models.Technician

	suggestions        map[string][]models.TechnicianScore
	suggestionsLoading bool

	assigning map[string]bool

	routes         *cache.Cache
	routeLoadingID string

	selectedTechnicianID string
}

func NewState() *State {
	return &State{
		suggestions: map[string][]models.TechnicianScore{},
		assigning:   map[string]bool{},
		routes:      cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (s *State) Date() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date
}

func (s *State) BeginLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
}

func (s *State) EndLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

func (s *State) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

func (s *State) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// PublishDay replaces the day's appointments and technicians and applies the
// technician-selection policy: keep the previous selection if it is still
// present, otherwise fall back to the first technician, or none.
func (s *State) PublishDay(date string, appointments []models.Appointment, technicians []models.Technician) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.date = date
	s.appointments = appointments
	s.technicians = technicians
	s.lastError = ""

	keep := false
	for _, t := range technicians {
		if t.ID == s.selectedTechnicianID {
			keep = true
			break
		}
	}
	if !keep {
		if len(technicians) > 0 {
			s.selectedTechnicianID = technicians[0].ID
		} else {
			s.selectedTechnicianID = ""
		}
	}
}

func (s *State) Appointments() []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out
}

func (s *State) Technicians() []models.Technician {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Technician, len(s.technicians))
	copy(out, s.technicians)
	return out
}

// Unassigned is derived, never stored separately.
func (s *State) Unassigned() []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Appointment
	for _, a := range s.appointments {
		if a.TechnicianID == "" {
			out = append(out, a)
		}
	}
	return out
}

// ReplaceAppointment swaps the single appointment with a matching id for the
// server's returned representation. All other entries are untouched.
func (s *State) ReplaceAppointment(appt models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == appt.ID {
			s.appointments[i] = appt
			return
		}
	}
}

func (s *State) BeginSuggestionLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestionsLoading = true
}

func (s *State) EndSuggestionLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestionsLoading = false
}

// ReplaceSuggestions swaps the whole suggestion map atomically. There is no
// incremental merge.
func (s *State) ReplaceSuggestions(m map[string][]models.TechnicianScore) {
	if m == nil {
		m = map[string][]models.TechnicianScore{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = m
}

func (s *State) Suggestions() map[string][]models.TechnicianScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]models.TechnicianScore, len(s.suggestions))
	for k, v := range s.suggestions {
		out[k] = v
	}
	return out
}

// TryBeginAssign marks the appointment's assignment as in flight. Returns
// false when one is already running for that appointment; assignments for
// other appointments are unaffected.
func (s *State) TryBeginAssign(appointmentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assigning[appointmentID] {
		return false
	}
	s.assigning[appointmentID] = true
	return true
}

func (s *State) EndAssign(appointmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assigning, appointmentID)
}

func (s *State) Assigning(appointmentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assigning[appointmentID]
}

// TryBeginRouteLoad claims the single board-wide route-optimization slot.
// Only one optimization is tracked as in progress at a time.
func (s *State) TryBeginRouteLoad(technicianID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routeLoadingID != "" {
		return false
	}
	s.routeLoadingID = technicianID
	return true
}

func (s *State) EndRouteLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routeLoadingID = ""
}

func (s *State) RouteLoadingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routeLoadingID
}

// PutRoute caches one technician's preview, overwriting any prior entry for
// that technician only.
func (s *State) PutRoute(preview models.RoutePreview) {
	s.routes.Set(preview.TechnicianID, preview, cache.NoExpiration)
}

func (s *State) Route(technicianID string) (models.RoutePreview, bool) {
	v, ok := s.routes.Get(technicianID)
	if !ok {
		return models.RoutePreview{}, false
	}
	return v.(models.RoutePreview), true
}

func (s *State) Routes() map[string]models.RoutePreview {
	items := s.routes.Items()
	out := make(map[string]models.RoutePreview, len(items))
	for k, item := range items {
		out[k] = item.Object.(models.RoutePreview)
	}
	return out
}

// FlushRoutes drops every cached preview. A preview is bound to the set of
// appointments visible on the loaded day, so the Loader flushes on every
// reload.
func (s *State) FlushRoutes() {
	s.routes.Flush()
}

// SelectTechnician focuses a technician for route display. The id must be in
// the loaded directory.
func (s *State) SelectTechnician(technicianID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.technicians {
		if t.ID == technicianID {
			s.selectedTechnicianID = technicianID
			return true
		}
	}
	return false
}

func (s *State) SelectedTechnicianID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedTechnicianID
}

// Snapshot is the read contract the board view renders from.
type Snapshot struct {
	Date                 string                              `json:"date"`
	Loading              bool                                `json:"loading"`
	SuggestionsLoading   bool                                `json:"suggestions_loading"`
	LastError            string                              `json:"last_error,omitempty"`
	Appointments         []models.Appointment                `json:"appointments"`
	Technicians          []models.Technician                 `json:"technicians"`
	Unassigned           []string                            `json:"unassigned"`
	Suggestions          map[string][]models.TechnicianScore `json:"suggestions"`
	Assigning            []string                            `json:"assigning"`
	Routes               map[string]models.RoutePreview      `json:"routes"`
	RouteLoadingID       string                              `json:"route_loading_id,omitempty"`
	SelectedTechnicianID string                              `json:"selected_technician_id,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Date:                 s.date,
		Loading:              s.loading,
		SuggestionsLoading:   s.suggestionsLoading,
		LastError:            s.lastError,
		Appointments:         make([]models.Appointment, len(s.appointments)),
		Technicians:          make([]models.Technician, len(s.technicians)),
		Unassigned:           []string{},
		Suggestions:          make(map[string][]models.TechnicianScore, len(s.suggestions)),
		Assigning:            []string{},
		SelectedTechnicianID: s.selectedTechnicianID,
		RouteLoadingID:       s.routeLoadingID,
	}
	copy(snap.Appointments, s.appointments)
	copy(snap.Technicians, s.technicians)
	for _, a := range s.appointments {
		if a.TechnicianID == "" {
			snap.Unassigned = append(snap.Unassigned, a.ID)
		}
	}
	for k, v := range s.suggestions {
		snap.Suggestions[k] = v
	}
	for id, inFlight := range s.assigning {
		if inFlight {
			snap.Assigning = append(snap.Assigning, id)
		}
	}
	s.mu.RUnlock()

	snap.Routes = s.Routes()
	return snap
}

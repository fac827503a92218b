package dispatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/match"
	"github.com/fieldline/backend/internal/route"
)

// Board bundles one tenant's state with its four coordinators.
type Board struct {
	State       *State
	Loader      *Loader
	Suggestions *SuggestionEngine
	Assignments *AssignmentCoordinator
	Routing     *RoutingCoordinator
}

type Deps struct {
	Source    Source
	Matcher   match.Matcher
	Optimizer route.Optimizer
	Location  *time.Location
	Logger    zerolog.Logger
}

func NewBoard(tenantID string, deps Deps) *Board {
	state := NewState()
	logger := deps.Logger.With().Str("tenant_id", tenantID).Logger()
	return &Board{
		State: state,
		Loader: &Loader{
			State:    state,
			Source:   deps.Source,
			TenantID: tenantID,
			Location: deps.Location,
			Logger:   logger,
		},
		Suggestions: &SuggestionEngine{
			State:    state,
			Matcher:  deps.Matcher,
			TenantID: tenantID,
			Logger:   logger,
		},
		Assignments: &AssignmentCoordinator{
			State:    state,
			Source:   deps.Source,
			TenantID: tenantID,
			Logger:   logger,
		},
		Routing: &RoutingCoordinator{
			State:     state,
			Optimizer: deps.Optimizer,
			TenantID:  tenantID,
			Logger:    logger,
		},
	}
}

// Registry hands out one Board per tenant, created on first use.
type Registry struct {
	mu     sync.Mutex
	deps   Deps
	boards map[string]*Board
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:   deps,
		boards: map[string]*Board{},
	}
}

func (r *Registry) Board(tenantID string) *Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.boards[tenantID]; ok {
		return b
	}
	b := NewBoard(tenantID, r.deps)
	r.boards[tenantID] = b
	return b
}

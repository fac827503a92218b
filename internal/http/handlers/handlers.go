package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldline/backend/internal/db"
	"github.com/fieldline/backend/internal/dispatch"
	"github.com/fieldline/backend/internal/http/middleware"
	"github.com/fieldline/backend/internal/insights"
	"github.com/fieldline/backend/internal/models"
	"github.com/fieldline/backend/internal/route"
)

type Handler struct {
	Store     *db.Store
	Boards    *dispatch.Registry
	Assistant insights.Assistant
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
	Location  *time.Location
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Dispatch board snapshot
// @Description Returns the board for a date, reloading when the date differs from the loaded one
// @Tags dispatch
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} dispatch.Snapshot
// @Failure 400 {object} map[string]any
// @Router /api/dispatch/board [get]
func (h *Handler) Board(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = h.today()
	}

	board := h.Boards.Board(middleware.TenantID(c))
	if board.State.Date() != date {
		if !h.reload(c, board, date) {
			return
		}
	}
	c.JSON(http.StatusOK, board.State.Snapshot())
}

type ReloadRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// @Summary Force board reload
// @Tags dispatch
// @Accept json
// @Produce json
// @Param body body ReloadRequest true "date to load"
// @Success 200 {object} dispatch.Snapshot
// @Router /api/dispatch/reload [post]
func (h *Handler) Reload(c *gin.Context) {
	var req ReloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	board := h.Boards.Board(middleware.TenantID(c))
	if !h.reload(c, board, req.Date) {
		return
	}
	c.JSON(http.StatusOK, board.State.Snapshot())
}

// reload runs the loader and then the suggestion engine, reporting loader
// failures on the response. Suggestion failures are logged only: suggestions
// are an enhancement, not core board data.
func (h *Handler) reload(c *gin.Context, board *dispatch.Board, date string) bool {
	if err := board.Loader.Reload(c.Request.Context(), date); err != nil {
		status := http.StatusInternalServerError
		code := "LOAD_ERROR"
		if errors.Is(err, dispatch.ErrInvalidDate) {
			status = http.StatusBadRequest
			code = "VALIDATION_ERROR"
		}
		writeError(c, status, code, board.State.LastError(), err.Error())
		return false
	}
	if err := board.Suggestions.Refresh(c.Request.Context()); err != nil {
		h.Logger.Warn().Err(err).Str("date", date).Msg("suggestion refresh failed after reload")
	}
	return true
}

func (h *Handler) RefreshSuggestions(c *gin.Context) {
	board := h.Boards.Board(middleware.TenantID(c))
	if err := board.Suggestions.Refresh(c.Request.Context()); err != nil {
		writeError(c, http.StatusBadGateway, "MATCHING_ERROR", "Failed to refresh suggestions", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": board.State.Suggestions()})
}

type SelectTechnicianRequest struct {
	TechnicianID string `json:"technician_id" validate:"required"`
}

func (h *Handler) SelectTechnician(c *gin.Context) {
	var req SelectTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	board := h.Boards.Board(middleware.TenantID(c))
	if !board.State.SelectTechnician(req.TechnicianID) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Technician not on the loaded board", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected_technician_id": req.TechnicianID})
}

type AssignRequest struct {
	TechnicianID string `json:"technician_id" validate:"required"`
}

// @Summary Assign an appointment to a technician
// @Tags dispatch
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param body body AssignRequest true "technician to bind"
// @Success 200 {object} models.Appointment
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/appointments/{id}/assign [post]
func (h *Handler) Assign(c *gin.Context) {
	appointmentID := c.Param("id")
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	board := h.Boards.Board(middleware.TenantID(c))
	appt, err := board.Assignments.Assign(c.Request.Context(), appointmentID, req.TechnicianID)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrAssignmentInFlight):
			writeError(c, http.StatusConflict, "ASSIGNMENT_IN_FLIGHT", "Assignment already in progress for this appointment", nil)
		case errors.Is(err, db.ErrAppointmentNotFound), errors.Is(err, db.ErrTechnicianNotFound):
			writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		default:
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to assign appointment", err.Error())
		}
		return
	}

	if err := board.Suggestions.Refresh(c.Request.Context()); err != nil {
		h.Logger.Warn().Err(err).Msg("suggestion refresh failed after assignment")
	}
	c.JSON(http.StatusOK, appt)
}

type OptimizeRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// @Summary Optimize a technician's route
// @Tags dispatch
// @Accept json
// @Produce json
// @Param id path string true "Technician ID"
// @Param body body OptimizeRequest true "date to optimize"
// @Success 200 {object} models.RoutePreview
// @Failure 409 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/technicians/{id}/route [post]
func (h *Handler) OptimizeRoute(c *gin.Context) {
	technicianID := c.Param("id")
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	board := h.Boards.Board(middleware.TenantID(c))
	preview, err := board.Routing.Optimize(c.Request.Context(), technicianID, req.Date)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrRouteOptimizationInFlight):
			writeError(c, http.StatusConflict, "ROUTE_IN_FLIGHT", "A route optimization is already in progress", nil)
		case errors.Is(err, route.ErrNoStops):
			writeError(c, http.StatusUnprocessableEntity, "NO_STOPS", "Technician has no stops on that date", nil)
		default:
			writeError(c, http.StatusBadGateway, "ROUTE_PROVIDER_ERROR", "Failed to optimize route", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) Route(c *gin.Context) {
	board := h.Boards.Board(middleware.TenantID(c))
	preview, ok := board.State.Route(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No cached route for technician", nil)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *Handler) TechniciansList(c *gin.Context) {
	records, err := h.Store.ListTechnicians(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list technicians", err.Error())
		return
	}
	items := make([]models.Technician, 0, len(records))
	for _, r := range records {
		items = append(items, dispatch.NormalizeTechnician(r))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type SeedRequest struct {
	Appointments []models.AppointmentRecord `json:"appointments"`
	Technicians  []models.TechnicianRecord  `json:"technicians"`
}

// @Summary Seed appointments and technicians
// @Description Bulk-inserts records for the request tenant
// @Tags admin
// @Accept json
// @Produce json
// @Param body body SeedRequest true "records to insert"
// @Success 200 {object} map[string]any
// @Router /api/seed [post]
func (h *Handler) Seed(c *gin.Context) {
	var req SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	tenantID := middleware.TenantID(c)
	now := time.Now().UTC()
	for i := range req.Appointments {
		req.Appointments[i].TenantID = tenantID
		if req.Appointments[i].ID == "" {
			req.Appointments[i].ID = uuid.NewString()
		}
		if req.Appointments[i].CreatedAt.IsZero() {
			req.Appointments[i].CreatedAt = now
		}
		if req.Appointments[i].UpdatedAt.IsZero() {
			req.Appointments[i].UpdatedAt = now
		}
	}
	for i := range req.Technicians {
		req.Technicians[i].TenantID = tenantID
		if req.Technicians[i].ID == "" {
			req.Technicians[i].ID = uuid.NewString()
		}
		if req.Technicians[i].UpdatedAt.IsZero() {
			req.Technicians[i].UpdatedAt = now
		}
	}

	appointments, err := h.Store.InsertAppointments(c.Request.Context(), req.Appointments)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert appointments", err.Error())
		return
	}
	technicians, err := h.Store.InsertTechnicians(c.Request.Context(), req.Technicians)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert technicians", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"appointments_inserted": appointments,
		"technicians_inserted":  technicians,
	})
}

type ChatRequest struct {
	Message string                 `json:"message" validate:"required"`
	History []insights.ChatMessage `json:"history"`
}

func (h *Handler) AssistantChat(c *gin.Context) {
	if h.Assistant == nil {
		writeError(c, http.StatusServiceUnavailable, "ASSISTANT_DISABLED", "Assistant is not configured", nil)
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	board := h.Boards.Board(middleware.TenantID(c))
	prompt := buildBoardPrompt(board.State.Snapshot(), req.Message)

	answer, err := h.Assistant.Ask(c.Request.Context(), prompt, req.History)
	if err != nil {
		var rl insights.RateLimitError
		if errors.As(err, &rl) {
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", err.Error(), nil)
			return
		}
		writeError(c, http.StatusBadGateway, "ASSISTANT_ERROR", "Assistant request failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// buildBoardPrompt folds the board snapshot into the dispatcher's question
// so the assistant answers with schedule context.
func buildBoardPrompt(snap dispatch.Snapshot, message string) string {
	var b strings.Builder
	b.WriteString("You are a dispatch assistant for a field-service company.\n")
	fmt.Fprintf(&b, "Board date: %s. Appointments: %d (%d unassigned). Technicians: %d.\n",
		snap.Date, len(snap.Appointments), len(snap.Unassigned), len(snap.Technicians))
	for _, t := range snap.Technicians {
		stops := 0
		if r, ok := snap.Routes[t.ID]; ok {
			stops = len(r.Stops)
		}
		fmt.Fprintf(&b, "- %s (%s), cached route stops: %d\n", t.Name, t.Status, stops)
	}
	b.WriteString("Question: ")
	b.WriteString(message)
	return b.String()
}

func (h *Handler) today() string {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format("2006-01-02")
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

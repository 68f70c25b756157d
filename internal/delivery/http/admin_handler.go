package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"marketpulse/internal/delivery/http/dto"
	"marketpulse/internal/domain"
	custommiddleware "marketpulse/internal/middleware"
)

// CycleService defines what the admin API needs from the orchestrator
type CycleService interface {
	Run(ctx context.Context, kind string) (*domain.Cycle, error)
	GetRecent(ctx context.Context, limit int) ([]*domain.Cycle, error)
	GetReport(ctx context.Context, id uuid.UUID) (*domain.CycleReport, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	cycles      CycleService
	db          Pinger
	defaultKind string
	log         zerolog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cycles CycleService, db Pinger, defaultKind string, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		cycles:      cycles,
		db:          db,
		defaultKind: defaultKind,
		log:         log,
	}
}

// RunCycle runs one cycle and returns it once finished
// POST /api/admin/cycles/run
func (h *AdminHandler) RunCycle(c echo.Context) error {
	var req dto.RunCycleRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return BadRequestResponse(c, "Invalid request payload")
		}
	}
	kind := req.Kind
	if kind == "" {
		kind = h.defaultKind
	}

	triggeredBy := "admin-key"
	if userID, err := custommiddleware.GetUserID(c); err == nil {
		triggeredBy = userID.String()
	}
	h.log.Info().Str("kind", kind).Str("triggered_by", triggeredBy).Msg("manual cycle requested")

	// The cycle outlives a dropped client connection
	ctx := context.WithoutCancel(c.Request().Context())

	cycle, err := h.cycles.Run(ctx, kind)
	switch {
	case errors.Is(err, domain.ErrCycleInProgress):
		return ConflictResponse(c, "A cycle of this kind is already running")
	case cycle == nil:
		return InternalServerErrorResponse(c, "Failed to start cycle", err)
	case err != nil:
		return CycleFailedResponse(c, dto.NewCycleOutput(cycle), err)
	}

	return SuccessMessageResponse(c, "Cycle finished", dto.NewCycleOutput(cycle))
}

// ListCycles returns recent cycles
// GET /api/admin/cycles
func (h *AdminHandler) ListCycles(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return BadRequestResponse(c, "Invalid limit")
		}
		limit = n
	}

	cycles, err := h.cycles.GetRecent(ctx, limit)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to fetch cycles", err)
	}

	out := make([]dto.CycleOutput, 0, len(cycles))
	for _, cy := range cycles {
		out = append(out, dto.NewCycleOutput(cy))
	}

	return SuccessResponse(c, map[string]interface{}{
		"cycles": out,
		"count":  len(out),
	})
}

// GetCycle returns a cycle with its signals, context and deliveries
// GET /api/admin/cycles/:id
func (h *AdminHandler) GetCycle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid cycle id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	report, err := h.cycles.GetReport(ctx, id)
	if errors.Is(err, domain.ErrCycleNotFound) {
		return NotFoundResponse(c, "Cycle not found")
	}
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to fetch cycle", err)
	}

	return SuccessResponse(c, dto.NewCycleReportOutput(report))
}

// GetSystemHealth returns system health check
// GET /api/admin/system/health
func (h *AdminHandler) GetSystemHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbStatus := "online"
	if h.db == nil || h.db.Ping(ctx) != nil {
		dbStatus = "degraded"
	}

	return SuccessResponse(c, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().Format(time.RFC3339),
		"db_status":  dbStatus,
		"api_status": "online",
	})
}

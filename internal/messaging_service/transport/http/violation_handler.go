package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/middleware"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
)

const (
	defaultViolationPageSize = 50
	maxViolationPageSize     = 200
)

// ViolationHandler serves the owner's policy violation review queue.
type ViolationHandler struct {
	violations repository.PolicyViolationRepository
	db         repository.DBTX
	logger     *slog.Logger
}

func NewViolationHandler(violations repository.PolicyViolationRepository, db repository.DBTX, logger *slog.Logger) *ViolationHandler {
	return &ViolationHandler{
		violations: violations,
		db:         db,
		logger:     logger.With("handler", "violation"),
	}
}

func (h *ViolationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/violations", h.handleListViolations)
	r.Get("/violations/{violationID}", h.handleGetViolation)
	r.Post("/violations/{violationID}/resolve", h.handleResolve)
	r.Post("/violations/{violationID}/dismiss", h.handleDismiss)
}

func (h *ViolationHandler) handleListViolations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	limit := defaultViolationPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxViolationPageSize {
			parsed = maxViolationPageSize
		}
		limit = parsed
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = parsed
	}

	var statusFilter *domain.ViolationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.ViolationStatus(raw)
		switch status {
		case domain.ViolationStatusOpen, domain.ViolationStatusResolved,
			domain.ViolationStatusDismissed, domain.ViolationStatusOverridden:
			statusFilter = &status
		default:
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
	}

	violations, err := h.violations.ListByOrg(ctx, h.db, authUser.OrgID, statusFilter, limit, offset)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	resp := ListViolationsResponse{
		Violations: make([]ViolationResponse, 0, len(violations)),
		Limit:      limit,
		Offset:     offset,
	}
	for _, v := range violations {
		resp.Violations = append(resp.Violations, violationToResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ViolationHandler) handleGetViolation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	violationID, err := uuid.Parse(chi.URLParam(r, "violationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid violation ID format")
		return
	}

	violation, err := h.violations.GetByID(ctx, h.db, authUser.OrgID, violationID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, violationToResponse(violation))
}

func (h *ViolationHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.ViolationStatusResolved)
}

func (h *ViolationHandler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.ViolationStatusDismissed)
}

func (h *ViolationHandler) transition(w http.ResponseWriter, r *http.Request, target domain.ViolationStatus) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	violationID, err := uuid.Parse(chi.URLParam(r, "violationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid violation ID format")
		return
	}

	violation, err := h.violations.GetByID(ctx, h.db, authUser.OrgID, violationID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	// Only open violations can be reviewed; overridden ones are settled by
	// the force-send itself.
	if violation.Status != domain.ViolationStatusOpen {
		writeError(w, http.StatusConflict, "violation is not open")
		return
	}

	if err := h.violations.UpdateStatus(ctx, h.db, authUser.OrgID, violationID, target); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	logger.InfoContext(ctx, "Violation reviewed",
		"violation_id", violationID, "status", target, "actor_id", authUser.ID)
	violation.Status = target
	writeJSON(w, http.StatusOK, violationToResponse(violation))
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/middleware"
)

// NumberHandler exposes the quarantine lifecycle of messaging numbers.
// Numbers are never deleted over the API, only status-transitioned.
type NumberHandler struct {
	numbers domain.NumberDirectory
	logger  *slog.Logger
}

func NewNumberHandler(numbers domain.NumberDirectory, logger *slog.Logger) *NumberHandler {
	return &NumberHandler{
		numbers: numbers,
		logger:  logger.With("handler", "number"),
	}
}

func (h *NumberHandler) RegisterRoutes(r chi.Router) {
	r.Post("/numbers/{numberID}/quarantine", h.handleQuarantine)
	r.Post("/numbers/{numberID}/release", h.handleRelease)
}

func (h *NumberHandler) handleQuarantine(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.NumberStatusQuarantined)
}

func (h *NumberHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, domain.NumberStatusActive)
}

func (h *NumberHandler) transition(w http.ResponseWriter, r *http.Request, target domain.NumberStatus) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	numberID, err := uuid.Parse(chi.URLParam(r, "numberID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid number ID format")
		return
	}

	number, err := h.numbers.GetByID(ctx, authUser.OrgID, numberID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	if err := h.numbers.UpdateStatus(ctx, authUser.OrgID, numberID, target); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	logger.InfoContext(ctx, "Number status changed",
		"number_id", numberID, "e164", number.E164, "status", target, "actor_id", authUser.ID)
	writeJSON(w, http.StatusOK, NumberStatusResponse{
		ID:     number.ID.String(),
		E164:   number.E164,
		Class:  number.Class,
		Status: target,
	})
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pawdesk/messaging-core/internal/messaging_service/app"
	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/middleware"
)

// sendService is the slice of the orchestrator the HTTP layer needs.
type sendService interface {
	Send(ctx context.Context, cmd app.SendCommand) (*app.SendResult, error)
	ForceSend(ctx context.Context, cmd app.ForceSendCommand) (*app.SendResult, error)
}

type routingService interface {
	Resolve(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) (*app.RouteDecision, error)
}

type MessageHandler struct {
	sendService    sendService
	routingService routingService
	validate       *validator.Validate
	// debugRouting exposes GET routing decisions; off in production.
	debugRouting bool
	logger       *slog.Logger
}

func NewMessageHandler(sendService sendService, routingService routingService, debugRouting bool, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		sendService:    sendService,
		routingService: routingService,
		validate:       validator.New(),
		debugRouting:   debugRouting,
		logger:         logger.With("handler", "message"),
	}
}

// RegisterRoutes registers message routes with the given router.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/threads/{threadID}/messages", h.handleSendMessage)
	r.Post("/messages/{messageID}/force-send", h.handleForceSend)
	if h.debugRouting {
		r.Get("/threads/{threadID}/routing", h.handleGetRouting)
	}
}

func (h *MessageHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		logger.WarnContext(ctx, "User not authenticated for send message")
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread ID format")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Failed to decode send message request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}

	result, err := h.sendService.Send(ctx, app.SendCommand{
		OrgID:      authUser.OrgID,
		ThreadID:   threadID,
		SenderID:   authUser.ID,
		SenderRole: authUser.Role,
		Body:       req.Body,
	})
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	if result.Status == domain.MessageStatusBlocked {
		writeJSON(w, http.StatusBadRequest, PolicyBlockResponse{
			MessageID:   result.MessageEventID.String(),
			Status:      result.Status,
			ViolationID: result.ViolationID.UUID.String(),
			Reasons:     result.Reasons,
			Warning:     result.Warning,
		})
		return
	}

	writeJSON(w, http.StatusCreated, SendMessageResponse{
		MessageID: result.MessageEventID.String(),
		Status:    result.Status,
		FromE164:  result.FromE164,
	})
}

func (h *MessageHandler) handleForceSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message ID format")
		return
	}

	var req ForceSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	result, err := h.sendService.ForceSend(ctx, app.ForceSendCommand{
		OrgID:     authUser.OrgID,
		EventID:   messageID,
		ActorID:   authUser.ID,
		ActorRole: authUser.Role,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	logger.InfoContext(ctx, "Message force-sent", "message_id", messageID, "actor_id", authUser.ID)
	writeJSON(w, http.StatusOK, SendMessageResponse{
		MessageID: result.MessageEventID.String(),
		Status:    result.Status,
		FromE164:  result.FromE164,
	})
}

// handleGetRouting returns the routing decision and full trace for a
// thread without sending anything.
func (h *MessageHandler) handleGetRouting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := middleware.UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread ID format")
		return
	}

	decision, err := h.routingService.Resolve(ctx, authUser.OrgID, threadID, time.Now().UTC())
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, RoutingDecisionResponse{
		NumberID:    decision.NumberID.String(),
		E164:        decision.E164,
		NumberClass: decision.NumberClass,
		Reason:      decision.Reason,
		Trace:       decision.Trace,
	})
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/provider"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
)

// routeResolver is satisfied by *RoutingResolver.
type routeResolver interface {
	Resolve(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) (*RouteDecision, error)
}

// contentScanner is satisfied by *PolicyScanner.
type contentScanner interface {
	Scan(text string) Verdict
	WarningMessage(kinds []domain.ViolationKind) string
}

// AuditPublisher records routing and override decisions for operator
// inspection. Publishing is fire-and-forget: a logging failure never
// changes the outcome of a send. Satisfied by *messagebroker.NatsClient.
type AuditPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// SendCommand is one outbound send request.
type SendCommand struct {
	OrgID      uuid.UUID
	ThreadID   uuid.UUID
	SenderID   uuid.UUID
	SenderRole domain.Role
	Body       string
}

// ForceSendCommand re-submits a previously blocked message. Owner/admin
// only; the reason becomes part of the permanent audit trail.
type ForceSendCommand struct {
	OrgID     uuid.UUID
	EventID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole domain.Role
	Reason    string
}

// SendResult is the orchestrator's answer. A policy block is a first-class
// outcome here, not an error.
type SendResult struct {
	Status         domain.MessageStatus
	MessageEventID uuid.UUID
	ViolationID    uuid.NullUUID
	FromE164       string
	Reasons        []domain.ViolationKind
	Warning        string
}

const providerCallTimeout = 30 * time.Second

// SendOrchestrator combines routing resolution, policy scanning,
// persistence and the provider call into the single send operation. All of
// it runs synchronously inside the caller's request.
type SendOrchestrator struct {
	threads    domain.ThreadRepository
	numbers    domain.NumberDirectory
	events     repository.MessageEventRepository
	violations repository.PolicyViolationRepository
	resolver   routeResolver
	scanner    contentScanner
	sms        provider.SMSSenderProvider
	audit      AuditPublisher // may be nil
	auditRoot  string
	db         repository.DBTX
	inTx       func(ctx context.Context, fn func(tx repository.DBTX) error) error
	logger     *slog.Logger
	now        func() time.Time
}

func NewSendOrchestrator(
	dbPool *pgxpool.Pool,
	threads domain.ThreadRepository,
	numbers domain.NumberDirectory,
	events repository.MessageEventRepository,
	violations repository.PolicyViolationRepository,
	resolver *RoutingResolver,
	scanner *PolicyScanner,
	sms provider.SMSSenderProvider,
	audit AuditPublisher,
	auditRoot string,
	logger *slog.Logger,
) *SendOrchestrator {
	return &SendOrchestrator{
		threads:    threads,
		numbers:    numbers,
		events:     events,
		violations: violations,
		resolver:   resolver,
		scanner:    scanner,
		sms:        sms,
		audit:      audit,
		auditRoot:  auditRoot,
		db:         dbPool,
		inTx: func(ctx context.Context, fn func(tx repository.DBTX) error) error {
			return pgx.BeginFunc(ctx, dbPool, func(tx pgx.Tx) error { return fn(tx) })
		},
		logger: logger.With("service", "send_orchestrator"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Send resolves the effective number, scans the body, and either
// persists-and-sends or persists-and-blocks with an audit record. A
// resolver failure aborts the whole operation: a message is never sent
// from an ambiguous or misconfigured number.
func (s *SendOrchestrator) Send(ctx context.Context, cmd SendCommand) (*SendResult, error) {
	if strings.TrimSpace(cmd.Body) == "" {
		return nil, fmt.Errorf("%w: message body is empty", domain.ErrValidation)
	}

	thread, err := s.threads.GetByID(ctx, cmd.OrgID, cmd.ThreadID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	decision, err := s.resolver.Resolve(ctx, cmd.OrgID, cmd.ThreadID, now)
	if err != nil {
		return nil, err
	}

	// Sitters may only send while they own an active assignment window on
	// this thread.
	if cmd.SenderRole == domain.RoleSitter {
		if !decision.WindowSitterID.Valid || decision.WindowSitterID.UUID != cmd.SenderID {
			s.logger.WarnContext(ctx, "Sitter send outside active assignment window",
				"thread_id", cmd.ThreadID, "sender_id", cmd.SenderID)
			return nil, fmt.Errorf("%w: sitter has no active assignment window on this thread", domain.ErrForbidden)
		}
	}

	verdict := s.scanner.Scan(cmd.Body)

	if !verdict.Allowed {
		return s.block(ctx, cmd, thread, decision, verdict, now)
	}

	return s.deliver(ctx, cmd, thread, decision, now)
}

// block persists the blocked event plus its violation row atomically. No
// provider call is made on this path.
func (s *SendOrchestrator) block(ctx context.Context, cmd SendCommand, thread *domain.Thread, decision *RouteDecision, verdict Verdict, now time.Time) (*SendResult, error) {
	ev := &domain.MessageEvent{
		ID:           uuid.New(),
		OrgID:        cmd.OrgID,
		ThreadID:     cmd.ThreadID,
		SenderID:     uuid.NullUUID{UUID: cmd.SenderID, Valid: true},
		Direction:    domain.DirectionOutbound,
		Body:         cmd.Body,
		FromNumberID: uuid.NullUUID{UUID: decision.NumberID, Valid: true},
		FromE164:     decision.E164,
		ToE164:       thread.ClientE164,
		Status:       domain.MessageStatusBlocked,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	violation := &domain.PolicyViolation{
		ID:              uuid.New(),
		OrgID:           cmd.OrgID,
		ThreadID:        cmd.ThreadID,
		MessageEventID:  ev.ID,
		SenderID:        uuid.NullUUID{UUID: cmd.SenderID, Valid: true},
		Reasons:         verdict.Reasons,
		DetectedSummary: verdict.RedactedText,
		Status:          domain.ViolationStatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.inTx(ctx, func(tx repository.DBTX) error {
		if txErr := s.events.Create(ctx, tx, ev); txErr != nil {
			return txErr
		}
		return s.violations.Create(ctx, tx, violation)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist blocked message: %w", err)
	}

	for _, kind := range verdict.Reasons {
		policyBlocksCounter.WithLabelValues(string(kind)).Inc()
	}
	sendsProcessedCounter.WithLabelValues(string(domain.MessageStatusBlocked)).Inc()

	s.logger.InfoContext(ctx, "Outbound message blocked by policy scanner",
		"thread_id", cmd.ThreadID, "event_id", ev.ID, "violation_id", violation.ID, "reasons", verdict.Reasons)

	s.publishAudit(ctx, "policy_blocked", map[string]any{
		"org_id":       cmd.OrgID,
		"thread_id":    cmd.ThreadID,
		"event_id":     ev.ID,
		"violation_id": violation.ID,
		"sender_id":    cmd.SenderID,
		"reasons":      verdict.Reasons,
	})

	return &SendResult{
		Status:         domain.MessageStatusBlocked,
		MessageEventID: ev.ID,
		ViolationID:    uuid.NullUUID{UUID: violation.ID, Valid: true},
		FromE164:       decision.E164,
		Reasons:        verdict.Reasons,
		Warning:        s.scanner.WarningMessage(verdict.Reasons),
	}, nil
}

func (s *SendOrchestrator) deliver(ctx context.Context, cmd SendCommand, thread *domain.Thread, decision *RouteDecision, now time.Time) (*SendResult, error) {
	ev := &domain.MessageEvent{
		ID:           uuid.New(),
		OrgID:        cmd.OrgID,
		ThreadID:     cmd.ThreadID,
		SenderID:     uuid.NullUUID{UUID: cmd.SenderID, Valid: true},
		Direction:    domain.DirectionOutbound,
		Body:         cmd.Body,
		FromNumberID: uuid.NullUUID{UUID: decision.NumberID, Valid: true},
		FromE164:     decision.E164,
		ToE164:       thread.ClientE164,
		Status:       domain.MessageStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.events.Create(ctx, s.db, ev); err != nil {
		return nil, fmt.Errorf("failed to persist message event: %w", err)
	}

	providerResp, sendErr := s.callProvider(ctx, provider.SendRequestDetails{
		InternalMessageID: ev.ID.String(),
		From:              decision.E164,
		To:                thread.ClientE164,
		Body:              cmd.Body,
	})
	sentAt := s.now()

	if sendErr != nil {
		errMsg := sendErr.Error()
		if updErr := s.events.UpdatePostSendInfo(ctx, s.db, ev.ID, domain.MessageStatusFailed, nil, &errMsg, sentAt); updErr != nil {
			s.logger.ErrorContext(ctx, "Failed to update event after provider failure", "error", updErr, "event_id", ev.ID)
		}
		sendsProcessedCounter.WithLabelValues(string(domain.MessageStatusFailed)).Inc()
		s.logger.ErrorContext(ctx, "Provider send failed",
			"error", sendErr, "provider", s.sms.GetName(), "event_id", ev.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, sendErr)
	}

	if updErr := s.events.UpdatePostSendInfo(ctx, s.db, ev.ID, domain.MessageStatusSent, &providerResp.ProviderMessageID, nil, sentAt); updErr != nil {
		return nil, fmt.Errorf("failed to mark message sent: %w", updErr)
	}

	// Best-effort bookkeeping; neither touch may fail the send.
	if err := s.numbers.TouchLastUsed(ctx, decision.NumberID, sentAt); err != nil {
		s.logger.WarnContext(ctx, "Failed to touch number last_used_at", "error", err, "number_id", decision.NumberID)
	}
	if err := s.threads.TouchActivity(ctx, cmd.ThreadID, sentAt); err != nil {
		s.logger.WarnContext(ctx, "Failed to touch thread activity", "error", err, "thread_id", cmd.ThreadID)
	}

	sendsProcessedCounter.WithLabelValues(string(domain.MessageStatusSent)).Inc()

	s.publishAudit(ctx, "message_sent", map[string]any{
		"org_id":              cmd.OrgID,
		"thread_id":           cmd.ThreadID,
		"event_id":            ev.ID,
		"from_e164":           decision.E164,
		"routing_rule":        decision.Reason,
		"provider_message_id": providerResp.ProviderMessageID,
	})

	return &SendResult{
		Status:         domain.MessageStatusSent,
		MessageEventID: ev.ID,
		FromE164:       decision.E164,
	}, nil
}

// ForceSend re-submits a blocked message, bypassing the policy scanner.
// The same event row transitions to sent; the override actor and reason
// are attached permanently.
func (s *SendOrchestrator) ForceSend(ctx context.Context, cmd ForceSendCommand) (*SendResult, error) {
	if !cmd.ActorRole.CanForceSend() {
		return nil, fmt.Errorf("%w: only owner or admin may force-send", domain.ErrForbidden)
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, fmt.Errorf("%w: force-send requires a reason", domain.ErrValidation)
	}

	ev, err := s.events.GetByID(ctx, s.db, cmd.OrgID, cmd.EventID)
	if err != nil {
		return nil, err
	}
	if ev.Status != domain.MessageStatusBlocked {
		return nil, fmt.Errorf("%w: message event %s has status %s, only blocked events can be force-sent", domain.ErrInvalidState, ev.ID, ev.Status)
	}

	// Routing is send-time truth; the window landscape may have changed
	// while the violation sat open.
	now := s.now()
	decision, err := s.resolver.Resolve(ctx, cmd.OrgID, ev.ThreadID, now)
	if err != nil {
		return nil, err
	}

	providerResp, sendErr := s.callProvider(ctx, provider.SendRequestDetails{
		InternalMessageID: ev.ID.String(),
		From:              decision.E164,
		To:                ev.ToE164,
		Body:              ev.Body,
	})
	if sendErr != nil {
		// The event stays blocked so the override can be retried.
		s.logger.ErrorContext(ctx, "Provider send failed during force-send",
			"error", sendErr, "event_id", ev.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, sendErr)
	}

	sentAt := s.now()
	err = s.inTx(ctx, func(tx repository.DBTX) error {
		if txErr := s.events.MarkForceSent(ctx, tx, ev.ID, decision.NumberID, decision.E164, &providerResp.ProviderMessageID, cmd.ActorID, cmd.Reason, sentAt); txErr != nil {
			return txErr
		}
		return s.violations.MarkOverriddenByEvent(ctx, tx, ev.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record force-send: %w", err)
	}

	forceSendsCounter.Inc()
	s.logger.InfoContext(ctx, "Blocked message force-sent",
		"event_id", ev.ID, "actor_id", cmd.ActorID, "from_e164", decision.E164)

	s.publishAudit(ctx, "message_force_sent", map[string]any{
		"org_id":    cmd.OrgID,
		"event_id":  ev.ID,
		"thread_id": ev.ThreadID,
		"actor_id":  cmd.ActorID,
		"reason":    cmd.Reason,
		"from_e164": decision.E164,
	})

	return &SendResult{
		Status:         domain.MessageStatusSent,
		MessageEventID: ev.ID,
		FromE164:       decision.E164,
	}, nil
}

func (s *SendOrchestrator) callProvider(ctx context.Context, details provider.SendRequestDetails) (*provider.SendResponseDetails, error) {
	providerCtx, cancel := context.WithTimeout(ctx, providerCallTimeout)
	defer cancel()

	timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(s.sms.GetName()))
	defer timer.ObserveDuration()

	return s.sms.Send(providerCtx, details)
}

func (s *SendOrchestrator) publishAudit(ctx context.Context, event string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to marshal audit payload", "error", err, "event", event)
		return
	}
	subject := s.auditRoot + "." + event
	if err := s.audit.Publish(ctx, subject, data); err != nil {
		// Observability must never block the user-facing operation.
		s.logger.WarnContext(ctx, "Failed to publish audit event", "error", err, "subject", subject)
	}
}

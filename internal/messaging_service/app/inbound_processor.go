package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
)

// inboundSMSPayload is the wire format published by the provider webhook
// edge onto the inbound subject.
type inboundSMSPayload struct {
	To                string `json:"to"`
	From              string `json:"from"`
	Body              string `json:"body"`
	ProviderMessageID string `json:"provider_message_id"`
}

// subscriber is satisfied by *messagebroker.NatsClient.
type subscriber interface {
	Subscribe(ctx context.Context, subject, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error)
}

const (
	deliverToSitter     = "sitter"
	deliverToOwnerInbox = "owner_inbox"
	deliverToOwner      = "owner"
)

// InboundProcessor consumes provider webhook events off NATS and routes
// each inbound SMS to its thread. Inbound messages are never dropped for
// policy reasons: the scanner still runs, but a hit only records a
// violation and delivers the redacted body.
type InboundProcessor struct {
	threads    domain.ThreadRepository
	numbers    domain.NumberDirectory
	windows    domain.AssignmentWindowRepository
	events     repository.MessageEventRepository
	violations repository.PolicyViolationRepository
	scanner    contentScanner
	broker     subscriber
	subject    string
	queueGroup string
	db         repository.DBTX
	inTx       func(ctx context.Context, fn func(tx repository.DBTX) error) error
	logger     *slog.Logger
	now        func() time.Time

	sub *nats.Subscription
}

func NewInboundProcessor(
	threads domain.ThreadRepository,
	numbers domain.NumberDirectory,
	windows domain.AssignmentWindowRepository,
	events repository.MessageEventRepository,
	violations repository.PolicyViolationRepository,
	scanner *PolicyScanner,
	broker subscriber,
	subject, queueGroup string,
	db repository.DBTX,
	inTx func(ctx context.Context, fn func(tx repository.DBTX) error) error,
	logger *slog.Logger,
) *InboundProcessor {
	return &InboundProcessor{
		threads:    threads,
		numbers:    numbers,
		windows:    windows,
		events:     events,
		violations: violations,
		scanner:    scanner,
		broker:     broker,
		subject:    subject,
		queueGroup: queueGroup,
		db:         db,
		inTx:       inTx,
		logger:     logger.With("service", "inbound_processor"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start subscribes to the inbound subject. Each message is handled on the
// NATS delivery goroutine; processing is short (two lookups plus writes).
func (p *InboundProcessor) Start(ctx context.Context) error {
	sub, err := p.broker.Subscribe(ctx, p.subject, p.queueGroup, func(msg *nats.Msg) {
		handleCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.handle(handleCtx, msg.Data); err != nil {
			p.logger.ErrorContext(handleCtx, "Failed to process inbound SMS", "error", err)
		}
	})
	if err != nil {
		return err
	}
	p.sub = sub
	p.logger.InfoContext(ctx, "Inbound processor started", "subject", p.subject, "queue_group", p.queueGroup)
	return nil
}

// Stop unsubscribes. In-flight handlers finish on their own timeout.
func (p *InboundProcessor) Stop() {
	if p.sub != nil {
		if err := p.sub.Unsubscribe(); err != nil {
			p.logger.Warn("Failed to unsubscribe inbound processor", "error", err)
		}
	}
}

func (p *InboundProcessor) handle(ctx context.Context, data []byte) error {
	var payload inboundSMSPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Malformed payloads are not retryable; log and drop.
		return fmt.Errorf("malformed inbound payload: %w", err)
	}

	to, err := NormalizeE164(payload.To)
	if err != nil {
		return fmt.Errorf("invalid destination number %q: %w", payload.To, err)
	}
	from, err := NormalizeE164(payload.From)
	if err != nil {
		return fmt.Errorf("invalid origin number %q: %w", payload.From, err)
	}

	number, err := p.numbers.GetActiveByE164(ctx, to)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Number was quarantined or released after the provider queued
			// the webhook. Nothing to route to.
			p.logger.WarnContext(ctx, "Inbound SMS to unknown or inactive number, dropping", "to", to)
			return nil
		}
		return fmt.Errorf("failed to look up destination number: %w", err)
	}

	thread, err := p.threadFor(ctx, number.OrgID, from)
	if err != nil {
		return err
	}

	now := p.now()
	verdict := p.scanner.Scan(payload.Body)

	body := payload.Body
	if !verdict.Allowed {
		body = verdict.RedactedText
	}
	providerMessageID := payload.ProviderMessageID
	ev := &domain.MessageEvent{
		ID:                uuid.New(),
		OrgID:             number.OrgID,
		ThreadID:          thread.ID,
		Direction:         domain.DirectionInbound,
		Body:              body,
		FromE164:          from,
		ToE164:            to,
		Status:            domain.MessageStatusReceived,
		ProviderMessageID: &providerMessageID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if verdict.Allowed {
		if err := p.events.Create(ctx, p.db, ev); err != nil {
			return fmt.Errorf("failed to persist inbound event: %w", err)
		}
	} else {
		violation := &domain.PolicyViolation{
			ID:              uuid.New(),
			OrgID:           number.OrgID,
			ThreadID:        thread.ID,
			MessageEventID:  ev.ID,
			Reasons:         verdict.Reasons,
			DetectedSummary: verdict.RedactedText,
			Status:          domain.ViolationStatusOpen,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err := p.inTx(ctx, func(tx repository.DBTX) error {
			if txErr := p.events.Create(ctx, tx, ev); txErr != nil {
				return txErr
			}
			return p.violations.Create(ctx, tx, violation)
		})
		if err != nil {
			return fmt.Errorf("failed to persist inbound event with violation: %w", err)
		}
		p.logger.InfoContext(ctx, "Inbound SMS contained contact info, delivered redacted",
			"thread_id", thread.ID, "event_id", ev.ID, "reasons", verdict.Reasons)
	}

	deliverTo := p.audienceFor(ctx, number, thread, now)
	inboundProcessedCounter.WithLabelValues(deliverTo).Inc()

	if err := p.threads.TouchActivity(ctx, thread.ID, now); err != nil {
		p.logger.WarnContext(ctx, "Failed to touch thread activity", "error", err, "thread_id", thread.ID)
	}

	p.logger.InfoContext(ctx, "Inbound SMS routed",
		"thread_id", thread.ID, "event_id", ev.ID, "deliver_to", deliverTo, "to", to)
	return nil
}

// threadFor finds the client thread for the sender, falling back to the
// org's owner inbox for numbers we have no conversation with.
func (p *InboundProcessor) threadFor(ctx context.Context, orgID uuid.UUID, from string) (*domain.Thread, error) {
	thread, err := p.threads.FindByClientE164(ctx, orgID, from)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up client thread: %w", err)
	}
	thread, err = p.threads.FindOrCreateOwnerInbox(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve owner inbox: %w", err)
	}
	return thread, nil
}

// audienceFor decides who sees the inbound message first. A message
// arriving on a sitter's number while that sitter has an active window on
// the thread goes to the sitter; everything else surfaces to the owner.
func (p *InboundProcessor) audienceFor(ctx context.Context, number *domain.MessageNumber, thread *domain.Thread, at time.Time) string {
	if thread.Kind == domain.ThreadKindOwnerInbox {
		return deliverToOwnerInbox
	}
	if number.Class == domain.NumberClassSitter && number.AssignedSitterID.Valid {
		_, err := p.windows.ActiveWindowForSitter(ctx, number.OrgID, thread.ID, number.AssignedSitterID.UUID, at)
		if err == nil {
			return deliverToSitter
		}
		if !errors.Is(err, domain.ErrNotFound) {
			p.logger.WarnContext(ctx, "Failed to check sitter window, delivering to owner", "error", err, "thread_id", thread.ID)
		}
	}
	return deliverToOwner
}

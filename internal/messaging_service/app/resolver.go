package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// TraceEntry records one evaluated routing rule. The trace is a first-class
// output: operators use it to answer "why did this message go where it
// went", so every rule appends an entry whether it matched or not.
type TraceEntry struct {
	Step        int    `json:"step"`
	Rule        string `json:"rule"`
	Condition   string `json:"condition"`
	Result      bool   `json:"result"`
	Explanation string `json:"explanation"`
}

// RouteDecision is the resolver's answer for one thread at one instant.
type RouteDecision struct {
	NumberID    uuid.UUID          `json:"number_id"`
	E164        string             `json:"e164"`
	NumberClass domain.NumberClass `json:"number_class"`
	Reason      string             `json:"reason"`
	// WindowSitterID is set when rule 1 matched; the orchestrator uses it
	// to gate sitter sends.
	WindowSitterID uuid.NullUUID `json:"window_sitter_id,omitempty"`
	WindowID       uuid.NullUUID `json:"window_id,omitempty"`
	Trace          []TraceEntry  `json:"trace"`
}

// RoutingResolver decides which outbound number a thread's messages leave
// from. Rules are evaluated in strict priority order, first match wins:
//
//  1. active assignment window whose sitter holds an active sitter number
//  2. the thread's default number
//  3. defensive fallback: pool (least recently used), then front desk,
//     then any active number
//
// An org with no usable number at all is a configuration error, never a
// silent no-op.
type RoutingResolver struct {
	threads domain.ThreadRepository
	windows domain.AssignmentWindowRepository
	numbers domain.NumberDirectory
	logger  *slog.Logger
}

func NewRoutingResolver(
	threads domain.ThreadRepository,
	windows domain.AssignmentWindowRepository,
	numbers domain.NumberDirectory,
	logger *slog.Logger,
) *RoutingResolver {
	return &RoutingResolver{
		threads: threads,
		windows: windows,
		numbers: numbers,
		logger:  logger.With("component", "routing_resolver"),
	}
}

// Resolve computes the effective from-number for a thread at the given
// instant. Routing is send-time truth: callers resolve on every send
// rather than caching a number on the message.
func (r *RoutingResolver) Resolve(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) (*RouteDecision, error) {
	thread, err := r.threads.GetByID(ctx, orgID, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	var trace []TraceEntry

	// Rule 1: active assignment window with a sitter number.
	windows, err := r.windows.ActiveWindowsForThread(ctx, orgID, threadID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment windows for thread %s: %w", threadID, err)
	}
	if len(windows) > 1 {
		// Overlapping active windows are an upstream scheduling anomaly.
		// Tolerate and pick deterministically rather than blocking delivery.
		routingOverlapWarningsCounter.Inc()
		r.logger.WarnContext(ctx, "Overlapping active assignment windows for thread; using latest startAt",
			"thread_id", threadID, "window_count", len(windows))
	}

	if w := domain.MostRecentWindow(windows); w != nil {
		number, numErr := r.numbers.GetActiveSitterNumber(ctx, orgID, w.SitterID)
		switch {
		case numErr == nil:
			trace = append(trace, TraceEntry{
				Step:        1,
				Rule:        "active_assignment_window",
				Condition:   fmt.Sprintf("window %s active: %s <= %s <= %s", w.ID, w.StartAt.Format(time.RFC3339), at.Format(time.RFC3339), w.EndAt.Format(time.RFC3339)),
				Result:      true,
				Explanation: fmt.Sprintf("active window for sitter %s - using sitter's dedicated number", w.SitterID),
			})
			r.decided(ctx, "active_assignment_window", number)
			return &RouteDecision{
				NumberID:       number.ID,
				E164:           number.E164,
				NumberClass:    number.Class,
				Reason:         "active assignment window",
				WindowSitterID: uuid.NullUUID{UUID: w.SitterID, Valid: true},
				WindowID:       uuid.NullUUID{UUID: w.ID, Valid: true},
				Trace:          trace,
			}, nil
		case errors.Is(numErr, domain.ErrNotFound):
			trace = append(trace, TraceEntry{
				Step:        1,
				Rule:        "active_assignment_window",
				Condition:   fmt.Sprintf("window %s active but sitter %s has no active sitter-class number", w.ID, w.SitterID),
				Result:      false,
				Explanation: "active window found but its sitter holds no usable number",
			})
		default:
			return nil, fmt.Errorf("failed to load sitter number for sitter %s: %w", w.SitterID, numErr)
		}
	} else {
		trace = append(trace, TraceEntry{
			Step:        1,
			Rule:        "active_assignment_window",
			Condition:   fmt.Sprintf("no active window containing %s", at.Format(time.RFC3339)),
			Result:      false,
			Explanation: "no active assignment window found",
		})
	}

	// Rule 2: the thread's default number.
	if thread.DefaultNumberID.Valid {
		number, numErr := r.numbers.GetByID(ctx, orgID, thread.DefaultNumberID.UUID)
		switch {
		case numErr == nil && number.Status == domain.NumberStatusActive:
			trace = append(trace, TraceEntry{
				Step:        2,
				Rule:        "thread_default_number",
				Condition:   fmt.Sprintf("thread default %s is active", number.E164),
				Result:      true,
				Explanation: "no active window - using thread default",
			})
			r.decided(ctx, "thread_default_number", number)
			return &RouteDecision{
				NumberID:    number.ID,
				E164:        number.E164,
				NumberClass: number.Class,
				Reason:      "no active window - using thread default",
				Trace:       trace,
			}, nil
		case numErr == nil:
			trace = append(trace, TraceEntry{
				Step:        2,
				Rule:        "thread_default_number",
				Condition:   fmt.Sprintf("thread default %s has status %s", number.E164, number.Status),
				Result:      false,
				Explanation: "thread default number is not active",
			})
		case errors.Is(numErr, domain.ErrNotFound):
			trace = append(trace, TraceEntry{
				Step:        2,
				Rule:        "thread_default_number",
				Condition:   "thread default number missing from directory",
				Result:      false,
				Explanation: "thread default number not found",
			})
		default:
			return nil, fmt.Errorf("failed to load thread default number: %w", numErr)
		}
	} else {
		trace = append(trace, TraceEntry{
			Step:        2,
			Rule:        "thread_default_number",
			Condition:   "thread has no default number",
			Result:      false,
			Explanation: "no default number bound to thread",
		})
	}

	// Rule 3: defensive fallback. Should not occur in normal operation;
	// order is deterministic: least-recently-used pool, front desk, any.
	decision, err := r.fallback(ctx, orgID, &trace)
	if err != nil {
		return nil, err
	}
	return decision, nil
}

func (r *RoutingResolver) fallback(ctx context.Context, orgID uuid.UUID, trace *[]TraceEntry) (*RouteDecision, error) {
	lookups := []struct {
		rule        string
		condition   string
		explanation string
		fn          func() (*domain.MessageNumber, error)
	}{
		{
			rule:        "fallback_pool_number",
			condition:   "least-recently-used active pool number exists",
			explanation: "defensive fallback to pool number",
			fn:          func() (*domain.MessageNumber, error) { return r.numbers.GetLeastRecentlyUsedPoolNumber(ctx, orgID) },
		},
		{
			rule:        "fallback_front_desk",
			condition:   "active front desk number exists",
			explanation: "defensive fallback to front desk",
			fn:          func() (*domain.MessageNumber, error) { return r.numbers.GetActiveFrontDeskNumber(ctx, orgID) },
		},
		{
			rule:        "fallback_any_active",
			condition:   "any active number exists for organization",
			explanation: "defensive fallback to any active number",
			fn:          func() (*domain.MessageNumber, error) { return r.numbers.GetAnyActiveNumber(ctx, orgID) },
		},
	}

	for i, l := range lookups {
		number, err := l.fn()
		if err == nil {
			*trace = append(*trace, TraceEntry{
				Step:        3 + i,
				Rule:        l.rule,
				Condition:   l.condition,
				Result:      true,
				Explanation: l.explanation,
			})
			r.decided(ctx, l.rule, number)
			return &RouteDecision{
				NumberID:    number.ID,
				E164:        number.E164,
				NumberClass: number.Class,
				Reason:      l.explanation,
				Trace:       append([]TraceEntry(nil), *trace...),
			}, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("fallback number lookup failed: %w", err)
		}
		*trace = append(*trace, TraceEntry{
			Step:        3 + i,
			Rule:        l.rule,
			Condition:   l.condition,
			Result:      false,
			Explanation: "no such number",
		})
	}

	r.logger.ErrorContext(ctx, "Organization has no usable messaging numbers", "org_id", orgID)
	return nil, fmt.Errorf("no available messaging numbers for organization %s - configure numbers first: %w", orgID, domain.ErrConfiguration)
}

func (r *RoutingResolver) decided(ctx context.Context, rule string, number *domain.MessageNumber) {
	routingDecisionsCounter.WithLabelValues(rule).Inc()
	r.logger.DebugContext(ctx, "Routing decision made", "rule", rule, "number_id", number.ID, "e164", number.E164, "class", number.Class)
}

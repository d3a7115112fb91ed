package http

import (
	"time"

	"github.com/pawdesk/messaging-core/internal/messaging_service/app"
	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
)

// SendMessageRequest DTO for POST /threads/{threadID}/messages
type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1"`
}

// SendMessageResponse DTO for an accepted (sent) message.
type SendMessageResponse struct {
	MessageID string               `json:"message_id"`
	Status    domain.MessageStatus `json:"status"`
	FromE164  string               `json:"from_e164"`
}

// PolicyBlockResponse DTO returned with 400 when the scanner blocks a
// send. ViolationID lets the client offer the force-send flow directly.
type PolicyBlockResponse struct {
	MessageID   string                 `json:"message_id"`
	Status      domain.MessageStatus   `json:"status"`
	ViolationID string                 `json:"violation_id"`
	Reasons     []domain.ViolationKind `json:"reasons"`
	Warning     string                 `json:"warning"`
}

// ForceSendRequest DTO for POST /messages/{messageID}/force-send
type ForceSendRequest struct {
	Reason string `json:"reason" validate:"required,min=1"`
}

// RoutingDecisionResponse DTO for the debug routing endpoint.
type RoutingDecisionResponse struct {
	NumberID    string             `json:"number_id"`
	E164        string             `json:"e164"`
	NumberClass domain.NumberClass `json:"number_class"`
	Reason      string             `json:"reason"`
	Trace       []app.TraceEntry   `json:"trace"`
}

// ViolationResponse DTO
type ViolationResponse struct {
	ID              string                 `json:"id"`
	ThreadID        string                 `json:"thread_id"`
	MessageEventID  string                 `json:"message_event_id"`
	SenderID        *string                `json:"sender_id,omitempty"`
	Reasons         []domain.ViolationKind `json:"reasons"`
	DetectedSummary string                 `json:"detected_summary"`
	Status          domain.ViolationStatus `json:"status"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ListViolationsResponse DTO
type ListViolationsResponse struct {
	Violations []ViolationResponse `json:"violations"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// NumberStatusResponse DTO for quarantine/release operations.
type NumberStatusResponse struct {
	ID     string              `json:"id"`
	E164   string              `json:"e164"`
	Class  domain.NumberClass  `json:"class"`
	Status domain.NumberStatus `json:"status"`
}

// GenericErrorResponse is the error envelope for all non-2xx responses
// except policy blocks, which carry PolicyBlockResponse.
type GenericErrorResponse struct {
	Error string `json:"error"`
}

func violationToResponse(v *domain.PolicyViolation) ViolationResponse {
	resp := ViolationResponse{
		ID:              v.ID.String(),
		ThreadID:        v.ThreadID.String(),
		MessageEventID:  v.MessageEventID.String(),
		Reasons:         v.Reasons,
		DetectedSummary: v.DetectedSummary,
		Status:          v.Status,
		CreatedAt:       v.CreatedAt,
	}
	if v.SenderID.Valid {
		s := v.SenderID.UUID.String()
		resp.SenderID = &s
	}
	return resp
}

package provider

import "context"

// SendRequestDetails carries everything an SMS provider needs for one
// outbound message. From is always the resolver's decision; providers never
// pick their own sender number.
type SendRequestDetails struct {
	InternalMessageID string
	From              string // E.164
	To                string // E.164
	Body              string
}

// SendResponseDetails is the provider's acknowledgment.
type SendResponseDetails struct {
	ProviderMessageID string
	IsSuccess         bool
	ProviderStatus    string
	ErrorMessage      string
}

// SMSSenderProvider abstracts the external SMS vendor. The core neither
// knows nor cares which vendor backs it.
type SMSSenderProvider interface {
	Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error)
	GetName() string
}

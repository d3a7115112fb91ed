package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// MockSMSProvider is a local stand-in for environments without provider
// credentials.
type MockSMSProvider struct {
	logger         *slog.Logger
	FailSend       bool
	SimulatedDelay time.Duration
}

func NewMockSMSProvider(logger *slog.Logger, failSend bool, delay time.Duration) *MockSMSProvider {
	return &MockSMSProvider{
		logger:         logger.With("provider", "mock"),
		FailSend:       failSend,
		SimulatedDelay: delay,
	}
}

func (p *MockSMSProvider) GetName() string { return "mock" }

func (p *MockSMSProvider) Send(ctx context.Context, details SendRequestDetails) (*SendResponseDetails, error) {
	p.logger.InfoContext(ctx, "MockSMSProvider: Send called",
		"internal_message_id", details.InternalMessageID,
		"from", details.From,
		"to", details.To,
		"body_length", len(details.Body))

	if p.SimulatedDelay > 0 {
		select {
		case <-time.After(p.SimulatedDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.FailSend {
		p.logger.WarnContext(ctx, "MockSMSProvider: simulated send failure", "to", details.To)
		return &SendResponseDetails{
			IsSuccess:      false,
			ProviderStatus: "FAILED_MOCK",
			ErrorMessage:   "mock provider simulated send failure",
		}, errors.New("mock provider simulated send failure")
	}

	providerMsgID := "mock-" + uuid.NewString()
	return &SendResponseDetails{
		ProviderMessageID: providerMsgID,
		IsSuccess:         true,
		ProviderStatus:    "SENT_MOCK",
	}, nil
}

package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/provider"
	"github.com/pawdesk/messaging-core/internal/messaging_service/repository"
)

// mockCtx matches any context in expectations.
var mockCtx = mock.Anything

type MockThreadRepository struct {
	mock.Mock
}

func (m *MockThreadRepository) GetByID(ctx context.Context, orgID, threadID uuid.UUID) (*domain.Thread, error) {
	args := m.Called(ctx, orgID, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockThreadRepository) FindByClientE164(ctx context.Context, orgID uuid.UUID, e164 string) (*domain.Thread, error) {
	args := m.Called(ctx, orgID, e164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockThreadRepository) Create(ctx context.Context, t *domain.Thread) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockThreadRepository) FindOrCreateOwnerInbox(ctx context.Context, orgID uuid.UUID) (*domain.Thread, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockThreadRepository) TouchActivity(ctx context.Context, threadID uuid.UUID, at time.Time) error {
	return m.Called(ctx, threadID, at).Error(0)
}

type MockWindowRepository struct {
	mock.Mock
}

func (m *MockWindowRepository) ActiveWindowsForThread(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) ([]*domain.AssignmentWindow, error) {
	args := m.Called(ctx, orgID, threadID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AssignmentWindow), args.Error(1)
}

func (m *MockWindowRepository) ActiveWindowForSitter(ctx context.Context, orgID, threadID, sitterID uuid.UUID, at time.Time) (*domain.AssignmentWindow, error) {
	args := m.Called(ctx, orgID, threadID, sitterID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssignmentWindow), args.Error(1)
}

type MockNumberDirectory struct {
	mock.Mock
}

func (m *MockNumberDirectory) GetByID(ctx context.Context, orgID, id uuid.UUID) (*domain.MessageNumber, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageNumber), args.Error(1)
}

func (m *MockNumberDirectory) GetActiveByE164(ctx context.Context, e164 string) (*domain.MessageNumber, error) {
	args := m.Called(ctx, e164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageNumber), args.Error(1)
}

func (m *MockNumberDirectory) GetActiveSitterNumber(ctx context.Context, orgID, sitterID uuid.UUID) (*domain.MessageNumber, error) {
	args := m.Called(ctx, orgID, sitterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageNumber), args.Error(1)
}

func (m *MockNumberDirectory) GetLeastRecentlyUsedPoolNumber(ctx context.Context, orgID uuid.UUID) (*domain.MessageNumber, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageNumber), args.Error(1)
}

func (m *MockNumberDirectory) GetActiveFrontDeskNumber(ctx context.Context, orgID uuid.UUID) (*domain.MessageNumber, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageNumber), args.Error(1)
}

func (m *MockNumberDirectory) GetAnyActiveNumber(ctx context.Context, orgID uuid.UUID) (*domain.MessageNumber, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageNumber), args.Error(1)
}

func (m *MockNumberDirectory) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockNumberDirectory) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status domain.NumberStatus) error {
	return m.Called(ctx, orgID, id, status).Error(0)
}

type MockMessageEventRepository struct {
	mock.Mock
}

func (m *MockMessageEventRepository) Create(ctx context.Context, db repository.DBTX, ev *domain.MessageEvent) error {
	return m.Called(ctx, db, ev).Error(0)
}

func (m *MockMessageEventRepository) GetByID(ctx context.Context, db repository.DBTX, orgID, id uuid.UUID) (*domain.MessageEvent, error) {
	args := m.Called(ctx, db, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageEvent), args.Error(1)
}

func (m *MockMessageEventRepository) UpdatePostSendInfo(ctx context.Context, db repository.DBTX, id uuid.UUID, status domain.MessageStatus, providerMessageID *string, errorMessage *string, at time.Time) error {
	return m.Called(ctx, db, id, status, providerMessageID, errorMessage, at).Error(0)
}

func (m *MockMessageEventRepository) MarkForceSent(ctx context.Context, db repository.DBTX, id uuid.UUID, fromNumberID uuid.UUID, fromE164 string, providerMessageID *string, actorID uuid.UUID, reason string, at time.Time) error {
	return m.Called(ctx, db, id, fromNumberID, fromE164, providerMessageID, actorID, reason, at).Error(0)
}

type MockPolicyViolationRepository struct {
	mock.Mock
}

func (m *MockPolicyViolationRepository) Create(ctx context.Context, db repository.DBTX, v *domain.PolicyViolation) error {
	return m.Called(ctx, db, v).Error(0)
}

func (m *MockPolicyViolationRepository) GetByID(ctx context.Context, db repository.DBTX, orgID, id uuid.UUID) (*domain.PolicyViolation, error) {
	args := m.Called(ctx, db, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PolicyViolation), args.Error(1)
}

func (m *MockPolicyViolationRepository) ListByOrg(ctx context.Context, db repository.DBTX, orgID uuid.UUID, status *domain.ViolationStatus, limit, offset int) ([]*domain.PolicyViolation, error) {
	args := m.Called(ctx, db, orgID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PolicyViolation), args.Error(1)
}

func (m *MockPolicyViolationRepository) UpdateStatus(ctx context.Context, db repository.DBTX, orgID, id uuid.UUID, status domain.ViolationStatus) error {
	return m.Called(ctx, db, orgID, id, status).Error(0)
}

func (m *MockPolicyViolationRepository) MarkOverriddenByEvent(ctx context.Context, db repository.DBTX, eventID uuid.UUID) error {
	return m.Called(ctx, db, eventID).Error(0)
}

type MockSMSSenderProvider struct {
	mock.Mock
	Name string
}

func (m *MockSMSSenderProvider) Send(ctx context.Context, details provider.SendRequestDetails) (*provider.SendResponseDetails, error) {
	args := m.Called(ctx, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SendResponseDetails), args.Error(1)
}

func (m *MockSMSSenderProvider) GetName() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return m.Called(ctx, subject, data).Error(0)
}

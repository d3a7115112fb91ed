package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pawdesk/messaging-core/internal/messaging_service/app"
	"github.com/pawdesk/messaging-core/internal/messaging_service/domain"
	"github.com/pawdesk/messaging-core/internal/messaging_service/middleware"
)

type mockSendService struct {
	mock.Mock
}

func (m *mockSendService) Send(ctx context.Context, cmd app.SendCommand) (*app.SendResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.SendResult), args.Error(1)
}

func (m *mockSendService) ForceSend(ctx context.Context, cmd app.ForceSendCommand) (*app.SendResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.SendResult), args.Error(1)
}

type mockRoutingService struct {
	mock.Mock
}

func (m *mockRoutingService) Resolve(ctx context.Context, orgID, threadID uuid.UUID, at time.Time) (*app.RouteDecision, error) {
	args := m.Called(ctx, orgID, threadID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.RouteDecision), args.Error(1)
}

func newTestRouter(sendSvc *mockSendService, routingSvc *mockRoutingService, user *middleware.AuthenticatedUser, debugRouting bool) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewMessageHandler(sendSvc, routingSvc, debugRouting, logger)

	r := chi.NewRouter()
	if user != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := context.WithValue(req.Context(), middleware.AuthenticatedUserContextKey, *user)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	handler.RegisterRoutes(r)
	return r
}

func testUser(role domain.Role) *middleware.AuthenticatedUser {
	return &middleware.AuthenticatedUser{
		ID:       uuid.New(),
		OrgID:    uuid.New(),
		Role:     role,
		Username: "taylor",
	}
}

func TestMessageHandler_SendMessage_Created(t *testing.T) {
	sendSvc := new(mockSendService)
	user := testUser(domain.RoleOwner)
	threadID := uuid.New()
	eventID := uuid.New()

	sendSvc.On("Send", mock.Anything, mock.MatchedBy(func(cmd app.SendCommand) bool {
		return cmd.OrgID == user.OrgID && cmd.ThreadID == threadID &&
			cmd.SenderID == user.ID && cmd.SenderRole == domain.RoleOwner &&
			cmd.Body == "See you at noon"
	})).Return(&app.SendResult{
		Status:         domain.MessageStatusSent,
		MessageEventID: eventID,
		FromE164:       "+15559998888",
	}, nil)

	router := newTestRouter(sendSvc, new(mockRoutingService), user, false)
	body := bytes.NewBufferString(`{"body":"See you at noon"}`)
	req := httptest.NewRequest(http.MethodPost, "/threads/"+threadID.String()+"/messages", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp SendMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, eventID.String(), resp.MessageID)
	assert.Equal(t, domain.MessageStatusSent, resp.Status)
	assert.Equal(t, "+15559998888", resp.FromE164)
}

func TestMessageHandler_SendMessage_PolicyBlockReturns400WithDetails(t *testing.T) {
	sendSvc := new(mockSendService)
	user := testUser(domain.RoleSitter)
	threadID := uuid.New()
	eventID := uuid.New()
	violationID := uuid.New()

	sendSvc.On("Send", mock.Anything, mock.Anything).Return(&app.SendResult{
		Status:         domain.MessageStatusBlocked,
		MessageEventID: eventID,
		ViolationID:    uuid.NullUUID{UUID: violationID, Valid: true},
		Reasons:        []domain.ViolationKind{domain.ViolationPhoneNumber},
		Warning:        "Sharing phone numbers with clients is not allowed.",
	}, nil)

	router := newTestRouter(sendSvc, new(mockRoutingService), user, false)
	body := bytes.NewBufferString(`{"body":"call me at 555-867-5309"}`)
	req := httptest.NewRequest(http.MethodPost, "/threads/"+threadID.String()+"/messages", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp PolicyBlockResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, domain.MessageStatusBlocked, resp.Status)
	assert.Equal(t, violationID.String(), resp.ViolationID)
	assert.Equal(t, []domain.ViolationKind{domain.ViolationPhoneNumber}, resp.Reasons)
	assert.NotEmpty(t, resp.Warning)
}

func TestMessageHandler_SendMessage_EmptyBodyRejected(t *testing.T) {
	sendSvc := new(mockSendService)
	router := newTestRouter(sendSvc, new(mockRoutingService), testUser(domain.RoleOwner), false)

	req := httptest.NewRequest(http.MethodPost, "/threads/"+uuid.NewString()+"/messages", bytes.NewBufferString(`{"body":""}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	sendSvc.AssertNotCalled(t, "Send")
}

func TestMessageHandler_SendMessage_Unauthenticated(t *testing.T) {
	router := newTestRouter(new(mockSendService), new(mockRoutingService), nil, false)

	req := httptest.NewRequest(http.MethodPost, "/threads/"+uuid.NewString()+"/messages", bytes.NewBufferString(`{"body":"hi"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMessageHandler_SendMessage_ConfigurationErrorMapsTo503(t *testing.T) {
	sendSvc := new(mockSendService)
	sendSvc.On("Send", mock.Anything, mock.Anything).Return(nil, domain.ErrConfiguration)

	router := newTestRouter(sendSvc, new(mockRoutingService), testUser(domain.RoleOwner), false)
	req := httptest.NewRequest(http.MethodPost, "/threads/"+uuid.NewString()+"/messages", bytes.NewBufferString(`{"body":"hi"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMessageHandler_ForceSend_OK(t *testing.T) {
	sendSvc := new(mockSendService)
	user := testUser(domain.RoleOwner)
	eventID := uuid.New()

	sendSvc.On("ForceSend", mock.Anything, mock.MatchedBy(func(cmd app.ForceSendCommand) bool {
		return cmd.EventID == eventID && cmd.ActorID == user.ID && cmd.Reason == "client requested my direct line"
	})).Return(&app.SendResult{
		Status:         domain.MessageStatusSent,
		MessageEventID: eventID,
		FromE164:       "+15551110000",
	}, nil)

	router := newTestRouter(sendSvc, new(mockRoutingService), user, false)
	body := bytes.NewBufferString(`{"reason":"client requested my direct line"}`)
	req := httptest.NewRequest(http.MethodPost, "/messages/"+eventID.String()+"/force-send", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp SendMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, domain.MessageStatusSent, resp.Status)
}

func TestMessageHandler_ForceSend_InvalidStateMapsTo409(t *testing.T) {
	sendSvc := new(mockSendService)
	sendSvc.On("ForceSend", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidState)

	router := newTestRouter(sendSvc, new(mockRoutingService), testUser(domain.RoleAdmin), false)
	req := httptest.NewRequest(http.MethodPost, "/messages/"+uuid.NewString()+"/force-send", bytes.NewBufferString(`{"reason":"resend"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestMessageHandler_GetRouting_DebugOnly(t *testing.T) {
	routingSvc := new(mockRoutingService)
	user := testUser(domain.RoleOwner)
	threadID := uuid.New()

	routingSvc.On("Resolve", mock.Anything, user.OrgID, threadID, mock.Anything).Return(&app.RouteDecision{
		NumberID:    uuid.New(),
		E164:        "+15559998888",
		NumberClass: domain.NumberClassSitter,
		Reason:      "active assignment window",
		Trace: []app.TraceEntry{
			{Step: 1, Rule: "active_assignment_window", Result: true},
		},
	}, nil)

	// Enabled: decision with trace is returned.
	router := newTestRouter(new(mockSendService), routingSvc, user, true)
	req := httptest.NewRequest(http.MethodGet, "/threads/"+threadID.String()+"/routing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp RoutingDecisionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "active assignment window", resp.Reason)
	require.Len(t, resp.Trace, 1)

	// Disabled: the route is not registered at all.
	disabled := newTestRouter(new(mockSendService), routingSvc, user, false)
	rr = httptest.NewRecorder()
	disabled.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/threads/"+threadID.String()+"/routing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

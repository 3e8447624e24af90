package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wayfarer-app/wayfarer-backend/internal/payment"
	"github.com/wayfarer-app/wayfarer-backend/logger"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

func init() {
	logger.IsTest = true
}

// Mock PlanStore
type MockPlanStore struct {
	mock.Mock
}

func (m *MockPlanStore) CreatePlan(ctx context.Context, plan *types.TravelPlan) (string, error) {
	args := m.Called(ctx, plan)
	return args.String(0), args.Error(1)
}

func (m *MockPlanStore) GetPlan(ctx context.Context, id string) (*types.TravelPlan, error) {
	args := m.Called(ctx, id)
	if plan, ok := args.Get(0).(*types.TravelPlan); ok {
		return plan, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanStore) ListUserPlans(ctx context.Context, userID string) ([]*types.TravelPlan, error) {
	args := m.Called(ctx, userID)
	if plans, ok := args.Get(0).([]*types.TravelPlan); ok {
		return plans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanStore) ApplyUpdate(ctx context.Context, id string, update *types.PlanUpdate, expectedVersion int64,
	resolve func(current *types.TravelPlan) ([]types.FieldWrite, error)) (*types.UpdatedFieldsAck, error) {
	args := m.Called(ctx, id, update, expectedVersion, resolve)
	if ack, ok := args.Get(0).(*types.UpdatedFieldsAck); ok {
		return ack, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanStore) ReplaceItinerary(ctx context.Context, id string, sections []types.Section) (*types.UpdatedFieldsAck, error) {
	args := m.Called(ctx, id, sections)
	if ack, ok := args.Get(0).(*types.UpdatedFieldsAck); ok {
		return ack, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPlanStore) UpdatePlanStatus(ctx context.Context, id string, from, to types.PlanStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockPlanStore) AddTripmate(ctx context.Context, planID, userID string) error {
	args := m.Called(ctx, planID, userID)
	return args.Error(0)
}

func (m *MockPlanStore) SoftDeletePlan(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock BookingStore
type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) CreateBooking(ctx context.Context, booking *types.Booking) (string, error) {
	args := m.Called(ctx, booking)
	return args.String(0), args.Error(1)
}

func (m *MockBookingStore) GetBooking(ctx context.Context, id string) (*types.Booking, error) {
	args := m.Called(ctx, id)
	if booking, ok := args.Get(0).(*types.Booking); ok {
		return booking, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingStore) UpdateBookingStatus(ctx context.Context, id string, from, to types.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBookingStore) SetBookingPayment(ctx context.Context, bookingID, paymentID string) error {
	args := m.Called(ctx, bookingID, paymentID)
	return args.Error(0)
}

// Mock PaymentStore
type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) CreatePayment(ctx context.Context, pay *types.Payment) (string, error) {
	args := m.Called(ctx, pay)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentStore) GetPayment(ctx context.Context, id string) (*types.Payment, error) {
	args := m.Called(ctx, id)
	if pay, ok := args.Get(0).(*types.Payment); ok {
		return pay, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentStore) GetPaymentByProviderRef(ctx context.Context, providerRef string) (*types.Payment, error) {
	args := m.Called(ctx, providerRef)
	if pay, ok := args.Get(0).(*types.Payment); ok {
		return pay, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentStore) SetProviderRef(ctx context.Context, id, providerRef string) error {
	args := m.Called(ctx, id, providerRef)
	return args.Error(0)
}

func (m *MockPaymentStore) TransitionPayment(ctx context.Context, id string, from, to types.PaymentStatus, note string) error {
	args := m.Called(ctx, id, from, to, note)
	return args.Error(0)
}

func (m *MockPaymentStore) ResetStuckPayment(ctx context.Context, id string) (*types.Payment, error) {
	args := m.Called(ctx, id)
	if pay, ok := args.Get(0).(*types.Payment); ok {
		return pay, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock InvitationStore
type MockInvitationStore struct {
	mock.Mock
}

func (m *MockInvitationStore) CreateInvitation(ctx context.Context, inv *types.Invitation) (string, error) {
	args := m.Called(ctx, inv)
	return args.String(0), args.Error(1)
}

func (m *MockInvitationStore) GetInvitation(ctx context.Context, id string) (*types.Invitation, error) {
	args := m.Called(ctx, id)
	if inv, ok := args.Get(0).(*types.Invitation); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvitationStore) ListPendingForInvitee(ctx context.Context, inviteeID string) ([]*types.Invitation, error) {
	args := m.Called(ctx, inviteeID)
	if invs, ok := args.Get(0).([]*types.Invitation); ok {
		return invs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockInvitationStore) RespondInvitation(ctx context.Context, id string, status types.InvitationStatus) (*types.Invitation, error) {
	args := m.Called(ctx, id, status)
	if inv, ok := args.Get(0).(*types.Invitation); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, planID string, event types.Event) error {
	args := m.Called(ctx, planID, event)
	return args.Error(0)
}

// Mock payment Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, req *payment.IntentRequest) (*payment.IntentResponse, error) {
	args := m.Called(ctx, req)
	if resp, ok := args.Get(0).(*payment.IntentResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) VerifySignature(payload []byte, signature string) bool {
	args := m.Called(payload, signature)
	return args.Bool(0)
}

// Mock EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendInvitationEmail(ctx context.Context, data types.EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

package order

import (
	"context"
	"sync"
	"time"

	"github.com/coursepay/server/internal/infra/events"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- Mock implementations ---

type MockOrderDB struct {
	mock.Mock
}

func (m *MockOrderDB) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderDB) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderDB) FindByIDForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderDB) FindByFilter(ctx context.Context, filter *model.OrderFilter) ([]*model.Order, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderDB) FindUnsettled(ctx context.Context, afterID int64, limit int) ([]*model.Order, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderDB) FindByStatus(ctx context.Context, status model.RawStatus, afterID int64, limit int) ([]*model.Order, error) {
	args := m.Called(ctx, status, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderDB) Update(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderDB) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockRefundDB struct {
	mock.Mock
}

func (m *MockRefundDB) Create(ctx context.Context, refund *model.Refund) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *MockRefundDB) FindByID(ctx context.Context, id int64) (*model.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Refund), args.Error(1)
}

func (m *MockRefundDB) FindByOrderID(ctx context.Context, orderID int64) ([]*model.Refund, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Refund), args.Error(1)
}

func (m *MockRefundDB) FindUnsettledCredits(ctx context.Context, afterID int64, limit int) ([]*model.Refund, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Refund), args.Error(1)
}

func (m *MockRefundDB) Update(ctx context.Context, refund *model.Refund) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *MockRefundDB) DeleteByOrderID(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockGrants struct {
	mock.Mock
}

func (m *MockGrants) Grant(ctx context.Context, courseID, userID uuid.UUID, orderID int64) error {
	args := m.Called(ctx, courseID, userID, orderID)
	return args.Error(0)
}

func (m *MockGrants) Revoke(ctx context.Context, courseID, userID uuid.UUID) error {
	args := m.Called(ctx, courseID, userID)
	return args.Error(0)
}

func (m *MockGrants) HasAccess(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, courseID, userID)
	return args.Bool(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string {
	return "mock"
}

func (m *MockGateway) Process(ctx context.Context, req *model.GatewayRequest) (*model.GatewayResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayResult), args.Error(1)
}

func (m *MockGateway) Settled(ctx context.Context, txn *model.GatewayTransaction) (bool, error) {
	args := m.Called(ctx, txn)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) Expired(ctx context.Context, txn *model.GatewayTransaction) (bool, error) {
	args := m.Called(ctx, txn)
	return args.Bool(0), args.Error(1)
}

type MockAlerts struct {
	mock.Mock
}

func (m *MockAlerts) Raise(ctx context.Context, incident *model.ReconciliationIncident) error {
	args := m.Called(ctx, incident)
	return args.Error(0)
}

// fakeStore serves the same mocks inside and outside a transaction.
type fakeStore struct {
	orders  *MockOrderDB
	refunds *MockRefundDB
	grants  *MockGrants
}

func (s *fakeStore) Orders() outbound.OrderDatabasePort { return s.orders }
func (s *fakeStore) Refunds() outbound.RefundDatabasePort { return s.refunds }
func (s *fakeStore) Grants() outbound.ResourceAccessPort { return s.grants }

// fakeUnitOfWork runs fn directly. commitErr simulates a failing commit.
type fakeUnitOfWork struct {
	store     *fakeStore
	commitErr error
	calls     int
}

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(store outbound.OrderStore) error) error {
	u.calls++
	if err := fn(u.store); err != nil {
		return err
	}
	return u.commitErr
}

// memoryTokens is an in-process confirmation token store.
type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]*model.ConfirmationIntent
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[string]*model.ConfirmationIntent)}
}

func (s *memoryTokens) Issue(_ context.Context, token string, intent *model.ConfirmationIntent, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = intent
	return nil
}

func (s *memoryTokens) Consume(_ context.Context, token string) (*model.ConfirmationIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	delete(s.tokens, token)
	return intent, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

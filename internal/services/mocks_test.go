package services_test

import (
	"context"
	"time"

	"tokoorders/internal/models"
	"tokoorders/internal/repositories"
	"tokoorders/pkg/rabbitmq"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockStore runs the unit of work against MockTx. The first return value of
// the WithinTx expectation fails the begin, the second the commit.
type MockStore struct {
	mock.Mock
	tx *MockTx
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(tx repositories.Tx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	if err := fn(m.tx); err != nil {
		return err
	}
	return args.Error(1)
}

// MockTx implements both the ledger and the order writer.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Ledger() repositories.InventoryLedger { return m }
func (m *MockTx) Orders() repositories.OrderWriter     { return m }

func (m *MockTx) LockAndRead(ctx context.Context, productID int64) (models.StockSnapshot, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(models.StockSnapshot), args.Error(1)
}

func (m *MockTx) Decrement(ctx context.Context, productID int64, quantity int, at time.Time) (int64, error) {
	args := m.Called(ctx, productID, quantity, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) InsertOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockTx) InsertItem(ctx context.Context, item *models.OrderItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockTx) SetTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	args := m.Called(ctx, orderID, total)
	return args.Error(0)
}

func (m *MockTx) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus, from []models.OrderStatus, at time.Time) (int64, error) {
	args := m.Called(ctx, orderID, status, from, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) CurrentStatus(ctx context.Context, orderID int64) (models.OrderStatus, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(models.OrderStatus), args.Error(1)
}

func (m *MockTx) DeleteItems(ctx context.Context, orderID int64) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) DeleteOrder(ctx context.Context, orderID int64) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher is a mock implementation of services.EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, routingKey string, env rabbitmq.Envelope) error {
	args := m.Called(ctx, routingKey, env)
	return args.Error(0)
}

func newMockStore() (*MockStore, *MockTx) {
	tx := new(MockTx)
	return &MockStore{tx: tx}, tx
}

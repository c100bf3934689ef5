package application_test

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/pkg/txutil"
)

// testBody is a minimal but well-formed tx body,
// {0: [[h'ABCD', 0]], 1: [], 2: 170000}.
var testBody = []byte{
	0xa3,
	0x00, 0x81, 0x82, 0x42, 0xab, 0xcd, 0x00,
	0x01, 0x80,
	0x02, 0x1a, 0x00, 0x02, 0x98, 0x10,
}

func newUnsignedTxHex() string {
	tx := []byte{0x82}
	tx = append(tx, testBody...)
	tx = append(tx, 0xa0)
	return hex.EncodeToString(tx)
}

func newSignedTxHex(body []byte) string {
	tx, _ := txutil.AssembleTx(body, make([]byte, 32), make([]byte, 64))
	return hex.EncodeToString(tx)
}

type mockWallet struct {
	name    string
	enabled bool
	signFn  func(ctx context.Context, unsignedTxHex string) (string, error)

	lock  sync.Mutex
	calls int
}

func newSigningWallet(name string) *mockWallet {
	return &mockWallet{
		name:    name,
		enabled: true,
		signFn: func(_ context.Context, _ string) (string, error) {
			return newSignedTxHex(testBody), nil
		},
	}
}

func newFailingWallet(name string) *mockWallet {
	return &mockWallet{
		name:    name,
		enabled: true,
		signFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("user declined signature")
		},
	}
}

func (m *mockWallet) Name() string { return m.name }

func (m *mockWallet) IsEnabled(_ context.Context) (bool, error) {
	return m.enabled, nil
}

func (m *mockWallet) Address(_ context.Context) (string, error) {
	return "addr1" + m.name, nil
}

func (m *mockWallet) SignTx(
	ctx context.Context, unsignedTxHex string,
) (string, error) {
	m.lock.Lock()
	m.calls++
	m.lock.Unlock()
	return m.signFn(ctx, unsignedTxHex)
}

func (m *mockWallet) signCalls() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.calls
}

type mockTradingService struct {
	openFn   func(ctx context.Context, req *domain.OpenPositionRequest) (*domain.UnsignedTransaction, error)
	marketFn func(ctx context.Context) (*domain.MarketSnapshot, error)

	lock      sync.Mutex
	openCalls int
}

func (m *mockTradingService) OpenPosition(
	ctx context.Context, req *domain.OpenPositionRequest,
) (*domain.UnsignedTransaction, error) {
	m.lock.Lock()
	m.openCalls++
	m.lock.Unlock()
	return m.openFn(ctx, req)
}

func (m *mockTradingService) GetMarketInfo(
	ctx context.Context,
) (*domain.MarketSnapshot, error) {
	if m.marketFn == nil {
		return &domain.MarketSnapshot{}, nil
	}
	return m.marketFn(ctx)
}

type mockSubmitter struct {
	submitFn func(ctx context.Context, tx domain.SignedTransaction) (domain.SubmissionResult, error)

	lock  sync.Mutex
	calls int
}

func (m *mockSubmitter) Submit(
	ctx context.Context, tx domain.SignedTransaction,
) (domain.SubmissionResult, error) {
	m.lock.Lock()
	m.calls++
	m.lock.Unlock()
	return m.submitFn(ctx, tx)
}

type inMemoryOrderRepository struct {
	lock   sync.Mutex
	orders map[string]*domain.PositionOrder
}

func newInMemoryOrderRepository() *inMemoryOrderRepository {
	return &inMemoryOrderRepository{orders: make(map[string]*domain.PositionOrder)}
}

func (r *inMemoryOrderRepository) AddOrder(
	_ context.Context, order *domain.PositionOrder,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.orders[order.Id] = order
	return nil
}

func (r *inMemoryOrderRepository) UpdateOrder(
	_ context.Context,
	id string,
	updateFn func(order *domain.PositionOrder) (*domain.PositionOrder, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return errors.New("order not found")
	}
	updated, err := updateFn(order)
	if err != nil {
		return err
	}
	r.orders[id] = updated
	return nil
}

func (r *inMemoryOrderRepository) GetOrder(
	_ context.Context, id string,
) (*domain.PositionOrder, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	return order, nil
}

func (r *inMemoryOrderRepository) GetAllOrders(
	_ context.Context,
) ([]*domain.PositionOrder, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	orders := make([]*domain.PositionOrder, 0, len(r.orders))
	for _, o := range r.orders {
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *inMemoryOrderRepository) GetOrderByTxHash(
	_ context.Context, txHash string,
) (*domain.PositionOrder, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, o := range r.orders {
		if o.TxHash == txHash {
			return o, nil
		}
	}
	return nil, errors.New("order not found")
}

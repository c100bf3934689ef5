package dbbadger

import (
	"context"
	"errors"

	"github.com/timshannon/badgerhold/v4"

	"github.com/perplabs/perp-agent/internal/core/domain"
)

var (
	// ErrOrderNotFound ...
	ErrOrderNotFound = errors.New("order not found")
)

type orderRepositoryImpl struct {
	db *DbManager
}

// NewOrderRepositoryImpl returns a badgerhold-backed domain.OrderRepository.
func NewOrderRepositoryImpl(db *DbManager) domain.OrderRepository {
	return orderRepositoryImpl{db: db}
}

func (r orderRepositoryImpl) AddOrder(
	_ context.Context, order *domain.PositionOrder,
) error {
	return r.db.Store.Insert(order.Id, *order)
}

func (r orderRepositoryImpl) UpdateOrder(
	ctx context.Context,
	id string,
	updateFn func(order *domain.PositionOrder) (*domain.PositionOrder, error),
) error {
	order, err := r.getOrder(id)
	if err != nil {
		return err
	}

	updated, err := updateFn(order)
	if err != nil {
		return err
	}

	return r.db.Store.Update(id, *updated)
}

func (r orderRepositoryImpl) GetOrder(
	_ context.Context, id string,
) (*domain.PositionOrder, error) {
	return r.getOrder(id)
}

func (r orderRepositoryImpl) GetAllOrders(
	_ context.Context,
) ([]*domain.PositionOrder, error) {
	var orders []domain.PositionOrder
	query := (&badgerhold.Query{}).SortBy("CreatedAt").Reverse()
	if err := r.db.Store.Find(&orders, query); err != nil {
		return nil, err
	}

	list := make([]*domain.PositionOrder, 0, len(orders))
	for i := range orders {
		list = append(list, &orders[i])
	}
	return list, nil
}

func (r orderRepositoryImpl) GetOrderByTxHash(
	_ context.Context, txHash string,
) (*domain.PositionOrder, error) {
	var orders []domain.PositionOrder
	query := badgerhold.Where("TxHash").Eq(txHash)
	if err := r.db.Store.Find(&orders, query); err != nil {
		return nil, err
	}
	if len(orders) <= 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

func (r orderRepositoryImpl) getOrder(id string) (*domain.PositionOrder, error) {
	var order domain.PositionOrder
	if err := r.db.Store.Get(id, &order); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

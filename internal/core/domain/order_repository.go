package domain

import "context"

// OrderRepository is the persistence boundary of the order journal.
type OrderRepository interface {
	AddOrder(ctx context.Context, order *PositionOrder) error
	UpdateOrder(
		ctx context.Context,
		id string,
		updateFn func(order *PositionOrder) (*PositionOrder, error),
	) error
	GetOrder(ctx context.Context, id string) (*PositionOrder, error)
	GetAllOrders(ctx context.Context) ([]*PositionOrder, error)
	GetOrderByTxHash(ctx context.Context, txHash string) (*PositionOrder, error)
}

package ports

import (
	"context"

	"github.com/perplabs/perp-agent/internal/core/domain"
)

// TradingService is the client boundary of the external trading API.
type TradingService interface {
	// OpenPosition asks the trading service to build the unsigned
	// transaction opening the requested position. Not idempotent, never
	// retried automatically.
	OpenPosition(
		ctx context.Context, req *domain.OpenPositionRequest,
	) (*domain.UnsignedTransaction, error)
	// GetMarketInfo returns the current market state. Read-only, safe to
	// retry.
	GetMarketInfo(ctx context.Context) (*domain.MarketSnapshot, error)
}

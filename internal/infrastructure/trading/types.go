package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/perplabs/perp-agent/internal/core/domain"
)

type openPositionReply struct {
	Cbor            string   `json:"cbor"`
	Fee             uint64   `json:"fee"`
	Inputs          []string `json:"inputs"`
	OutputAddresses []string `json:"outputAddresses"`
	Error           string   `json:"error"`
}

func (r openPositionReply) toDomain() *domain.UnsignedTransaction {
	return &domain.UnsignedTransaction{
		CborHex:         r.Cbor,
		Fee:             r.Fee,
		Inputs:          r.Inputs,
		OutputAddresses: r.OutputAddresses,
		CreatedAt:       time.Now(),
	}
}

type marketInfoReply struct {
	Ticker      string          `json:"ticker"`
	MarkPrice   decimal.Decimal `json:"markPrice"`
	MaxLeverage int             `json:"maxLeverage"`
	UpdatedAt   int64           `json:"updatedAt"`
}

func (r marketInfoReply) toDomain() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Ticker:      r.Ticker,
		MarkPrice:   r.MarkPrice,
		MaxLeverage: r.MaxLeverage,
		UpdatedAt:   time.Unix(r.UpdatedAt, 0),
	}
}

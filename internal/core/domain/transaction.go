package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnsignedTransaction is the opaque CBOR payload returned by the trading
// service along with the metadata needed to judge its freshness. It is owned
// transiently by the pipeline and never persisted.
type UnsignedTransaction struct {
	CborHex         string
	Fee             uint64
	Inputs          []string
	OutputAddresses []string
	CreatedAt       time.Time
}

// IsStale returns whether the payload's fee or input set may have gone stale
// and a fresh transaction must be requested before signing.
func (t UnsignedTransaction) IsStale(ttl time.Duration) bool {
	return ttl > 0 && time.Since(t.CreatedAt) > ttl
}

// SignedTransaction is the CBOR payload ready for network submission,
// annotated with the wallet that produced it.
type SignedTransaction struct {
	CborHex string
	Wallet  string
}

// SubmissionResult is the outcome of submitting a signed transaction.
type SubmissionResult struct {
	Success   bool
	TxHash    string
	ErrorKind string
}

// MarketSnapshot is the read-only market state returned by the trading
// service's health endpoint.
type MarketSnapshot struct {
	Ticker      string
	MarkPrice   decimal.Decimal
	MaxLeverage int
	UpdatedAt   time.Time
}

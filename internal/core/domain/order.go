package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the different statuses that a position order can
// assume.
type OrderStatus struct {
	Code   int
	Failed bool
}

// PositionOrder is the entity tracking one trade intent through the pipeline.
// Transaction payloads never live here, only their metadata, so the order can
// be journaled without persisting signable bytes.
type PositionOrder struct {
	Id               string
	Side             string
	CollateralAmount string
	Leverage         int
	AssetTicker      string
	AccountAddress   string
	Status           OrderStatus
	FailedStage      string
	FailureReason    string
	BodyHash         string
	Wallet           string
	TxHash           string
	CreatedAt        int64
	UpdatedAt        int64
}

// NewPositionOrder returns an order with a new id and Undefined status,
// derived from an already validated intent.
func NewPositionOrder(intent TradeIntent) *PositionOrder {
	now := time.Now().Unix()
	return &PositionOrder{
		Id:               uuid.New().String(),
		Side:             intent.Side,
		CollateralAmount: intent.CollateralAmount.String(),
		Leverage:         intent.Leverage,
		AssetTicker:      intent.Asset.Ticker(),
		AccountAddress:   intent.AccountAddress,
		Status:           OrderStatus{Code: OrderStatusCodeUndefined},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Request brings the order to the Requested status once the trading service
// has returned an unsigned transaction, retaining only its body hash. Calling
// it again while still in Requested status refreshes the hash, which happens
// when a stale unsigned transaction is requested anew.
func (o *PositionOrder) Request(bodyHash string) {
	if o.Status.Code > OrderStatusCodeRequested {
		return
	}
	o.BodyHash = bodyHash
	o.Status.Code = OrderStatusCodeRequested
	o.UpdatedAt = time.Now().Unix()
}

// Sign brings the order from the Requested to the Signed status.
func (o *PositionOrder) Sign(wallet string) error {
	if o.Status.Code >= OrderStatusCodeSigned {
		return nil
	}
	if o.Status.Code != OrderStatusCodeRequested || o.Status.Failed {
		return ErrOrderMustBeRequested
	}
	o.Wallet = wallet
	o.Status.Code = OrderStatusCodeSigned
	o.UpdatedAt = time.Now().Unix()
	return nil
}

// Submit brings the order from the Signed to the Submitted status and records
// the transaction hash assigned by the network.
func (o *PositionOrder) Submit(txHash string) error {
	if o.Status.Code >= OrderStatusCodeSubmitted {
		return nil
	}
	if o.Status.Code != OrderStatusCodeSigned || o.Status.Failed {
		return ErrOrderMustBeSigned
	}
	o.TxHash = txHash
	o.Status.Code = OrderStatusCodeSubmitted
	o.UpdatedAt = time.Now().Unix()
	return nil
}

// Fail marks the order as failed at the given pipeline stage.
func (o *PositionOrder) Fail(stage string, reason error) {
	if o.Status.Failed {
		return
	}
	o.FailedStage = stage
	o.FailureReason = reason.Error()
	o.Status.Failed = true
	o.UpdatedAt = time.Now().Unix()
}

// Abandon marks an order cancelled while a signature request was in flight.
// An abandoned order is not failed: the wallet may still resolve, so the
// pipeline must never resubmit under the same order.
func (o *PositionOrder) Abandon() {
	if o.Status.Code >= OrderStatusCodeSubmitted {
		return
	}
	o.Status.Code = OrderStatusCodeAbandoned
	o.UpdatedAt = time.Now().Unix()
}

// IsRequested returns whether the order is in Requested status.
func (o *PositionOrder) IsRequested() bool {
	return o.Status.Code == OrderStatusCodeRequested
}

// IsSigned returns whether the order is in Signed status.
func (o *PositionOrder) IsSigned() bool {
	return o.Status.Code == OrderStatusCodeSigned
}

// IsSubmitted returns whether the order is in Submitted status.
func (o *PositionOrder) IsSubmitted() bool {
	return o.Status.Code == OrderStatusCodeSubmitted
}

// IsAbandoned returns whether the order was cancelled mid-signing.
func (o *PositionOrder) IsAbandoned() bool {
	return o.Status.Code == OrderStatusCodeAbandoned
}

// IsFailed returns whether the order has failed.
func (o *PositionOrder) IsFailed() bool {
	return o.Status.Failed
}

// StatusString returns a human readable form of the order status.
func (o *PositionOrder) StatusString() string {
	if o.Status.Failed {
		return "failed"
	}
	switch o.Status.Code {
	case OrderStatusCodeRequested:
		return "requested"
	case OrderStatusCodeSigned:
		return "signed"
	case OrderStatusCodeSubmitted:
		return "submitted"
	case OrderStatusCodeAbandoned:
		return "abandoned"
	default:
		return "undefined"
	}
}

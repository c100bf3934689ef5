package domain

const (
	// OrderStatusCodeUndefined ...
	OrderStatusCodeUndefined = iota
	// OrderStatusCodeRequested is the status of an order whose unsigned
	// transaction has been returned by the trading service.
	OrderStatusCodeRequested
	// OrderStatusCodeSigned is the status of an order whose unsigned
	// transaction has been signed by a wallet provider.
	OrderStatusCodeSigned
	// OrderStatusCodeSubmitted is the status of an order whose signed
	// transaction has been accepted by the network.
	OrderStatusCodeSubmitted
	// OrderStatusCodeAbandoned is the status of an order cancelled while a
	// signature request was already dispatched to a wallet. It is distinct
	// from failed so that a late wallet resolution is never double-submitted.
	OrderStatusCodeAbandoned
)

const (
	// SideLong ...
	SideLong = "Long"
	// SideShort ...
	SideShort = "Short"
)

const (
	// NativeAssetTicker is the ticker the trading API expects for the native
	// settlement token, identified by the empty policyId/assetName pair.
	NativeAssetTicker = "ADA"

	// MinLeverage ...
	MinLeverage = 1
)

// Pipeline stage names, recorded on failed orders so that a caller knows
// whether to restart from the intent or from the unsigned-transaction stage.
// Intent validation failures never produce an order, so no stage exists for
// them.
const (
	StageRequest = "request"
	StageSign    = "sign"
	StageSubmit  = "submit"
)

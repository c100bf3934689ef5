package domain

import (
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// Asset identifies the collateral token. The empty pair is the sentinel for
// the native settlement token.
type Asset struct {
	PolicyID  string
	AssetName string
}

// IsNative returns whether the asset is the native settlement token.
func (a Asset) IsNative() bool {
	return a.PolicyID == "" && a.AssetName == ""
}

// Ticker returns the ticker symbol the trading API expects for the asset.
func (a Asset) Ticker() string {
	if a.IsNative() {
		return NativeAssetTicker
	}
	return a.AssetName
}

func (a Asset) validate() error {
	if a.IsNative() {
		return nil
	}
	if a.PolicyID == "" || a.AssetName == "" {
		return ErrInvalidAsset
	}
	if _, err := hex.DecodeString(a.PolicyID); err != nil {
		return ErrInvalidAsset
	}
	return nil
}

// TradeIntent is the immutable description of the position a user wants to
// open, produced from user input and validated before anything touches the
// network.
type TradeIntent struct {
	Side             string
	CollateralAmount decimal.Decimal
	Leverage         int
	Asset            Asset
	AccountAddress   string
}

// Validate returns the first violated constraint of the intent, if any.
func (i TradeIntent) Validate(maxLeverage int) error {
	if i.Side != SideLong && i.Side != SideShort {
		return ErrInvalidSide
	}
	if !i.CollateralAmount.IsPositive() {
		return ErrInvalidCollateralAmount
	}
	if i.Leverage < MinLeverage || i.Leverage > maxLeverage {
		return ErrInvalidLeverage
	}
	if err := i.Asset.validate(); err != nil {
		return err
	}
	if len(i.AccountAddress) <= 0 {
		return ErrNullAddress
	}
	return nil
}

// AssetRequest is the wire form of an asset pair.
type AssetRequest struct {
	PolicyID  string `json:"policyId"`
	AssetName string `json:"assetName"`
}

// OpenPositionRequest matches the open-position schema of the external
// trading API.
type OpenPositionRequest struct {
	Address          string          `json:"address"`
	Asset            AssetRequest    `json:"asset"`
	AssetTicker      string          `json:"assetTicker"`
	CollateralAmount decimal.Decimal `json:"collateralAmount"`
	Leverage         int             `json:"leverage"`
	Position         string          `json:"position"`
}

// NewOpenPositionRequest validates the intent and transforms it into a
// request for the trading API. Pure, issues no network call.
func NewOpenPositionRequest(
	intent TradeIntent, maxLeverage int,
) (*OpenPositionRequest, error) {
	if err := intent.Validate(maxLeverage); err != nil {
		return nil, err
	}

	return &OpenPositionRequest{
		Address: intent.AccountAddress,
		Asset: AssetRequest{
			PolicyID:  intent.Asset.PolicyID,
			AssetName: intent.Asset.AssetName,
		},
		AssetTicker:      intent.Asset.Ticker(),
		CollateralAmount: intent.CollateralAmount,
		Leverage:         intent.Leverage,
		Position:         intent.Side,
	}, nil
}

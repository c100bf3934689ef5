package main

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/perplabs/perp-agent/internal/core/domain"
)

var openposition = cli.Command{
	Name:  "open",
	Usage: "open a leveraged perpetual position",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "side",
			Usage: "position side, either 'Long' or 'Short'",
			Value: domain.SideLong,
		},
		&cli.StringFlag{
			Name:     "collateral",
			Usage:    "collateral amount in the collateral asset's unit",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "leverage",
			Usage: "leverage multiplier applied to the collateral",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "policy_id",
			Usage: "policy id of the collateral token, empty for the native token",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "asset_name",
			Usage: "asset name of the collateral token, empty for the native token",
			Value: "",
		},
		&cli.StringFlag{
			Name:     "address",
			Usage:    "account address owning the collateral",
			Required: true,
		},
	},
	Action: openPositionAction,
}

func openPositionAction(ctx *cli.Context) error {
	collateral, err := decimal.NewFromString(ctx.String("collateral"))
	if err != nil {
		return err
	}

	svc, cleanup, err := getPositionService()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.OpenPosition(context.Background(), domain.TradeIntent{
		Side:             ctx.String("side"),
		CollateralAmount: collateral,
		Leverage:         ctx.Int("leverage"),
		Asset: domain.Asset{
			PolicyID:  ctx.String("policy_id"),
			AssetName: ctx.String("asset_name"),
		},
		AccountAddress: ctx.String("address"),
	})
	if err != nil {
		return err
	}

	return printRespJSON(map[string]string{
		"orderId": result.OrderID,
		"txHash":  result.TxHash,
		"wallet":  result.Wallet,
	})
}

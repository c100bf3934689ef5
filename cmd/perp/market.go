package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

var marketinfo = cli.Command{
	Name:   "market",
	Usage:  "fetch the current market state from the trading service",
	Action: marketInfoAction,
}

func marketInfoAction(ctx *cli.Context) error {
	svc, cleanup, err := getPositionService()
	if err != nil {
		return err
	}
	defer cleanup()

	snapshot, err := svc.GetMarketInfo(context.Background())
	if err != nil {
		return err
	}

	return printRespJSON(map[string]interface{}{
		"ticker":      snapshot.Ticker,
		"markPrice":   snapshot.MarkPrice.String(),
		"maxLeverage": snapshot.MaxLeverage,
		"updatedAt":   snapshot.UpdatedAt.Unix(),
	})
}

package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/perplabs/perp-agent/internal/core/domain"
)

var listorders = cli.Command{
	Name:   "orders",
	Usage:  "list the journaled position orders, most recent first",
	Action: listOrdersAction,
}

func listOrdersAction(ctx *cli.Context) error {
	svc, cleanup, err := getPositionService()
	if err != nil {
		return err
	}
	defer cleanup()

	orders, err := svc.ListOrders(context.Background())
	if err != nil {
		return err
	}

	list := make([]map[string]interface{}, 0, len(orders))
	for _, order := range orders {
		list = append(list, orderToJSON(order))
	}
	return printRespJSON(list)
}

func orderToJSON(order *domain.PositionOrder) map[string]interface{} {
	entry := map[string]interface{}{
		"id":         order.Id,
		"side":       order.Side,
		"collateral": order.CollateralAmount,
		"leverage":   order.Leverage,
		"asset":      order.AssetTicker,
		"status":     order.StatusString(),
		"createdAt":  order.CreatedAt,
	}
	if len(order.TxHash) > 0 {
		entry["txHash"] = order.TxHash
	}
	if len(order.Wallet) > 0 {
		entry["wallet"] = order.Wallet
	}
	if order.IsFailed() {
		entry["failedStage"] = order.FailedStage
		entry["failureReason"] = order.FailureReason
	}
	return entry
}

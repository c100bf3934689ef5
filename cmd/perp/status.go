package main

import (
	"context"
	"sync"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/perplabs/perp-agent/config"
	"github.com/perplabs/perp-agent/internal/infrastructure/trading"
)

var status = cli.Command{
	Name:   "status",
	Usage:  "probe the trading service and every configured wallet variant",
	Action: statusAction,
}

func statusAction(ctx *cli.Context) error {
	probeCtx, cancel := context.WithTimeout(
		context.Background(), config.GetDuration(config.RequestTimeoutKey),
	)
	defer cancel()

	tradingSvc, err := trading.NewService(
		config.GetString(config.TradingEndpointKey),
		config.GetString(config.TradingApiKeyKey),
		config.GetDuration(config.RequestTimeoutKey),
	)
	if err != nil {
		return err
	}

	providers, err := getWalletProviders()
	if err != nil {
		return err
	}

	var lock sync.Mutex
	report := map[string]interface{}{
		"probedAt": time.Now().Unix(),
	}
	wallets := map[string]bool{}

	// probes are independent and side-effect free, run them all at once;
	// a failing probe is a finding, not an error
	g, gctx := errgroup.WithContext(probeCtx)
	g.Go(func() error {
		_, err := tradingSvc.GetMarketInfo(gctx)
		lock.Lock()
		report["tradingService"] = err == nil
		if err != nil {
			report["tradingServiceError"] = err.Error()
		}
		lock.Unlock()
		return nil
	})
	for i := range providers {
		provider := providers[i]
		g.Go(func() error {
			enabled, err := provider.IsEnabled(gctx)
			lock.Lock()
			wallets[provider.Name()] = err == nil && enabled
			lock.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report["wallets"] = wallets
	return printRespJSON(report)
}

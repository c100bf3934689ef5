package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/perplabs/perp-agent/config"
	"github.com/perplabs/perp-agent/internal/core/application"
	"github.com/perplabs/perp-agent/internal/core/domain"
	"github.com/perplabs/perp-agent/internal/core/ports"
	dbbadger "github.com/perplabs/perp-agent/internal/infrastructure/storage/badger"
	"github.com/perplabs/perp-agent/internal/infrastructure/submitter"
	"github.com/perplabs/perp-agent/internal/infrastructure/trading"
	"github.com/perplabs/perp-agent/internal/infrastructure/wallet/bridge"
	"github.com/perplabs/perp-agent/internal/infrastructure/wallet/software"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	app := cli.NewApp()
	app.Version = "0.1.0"
	app.Name = "perp CLI"
	app.Usage = "open leveraged perpetual positions through a browser wallet bridge"
	app.Commands = append(
		app.Commands,
		&openposition,
		&marketinfo,
		&status,
		&listorders,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "[perp] error:", err)
	os.Exit(1)
}

func getWalletProviders() ([]ports.WalletProvider, error) {
	bridgeURL := config.GetString(config.WalletBridgeEndpointKey)
	signTimeout := config.GetDuration(config.SignTimeoutKey)

	providers := make([]ports.WalletProvider, 0)
	for _, variant := range config.GetWallets() {
		// the "software" variant signs in-process with a throwaway key, it
		// exists for development against a bridge-less environment
		if variant == "software" {
			wallet, err := software.NewRandomWallet()
			if err != nil {
				return nil, err
			}
			providers = append(providers, wallet)
			continue
		}
		provider, err := bridge.NewWalletProvider(bridgeURL, variant, signTimeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func getPositionService() (*application.PositionService, func(), error) {
	cleanup := func() {}

	tradingSvc, err := trading.NewService(
		config.GetString(config.TradingEndpointKey),
		config.GetString(config.TradingApiKeyKey),
		config.GetDuration(config.RequestTimeoutKey),
	)
	if err != nil {
		return nil, nil, err
	}

	submitterSvc, err := submitter.NewService(
		config.GetString(config.SubmitEndpointKey),
		config.GetDuration(config.RequestTimeoutKey),
	)
	if err != nil {
		return nil, nil, err
	}

	providers, err := getWalletProviders()
	if err != nil {
		return nil, nil, err
	}

	signer, err := application.NewSigningCoordinator(
		providers,
		config.GetInt(config.SigningAttemptsKey),
		config.GetDuration(config.SignTimeoutKey),
		config.GetDuration(config.UnsignedTxTTLKey),
	)
	if err != nil {
		return nil, nil, err
	}

	var repo domain.OrderRepository
	journalPath, err := config.GetJournalPath()
	if err != nil {
		return nil, nil, err
	}
	if len(journalPath) > 0 {
		db, err := dbbadger.NewDbManager(journalPath, nil)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { db.Close() }
		repo = dbbadger.NewOrderRepositoryImpl(db)
	}

	svc, err := application.NewPositionService(application.PositionServiceOpts{
		TradingService:  tradingSvc,
		Signer:          signer,
		Submitter:       submitterSvc,
		OrderRepository: repo,
		MaxLeverage:     config.GetInt(config.MaxLeverageKey),
		UnsignedTxTTL:   config.GetDuration(config.UnsignedTxTTLKey),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return svc, cleanup, nil
}

func printRespJSON(v interface{}) error {
	resp, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(resp))
	return nil
}

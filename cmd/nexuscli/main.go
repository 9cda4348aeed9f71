package main

import (
	"context"
	"math/big"
	"os"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/sirupsen/logrus"

	nexus "github.com/availproject/nexus-sdk-sub001"
	"github.com/availproject/nexus-sdk-sub001/internal/graceful"
	"github.com/availproject/nexus-sdk-sub001/internal/registry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := newConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	sdClient, err := statsd.New(cfg.DataDog.Host + ":" + cfg.DataDog.Port)
	if err != nil {
		logger.Fatalf("failed to initialize StatsD client: %v", err)
	}

	reg := registry.Mainnet()
	home := reg.Networks()[0].ID
	provider, err := newKeyProvider(cfg.PrivateKey, reg, home)
	if err != nil {
		logger.Fatalf("failed to initialize wallet: %v", err)
	}

	sdk := nexus.New(provider, nil, nexus.Config{
		RelayURL:    cfg.Relay.URL,
		TronNodeURL: cfg.Tron.NodeURL,
		GasBuffer:   true,
		Logger:      logger,
	})

	if cfg.Execute.Amount != "" {
		if err := runSettlement(ctx, sdk, sdClient, logger, cfg.Execute); err != nil {
			logger.Fatalf("settlement failed: %v", err)
		}
	}

	go watchBalances(ctx, sdk, sdClient, logger, cfg.Watch.Interval)

	<-graceful.MakeSigintChan()
	logger.Info("shutting down")
	cancel()
}

// runSettlement executes one settlement from the env-configured request.
func runSettlement(ctx context.Context, sdk *nexus.SDK, sd *statsd.Client, logger *logrus.Logger, cfg executeConfig) error {
	amount, ok := new(big.Int).SetString(cfg.Amount, 10)
	if !ok {
		logger.Fatalf("invalid EXECUTE_AMOUNT: %s", cfg.Amount)
	}

	res, err := sdk.Execute(ctx, nexus.BuildRequest{
		NetworkID: cfg.NetworkID,
		Symbol:    cfg.Symbol,
		Amount:    amount,
		Recipient: cfg.Recipient,
	}, nexus.Hooks{
		OnStep: func(e nexus.StepEvent) {
			if e.Completed != "" {
				logger.WithField("step", e.Completed).Info("milestone completed")
			}
		},
	})
	if err != nil {
		return err
	}

	_ = sd.Incr("settlements.executed", []string{"network:" + cfg.Symbol}, 1)
	logger.WithFields(logrus.Fields{
		"hash":      res.RequestHash,
		"confirmed": res.Confirmed,
		"explorer":  res.ExplorerURL,
	}).Info("settlement executed")
	return nil
}

// watchBalances logs the unified balance view on an interval.
func watchBalances(ctx context.Context, sdk *nexus.SDK, sd *statsd.Client, logger *logrus.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			assets, err := sdk.GetUnifiedBalances(ctx)
			if err != nil {
				logger.WithError(err).Error("failed to fetch unified balances")
				continue
			}
			for _, a := range assets {
				total := a.Total()
				logger.WithFields(logrus.Fields{
					"symbol": a.Symbol,
					"total":  total.String(),
				}).Info("unified balance")

				f, _ := new(big.Float).SetInt(total).Float64()
				_ = sd.Gauge("balances.total", f, []string{"symbol:" + a.Symbol}, 1)
			}
		}
	}
}

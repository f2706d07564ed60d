package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/chain"
	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/flashloan"
	"github.com/michaelpento.lv/cwflash/server"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
	"github.com/michaelpento.lv/cwflash/utils/monitor"
	"github.com/michaelpento.lv/cwflash/wallet"
)

// App wires the chain client, contract state, wallet and loan manager
// together for the CLI and the dashboard.
type App struct {
	Config     *config.Config
	Registry   *prometheus.Registry
	Provider   *chain.Provider
	Generation *contract.Generation
	Store      *contract.Store
	Wallet     *wallet.Manager
	Loans      *flashloan.Manager
	Runtime    *monitor.RuntimeMonitor
	logger     *zap.Logger
}

// New builds the application. Nothing touches the network until the first
// chain read.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	registry := metrics.NewRegistry()
	chainMetrics := metrics.NewChainMetrics(registry)
	stateMetrics := metrics.NewStateMetrics(registry)

	provider := chain.NewProvider(func(ctx context.Context) (chain.Client, error) {
		client, err := chain.DialRPC(ctx, cfg.Chain.RPCEndpoint, cfg.RPC, logger.Named("chain"), chainMetrics)
		if err != nil {
			return nil, err
		}
		return client, nil
	}, logger)

	gen := contract.NewGeneration(stateMetrics)
	store, err := contract.NewStore(provider, gen, cfg.Chain, cfg.Cache, logger.Named("state"), stateMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract store: %w", err)
	}

	walletManager := wallet.NewManager(cfg.Wallet, cfg.Chain, logger.Named("wallet"))
	loans := flashloan.NewManager(cfg.Chain, flashloan.UnimplementedExecutor{}, gen, logger.Named("loan"), metrics.NewLoanMetrics(registry))

	return &App{
		Config:     cfg,
		Registry:   registry,
		Provider:   provider,
		Generation: gen,
		Store:      store,
		Wallet:     walletManager,
		Loans:      loans,
		Runtime:    monitor.NewRuntimeMonitor(registry, 15*time.Second, logger.Named("runtime")),
		logger:     logger,
	}, nil
}

// Start restores the remembered wallet connection. A failed reconnection
// leaves the wallet in the Errored state but does not stop the app.
func (a *App) Start(ctx context.Context) {
	if err := a.Wallet.Init(ctx); err != nil {
		a.logger.Warn("Wallet auto-connection failed", zap.Error(err))
	}
}

func (a *App) Server() (*server.Server, error) {
	return server.NewServer(server.Deps{
		Config:   a.Config,
		Store:    a.Store,
		Wallet:   a.Wallet,
		Loans:    a.Loans,
		Health:   a.Provider.Ping,
		Runtime:  a.Runtime,
		Gatherer: a.Registry,
		Metrics:  metrics.NewServerMetrics(a.Registry),
		Logger:   a.logger.Named("http"),
	})
}

func (a *App) Close() {
	a.Provider.Close()
}

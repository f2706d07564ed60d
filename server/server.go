package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/flashloan"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
	"github.com/michaelpento.lv/cwflash/utils/monitor"
	"github.com/michaelpento.lv/cwflash/wallet"
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps are the components the server is built from.
type Deps struct {
	Config   *config.Config
	Store    *contract.Store
	Wallet   *wallet.Manager
	Loans    *flashloan.Manager
	Health   func(context.Context) error
	Runtime  *monitor.RuntimeMonitor
	Gatherer prometheus.Gatherer
	Metrics  *metrics.ServerMetrics
	Logger   *zap.Logger
}

type Server struct {
	cfg        *config.Config
	store      *contract.Store
	wallet     *wallet.Manager
	loans      *flashloan.Manager
	healthFn   func(context.Context) error
	runtime    *monitor.RuntimeMonitor
	gatherer   prometheus.Gatherer
	metrics    *metrics.ServerMetrics
	logger     *zap.Logger
	sessions   *sessionStore
	hub        *hub
	tmpl       *template.Template
	handler    http.Handler
	httpServer *http.Server
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewServerMetrics(nil)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.NewRegistry()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	sessions, err := newSessionStore(deps.Config.Server.SessionCacheSize, deps.Config.Chain)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	s := &Server{
		cfg:      deps.Config,
		store:    deps.Store,
		wallet:   deps.Wallet,
		loans:    deps.Loans,
		healthFn: deps.Health,
		runtime:  deps.Runtime,
		gatherer: deps.Gatherer,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		sessions: sessions,
		tmpl:     tmpl,
	}
	s.hub = newHub(s.snapshot, deps.Store.Generation(), deps.Config.Server.PingInterval, deps.Logger, deps.Metrics)
	deps.Wallet.OnChange(func(wallet.ConnectionStatus) { s.hub.notify() })

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.instrument("index", s.handleIndex))
	mux.Handle("POST /loan", s.instrument("loan_form", s.handleLoanForm))
	mux.Handle("POST /wallet/connect", s.instrument("wallet_connect", s.handleWalletConnect))
	mux.Handle("POST /wallet/disconnect", s.instrument("wallet_disconnect", s.handleWalletDisconnect))
	mux.Handle("POST /api/v1/loan", s.instrument("loan", s.handleLoan))
	mux.Handle("GET /api/v1/state", s.instrument("state", s.handleState))
	mux.Handle("GET /api/v1/provided/{address}", s.instrument("provided", s.handleProvided))
	mux.Handle("GET /api/v1/balance/{address}", s.instrument("balance", s.handleBalance))
	mux.Handle("GET /api/v1/ws", s.instrument("ws", s.hub.serveWS))
	mux.Handle("GET /api/v1/metrics", metrics.Handler(deps.Gatherer))
	mux.Handle("GET /api/v1/health", s.instrument("health", s.handleHealth))
	s.handler = s.requestIDMiddleware(mux)

	s.httpServer = &http.Server{
		Addr:              deps.Config.Server.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Dashboard listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down dashboard")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func (s *Server) walletView() contract.WalletView {
	return contract.WalletView{
		Status:  s.wallet.Status().String(),
		Address: s.wallet.Address(),
	}
}

func (s *Server) snapshot() contract.Snapshot {
	return s.store.Snapshot(s.walletView())
}

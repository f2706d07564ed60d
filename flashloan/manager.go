package flashloan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/form"
	"github.com/michaelpento.lv/cwflash/ui"
	cwmath "github.com/michaelpento.lv/cwflash/utils/math"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

// Manager runs loan submissions from a form and keeps the state generation
// in step with them.
type Manager struct {
	chain    config.ChainConfig
	executor Executor
	gen      *contract.Generation
	logger   *zap.Logger
	metrics  *metrics.LoanMetrics
	stats    *tracker
}

func NewManager(chainCfg config.ChainConfig, executor Executor, gen *contract.Generation, logger *zap.Logger, m *metrics.LoanMetrics) *Manager {
	if executor == nil {
		executor = UnimplementedExecutor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewLoanMetrics(nil)
	}
	return &Manager{
		chain:    chainCfg,
		executor: executor,
		gen:      gen,
		logger:   logger,
		metrics:  m,
		stats:    newTracker(),
	}
}

// Stats reports how many loans reached the executor and from how many
// distinct wallets to how many distinct receivers.
func (m *Manager) Stats() Stats {
	return m.stats.stats()
}

// Submit validates the form and executes the loan. Validation failures only
// turn on the form errors. Once the executor has been called the form is
// reset and the generation bumped whatever the outcome.
func (m *Manager) Submit(ctx context.Context, f *form.Form, w Wallet, notifier ui.Notifier) (*Result, error) {
	if f.Invalid() {
		f.ShowErrors()
		m.metrics.Attempts.WithLabelValues("invalid").Inc()
		return nil, ErrValidation
	}

	client := w.SigningClient()
	address := w.Address()
	if client == nil || address == "" {
		notifier.Error(WalletNotConnectedMessage)
		m.metrics.Attempts.WithLabelValues("no_wallet").Inc()
		return nil, ErrWalletNotConnected
	}

	amount := f.Amount()
	micro, err := cwmath.FloatToMicro(amount, m.chain.DenomExponent)
	if err != nil {
		f.ShowErrors()
		m.metrics.Attempts.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if micro.Sign() <= 0 {
		f.ShowErrors()
		m.metrics.Attempts.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: amount rounds to %s", ErrValidation, micro)
	}
	req := LoanRequest{
		Contract: m.chain.ContractAddr,
		Sender:   address,
		Receiver: f.Receiver(),
		Amount:   micro,
	}

	if !f.BeginSubmit() {
		return nil, ErrInProgress
	}

	start := time.Now()
	m.metrics.Active.Inc()
	defer func() {
		m.metrics.Active.Dec()
		m.metrics.Latency.Observe(time.Since(start).Seconds())
		f.EndSubmit()
		gen := m.gen.Bump()
		m.logger.Debug("State generation bumped", zap.Int64("generation", gen))
	}()

	m.metrics.Total.Inc()
	m.metrics.Volume.Add(amount)
	m.stats.record(req)

	m.logger.Info("Executing loan",
		zap.String("contract", req.Contract),
		zap.String("sender", req.Sender),
		zap.String("receiver", req.Receiver),
		zap.String("amount", req.Amount.String()))

	res, err := m.executor.ExecuteLoan(ctx, client, req)
	if err != nil {
		m.metrics.Attempts.WithLabelValues("error").Inc()
		m.metrics.UpdateSuccessRate()
		notifier.Error(err.Error())
		m.logger.Warn("Loan execution failed", zap.Error(err))
		return nil, fmt.Errorf("failed to execute loan: %w", err)
	}

	m.metrics.Attempts.WithLabelValues("success").Inc()
	m.metrics.Successes.Inc()
	m.metrics.UpdateSuccessRate()
	notifier.Transaction(res.TxHash)
	m.logger.Info("Loan executed",
		zap.String("tx", res.TxHash),
		zap.String("url", ui.ExplorerURL(m.chain.ExplorerTxPrefix, res.TxHash)))
	return res, nil
}

package wallet

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/config"
)

// MnemonicWalletID identifies the mnemonic-backed wallet in the saved state.
const MnemonicWalletID = "mnemonic"

var ErrNotConnected = errors.New("wallet not connected")

// Manager owns the wallet connection and its status transitions.
type Manager struct {
	walletCfg config.WalletConfig
	chainCfg  config.ChainConfig
	logger    *zap.Logger

	mu        sync.RWMutex
	status    ConnectionStatus
	client    *SigningClient
	err       error
	listeners []func(ConnectionStatus)
}

func NewManager(walletCfg config.WalletConfig, chainCfg config.ChainConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		walletCfg: walletCfg,
		chainCfg:  chainCfg,
		logger:    logger,
		status:    Initializing,
	}
}

// Init restores a remembered connection. Without one the manager becomes
// ready for an explicit Connect.
func (m *Manager) Init(ctx context.Context) error {
	st, err := loadState(m.walletCfg.StatePath)
	if err != nil {
		m.fail(err)
		return err
	}
	if st.ConnectedWalletID != MnemonicWalletID {
		m.setStatus(ReadyForConnection)
		return nil
	}

	m.setStatus(AttemptingAutoConnection)
	m.logger.Info("Reconnecting remembered wallet")
	return m.connect(ctx)
}

func (m *Manager) Connect(ctx context.Context) error {
	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()
	if status == Connected {
		return nil
	}

	m.setStatus(Connecting)
	return m.connect(ctx)
}

func (m *Manager) connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		m.fail(err)
		return err
	}

	account, err := DeriveAccount(m.walletCfg.Mnemonic, m.chainCfg.AddressPrefix)
	if err != nil {
		m.fail(err)
		return err
	}
	gasPrice, err := ParseGasPrice(m.chainCfg.GasPrice)
	if err != nil {
		m.fail(err)
		return err
	}
	if err := saveState(m.walletCfg.StatePath, state{ConnectedWalletID: MnemonicWalletID}); err != nil {
		m.logger.Warn("Failed to remember wallet", zap.Error(err))
	}

	m.mu.Lock()
	m.client = NewSigningClient(account, m.chainCfg.ChainID, gasPrice)
	m.err = nil
	m.mu.Unlock()
	m.setStatus(Connected)

	m.logger.Info("Wallet connected",
		zap.String("address", account.Address),
		zap.String("chain_id", m.chainCfg.ChainID))
	return nil
}

// Disconnect drops the signing client and forgets the remembered wallet.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.setStatus(Resetting)

	m.mu.Lock()
	m.client = nil
	m.err = nil
	m.mu.Unlock()

	err := saveState(m.walletCfg.StatePath, state{})
	m.setStatus(ReadyForConnection)
	if err != nil {
		return err
	}
	m.logger.Info("Wallet disconnected")
	return nil
}

func (m *Manager) Status() ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Address is empty unless connected.
func (m *Manager) Address() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return ""
	}
	return m.client.Address()
}

// SigningClient is nil unless connected.
func (m *Manager) SigningClient() *SigningClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Error is the cause of the Errored status.
func (m *Manager) Error() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// OnChange registers fn to be called after every status transition.
func (m *Manager) OnChange(fn func(ConnectionStatus)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.client = nil
	m.err = err
	m.mu.Unlock()
	m.setStatus(Errored)
	m.logger.Error("Wallet connection failed", zap.Error(err))
}

func (m *Manager) setStatus(s ConnectionStatus) {
	m.mu.Lock()
	m.status = s
	listeners := append([]func(ConnectionStatus){}, m.listeners...)
	m.mu.Unlock()

	m.logger.Debug("Wallet status changed", zap.Stringer("status", s))
	for _, fn := range listeners {
		fn(s)
	}
}

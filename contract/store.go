package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/cwflash/chain"
	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/ui"
	cwmath "github.com/michaelpento.lv/cwflash/utils/math"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

// Store holds every derivation of the contract state. TVL, fee and provided
// amounts follow the Generation; block height and wallet balances expire by
// age.
type Store struct {
	provider *chain.Provider
	chain    config.ChainConfig
	gen      *Generation
	logger   *zap.Logger
	metrics  *metrics.StateMetrics

	tvl      *selector[*big.Int]
	fee      *selector[*big.Rat]
	height   *selector[int64]
	provided *family[*big.Int]
	balances *family[*big.Int]
}

func NewStore(provider *chain.Provider, gen *Generation, chainCfg config.ChainConfig, cacheCfg config.CacheConfig, logger *zap.Logger, m *metrics.StateMetrics) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewStateMetrics(nil)
	}

	s := &Store{
		provider: provider,
		chain:    chainCfg,
		gen:      gen,
		logger:   logger,
		metrics:  m,
	}

	s.tvl = newSelector("tvl", gen, 0, s.fetchTVL, logger, m)
	s.fee = newSelector("fee", gen, 0, s.fetchFee, logger, m)
	s.height = newSelector("block_height", nil, cacheCfg.HeightTTL, s.fetchHeight, logger, m)

	var err error
	s.provided, err = newFamily(cacheCfg.FamilySize, func(address string) *selector[*big.Int] {
		return newSelector("provided", gen, 0, func(ctx context.Context) (*big.Int, error) {
			return s.fetchProvided(ctx, address)
		}, logger, m)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provided cache: %w", err)
	}
	s.balances, err = newFamily(cacheCfg.FamilySize, func(address string) *selector[*big.Int] {
		return newSelector("native_balance", nil, cacheCfg.BalanceTTL, func(ctx context.Context) (*big.Int, error) {
			return s.fetchBalance(ctx, address)
		}, logger, m)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create balance cache: %w", err)
	}

	return s, nil
}

func (s *Store) Generation() *Generation {
	return s.gen
}

func (s *Store) Chain() config.ChainConfig {
	return s.chain
}

// TVL is the contract's balance in the fee denom, in the smallest unit.
func (s *Store) TVL(ctx context.Context) (*big.Int, error) {
	return s.tvl.Get(ctx)
}

func (s *Store) PeekTVL() Loadable[*big.Int] {
	return s.tvl.Peek()
}

func (s *Store) Fee(ctx context.Context) (*big.Rat, error) {
	return s.fee.Get(ctx)
}

func (s *Store) PeekFee() Loadable[*big.Rat] {
	return s.fee.Peek()
}

// Provided is the amount address has provided to the contract.
func (s *Store) Provided(ctx context.Context, address string) (*big.Int, error) {
	return s.provided.get(address).Get(ctx)
}

func (s *Store) PeekProvided(address string) Loadable[*big.Int] {
	return s.provided.get(address).Peek()
}

func (s *Store) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return s.balances.get(address).Get(ctx)
}

func (s *Store) PeekNativeBalance(address string) Loadable[*big.Int] {
	return s.balances.get(address).Peek()
}

func (s *Store) BlockHeight(ctx context.Context) (int64, error) {
	return s.height.Get(ctx)
}

func (s *Store) fetchTVL(ctx context.Context) (*big.Int, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	locked, err := client.Balance(ctx, s.chain.ContractAddr, s.chain.FeeDenom)
	if err != nil {
		return nil, fmt.Errorf("failed to query contract balance: %w", err)
	}
	s.metrics.TVL.Set(cwmath.MicroToFloat(locked, s.chain.DenomExponent))
	return locked, nil
}

func (s *Store) fetchFee(ctx context.Context) (*big.Rat, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	var resp ConfigResponse
	if err := client.QueryContractSmart(ctx, s.chain.ContractAddr, GetConfigQuery(), &resp); err != nil {
		return nil, fmt.Errorf("failed to query contract config: %w", err)
	}
	fee, err := cwmath.ParseDecimal(resp.Fee)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee: %w", err)
	}
	return fee, nil
}

func (s *Store) fetchProvided(ctx context.Context, address string) (*big.Int, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	var resp string
	if err := client.QueryContractSmart(ctx, s.chain.ContractAddr, ProvidedQueryFor(address), &resp); err != nil {
		return nil, fmt.Errorf("failed to query provided amount: %w", err)
	}
	return cwmath.ParseMicro(resp)
}

func (s *Store) fetchBalance(ctx context.Context, address string) (*big.Int, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	balance, err := client.Balance(ctx, address, s.chain.FeeDenom)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet balance: %w", err)
	}
	return balance, nil
}

func (s *Store) fetchHeight(ctx context.Context) (int64, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return client.Height(ctx)
}

// Amount is a smallest-unit value with its display rendering.
type Amount struct {
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

type WalletView struct {
	Status  string `json:"status"`
	Address string `json:"address,omitempty"`
}

// Snapshot is a point-in-time, non-blocking view of the derived state.
type Snapshot struct {
	Generation  int64      `json:"generation"`
	Denom       string     `json:"denom"`
	TVLState    string     `json:"tvl_state"`
	TVL         *Amount    `json:"tvl,omitempty"`
	Fee         string     `json:"fee,omitempty"`
	Wallet      WalletView `json:"wallet"`
	Provided    *Amount    `json:"provided,omitempty"`
	Balance     *Amount    `json:"balance,omitempty"`
	Fingerprint uint64     `json:"fingerprint,string"`
}

// Snapshot collects whatever is currently loaded and starts loads for the
// rest. Wallet derivations are included only when wallet has an address.
func (s *Store) Snapshot(wallet WalletView) Snapshot {
	snap := Snapshot{
		Generation: s.gen.Current(),
		Denom:      s.chain.DenomName,
		Wallet:     wallet,
	}

	tvl := s.PeekTVL()
	snap.TVLState = tvl.State.String()
	if tvl.Loaded() {
		snap.TVL = s.amount(tvl.Contents)
	}
	if fee := s.PeekFee(); fee.Loaded() {
		snap.Fee = ui.PlainDecimal(fee.Contents)
	}
	if wallet.Address != "" {
		if provided := s.PeekProvided(wallet.Address); provided.Loaded() {
			snap.Provided = s.amount(provided.Contents)
		}
		if balance := s.PeekNativeBalance(wallet.Address); balance.Loaded() {
			snap.Balance = s.amount(balance.Contents)
		}
	}

	snap.Fingerprint = snap.fingerprint()
	return snap
}

func (s *Store) amount(micro *big.Int) *Amount {
	return &Amount{
		Raw:     micro.String(),
		Display: ui.FormatMicro(micro, s.chain.DenomExponent),
	}
}

func (snap Snapshot) fingerprint() uint64 {
	snap.Fingerprint = 0
	raw, err := json.Marshal(snap)
	if err != nil {
		return 0
	}
	return xxhash.Sum64(raw)
}

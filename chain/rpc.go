package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

// RPCClient talks to a CometBFT node over its JSON-RPC endpoint. Bank and
// wasm queries go through abci_query using their gRPC routes.
type RPCClient struct {
	rpc     *rpc.Client
	cfg     config.RPCConfig
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.ChainMetrics
}

type statusResult struct {
	SyncInfo struct {
		LatestBlockHeight string `json:"latest_block_height"`
	} `json:"sync_info"`
}

type abciQueryResult struct {
	Response struct {
		Code      uint32 `json:"code"`
		Log       string `json:"log"`
		Codespace string `json:"codespace"`
		Value     []byte `json:"value"`
		Height    string `json:"height"`
	} `json:"response"`
}

// DialRPC creates a client bound to endpoint.
func DialRPC(ctx context.Context, endpoint string, cfg config.RPCConfig, logger *zap.Logger, m *metrics.ChainMetrics) (*RPCClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("rpc endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewChainMetrics(nil)
	}

	var client *rpc.Client
	err := retry.Do(func() error {
		c, err := rpc.DialContext(ctx, endpoint)
		if err != nil {
			return err
		}
		client = c
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(cfg.RetryAttempts),
		retry.Delay(cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Warn("Dial attempt failed",
				zap.Uint("attempt", attempt+1),
				zap.String("endpoint", endpoint),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	return &RPCClient{
		rpc:     client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.BurstSize),
		logger:  logger,
		metrics: m,
	}, nil
}

func (c *RPCClient) Height(ctx context.Context) (int64, error) {
	var res statusResult
	if err := c.call(ctx, "height", &res, "status"); err != nil {
		return 0, err
	}
	height, err := strconv.ParseInt(res.SyncInfo.LatestBlockHeight, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: latest block height %q", ErrMalformedResp, res.SyncInfo.LatestBlockHeight)
	}
	return height, nil
}

func (c *RPCClient) Balance(ctx context.Context, address, denom string) (*big.Int, error) {
	value, err := c.abciQuery(ctx, "balance", balanceQueryPath, encodeBalanceRequest(address, denom))
	if err != nil {
		return nil, err
	}
	_, amount, err := decodeBalanceResponse(value)
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (c *RPCClient) QueryContractSmart(ctx context.Context, contract string, query interface{}, out interface{}) error {
	raw, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	value, err := c.abciQuery(ctx, "smart_query", smartQueryPath, encodeSmartQueryRequest(contract, raw))
	if err != nil {
		return err
	}
	data, err := decodeSmartQueryResponse(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode smart query response: %v", ErrMalformedResp, err)
	}
	return nil
}

// Ping checks that the node answers status requests.
func (c *RPCClient) Ping(ctx context.Context) error {
	_, err := c.Height(ctx)
	return err
}

func (c *RPCClient) Close() {
	c.rpc.Close()
}

func (c *RPCClient) abciQuery(ctx context.Context, op, path string, data []byte) ([]byte, error) {
	var res abciQueryResult
	// height is an int64 and CometBFT expects those as JSON strings
	if err := c.call(ctx, op, &res, "abci_query", path, strings.ToUpper(hex.EncodeToString(data)), "0", false); err != nil {
		return nil, err
	}
	if res.Response.Code != 0 {
		return nil, fmt.Errorf("%w: %s code %d: %s", ErrABCIQuery, res.Response.Codespace, res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

func (c *RPCClient) call(ctx context.Context, op string, result interface{}, method string, args ...interface{}) error {
	start := time.Now()
	defer func() {
		c.metrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	waitCtx, cancelWait := context.WithTimeout(ctx, c.cfg.RateLimit.WaitTimeout)
	err := c.limiter.Wait(waitCtx)
	cancelWait()
	if err != nil {
		c.metrics.Requests.WithLabelValues(op, "throttled").Inc()
		return fmt.Errorf("rate limit wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	err = retry.Do(func() error {
		return c.rpc.CallContext(callCtx, result, method, args...)
	},
		retry.Context(callCtx),
		retry.Attempts(c.cfg.RetryAttempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(attempt uint, err error) {
			c.metrics.Retries.Inc()
			c.logger.Debug("Retrying rpc call",
				zap.String("method", method),
				zap.Uint("attempt", attempt+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		c.metrics.Requests.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("rpc %s: %w", method, err)
	}

	c.metrics.Requests.WithLabelValues(op, "ok").Inc()
	return nil
}

// isTransient reports whether a failed call is worth retrying. JSON-RPC
// error objects and client errors come from the node itself and are final.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

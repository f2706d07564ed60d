package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/cwflash/chain"
	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/contract"
	"github.com/michaelpento.lv/cwflash/flashloan"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
	"github.com/michaelpento.lv/cwflash/utils/monitor"
	"github.com/michaelpento.lv/cwflash/wallet"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type fakeChain struct {
	tvl      *big.Int
	provided string
}

func (f *fakeChain) Height(context.Context) (int64, error) { return 10, nil }

func (f *fakeChain) Balance(context.Context, string, string) (*big.Int, error) {
	return new(big.Int).Set(f.tvl), nil
}

func (f *fakeChain) QueryContractSmart(_ context.Context, _ string, query interface{}, out interface{}) error {
	var resp interface{}
	switch msg := query.(contract.QueryMsg); {
	case msg.GetConfig != nil:
		resp = contract.ConfigResponse{Fee: "0.005"}
	case msg.Provided != nil:
		resp = f.provided
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeChain) Close() {}

func bech32Address(t *testing.T, size int) string {
	t.Helper()
	conv, err := bech32.ConvertBits(bytes.Repeat([]byte{0x11}, size), 8, 5, true)
	require.NoError(t, err)
	addr, err := bech32.Encode("juno", conv)
	require.NoError(t, err)
	return addr
}

type testEnv struct {
	server *Server
	store  *contract.Store
	wallet *wallet.Manager
	reg    *prometheus.Registry
	health error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := config.DefaultConfig()
	cfg.Chain = config.ChainConfig{
		ChainID:          "juno-1",
		ChainName:        "Juno",
		RPCEndpoint:      "http://127.0.0.1:26657",
		FeeDenom:         "ujuno",
		DenomName:        "JUNO",
		ContractAddr:     bech32Address(t, 32),
		AddressPrefix:    "juno",
		DenomExponent:    6,
		ExplorerTxPrefix: "https://www.mintscan.io/juno/txs/",
		GasPrice:         "0.0025ujuno",
	}
	cfg.Wallet = config.WalletConfig{
		Mnemonic:  testMnemonic,
		StatePath: filepath.Join(t.TempDir(), "wallet.yaml"),
	}
	cfg.RPC.Timeout = time.Second
	cfg.Server.PingInterval = time.Second

	reg := prometheus.NewRegistry()
	gen := contract.NewGeneration(metrics.NewStateMetrics(reg))
	store, err := contract.NewStore(
		chain.StaticProvider(&fakeChain{tvl: big.NewInt(50_000_000), provided: "1500000"}),
		gen, cfg.Chain, cfg.Cache, logger, nil)
	require.NoError(t, err)

	w := wallet.NewManager(cfg.Wallet, cfg.Chain, logger)
	require.NoError(t, w.Init(context.Background()))

	env := &testEnv{store: store, wallet: w, reg: reg}
	srv, err := NewServer(Deps{
		Config:   cfg,
		Store:    store,
		Wallet:   w,
		Loans:    flashloan.NewManager(cfg.Chain, nil, gen, logger, metrics.NewLoanMetrics(reg)),
		Health:   func(context.Context) error { return env.health },
		Runtime:  monitor.NewRuntimeMonitor(reg, time.Second, logger),
		Gatherer: reg,
		Metrics:  metrics.NewServerMetrics(reg),
		Logger:   logger,
	})
	require.NoError(t, err)
	env.server = srv
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func postLoan(t *testing.T, env *testEnv, body string) (*httptest.ResponseRecorder, loanResponse) {
	t.Helper()
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/loan", strings.NewReader(body)))
	var resp loanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestIndexRendersConnectWallet(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Flash Loan")
	assert.Contains(t, body, "Connect wallet")
	assert.Contains(t, body, "JUNO")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, sessionCookie, rec.Result().Cookies()[0].Name)
}

func TestLoanAPIWithoutWallet(t *testing.T) {
	env := newTestEnv(t)
	body := `{"amount": 1, "receiver": "` + bech32Address(t, 32) + `"}`

	rec, resp := postLoan(t, env, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.Len(t, resp.Toasts, 1)
	assert.Equal(t, "Wallet not connected.", resp.Toasts[0].Message)
	assert.Equal(t, int64(0), resp.Generation)
}

func TestLoanAPIValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := postLoan(t, env, `{"amount": -5, "receiver": "not-an-address"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Not positive.", resp.AmountError)
	assert.Equal(t, "Not a contract address.", resp.ReceiverError)

	rec, resp = postLoan(t, env, `{"amount": 51, "receiver": "`+bech32Address(t, 32)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Greater than TVL.", resp.AmountError)

	_, resp = postLoan(t, env, `{"receiver": "`+bech32Address(t, 32)+`"}`)
	assert.Equal(t, "Unspecified", resp.AmountError)
}

func TestLoanAPIConnectedWallet(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/wallet/connect", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, wallet.Connected, env.wallet.Status())

	rec, resp := postLoan(t, env, `{"amount": 2.5, "receiver": "`+bech32Address(t, 32)+`"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "failed", resp.Status)
	assert.Contains(t, resp.Error, "TODO: Implement execute call")
	assert.Equal(t, int64(1), resp.Generation)
	require.Len(t, resp.Toasts, 1)
	assert.Equal(t, "TODO: Implement execute call", resp.Toasts[0].Message)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/wallet/disconnect", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, wallet.ReadyForConnection, env.wallet.Status())
}

func TestLoanFormShowsErrors(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := first.Result().Cookies()[0]

	form := url.Values{"amount": {"1"}, "receiver": {"not-an-address"}}
	req := httptest.NewRequest(http.MethodPost, "/loan", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := env.do(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = env.do(t, req)
	body := rec.Body.String()
	assert.Contains(t, body, "Not a contract address.")
	assert.Contains(t, body, `value="not-an-address"`)
	assert.Equal(t, int64(0), env.store.Generation().Current())
}

func TestLoanFormRejectsNegativeAmountBeforeTVLLoads(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/wallet/connect", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	form := url.Values{"amount": {"-5"}, "receiver": {bech32Address(t, 32)}}
	req := httptest.NewRequest(http.MethodPost, "/loan", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NotPanics(t, func() { rec = env.do(t, req) })
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, int64(0), env.store.Generation().Current())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = env.do(t, req)
	assert.Contains(t, rec.Body.String(), "Not positive.")
}

func TestIndexShowsExecuteOnlyWhenReady(t *testing.T) {
	env := newTestEnv(t)
	executeButton := `form="loan"`

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, rec.Body.String(), executeButton)

	require.Equal(t, http.StatusSeeOther, env.do(t, httptest.NewRequest(http.MethodPost, "/wallet/connect", nil)).Code)
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()
	assert.NotContains(t, body, executeButton)
	assert.Contains(t, body, `<div class="card loading"><div class="title">Execute loan</div></div>`)

	_, err := env.store.TVL(context.Background())
	require.NoError(t, err)
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), executeButton)
}

func TestProvidedAndBalance(t *testing.T) {
	env := newTestEnv(t)
	addr := bech32Address(t, 20)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/provided/"+addr, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp amountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1500000", resp.Raw)
	assert.Equal(t, "1.5", resp.Display)
	assert.Equal(t, "JUNO", resp.Denom)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/balance/"+addr, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "50000000", resp.Raw)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/provided/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.TVL(context.Background())
	require.NoError(t, err)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap contract.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "hasValue", snap.TVLState)
	assert.Equal(t, "50", snap.TVL.Display)
	assert.Equal(t, "ReadyForConnection", snap.Wallet.Status)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"goroutines":`)
	assert.Contains(t, rec.Body.String(), `"loans":{"submitted":0,`)

	env.health = errors.New("connection refused")
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cwflash_http_requests_total{code="200",route="state"} 1`)
}

func TestWebsocketPushesOnGenerationChange(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.server.hub.run(ctx)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readSnapshot := func() contract.Snapshot {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg struct {
			Type string            `json:"type"`
			Data contract.Snapshot `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "state", msg.Type)
		return msg.Data
	}

	first := readSnapshot()
	assert.Equal(t, int64(0), first.Generation)

	env.store.Generation().Bump()
	for {
		snap := readSnapshot()
		if snap.Generation == 1 {
			break
		}
	}
}

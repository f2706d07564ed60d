package chain

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/michaelpento.lv/cwflash/config"
	"github.com/michaelpento.lv/cwflash/utils/metrics"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers the subset of the CometBFT JSON-RPC API used by RPCClient.
type fakeNode struct {
	t        *testing.T
	height   string
	balances map[string]string
	smart    func(contract string, query map[string]json.RawMessage) (interface{}, uint32)
	failures int32
	calls    int32
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&n.calls, 1)
	if atomic.AddInt32(&n.failures, -1) >= 0 {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	var req rpcRequest
	require.NoError(n.t, json.NewDecoder(r.Body).Decode(&req))

	var result interface{}
	switch req.Method {
	case "status":
		result = map[string]interface{}{"sync_info": map[string]string{"latest_block_height": n.height}}
	case "abci_query":
		require.Len(n.t, req.Params, 4)
		var path, data, height string
		require.NoError(n.t, json.Unmarshal(req.Params[0], &path))
		require.NoError(n.t, json.Unmarshal(req.Params[1], &data))
		require.NoError(n.t, json.Unmarshal(req.Params[2], &height))
		assert.Equal(n.t, "0", height)
		raw, err := hex.DecodeString(data)
		require.NoError(n.t, err)
		result = n.abci(path, raw)
	default:
		writeRPC(w, req.ID, nil, map[string]interface{}{"code": -32601, "message": "Method not found"})
		return
	}
	writeRPC(w, req.ID, result, nil)
}

func (n *fakeNode) abci(path string, data []byte) interface{} {
	fields := map[protowire.Number][]byte{}
	require.NoError(n.t, walkBytesFields(data, func(num protowire.Number, v []byte) error {
		fields[num] = v
		return nil
	}))

	var (
		value []byte
		code  uint32
	)
	switch path {
	case balanceQueryPath:
		if amount, ok := n.balances[string(fields[1])+"/"+string(fields[2])]; ok {
			value = encodeCoin(string(fields[2]), amount)
		}
	case smartQueryPath:
		var query map[string]json.RawMessage
		require.NoError(n.t, json.Unmarshal(fields[2], &query))
		resp, c := n.smart(string(fields[1]), query)
		code = c
		if code == 0 {
			raw, err := json.Marshal(resp)
			require.NoError(n.t, err)
			value = protowire.AppendTag(nil, 1, protowire.BytesType)
			value = protowire.AppendBytes(value, raw)
		}
	}

	response := map[string]interface{}{
		"code":   code,
		"height": "12",
		"value":  base64.StdEncoding.EncodeToString(value),
	}
	if code != 0 {
		response["codespace"] = "wasm"
		response["log"] = "query wasm contract failed"
	}
	return map[string]interface{}{"response": response}
}

func writeRPC(w http.ResponseWriter, id json.RawMessage, result interface{}, rpcErr interface{}) {
	msg := map[string]interface{}{"jsonrpc": "2.0", "id": id}
	if rpcErr != nil {
		msg["error"] = rpcErr
	} else {
		msg["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msg)
}

func testRPCConfig() config.RPCConfig {
	return config.RPCConfig{
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 1000,
			BurstSize:         1000,
			WaitTimeout:       time.Second,
		},
	}
}

func newTestClient(t *testing.T, node *fakeNode) (*RPCClient, *metrics.ChainMetrics) {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	m := metrics.NewChainMetrics(prometheus.NewRegistry())
	client, err := DialRPC(context.Background(), srv.URL, testRPCConfig(), zaptest.NewLogger(t), m)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, m
}

func TestRPCClientHeight(t *testing.T) {
	client, m := newTestClient(t, &fakeNode{t: t, height: "4242"})

	height, err := client.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4242), height)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("height", "ok")))
}

func TestRPCClientBalance(t *testing.T) {
	node := &fakeNode{t: t, balances: map[string]string{"juno1contract/ujuno": "123456789"}}
	client, _ := newTestClient(t, node)

	balance, err := client.Balance(context.Background(), "juno1contract", "ujuno")
	require.NoError(t, err)
	assert.Equal(t, "123456789", balance.String())

	balance, err = client.Balance(context.Background(), "juno1nobody", "ujuno")
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())
}

func TestRPCClientSmartQuery(t *testing.T) {
	node := &fakeNode{t: t, smart: func(contract string, query map[string]json.RawMessage) (interface{}, uint32) {
		assert.Equal(t, "juno1contract", contract)
		if _, ok := query["get_config"]; ok {
			return map[string]string{"fee": "0.005"}, 0
		}
		return nil, 9
	}}
	client, _ := newTestClient(t, node)

	var cfg struct {
		Fee string `json:"fee"`
	}
	err := client.QueryContractSmart(context.Background(), "juno1contract", map[string]interface{}{"get_config": struct{}{}}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "0.005", cfg.Fee)

	err = client.QueryContractSmart(context.Background(), "juno1contract", map[string]interface{}{"unknown": struct{}{}}, &cfg)
	assert.ErrorIs(t, err, ErrABCIQuery)
	assert.Contains(t, err.Error(), "query wasm contract failed")
}

func TestRPCClientRetriesTransientFailures(t *testing.T) {
	node := &fakeNode{t: t, height: "7", failures: 2}
	client, m := newTestClient(t, node)

	height, err := client.Height(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), height)
	assert.Equal(t, int32(3), atomic.LoadInt32(&node.calls))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Retries))
}

func TestRPCClientDoesNotRetryRPCErrors(t *testing.T) {
	node := &fakeNode{t: t}
	client, _ := newTestClient(t, node)

	var out interface{}
	err := client.call(context.Background(), "unknown", &out, "no_such_method")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&node.calls))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(context.Canceled))
	assert.True(t, isTransient(assert.AnError))
}

func TestDialRPCRequiresEndpoint(t *testing.T) {
	_, err := DialRPC(context.Background(), "", testRPCConfig(), nil, nil)
	assert.Error(t, err)
}

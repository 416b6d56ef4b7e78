package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/config"
	"github.com/elys-network/amm/internal/metrics"
	"github.com/elys-network/amm/internal/risk"
	"github.com/elys-network/amm/internal/state"
	"github.com/elys-network/amm/internal/types"
)

var testRiskParams = types.RiskParameters{
	MeanReturn:      0,
	StdReturn:       0.02,
	ConfidenceLevel: 0.95,
	NumSimulations:  5,
}

type testEnv struct {
	server  *WebServer
	history *state.TransactionHistory
}

func newTestServer(t *testing.T) testEnv {
	t.Helper()
	history := state.NewTransactionHistory(0)
	reg := prometheus.NewRegistry()
	poolMetrics := metrics.NewPoolMetrics(reg)

	registry, err := amm.NewAMM(amm.Config{
		Params:       config.DefaultAMMParameters,
		VolumeOracle: amm.NewTradeVolumeOracle(config.DefaultAMMParameters.FeeVolumeWindow, nil),
		Observers:    []amm.Observer{history, poolMetrics},
	})
	require.NoError(t, err)
	require.NoError(t, registry.CreatePool("ETH", "USDC", 5000, 5000))

	manager, err := risk.NewRiskManager(registry, risk.FixedModel{-0.01, -0.02, -0.03, 0.01, 0.02}, testRiskParams)
	require.NoError(t, err)

	server, err := NewWebServer(Config{
		AMM:     registry,
		Risk:    manager,
		History: history,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	require.NoError(t, err)
	return testEnv{server: server, history: history}
}

func (e testEnv) do(t *testing.T, method, target string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec.Code, decoded
}

func TestNewWebServerRequiresCollaborators(t *testing.T) {
	_, err := NewWebServer(Config{})
	assert.Error(t, err)
}

func TestSwapEndpoint(t *testing.T) {
	env := newTestServer(t)

	code, body := env.do(t, http.MethodPost, "/swap", map[string]interface{}{
		"token_from": "ETH", "token_to": "USDC", "amount": 100,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Greater(t, body["amount_out"].(float64), 90.0)

	history := env.history.Get("USDC", "ETH")
	require.Len(t, history, 1)
	assert.Equal(t, types.TxSwap, history[0].Type)

	code, body = env.do(t, http.MethodGet, "/transaction_history?token_a=ETH&token_b=USDC", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
}

func TestErrorEnvelope(t *testing.T) {
	env := newTestServer(t)

	code, body := env.do(t, http.MethodPost, "/swap", map[string]interface{}{
		"token_from": "BTC", "token_to": "USDC", "amount": 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 3, body["code"])
	assert.Equal(t, types.ModuleName, body["codespace"])
	assert.Contains(t, body["error"], "pool does not exist")

	code, body = env.do(t, http.MethodPost, "/swap", map[string]interface{}{
		"token_from": "ETH", "token_to": "USDC", "amount": -5,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 7, body["code"])

	code, body = env.do(t, http.MethodPost, "/swap", map[string]interface{}{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 8, body["code"])
}

func TestLiquidityEndpoints(t *testing.T) {
	env := newTestServer(t)

	code, body := env.do(t, http.MethodPost, "/add_liquidity", map[string]interface{}{
		"token_a": "ETH", "token_b": "USDC", "amount_a": 100, "amount_b": 100,
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.InDelta(t, 100.0, body["lp_tokens"].(float64), 1e-9)

	code, body = env.do(t, http.MethodPost, "/remove_liquidity", map[string]interface{}{
		"token_a": "USDC", "token_b": "ETH", "lp_tokens": 510,
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.InDelta(t, 510.0, body["amount_a"].(float64), 1e-9)
	assert.InDelta(t, 510.0, body["amount_b"].(float64), 1e-9)

	code, body = env.do(t, http.MethodPost, "/add_liquidity", map[string]interface{}{
		"token_a": "ETH", "token_b": "USDC", "amount_a": 100, "amount_b": 300,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 4, body["code"])
}

func TestPoolStateIsCallerOriented(t *testing.T) {
	env := newTestServer(t)
	_, _ = env.do(t, http.MethodPost, "/swap", map[string]interface{}{
		"token_from": "USDC", "token_to": "ETH", "amount": 500,
	})

	code, body := env.do(t, http.MethodGet, "/pool_state?token_a=USDC&token_b=ETH", nil)
	require.Equal(t, http.StatusOK, code)
	poolState := body["state"].(map[string]interface{})
	assert.Equal(t, "USDC", poolState["token_a"])
	assert.InDelta(t, 5500.0, poolState["token_a_reserve"].(float64), 1e-9)
	assert.Less(t, poolState["token_b_reserve"].(float64), 5000.0)
}

func TestRiskEndpoints(t *testing.T) {
	env := newTestServer(t)

	code, body := env.do(t, http.MethodGet, "/risk_metrics?token_a=ETH&token_b=USDC", nil)
	require.Equal(t, http.StatusOK, code, body)
	riskMetrics := body["metrics"].(map[string]interface{})
	assert.InDelta(t, 280.0, riskMetrics["value_at_risk"].(float64), 1e-9)
	assert.InDelta(t, 0.0, riskMetrics["liquidity_returns"].(float64), 1e-9)
	assert.Contains(t, riskMetrics["total_fees"], "ETH")
	assert.Contains(t, riskMetrics["total_fees"], "USDC")

	code, body = env.do(t, http.MethodGet, "/risk_metrics?token_a=ETH&token_b=USDC&price_ratio=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 8, body["code"])

	code, body = env.do(t, http.MethodGet, "/dynamic_position_sizing?token_a=ETH&token_b=USDC", nil)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 100.0, body["position_a"].(float64), 1e-9)
	assert.InDelta(t, 100.0, body["position_b"].(float64), 1e-9)

	code, body = env.do(t, http.MethodPost, "/activate_stop_loss", map[string]interface{}{
		"token_a": "ETH", "token_b": "USDC", "stop_loss_percentage": 0.1, "initial_value": 20000,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["stop_loss_triggered"])

	code, body = env.do(t, http.MethodPost, "/activate_stop_loss", map[string]interface{}{
		"token_a": "ETH", "token_b": "USDC", "stop_loss_percentage": 0.1,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["stop_loss_triggered"])
}

func TestAdjustFeeAndTVL(t *testing.T) {
	env := newTestServer(t)

	code, body := env.do(t, http.MethodPost, "/adjust_fee", map[string]interface{}{
		"token_a": "USDC", "token_b": "ETH",
	})
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 0.003, body["fee"].(float64), 1e-12)

	code, body = env.do(t, http.MethodGet, "/tvl", nil)
	require.Equal(t, http.StatusOK, code)
	tvl := body["tvl"].(map[string]interface{})
	assert.InDelta(t, 5000.0, tvl["ETH"].(float64), 1e-9)
	assert.InDelta(t, 5000.0, tvl["USDC"].(float64), 1e-9)
	assert.EqualValues(t, 1, body["pools_count"])
}

func TestHealthAndReportsWithoutPersistence(t *testing.T) {
	env := newTestServer(t)

	code, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	status := body["amm_status"].(map[string]interface{})
	assert.Equal(t, "disabled", status["database"])

	code, body = env.do(t, http.MethodGet, "/reports", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["success"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)
	_, _ = env.do(t, http.MethodPost, "/swap", map[string]interface{}{
		"token_from": "ETH", "token_to": "USDC", "amount": 10,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amm_pool_swaps_total")
}

func TestCORSHeaders(t *testing.T) {
	env := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/tvl", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

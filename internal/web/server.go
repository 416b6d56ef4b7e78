package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/amm/internal/amm"
	"github.com/elys-network/amm/internal/logger"
	"github.com/elys-network/amm/internal/risk"
	"github.com/elys-network/amm/internal/state"
	"github.com/elys-network/amm/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

const (
	defaultRiskFactor    = 0.02
	defaultInitialAmount = 1000.0
	defaultReportsLimit  = 20
	maxReportsLimit      = 100
)

// Config holds the collaborators of the web server.
type Config struct {
	Port    string
	AMM     *amm.AMM
	Risk    *risk.RiskManager
	History *state.TransactionHistory
	// Metrics serves /metrics. Defaults to the global Prometheus registry.
	Metrics http.Handler
	// Persistence enables /reports and the database health check.
	Persistence bool
}

// WebServer exposes the AMM and the risk manager over HTTP.
type WebServer struct {
	router      *mux.Router
	port        string
	amm         *amm.AMM
	risk        *risk.RiskManager
	history     *state.TransactionHistory
	metrics     http.Handler
	persistence bool
	startedAt   time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(cfg Config) (*WebServer, error) {
	if cfg.AMM == nil || cfg.Risk == nil || cfg.History == nil {
		return nil, errors.New("web server requires an AMM, a risk manager and a transaction history")
	}
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	metricsHandler := cfg.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	server := &WebServer{
		router:      mux.NewRouter(),
		port:        port,
		amm:         cfg.AMM,
		risk:        cfg.Risk,
		history:     cfg.History,
		metrics:     metricsHandler,
		persistence: cfg.Persistence,
		startedAt:   time.Now(),
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Pool operations
	ws.router.HandleFunc("/add_liquidity", ws.handleAddLiquidity).Methods("POST")
	ws.router.HandleFunc("/remove_liquidity", ws.handleRemoveLiquidity).Methods("POST")
	ws.router.HandleFunc("/swap", ws.handleSwap).Methods("POST")
	ws.router.HandleFunc("/adjust_fee", ws.handleAdjustFee).Methods("POST")
	ws.router.HandleFunc("/pool_state", ws.handlePoolState).Methods("GET")
	ws.router.HandleFunc("/transaction_history", ws.handleTransactionHistory).Methods("GET")
	ws.router.HandleFunc("/tvl", ws.handleTVL).Methods("GET")

	// Risk
	ws.router.HandleFunc("/risk_metrics", ws.handleRiskMetrics).Methods("GET")
	ws.router.HandleFunc("/activate_stop_loss", ws.handleActivateStopLoss).Methods("POST")
	ws.router.HandleFunc("/dynamic_position_sizing", ws.handleDynamicPositionSizing).Methods("GET")

	// Operations
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", ws.metrics).Methods("GET")
	ws.router.HandleFunc("/reports", ws.handleReports).Methods("GET")
	ws.router.HandleFunc("/reports/scenarios", ws.handleScenarioStats).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the router, for embedding and tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server and blocks until ctx is done or the listener fails.
func (ws *WebServer) Start(ctx context.Context) error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		webLogger.Info().Msg("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

type addLiquidityRequest struct {
	TokenA  string  `json:"token_a"`
	TokenB  string  `json:"token_b"`
	AmountA float64 `json:"amount_a"`
	AmountB float64 `json:"amount_b"`
}

type removeLiquidityRequest struct {
	TokenA   string  `json:"token_a"`
	TokenB   string  `json:"token_b"`
	LPTokens float64 `json:"lp_tokens"`
}

type swapRequest struct {
	TokenFrom string  `json:"token_from"`
	TokenTo   string  `json:"token_to"`
	Amount    float64 `json:"amount"`
}

type pairRequest struct {
	TokenA string `json:"token_a"`
	TokenB string `json:"token_b"`
}

type stopLossRequest struct {
	TokenA             string   `json:"token_a"`
	TokenB             string   `json:"token_b"`
	StopLossPercentage float64  `json:"stop_loss_percentage"`
	InitialValue       *float64 `json:"initial_value,omitempty"`
}

// handleAddLiquidity deposits with the rebalancing incentive applied.
func (ws *WebServer) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req addLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	lpTokens, err := ws.amm.AddLiquidityWithIncentive(req.TokenA, req.TokenB, req.AmountA, req.AmountB)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"lp_tokens": lpTokens})
}

func (ws *WebServer) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req removeLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	amountA, amountB, err := ws.amm.RemoveLiquidity(req.TokenA, req.TokenB, req.LPTokens)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"amount_a": amountA, "amount_b": amountB})
}

func (ws *WebServer) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	amountOut, err := ws.amm.Swap(req.TokenFrom, req.TokenTo, req.Amount)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"amount_out": amountOut})
}

func (ws *WebServer) handleAdjustFee(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	fee, err := ws.amm.AdjustFee(req.TokenA, req.TokenB)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"fee": fee})
}

func (ws *WebServer) handlePoolState(w http.ResponseWriter, r *http.Request) {
	tokenA, tokenB := pairQuery(r)
	snap, err := ws.amm.GetPool(tokenA, tokenB)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"state": snap})
}

func (ws *WebServer) handleTransactionHistory(w http.ResponseWriter, r *http.Request) {
	tokenA, tokenB := pairQuery(r)
	records := ws.history.Get(tokenA, tokenB)
	ws.writeSuccessResponse(w, map[string]interface{}{
		"history": records,
		"count":   len(records),
	})
}

func (ws *WebServer) handleTVL(w http.ResponseWriter, r *http.Request) {
	ws.writeSuccessResponse(w, map[string]interface{}{
		"tvl":          ws.amm.GetTotalValueLocked(),
		"fees":         ws.amm.CalculateFeesEarned(),
		"pools_count":  ws.amm.PoolCount(),
		"generated_at": time.Now().UTC(),
	})
}

// handleRiskMetrics returns the VaR, the accrued fees and the LP return for
// a reference position. initial_a, initial_b and price_ratio override the
// reference position of 1000/1000 at an unchanged price.
func (ws *WebServer) handleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	tokenA, tokenB := pairQuery(r)
	initialA, err := floatQuery(r, "initial_a", defaultInitialAmount)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	initialB, err := floatQuery(r, "initial_b", defaultInitialAmount)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	priceRatio, err := floatQuery(r, "price_ratio", 1.0)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}

	valueAtRisk, err := ws.risk.CalculateVaR(tokenA, tokenB, risk.VaROptions{})
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	returns, err := ws.risk.CalculateLiquidityReturns(tokenA, tokenB, initialA, initialB, priceRatio)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}

	ws.writeSuccessResponse(w, map[string]interface{}{
		"metrics": map[string]interface{}{
			"value_at_risk":     valueAtRisk,
			"total_fees":        ws.risk.CalculateTotalFeesEarned(),
			"liquidity_returns": returns,
		},
	})
}

func (ws *WebServer) handleActivateStopLoss(w http.ResponseWriter, r *http.Request) {
	var req stopLossRequest
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	triggered, err := ws.risk.ImplementStopLoss(req.TokenA, req.TokenB, req.StopLossPercentage, req.InitialValue)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"stop_loss_triggered": triggered})
}

func (ws *WebServer) handleDynamicPositionSizing(w http.ResponseWriter, r *http.Request) {
	tokenA, tokenB := pairQuery(r)
	riskFactor, err := floatQuery(r, "risk_factor", defaultRiskFactor)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	positionA, positionB, err := ws.risk.DynamicPositionSizing(tokenA, tokenB, riskFactor)
	if err != nil {
		ws.writeErrorResponse(w, err)
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"position_a": positionA, "position_b": positionB})
}

// handleReports returns the most recent persisted simulation reports.
func (ws *WebServer) handleReports(w http.ResponseWriter, r *http.Request) {
	if !ws.persistence {
		ws.writeJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "persistence is disabled",
		})
		return
	}
	limit := defaultReportsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= maxReportsLimit {
			limit = parsedLimit
		}
	}

	reports, err := state.GetRecentReports(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent reports")
		ws.writeJSONResponse(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "failed to retrieve reports",
		})
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
		"limit":   limit,
	})
}

func (ws *WebServer) handleScenarioStats(w http.ResponseWriter, r *http.Request) {
	if !ws.persistence {
		ws.writeJSONResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "persistence is disabled",
		})
		return
	}
	stats, err := state.GetScenarioStats()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get scenario stats")
		ws.writeJSONResponse(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "failed to retrieve scenario stats",
		})
		return
	}
	ws.writeSuccessResponse(w, map[string]interface{}{"scenarios": stats})
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbStatus := "disabled"
	healthy := true
	if ws.persistence {
		dbStatus = "ok"
		if err := state.TestDBConnection(r.Context()); err != nil {
			webLogger.Warn().Err(err).Msg("Database health check failed")
			dbStatus = "unreachable"
			healthy = false
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !healthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "amm",
			"version": "1.0.0",
		},
		"amm_status": map[string]interface{}{
			"pools_count": ws.amm.PoolCount(),
			"database":    dbStatus,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidParameter, "invalid request body: %s", err)
	}
	return nil
}

func pairQuery(r *http.Request) (string, string) {
	query := r.URL.Query()
	return query.Get("token_a"), query.Get("token_b")
}

func floatQuery(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrInvalidParameter, "%s must be a number, got %q", key, raw)
	}
	return value, nil
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeSuccessResponse wraps fields in the success envelope.
func (ws *WebServer) writeSuccessResponse(w http.ResponseWriter, fields map[string]interface{}) {
	fields["success"] = true
	ws.writeJSONResponse(w, http.StatusOK, fields)
}

// writeErrorResponse reports a failed operation as a client error carrying
// the registered error code.
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, err error) {
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	webLogger.Debug().Err(err).Str("codespace", codespace).Uint32("code", code).Msg("Request failed")

	ws.writeJSONResponse(w, http.StatusBadRequest, map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"code":      code,
		"codespace": codespace,
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/elys-network/mvault/internal/config"
	"github.com/elys-network/mvault/internal/logger"
	"github.com/elys-network/mvault/internal/router"
	"github.com/elys-network/mvault/internal/state"
	"github.com/elys-network/mvault/internal/utils"
	"github.com/elys-network/mvault/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes read-only vault data over HTTP: summary, previews,
// receipts, rate history, and router quotes. Mutating operations are not
// exposed here; they belong to the host ledger.
type WebServer struct {
	router *mux.Router
	port   string
	vault  *vault.Vault
	quotes router.QuoteRouter // nil when no router endpoint configured
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, v *vault.Vault, quotes router.QuoteRouter) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		vault:  v,
		quotes: quotes,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault/position/{holder}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/receipts/{id}", ws.handleGetReceipt).Methods("GET")
	api.HandleFunc("/rate/history", ws.handleGetRateHistory).Methods("GET")
	api.HandleFunc("/preview/deposit", ws.handlePreviewDeposit).Methods("GET")
	api.HandleFunc("/preview/redeem", ws.handlePreviewRedeem).Methods("GET")
	api.HandleFunc("/quote", ws.handleQuote).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server and vault health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	sourcesHealthy := true
	if _, err := ws.vault.TotalAssets(r.Context()); err != nil {
		sourcesHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	rate, seq := ws.vault.AssetsPerShare()

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "mvault-multi-source-vault",
			"version": "1.0.0",
		},
		"vault_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"sources_healthy":  sourcesHealthy,
			"last_sequence":    seq,
			"assets_per_share": rate.String(),
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetVaultSummary returns the aggregate vault view
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	total, err := ws.vault.TotalAssets(r.Context())
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to aggregate total assets")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Failed to aggregate total assets")
		return
	}

	rate, seq := ws.vault.AssetsPerShare()
	rateFloat, _ := utils.DecToFloat64(rate)
	totalDisplay, _ := utils.SDKIntToFloat64(total, config.AssetDecimals)

	summary := map[string]interface{}{
		"asset_denom":          ws.vault.AssetDenom(),
		"address":              ws.vault.Address(),
		"sources":              ws.vault.SourceIDs(),
		"total_assets":         total.String(),
		"total_assets_display": totalDisplay,
		"total_shares":         ws.vault.TotalShares().String(),
		"assets_per_share":     rateFloat,
		"rate_sequence":        seq,
		"unallocated":          ws.vault.UnallocatedBuffer().String(),
		"grants":               ws.vault.Grants(),
		"timestamp":            time.Now().UTC(),
	}
	if c := ws.vault.AssetsCap(); c != nil {
		summary["assets_cap"] = c.String()
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetPosition returns one holder's position
func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	holder := mux.Vars(r)["holder"]
	if holder == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Holder is required")
		return
	}

	shares := ws.vault.BalanceOf(holder)
	value, err := ws.vault.MaxWithdraw(r.Context(), holder)
	if err != nil {
		webLogger.Error().Err(err).Str("holder", holder).Msg("Failed to value position")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Failed to value position")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"holder":      holder,
		"shares":      shares.String(),
		"asset_value": value.String(),
	})
}

// handleGetReceipts returns paginated operation receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
		"count":    len(receipts),
		"limit":    limit,
	})
}

// handleGetReceipt returns a specific receipt by ID
func (ws *WebServer) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	id, err := uuid.Parse(idStr)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid receipt ID")
		return
	}

	receipt, err := state.GetReceiptByID(id)
	if err != nil {
		webLogger.Error().Err(err).Str("receiptId", idStr).Msg("Failed to get receipt")
		ws.writeErrorResponse(w, http.StatusNotFound, "Receipt not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleGetRateHistory returns recent rate snapshots
func (ws *WebServer) handleGetRateHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	history, err := state.GetRateHistory(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get rate history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve rate history")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"snapshots": history,
		"count":     len(history),
	})
}

// handlePreviewDeposit quotes shares for an asset amount
func (ws *WebServer) handlePreviewDeposit(w http.ResponseWriter, r *http.Request) {
	assets, err := utils.ParseSDKInt(r.URL.Query().Get("assets"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid assets parameter")
		return
	}

	shares, err := ws.vault.PreviewDeposit(r.Context(), assets)
	if err != nil {
		webLogger.Error().Err(err).Msg("Preview deposit failed")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Preview failed")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"assets": assets.String(),
		"shares": shares.String(),
	})
}

// handlePreviewRedeem quotes assets for a share count
func (ws *WebServer) handlePreviewRedeem(w http.ResponseWriter, r *http.Request) {
	shares, err := utils.ParseSDKInt(r.URL.Query().Get("shares"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares parameter")
		return
	}

	assets, err := ws.vault.PreviewRedeem(r.Context(), shares)
	if err != nil {
		webLogger.Error().Err(err).Msg("Preview redeem failed")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Preview failed")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"shares": shares.String(),
		"assets": assets.String(),
	})
}

// handleQuote proxies a pricing question to the quoting router
func (ws *WebServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if ws.quotes == nil {
		ws.writeErrorResponse(w, http.StatusNotImplemented, "No quote router configured")
		return
	}

	amountIn, err := utils.ParseSDKInt(r.URL.Query().Get("amount_in"))
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount_in parameter")
		return
	}
	path := strings.Split(r.URL.Query().Get("path"), ",")

	quote, err := ws.quotes.QuoteOut(r.Context(), amountIn, path)
	if err != nil {
		webLogger.Error().Err(err).Msg("Quote failed")
		ws.writeErrorResponse(w, http.StatusBadGateway, "Quote failed")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, quote)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

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

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trade-journal/internal/analytics"
	"trade-journal/internal/csvio"
	"trade-journal/internal/functions"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

const (
	userHeader     = "X-User-ID"
	maxUploadBytes = 10 << 20
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log         *zap.Logger
	svc         *journal.Service
	feed        *store.Feed
	defaultUser string
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, svc *journal.Service, feed *store.Feed, defaultUser string) *APIHandler {
	return &APIHandler{log: log, svc: svc, feed: feed, defaultUser: defaultUser}
}

// Register mounts every API route on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthHandler)

	mux.HandleFunc("GET /api/trades", h.ListTradesHandler)
	mux.HandleFunc("POST /api/trades", h.CreateTradeHandler)
	mux.HandleFunc("GET /api/trades/{id}", h.GetTradeHandler)
	mux.HandleFunc("PATCH /api/trades/{id}", h.UpdateTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", h.DeleteTradeHandler)

	mux.HandleFunc("GET /api/statistics", h.StatisticsHandler)
	mux.HandleFunc("GET /api/analytics/{kind}", h.AnalyticsHandler)

	mux.HandleFunc("POST /api/import", h.ImportHandler)
	mux.HandleFunc("GET /api/export", h.ExportHandler)
	mux.HandleFunc("GET /api/template", h.TemplateHandler)

	mux.HandleFunc("POST /api/analysis", h.AnalysisHandler)
	mux.HandleFunc("GET /api/subscription", h.SubscriptionHandler)
	mux.HandleFunc("POST /api/subscription/activate", h.ActivateHandler)

	mux.HandleFunc("GET /api/stream", h.StreamHandler)
}

// userID is set by the upstream auth proxy.
func (h *APIHandler) userID(r *http.Request) string {
	if id := r.Header.Get(userHeader); id != "" {
		return id
	}
	return h.defaultUser
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrDailyLimit):
		return http.StatusConflict
	case errors.Is(err, journal.ErrNoSubscription), errors.Is(err, store.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, journal.ErrImportFailed), errors.Is(err, journal.ErrNothingToImport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, csvio.ErrNoTrades), errors.Is(err, journal.ErrNothingToAnalyze):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTrade),
		errors.Is(err, models.ErrInvalidEnum),
		errors.Is(err, models.ErrDateTimeFormat),
		errors.Is(err, journal.ErrInvalidActivation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	resp := errorResponse{Error: err.Error()}
	if errors.Is(err, models.ErrDateTimeFormat) {
		resp.Hint = journal.DateFormatHint
	}
	h.writeJSON(w, status, resp)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// ListTradesHandler returns the user's trades, most recent entry first.
func (h *APIHandler) ListTradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.svc.ListTrades(r.Context(), h.userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

func (h *APIHandler) CreateTradeHandler(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", models.ErrInvalidTrade, err))
		return
	}
	if err := h.svc.CreateTrade(r.Context(), h.userID(r), &trade); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, trade)
}

func (h *APIHandler) GetTradeHandler(w http.ResponseWriter, r *http.Request) {
	trade, err := h.svc.GetTrade(r.Context(), h.userID(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

// UpdateTradeHandler merges the JSON body into the stored trade.
func (h *APIHandler) UpdateTradeHandler(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	trade, err := h.svc.UpdateTrade(r.Context(), h.userID(r), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

func (h *APIHandler) DeleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTrade(r.Context(), h.userID(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatisticsHandler returns the headline metrics of the user's journal.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Statistics(r.Context(), h.userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// AnalyticsHandler serves the chart series. Order-dependent series use
// entry order; ?initial= sets the starting balance.
func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.svc.ListTrades(r.Context(), h.userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ordered := analytics.SortByEntry(trades)

	initial := 0.0
	if raw := r.URL.Query().Get("initial"); raw != "" {
		initial, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "initial must be a number"})
			return
		}
	}

	var body any
	switch r.PathValue("kind") {
	case "equity":
		body = analytics.EquityCurve(ordered, initial)
	case "drawdown":
		body = analytics.Drawdown(ordered, initial)
	case "durations":
		body = analytics.DurationStats(trades)
	case "streaks":
		body = analytics.Streaks(ordered)
	case "consistency":
		body = analytics.ConsistencyBreakdown(trades)
	case "pnl":
		body = pnlRows(ordered)
	default:
		http.NotFound(w, r)
		return
	}
	h.writeJSON(w, http.StatusOK, body)
}

type pnlRow struct {
	TradeID string  `json:"trade_id"`
	Symbol  string  `json:"symbol"`
	PnL     string  `json:"pnl"`
	Percent float64 `json:"percent"`
}

func pnlRows(trades []models.Trade) []pnlRow {
	rows := make([]pnlRow, len(trades))
	for i, t := range trades {
		rows[i] = pnlRow{
			TradeID: t.ID,
			Symbol:  t.Symbol,
			PnL:     analytics.FormatPnL(t),
			Percent: analytics.PnLPercent(t),
		}
	}
	return rows
}

// ImportHandler accepts a multipart "file" field or a raw text/csv body.
func (h *APIHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		src = file
	} else if !errors.Is(err, http.ErrNotMultipart) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid upload: " + err.Error()})
		return
	}

	report, err := h.svc.ImportCSV(r.Context(), h.userID(r), src)
	if err != nil {
		if report == nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, statusFor(err), struct {
			errorResponse
			Report *journal.ImportReport `json:"report"`
		}{errorResponse{Error: err.Error(), Hint: report.DateFormatHint}, report})
		return
	}

	status := http.StatusCreated
	if report.Partial() {
		status = http.StatusMultiStatus
	}
	h.writeJSON(w, status, report)
}

// ExportHandler streams the user's journal as a CSV download.
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), h.userID(r), &buf); err != nil {
		h.writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("trades_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = buf.WriteTo(w)
}

func (h *APIHandler) TemplateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trade_template.csv"`)
	if err := h.svc.WriteTemplate(w); err != nil {
		h.log.Error("Failed to write template", zap.Error(err))
	}
}

func (h *APIHandler) AnalysisHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Analyze(r.Context(), h.userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) SubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Subscription(r.Context(), h.userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

// ActivateHandler confirms a payment; the user comes from the auth header.
func (h *APIHandler) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	var req functions.ActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid activation body"})
		return
	}
	req.UserID = h.userID(r)

	sub, err := h.svc.ActivateSubscription(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

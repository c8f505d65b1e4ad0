package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-journal/internal/analytics"
	"trade-journal/internal/config"
	"trade-journal/internal/database"
	"trade-journal/internal/functions"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// MockFunctions is a mock type for the functions.ClientInterface type.
type MockFunctions struct {
	mock.Mock
}

func (m *MockFunctions) AnalyzeTrades(ctx context.Context, req functions.AnalysisRequest) (*functions.AnalysisResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*functions.AnalysisResponse), args.Error(1)
}

func (m *MockFunctions) ActivateSubscription(ctx context.Context, req functions.ActivationRequest) (*functions.SubscriptionStatus, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*functions.SubscriptionStatus), args.Error(1)
}

func (m *MockFunctions) GetSubscription(ctx context.Context, userID string) (*functions.SubscriptionStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*functions.SubscriptionStatus), args.Error(1)
}

type testEnv struct {
	mux   *http.ServeMux
	store *store.Store
	fn    *MockFunctions
	h     *APIHandler
}

func setupTestEnv(t *testing.T, dailyLimit bool) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	log := zap.NewNop()
	st := store.New(db, log)
	fn := new(MockFunctions)
	cfg := config.Journal{DailyTradeLimit: dailyLimit, AnalysisBatchSize: 10, AnalysisCreditCost: 1}
	svc := journal.NewService(cfg, st, fn, log)

	h := NewAPIHandler(log, svc, st.Feed(), "local")
	mux := http.NewServeMux()
	h.Register(mux)
	return &testEnv{mux: mux, store: st, fn: fn, h: h}
}

func (e *testEnv) do(method, path, user string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

const tradeJSON = `{"symbol": "NIFTY", "entry_price": 100, "exit_price": 110, "quantity": 2,
	"trade_direction": "long", "outcome": "profit", "entry_date": "15-01-2024", "entry_time": "10:00:00"}`

func TestHealthHandler(t *testing.T) {
	env := setupTestEnv(t, false)
	rec := env.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestTradeCRUD(t *testing.T) {
	env := setupTestEnv(t, false)

	rec := env.do(http.MethodPost, "/api/trades", "u1", []byte(tradeJSON), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)

	rec = env.do(http.MethodGet, "/api/trades/"+created.ID, "u1", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/trades/"+created.ID, "u2", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPatch, "/api/trades/"+created.ID, "u1", []byte(`{"notes": "held too long"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "held too long")

	rec = env.do(http.MethodPatch, "/api/trades/"+created.ID, "u1", []byte(`{"entry_date": "2024-01-15"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DD-MM-YYYY")

	rec = env.do(http.MethodGet, "/api/trades", "u1", nil, "")
	var trades []models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	assert.Len(t, trades, 1)

	rec = env.do(http.MethodDelete, "/api/trades/"+created.ID, "u1", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodDelete, "/api/trades/"+created.ID, "u1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTradeHandler_Errors(t *testing.T) {
	env := setupTestEnv(t, true)

	rec := env.do(http.MethodPost, "/api/trades", "u1", []byte(`{"symbol": "NIFTY"`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/trades", "u1", []byte(`{"symbol": "NIFTY", "entry_price": 100, "entry_date": "15-01-2024", "trade_type": "crypto"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/trades", "u1", []byte(tradeJSON), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(http.MethodPost, "/api/trades", "u1", []byte(tradeJSON), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDefaultUser(t *testing.T) {
	env := setupTestEnv(t, false)
	rec := env.do(http.MethodPost, "/api/trades", "", []byte(tradeJSON), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	trades, err := env.store.ListTrades(context.Background(), "local")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestStatisticsAndAnalytics(t *testing.T) {
	env := setupTestEnv(t, false)
	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/api/trades", "u1", []byte(tradeJSON), "application/json")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(http.MethodGet, "/api/statistics", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary analytics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalTrades)
	assert.InDelta(t, 40.0, summary.TotalPnL, 1e-9)

	rec = env.do(http.MethodGet, "/api/analytics/equity?initial=1000", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var curve []analytics.EquityPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &curve))
	require.Len(t, curve, 2)
	assert.InDelta(t, 1040.0, curve[1].Balance, 1e-9)

	for _, kind := range []string{"drawdown", "durations", "streaks", "consistency", "pnl"} {
		rec = env.do(http.MethodGet, "/api/analytics/"+kind, "u1", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, kind)
	}

	rec = env.do(http.MethodGet, "/api/analytics/equity?initial=abc", "u1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodGet, "/api/analytics/unknown", "u1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

const importHeader = "symbol,entry_price,quantity,entry_date,entry_time\n"

func TestImportHandler(t *testing.T) {
	t.Run("RawBody", func(t *testing.T) {
		env := setupTestEnv(t, true)
		body := importHeader + "NIFTY,100,1,15-01-2024,09:30\nNIFTY,101,1,15-01-2024,10:30\n"
		rec := env.do(http.MethodPost, "/api/import", "u1", []byte(body), "text/csv")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var report journal.ImportReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 2, report.Imported)
	})

	t.Run("MultipartPartial", func(t *testing.T) {
		env := setupTestEnv(t, false)
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "trades.csv")
		require.NoError(t, err)
		_, _ = part.Write([]byte(importHeader + "NIFTY,100,1,15-01-2024,09:30\nNIFTY,100,1,2024-01-15,09:30\n"))
		require.NoError(t, mw.Close())

		rec := env.do(http.MethodPost, "/api/import", "u1", buf.Bytes(), mw.FormDataContentType())
		require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

		var report journal.ImportReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, 1, report.Imported)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, journal.DateFormatHint, report.DateFormatHint)
	})

	t.Run("AllFail", func(t *testing.T) {
		env := setupTestEnv(t, false)
		body := importHeader + "NIFTY,100,1,2024-01-15,09:30\n"
		rec := env.do(http.MethodPost, "/api/import", "u1", []byte(body), "text/csv")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"hint"`)
		assert.Contains(t, rec.Body.String(), `"report"`)
	})
}

func TestExportAndTemplate(t *testing.T) {
	env := setupTestEnv(t, false)

	rec := env.do(http.MethodGet, "/api/export", "u1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no trades to export")

	rec = env.do(http.MethodPost, "/api/trades", "u1", []byte(tradeJSON), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/api/export", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trades_")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,user_id,symbol"))

	rec = env.do(http.MethodGet, "/api/template", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "symbol,"))
}

func TestAnalysisAndSubscription(t *testing.T) {
	env := setupTestEnv(t, false)
	ctx := context.Background()

	rec := env.do(http.MethodPost, "/api/analysis", "u1", nil, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	req := functions.ActivationRequest{UserID: "u1", Plan: "pro", PaymentRef: "pay_9"}
	env.fn.On("ActivateSubscription", mock.Anything, req).
		Return(&functions.SubscriptionStatus{UserID: "u1", Plan: "pro", Credits: 5, Active: true}, nil).Once()

	rec = env.do(http.MethodPost, "/api/subscription/activate", "u1", []byte(`{"plan": "pro", "payment_id": "pay_9"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/subscription", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"credits":5`)

	rec = env.do(http.MethodPost, "/api/analysis", "u1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no trades yet")

	require.NoError(t, env.store.CreateTrade(ctx, &models.Trade{UserID: "u1", Symbol: "NIFTY", EntryPrice: 100, EntryDate: "15-01-2024"}))
	env.fn.On("AnalyzeTrades", mock.Anything, mock.Anything).
		Return(&functions.AnalysisResponse{Analysis: "Keep a stop loss."}, nil).Once()

	rec = env.do(http.MethodPost, "/api/analysis", "u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Keep a stop loss.")
	assert.Contains(t, rec.Body.String(), `"credits_remaining":4`)
	env.fn.AssertExpectations(t)
}

func TestStreamHandler(t *testing.T) {
	env := setupTestEnv(t, false)
	server := httptest.NewServer(env.mux)
	defer server.Close()

	header := http.Header{}
	header.Set(userHeader, "u1")
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.store.Feed().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, env.store.CreateTrade(ctx, &models.Trade{UserID: "u2", Symbol: "OTHER", EntryPrice: 1, EntryDate: "15-01-2024"}))
	mine := &models.Trade{UserID: "u1", Symbol: "NIFTY", EntryPrice: 100, EntryDate: "15-01-2024"}
	require.NoError(t, env.store.CreateTrade(ctx, mine))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev store.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, store.ChangeCreated, ev.Kind)
	assert.Equal(t, mine.ID, ev.TradeID, "events of other users are filtered out")
}

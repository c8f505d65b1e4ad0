package functions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal/internal/config"
	"trade-journal/internal/models"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:  resty.New().SetBaseURL(server.URL).SetHeader("Content-Type", "application/json"),
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		backoff: time.Millisecond,
	}
	return c, server
}

func TestAnalyzeTrades(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, analyzePath, r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var body AnalysisRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "u1", body.UserID)
			assert.Len(t, body.Trades, 1)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"analysis": "Cut losers faster."}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		resp, err := c.AnalyzeTrades(context.Background(), AnalysisRequest{
			UserID: "u1",
			Trades: []models.Trade{{Symbol: "NIFTY", EntryPrice: 100}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Cut losers faster.", resp.Analysis)
	})

	t.Run("RetriesServerError", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"analysis": "ok"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		resp, err := c.AnalyzeTrades(context.Background(), AnalysisRequest{UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Analysis)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.AnalyzeTrades(context.Background(), AnalysisRequest{UserID: "u1"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to analyze trades")
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("NoRetryOnClientError", func(t *testing.T) {
		var calls int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error": "no credits"}`))
		})

		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.AnalyzeTrades(context.Background(), AnalysisRequest{UserID: "u1"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "402")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestActivateSubscription(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, activatePath, r.URL.Path)

		var body ActivationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pay_123", body.PaymentRef)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id": "u1", "plan": "pro", "credits": 50, "active": true}`))
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	status, err := c.ActivateSubscription(context.Background(), ActivationRequest{UserID: "u1", Plan: "pro", PaymentRef: "pay_123"})
	require.NoError(t, err)
	assert.Equal(t, 50, status.Credits)
	assert.True(t, status.Active)

	var sub models.Subscription
	status.Apply(&sub)
	assert.Equal(t, "u1", sub.UserID)
	assert.Equal(t, "pro", sub.Plan)
}

func TestGetSubscription(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, subscriptionPath, r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id": "u1", "plan": "basic", "credits": 3, "active": true, "expires_at": "2025-01-01T00:00:00Z"}`))
	})

	c, server := setupTestServer(handler)
	defer server.Close()

	status, err := c.GetSubscription(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, 2025, status.ExpiresAt.Year())
}

func TestNewClient(t *testing.T) {
	t.Run("WithKey", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "secret", r.Header.Get("apikey"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user_id": "u1"}`))
		})
		server := httptest.NewServer(handler)
		defer server.Close()

		cfg := &config.Functions{BaseURL: server.URL, APIKey: "secret", RateLimit: 10, RateLimitBurst: 1, Timeout: time.Second}
		c := NewClient(cfg, zap.NewNop())
		_, err := c.GetSubscription(context.Background(), "u1")
		assert.NoError(t, err)
	})

	t.Run("WithoutKey", func(t *testing.T) {
		c := NewClient(&config.Functions{BaseURL: "http://localhost", RateLimit: 1, RateLimitBurst: 1}, zap.NewNop())
		assert.NotNil(t, c)
		assert.Equal(t, time.Second, c.backoff)
	})
}

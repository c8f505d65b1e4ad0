// Package functions talks to the hosted serverless functions that back AI
// trade analysis and subscription payments.
package functions

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal/internal/analytics"
	"trade-journal/internal/config"
	"trade-journal/internal/models"
)

const (
	analyzePath      = "/analyze-trades"
	activatePath     = "/activate-subscription"
	subscriptionPath = "/subscription-status"
)

// ClientInterface defines the interface for the functions client.
type ClientInterface interface {
	AnalyzeTrades(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error)
	ActivateSubscription(ctx context.Context, req ActivationRequest) (*SubscriptionStatus, error)
	GetSubscription(ctx context.Context, userID string) (*SubscriptionStatus, error)
}

// Client is a resty-based client for the functions endpoint.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new functions client.
func NewClient(cfg *config.Functions, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey).SetHeader("apikey", cfg.APIKey)
	} else {
		logger.Warn("Functions API key is empty; requests are unauthenticated")
	}

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger.Named("functions"),
		limiter: limiter,
		backoff: time.Second,
	}
}

// AnalysisRequest is the batch of trades sent for commentary.
type AnalysisRequest struct {
	UserID  string             `json:"user_id"`
	Trades  []models.Trade     `json:"trades"`
	Summary *analytics.Summary `json:"summary,omitempty"`
}

// AnalysisResponse carries the free-text commentary.
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
	Model    string `json:"model,omitempty"`
}

// ActivationRequest confirms a completed payment for a plan.
type ActivationRequest struct {
	UserID     string `json:"user_id"`
	Plan       string `json:"plan"`
	PaymentRef string `json:"payment_id"`
	Signature  string `json:"signature,omitempty"`
}

// SubscriptionStatus is the payment service's view of a user's plan.
type SubscriptionStatus struct {
	UserID    string     `json:"user_id"`
	Plan      string     `json:"plan"`
	Credits   int        `json:"credits"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Apply copies the remote status onto a local subscription row.
func (s *SubscriptionStatus) Apply(sub *models.Subscription) {
	sub.UserID = s.UserID
	sub.Plan = s.Plan
	sub.Credits = s.Credits
	sub.Active = s.Active
	sub.ExpiresAt = s.ExpiresAt
}

// AnalyzeTrades asks the analysis function to comment on a trade batch.
func (c *Client) AnalyzeTrades(ctx context.Context, in AnalysisRequest) (*AnalysisResponse, error) {
	req := c.client.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&AnalysisResponse{})

	resp, err := c.doRequest(ctx, http.MethodPost, analyzePath, req)
	if err != nil {
		c.logger.Error("Failed to analyze trades", zap.Error(err), zap.String("user_id", in.UserID))
		return nil, fmt.Errorf("failed to analyze trades: %w", err)
	}

	return resp.Result().(*AnalysisResponse), nil
}

// ActivateSubscription verifies a payment and returns the resulting plan.
func (c *Client) ActivateSubscription(ctx context.Context, in ActivationRequest) (*SubscriptionStatus, error) {
	req := c.client.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&SubscriptionStatus{})

	resp, err := c.doRequest(ctx, http.MethodPost, activatePath, req)
	if err != nil {
		c.logger.Error("Failed to activate subscription",
			zap.Error(err),
			zap.String("user_id", in.UserID),
			zap.String("plan", in.Plan),
		)
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	result := resp.Result().(*SubscriptionStatus)
	c.logger.Info("Subscription activated", zap.String("user_id", result.UserID), zap.Int("credits", result.Credits))
	return result, nil
}

// GetSubscription fetches the current plan state for userID.
func (c *Client) GetSubscription(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		SetResult(&SubscriptionStatus{})

	resp, err := c.doRequest(ctx, http.MethodGet, subscriptionPath, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return resp.Result().(*SubscriptionStatus), nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else if ctx.Err() == nil { // network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}
		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil {
		return nil, fmt.Errorf("request failed after %d attempts with status %s", maxRetries, resp.Status())
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

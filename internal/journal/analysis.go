package journal

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"trade-journal/internal/analytics"
	"trade-journal/internal/functions"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
	"trade-journal/internal/trace"
)

var (
	// ErrNoSubscription is returned when analysis is requested without an active plan.
	ErrNoSubscription = errors.New("no active subscription")
	// ErrNothingToAnalyze is returned when the user has no trades.
	ErrNothingToAnalyze = errors.New("no trades to analyze")
	// ErrInvalidActivation is returned when an activation lacks user or payment reference.
	ErrInvalidActivation = errors.New("user_id and payment_id are required")
)

// AnalysisReport is the AI commentary plus the metrics it was given.
type AnalysisReport struct {
	Analysis         string            `json:"analysis"`
	Summary          analytics.Summary `json:"summary"`
	TradeCount       int               `json:"trade_count"`
	CreditsRemaining int               `json:"credits_remaining"`
}

// Analyze sends the user's most recent trades to the analysis function.
// Credits are charged only after the function answers.
func (s *Service) Analyze(ctx context.Context, userID string) (*AnalysisReport, error) {
	ctx, span := trace.StartSpan(ctx, "journal.Analyze")
	defer span.End()

	cost := s.cfg.AnalysisCreditCost
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}
	if !sub.Usable(s.now()) {
		return nil, ErrNoSubscription
	}
	if sub.Credits < cost {
		return nil, store.ErrInsufficientCredits
	}

	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNothingToAnalyze
	}
	if n := s.cfg.AnalysisBatchSize; n > 0 && len(trades) > n {
		trades = trades[:n]
	}
	summary := analytics.Summarize(trades)
	span.SetAttributes(attribute.Int("analysis.trades", len(trades)))

	resp, err := s.functions.AnalyzeTrades(ctx, functions.AnalysisRequest{
		UserID:  userID,
		Trades:  trades,
		Summary: &summary,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if cost > 0 {
		if err := s.store.ConsumeCredits(ctx, userID, cost); err != nil {
			return nil, err
		}
	}
	ids := make([]string, len(trades))
	for i, t := range trades {
		ids[i] = t.ID
	}
	if err := s.store.IncrementAnalysisCount(ctx, userID, ids); err != nil {
		s.logger.Error("Failed to record analysis count", zap.Error(err), zap.String("user_id", userID))
	}

	s.logger.Info("Trades analyzed",
		append(trace.Fields(ctx),
			zap.String("user_id", userID),
			zap.Int("trades", len(trades)),
			zap.Int("cost", cost),
		)...,
	)
	return &AnalysisReport{
		Analysis:         resp.Analysis,
		Summary:          summary,
		TradeCount:       len(trades),
		CreditsRemaining: sub.Credits - cost,
	}, nil
}

// ActivateSubscription confirms a payment with the payment function and
// stores the resulting plan.
func (s *Service) ActivateSubscription(ctx context.Context, req functions.ActivationRequest) (*models.Subscription, error) {
	if req.UserID == "" || req.PaymentRef == "" {
		return nil, ErrInvalidActivation
	}
	status, err := s.functions.ActivateSubscription(ctx, req)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{PaymentRef: req.PaymentRef}
	status.Apply(sub)
	if sub.UserID == "" {
		sub.UserID = req.UserID
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Subscription returns the locally stored plan of userID.
func (s *Service) Subscription(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.store.GetSubscription(ctx, userID)
}

// RefreshSubscriptions re-syncs every active subscription from the payment
// function. Failures are logged per user and do not stop the sweep.
func (s *Service) RefreshSubscriptions(ctx context.Context) (int, error) {
	subs, err := s.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for i := range subs {
		sub := &subs[i]
		userID := sub.UserID
		status, err := s.functions.GetSubscription(ctx, userID)
		if err != nil {
			s.logger.Error("Failed to refresh subscription", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		status.Apply(sub)
		sub.UserID = userID
		if sub.ExpiresAt != nil && !sub.Usable(s.now()) {
			sub.Active = false
		}
		if err := s.store.SaveSubscription(ctx, sub); err != nil {
			s.logger.Error("Failed to save refreshed subscription", zap.String("user_id", sub.UserID), zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// Package journal orchestrates trade CRUD, CSV import/export, AI analysis
// and subscription state on top of the store and the remote functions.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-journal/internal/analytics"
	"trade-journal/internal/config"
	"trade-journal/internal/csvio"
	"trade-journal/internal/functions"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// ErrDailyLimit is returned when a user already logged a trade today.
var ErrDailyLimit = errors.New("only one trade can be logged per day")

// Service is the journal's application layer.
type Service struct {
	cfg       config.Journal
	store     store.TradeStore
	functions functions.ClientInterface
	importer  *csvio.Importer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new Service.
func NewService(cfg config.Journal, st store.TradeStore, fn functions.ClientInterface, logger *zap.Logger) *Service {
	return &Service{
		cfg:       cfg,
		store:     st,
		functions: fn,
		importer:  csvio.NewImporter(st, logger),
		logger:    logger.Named("journal"),
		now:       time.Now,
	}
}

// CreateTrade logs a new trade for userID. The server assigns id and
// creation time; with the daily limit on, a second trade on the same
// day is rejected.
func (s *Service) CreateTrade(ctx context.Context, userID string, trade *models.Trade) error {
	if err := trade.Normalize(); err != nil {
		return err
	}
	now := s.now()
	trade.ID = ""
	trade.UserID = userID
	trade.Timestamp = now
	trade.AnalysisCount = 0

	if s.cfg.DailyTradeLimit {
		count, err := s.store.CountTradesCreatedOn(ctx, userID, now)
		if err != nil {
			return err
		}
		if count > 0 {
			s.logger.Info("Daily trade limit reached", zap.String("user_id", userID))
			return ErrDailyLimit
		}
	}

	if err := s.store.CreateTrade(ctx, trade); err != nil {
		return err
	}
	s.logger.Info("Trade logged",
		zap.String("user_id", userID),
		zap.String("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
	)
	return nil
}

// UpdateTrade applies a JSON merge patch to an existing trade and re-validates it.
// Identity and bookkeeping fields cannot be patched.
func (s *Service) UpdateTrade(ctx context.Context, userID, id string, patch []byte) (*models.Trade, error) {
	existing, err := s.store.GetTrade(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if err := json.Unmarshal(patch, &updated); err != nil {
		return nil, fmt.Errorf("%w: malformed patch: %v", models.ErrInvalidTrade, err)
	}
	updated.ID = existing.ID
	updated.UserID = existing.UserID
	updated.Timestamp = existing.Timestamp
	updated.AnalysisCount = existing.AnalysisCount

	if err := updated.Normalize(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTrade(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) DeleteTrade(ctx context.Context, userID, id string) error {
	return s.store.DeleteTrade(ctx, userID, id)
}

func (s *Service) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	return s.store.GetTrade(ctx, userID, id)
}

// ListTrades returns the user's trades, most recent entry first.
func (s *Service) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	return s.store.ListTrades(ctx, userID)
}

// Statistics summarizes the user's current trade snapshot.
func (s *Service) Statistics(ctx context.Context, userID string) (analytics.Summary, error) {
	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Summarize(trades), nil
}

// Package store persists journal trades and subscriptions with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-journal/internal/analytics"
	"trade-journal/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist for the user.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientCredits is returned when a subscription cannot cover a charge.
	ErrInsufficientCredits = errors.New("insufficient analysis credits")
)

// TradeStore is the data-access surface the service layer depends on.
type TradeStore interface {
	CreateTrade(ctx context.Context, trade *models.Trade) error
	InsertTrade(ctx context.Context, trade *models.Trade) error
	UpdateTrade(ctx context.Context, trade *models.Trade) error
	DeleteTrade(ctx context.Context, userID, id string) error
	GetTrade(ctx context.Context, userID, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, userID string) ([]models.Trade, error)
	CountTradesCreatedOn(ctx context.Context, userID string, day time.Time) (int64, error)
	IncrementAnalysisCount(ctx context.Context, userID string, ids []string) error

	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	ListActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	ConsumeCredits(ctx context.Context, userID string, n int) error
}

// Store is the gorm implementation of TradeStore.
type Store struct {
	db     *gorm.DB
	feed   *Feed
	logger *zap.Logger
	now    func() time.Time
}

// ensure Store implements the interface
var _ TradeStore = (*Store)(nil)

// New creates a Store over an already migrated database.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		feed:   NewFeed(logger),
		logger: logger.Named("store"),
		now:    time.Now,
	}
}

// Feed returns the change feed published on every trade write.
func (s *Store) Feed() *Feed {
	return s.feed
}

func (s *Store) publish(kind ChangeKind, userID, tradeID string) {
	s.feed.Publish(ChangeEvent{Kind: kind, UserID: userID, TradeID: tradeID, At: s.now()})
}

// CreateTrade validates and inserts a trade, assigning an id and creation
// timestamp when missing.
func (s *Store) CreateTrade(ctx context.Context, trade *models.Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = s.now()
	}
	trade.Timestamp = trade.Timestamp.UTC()

	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	s.logger.Debug("Trade created", zap.String("trade_id", trade.ID), zap.String("user_id", trade.UserID))
	s.publish(ChangeCreated, trade.UserID, trade.ID)
	return nil
}

// InsertTrade lets the store act as the CSV import sink.
func (s *Store) InsertTrade(ctx context.Context, trade *models.Trade) error {
	return s.CreateTrade(ctx, trade)
}

// UpdateTrade validates and overwrites an existing trade.
func (s *Store) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	if err := trade.Validate(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ? AND user_id = ?", trade.ID, trade.UserID).
		Select("*").
		Updates(trade)
	if res.Error != nil {
		return fmt.Errorf("failed to update trade %s: %w", trade.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", trade.ID, ErrNotFound)
	}
	s.publish(ChangeUpdated, trade.UserID, trade.ID)
	return nil
}

// DeleteTrade removes a trade by id.
func (s *Store) DeleteTrade(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Trade{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	s.publish(ChangeDeleted, userID, id)
	return nil
}

// GetTrade loads one trade owned by userID.
func (s *Store) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %s: %w", id, err)
	}
	return &trade, nil
}

// ListTrades returns all trades of a user, most recent entry first. Entry
// dates are parsed, not compared as strings.
func (s *Store) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	sorted := analytics.SortByEntry(trades)
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted, nil
}

// CountTradesCreatedOn counts the user's trades created on day's UTC calendar date.
func (s *Store) CountTradesCreatedOn(ctx context.Context, userID string, day time.Time) (int64, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// IncrementAnalysisCount bumps analysis_count on the given trades.
func (s *Store) IncrementAnalysisCount(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		UpdateColumn("analysis_count", gorm.Expr("analysis_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to increment analysis count: %w", err)
	}
	return nil
}

// GetSubscription loads the user's subscription.
func (s *Store) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// SaveSubscription inserts or replaces the user's subscription row.
func (s *Store) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "credits", "active", "payment_ref", "expires_at", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// ListActiveSubscriptions returns every subscription flagged active.
func (s *Store) ListActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// ConsumeCredits atomically deducts n credits from an active subscription.
func (s *Store) ConsumeCredits(ctx context.Context, userID string, n int) error {
	res := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND active = ? AND credits >= ?", userID, true, n).
		UpdateColumn("credits", gorm.Expr("credits - ?", n))
	if res.Error != nil {
		return fmt.Errorf("failed to consume credits: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

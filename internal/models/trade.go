package models

import (
	"fmt"
	"strings"
	"time"
)

// Trade is one logged buy/sell cycle in a user's journal.
// Column names double as the CSV header vocabulary.
type Trade struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	Symbol    string    `gorm:"not null" json:"symbol"`
	TradeType TradeType `json:"trade_type"`
	Direction Direction `gorm:"column:trade_direction" json:"trade_direction"`
	Strategy  string    `json:"strategy"`
	Outcome   Outcome   `json:"outcome"`

	EntryPrice float64  `gorm:"not null" json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price"`
	Quantity   *float64 `json:"quantity"`
	StopLoss   *float64 `json:"stop_loss"`
	PlannedRR  *float64 `gorm:"column:planned_rr" json:"planned_rr"`
	ActualRR   *float64 `gorm:"column:actual_rr" json:"actual_rr"`
	Slippage   *float64 `json:"slippage"`

	EntryDate string    `gorm:"index" json:"entry_date"`
	EntryTime string    `json:"entry_time"`
	ExitDate  string    `json:"exit_date"`
	ExitTime  string    `json:"exit_time"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	EntryEmotion      Emotion         `json:"entry_emotion"`
	ExitEmotion       Emotion         `json:"exit_emotion"`
	ConfidenceLevel   *float64        `json:"confidence_level"`
	StressLevel       *float64        `json:"stress_level"`
	SatisfactionScore *float64        `json:"satisfaction_score"`
	IsImpulsive       *bool           `json:"is_impulsive"`
	PlanDeviation     *bool           `json:"plan_deviation"`
	MarketCondition   MarketCondition `json:"market_condition"`
	Timeframe         Timeframe       `json:"timeframe"`
	VWAPPosition      LevelPosition   `gorm:"column:vwap_position" json:"vwap_position"`
	EMAPosition       LevelPosition   `gorm:"column:ema_position" json:"ema_position"`
	ExitReason        ExitReason      `json:"exit_reason"`

	Notes       string     `json:"notes"`
	ChartLink   string     `json:"chart_link"`
	VIX         *float64   `gorm:"column:vix" json:"vix"`
	CallIV      *float64   `gorm:"column:call_iv" json:"call_iv"`
	PutIV       *float64   `gorm:"column:put_iv" json:"put_iv"`
	StrikePrice *float64   `json:"strike_price"`
	OptionType  OptionType `json:"option_type"`

	AnalysisCount int `gorm:"default:0" json:"analysis_count"`
}

// IsClosed reports whether the trade carries both exit price and quantity,
// the precondition for any realized P&L.
func (t *Trade) IsClosed() bool {
	return t.ExitPrice != nil && t.Quantity != nil
}

// EntryAt combines entry_date and entry_time.
func (t *Trade) EntryAt() (time.Time, error) {
	return combine(t.EntryDate, t.EntryTime)
}

// ExitAt combines exit_date (falling back to entry_date) and exit_time.
func (t *Trade) ExitAt() (time.Time, error) {
	date := t.ExitDate
	if strings.TrimSpace(date) == "" {
		date = t.EntryDate
	}
	return combine(date, t.ExitTime)
}

// Validate checks the rules every persisted trade must hold.
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidTrade)
	}
	if t.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry_price must be positive, got %v", ErrInvalidTrade, t.EntryPrice)
	}
	if t.Quantity != nil && *t.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %v", ErrInvalidTrade, *t.Quantity)
	}
	if t.ConfidenceLevel != nil && (*t.ConfidenceLevel < 1 || *t.ConfidenceLevel > 10) {
		return fmt.Errorf("%w: confidence_level must be between 1 and 10, got %v", ErrInvalidTrade, *t.ConfidenceLevel)
	}
	if t.EntryDate == "" {
		return fmt.Errorf("%w: entry_date is required", ErrInvalidTrade)
	}
	if _, err := t.EntryAt(); err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	if t.ExitDate != "" {
		if _, err := ParseTradeDate(t.ExitDate); err != nil {
			return fmt.Errorf("exit: %w", err)
		}
	}
	if t.ExitTime != "" {
		if _, err := ParseTradeClock(t.ExitTime); err != nil {
			return fmt.Errorf("exit: %w", err)
		}
	}
	return nil
}

// Normalize canonicalizes enum fields set from JSON or other free-form
// input. Core enums reject unknown values; descriptive tags fall back to unset.
func (t *Trade) Normalize() error {
	var err error
	if t.Direction, err = ParseDirection(string(t.Direction)); err != nil {
		return err
	}
	if t.TradeType, err = ParseTradeType(string(t.TradeType)); err != nil {
		return err
	}
	if t.Outcome, err = ParseOutcome(string(t.Outcome)); err != nil {
		return err
	}
	if t.OptionType, err = ParseOptionType(string(t.OptionType)); err != nil {
		return err
	}
	t.EntryEmotion = ParseEmotion(string(t.EntryEmotion))
	t.ExitEmotion = ParseEmotion(string(t.ExitEmotion))
	t.ExitReason = ParseExitReason(string(t.ExitReason))
	t.MarketCondition = ParseMarketCondition(string(t.MarketCondition))
	t.Timeframe = ParseTimeframe(string(t.Timeframe))
	t.VWAPPosition = ParseLevelPosition(string(t.VWAPPosition))
	t.EMAPosition = ParseLevelPosition(string(t.EMAPosition))
	t.Symbol = strings.TrimSpace(t.Symbol)
	return nil
}

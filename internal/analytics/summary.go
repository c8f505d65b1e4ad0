package analytics

import "trade-journal/internal/models"

// Summary is the dashboard view of a trade snapshot.
type Summary struct {
	TotalTrades       int               `json:"total_trades"`
	CompletedTrades   int               `json:"completed_trades"`
	TotalPnL          float64           `json:"total_pnl"`
	TotalProfit       float64           `json:"total_profit"`
	TotalLoss         float64           `json:"total_loss"`
	WinRate           float64           `json:"win_rate"`
	ProfitFactor      float64           `json:"profit_factor"`
	Expectancy        float64           `json:"expectancy"`
	SharpeRatio       float64           `json:"sharpe_ratio"`
	MaxDrawdown       float64           `json:"max_drawdown"`
	LongestWinStreak  int               `json:"longest_win_streak"`
	LongestLossStreak int               `json:"longest_loss_streak"`
	RiskReward        RiskReward        `json:"risk_reward"`
	ConsistencyScore  string            `json:"consistency_score"`
	Consistency       ConsistencyReport `json:"consistency"`
}

// Summarize computes every headline metric. Order-dependent metrics
// (drawdown, streaks) use entry order.
func Summarize(trades []models.Trade) Summary {
	ordered := SortByEntry(trades)
	consistency := ConsistencyBreakdown(trades)
	return Summary{
		TotalTrades:       len(trades),
		CompletedTrades:   len(completed(trades)),
		TotalPnL:          TotalPnL(trades),
		TotalProfit:       TotalProfit(trades),
		TotalLoss:         TotalLoss(trades),
		WinRate:           WinRate(trades),
		ProfitFactor:      ProfitFactor(trades),
		Expectancy:        Expectancy(trades),
		SharpeRatio:       SharpeRatio(Returns(ordered)),
		MaxDrawdown:       MaxDrawdown(ordered, 0),
		LongestWinStreak:  LongestStreak(ordered, models.OutcomeProfit),
		LongestLossStreak: LongestStreak(ordered, models.OutcomeLoss),
		RiskReward:        AverageRiskReward(trades),
		ConsistencyScore:  consistency.Display(),
		Consistency:       consistency,
	}
}

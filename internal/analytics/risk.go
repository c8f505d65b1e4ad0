package analytics

import (
	"math"

	"trade-journal/internal/models"
)

// TradingDaysPerYear annualizes the Sharpe ratio.
const TradingDaysPerYear = 252

// SharpeRatio is the annualized mean/stddev of a return series using the
// population variance. A flat or empty series yields 0.
func SharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	n := float64(len(returns))

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= n

	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return finite(mean / stdDev * math.Sqrt(TradingDaysPerYear))
}

// Returns collects the percentage return of every realized trade, in order.
func Returns(trades []models.Trade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, PnLPercent(t))
		}
	}
	return out
}

func completed(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, t)
		}
	}
	return out
}

// WinRate is the share of completed trades whose outcome is profit.
func WinRate(trades []models.Trade) float64 {
	done := completed(trades)
	if len(done) == 0 {
		return 0
	}
	wins := 0
	for _, t := range done {
		if t.Outcome == models.OutcomeProfit {
			wins++
		}
	}
	return float64(wins) / float64(len(done))
}

// Expectancy is winRate*avgWin - (1-winRate)*avgLoss over completed trades,
// partitioned by the user-asserted outcome.
func Expectancy(trades []models.Trade) float64 {
	done := completed(trades)
	if len(done) == 0 {
		return 0
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, t := range done {
		switch t.Outcome {
		case models.OutcomeProfit:
			wins++
			winSum += math.Abs(TradePnL(t))
		case models.OutcomeLoss:
			losses++
			lossSum += math.Abs(TradePnL(t))
		}
	}

	avgWin, avgLoss := 0.0, 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	winRate := float64(wins) / float64(len(done))

	return winRate*avgWin - (1-winRate)*avgLoss
}

// ProfitFactor is gross profit over gross loss. It is 0 without losses.
func ProfitFactor(trades []models.Trade) float64 {
	loss := math.Abs(TotalLoss(trades))
	if loss == 0 {
		return 0
	}
	return TotalProfit(trades) / loss
}

// RiskReward holds the mean planned and actual risk-reward ratios.
type RiskReward struct {
	Planned float64 `json:"planned"`
	Actual  float64 `json:"actual"`
}

// AverageRiskReward averages the planned and actual R:R over the trades that carry them.
func AverageRiskReward(trades []models.Trade) RiskReward {
	var rr RiskReward
	var planned, actual int
	for _, t := range trades {
		if t.PlannedRR != nil {
			rr.Planned += *t.PlannedRR
			planned++
		}
		if t.ActualRR != nil {
			rr.Actual += *t.ActualRR
			actual++
		}
	}
	if planned > 0 {
		rr.Planned /= float64(planned)
	}
	if actual > 0 {
		rr.Actual /= float64(actual)
	}
	return rr
}

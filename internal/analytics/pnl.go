// Package analytics derives performance, risk and discipline metrics from a
// snapshot of journal trades. Every function is pure: it reads the slice it is
// given and returns a freshly computed value.
package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// NotAvailable is displayed in place of a P&L that cannot be computed yet.
const NotAvailable = "N/A"

func directionSign(d models.Direction) float64 {
	if d == models.DirectionShort {
		return -1
	}
	return 1
}

// RealizedPnL returns the direction-aware P&L of a trade and whether it is realized.
func RealizedPnL(t models.Trade) (float64, bool) {
	if !t.IsClosed() {
		return 0, false
	}
	return directionSign(t.Direction) * (*t.ExitPrice - t.EntryPrice) * *t.Quantity, true
}

// TradePnL returns the realized P&L, or 0 when exit price or quantity is missing.
func TradePnL(t models.Trade) float64 {
	pnl, _ := RealizedPnL(t)
	return pnl
}

// TotalPnL sums TradePnL over the list.
func TotalPnL(trades []models.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += TradePnL(t)
	}
	return total
}

// ProfitOf returns the positive part of a trade's P&L.
func ProfitOf(t models.Trade) float64 {
	return math.Max(TradePnL(t), 0)
}

// LossOf returns the negative part of a trade's P&L (zero or less).
func LossOf(t models.Trade) float64 {
	return math.Min(TradePnL(t), 0)
}

// TotalProfit sums the winning P&L over the list.
func TotalProfit(trades []models.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += ProfitOf(t)
	}
	return total
}

// TotalLoss sums the losing P&L over the list. The result is zero or negative.
func TotalLoss(trades []models.Trade) float64 {
	total := 0.0
	for _, t := range trades {
		total += LossOf(t)
	}
	return total
}

// PnLPercent is the direction-aware move relative to the entry price.
// Unrealized trades and a zero entry price yield 0.
func PnLPercent(t models.Trade) float64 {
	if !t.IsClosed() || t.EntryPrice == 0 {
		return 0
	}
	pct := directionSign(t.Direction) * (*t.ExitPrice - t.EntryPrice) / t.EntryPrice * 100
	return finite(pct)
}

// FormatPnL renders a trade's P&L with two decimals, or NotAvailable.
func FormatPnL(t models.Trade) string {
	pnl, ok := RealizedPnL(t)
	if !ok {
		return NotAvailable
	}
	return decimal.NewFromFloat(finite(pnl)).StringFixed(2)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

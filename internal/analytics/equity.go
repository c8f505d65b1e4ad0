package analytics

import (
	"sort"
	"time"

	"trade-journal/internal/models"
)

// DurationPoint aggregates the closed trades of one calendar day.
type DurationPoint struct {
	Date               string  `json:"date"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	TotalPnL           float64 `json:"total_pnl"`
	AvgPnL             float64 `json:"avg_pnl"`
	TradeCount         int     `json:"trade_count"`

	day time.Time
}

// DurationStats groups trades that have entry time, exit time and a realized
// P&L by entry day, sorted chronologically.
func DurationStats(trades []models.Trade) []DurationPoint {
	byDay := make(map[time.Time]*DurationPoint)
	minutes := make(map[time.Time]float64)

	for _, t := range trades {
		if t.EntryTime == "" || t.ExitTime == "" {
			continue
		}
		pnl, ok := RealizedPnL(t)
		if !ok {
			continue
		}
		entry, err := t.EntryAt()
		if err != nil {
			continue
		}
		exit, err := t.ExitAt()
		if err != nil || exit.Before(entry) {
			continue
		}

		day := time.Date(entry.Year(), entry.Month(), entry.Day(), 0, 0, 0, 0, time.UTC)
		p, found := byDay[day]
		if !found {
			p = &DurationPoint{Date: day.Format(models.DateLayout), day: day}
			byDay[day] = p
		}
		p.TradeCount++
		p.TotalPnL += pnl
		minutes[day] += exit.Sub(entry).Minutes()
	}

	out := make([]DurationPoint, 0, len(byDay))
	for day, p := range byDay {
		p.AvgDurationMinutes = minutes[day] / float64(p.TradeCount)
		p.AvgPnL = p.TotalPnL / float64(p.TradeCount)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out
}

// EquityPoint is the running balance after one realized trade.
type EquityPoint struct {
	TradeID string  `json:"trade_id"`
	Date    string  `json:"date"`
	PnL     float64 `json:"pnl"`
	Balance float64 `json:"balance"`
}

// EquityCurve accumulates realized P&L in the given order, starting at
// initial. Open trades emit no point, so the curve has a gap, not a flat step,
// while a position is open. The input is not re-sorted.
func EquityCurve(trades []models.Trade, initial float64) []EquityPoint {
	out := make([]EquityPoint, 0, len(trades))
	balance := initial
	for _, t := range trades {
		pnl, ok := RealizedPnL(t)
		if !ok {
			continue
		}
		balance += pnl
		out = append(out, EquityPoint{TradeID: t.ID, Date: t.EntryDate, PnL: pnl, Balance: balance})
	}
	return out
}

// DrawdownPoint is the decline from the running peak after one realized trade.
type DrawdownPoint struct {
	TradeID         string  `json:"trade_id"`
	Date            string  `json:"date"`
	Balance         float64 `json:"balance"`
	Peak            float64 `json:"peak"`
	DrawdownPercent float64 `json:"drawdown_percent"`
}

// Drawdown tracks the running peak over the equity curve. A zero peak yields 0%.
func Drawdown(trades []models.Trade, initial float64) []DrawdownPoint {
	curve := EquityCurve(trades, initial)
	out := make([]DrawdownPoint, 0, len(curve))
	peak := initial
	for _, p := range curve {
		if p.Balance > peak {
			peak = p.Balance
		}
		dd := 0.0
		if peak != 0 {
			dd = finite((peak - p.Balance) / peak * 100)
		}
		out = append(out, DrawdownPoint{
			TradeID:         p.TradeID,
			Date:            p.Date,
			Balance:         p.Balance,
			Peak:            peak,
			DrawdownPercent: dd,
		})
	}
	return out
}

// MaxDrawdown is the largest drawdown percentage of the series.
func MaxDrawdown(trades []models.Trade, initial float64) float64 {
	worst := 0.0
	for _, p := range Drawdown(trades, initial) {
		if p.DrawdownPercent > worst {
			worst = p.DrawdownPercent
		}
	}
	return worst
}

// Streak is a run of consecutive trades with the same outcome.
type Streak struct {
	Outcome models.Outcome `json:"outcome"`
	Length  int            `json:"length"`
}

// Streaks scans trades in order and emits one record per run, including the
// final run. Trades without an outcome are skipped and do not break a run.
func Streaks(trades []models.Trade) []Streak {
	var out []Streak
	for _, t := range trades {
		if t.Outcome == models.OutcomeUnset {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Outcome == t.Outcome {
			out[n-1].Length++
			continue
		}
		out = append(out, Streak{Outcome: t.Outcome, Length: 1})
	}
	return out
}

// LongestStreak returns the longest run length for an outcome.
func LongestStreak(trades []models.Trade, outcome models.Outcome) int {
	longest := 0
	for _, s := range Streaks(trades) {
		if s.Outcome == outcome && s.Length > longest {
			longest = s.Length
		}
	}
	return longest
}

// SortByEntry returns a copy ordered by entry date and time, oldest first.
// Ties and unparseable dates fall back to the creation timestamp.
func SortByEntry(trades []models.Trade) []models.Trade {
	type keyed struct {
		trade models.Trade
		at    time.Time
		ok    bool
	}
	items := make([]keyed, len(trades))
	for i, t := range trades {
		at, err := t.EntryAt()
		items[i] = keyed{trade: t, at: at, ok: err == nil}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ok && b.ok && !a.at.Equal(b.at):
			return a.at.Before(b.at)
		case a.ok != b.ok:
			return a.ok
		}
		return a.trade.Timestamp.Before(b.trade.Timestamp)
	})

	out := make([]models.Trade, len(items))
	for i, it := range items {
		out[i] = it.trade
	}
	return out
}

package analytics

import "trade-journal/internal/models"

func f64(v float64) *float64 { return &v }

// closedTrade builds a realized trade with the given prices.
func closedTrade(entry, exit, qty float64, dir models.Direction, outcome models.Outcome) models.Trade {
	return models.Trade{
		Symbol:     "NIFTY",
		EntryPrice: entry,
		ExitPrice:  f64(exit),
		Quantity:   f64(qty),
		Direction:  dir,
		Outcome:    outcome,
		EntryDate:  "15-01-2024",
		EntryTime:  "10:00:00",
	}
}

// Package csvio converts between journal trades and CSV files: row mapping
// and the sequential import pipeline, full-column export, and the static
// import template.
package csvio

// Required template columns, in order.
var RequiredColumns = []string{
	"symbol", "entry_price", "exit_price", "quantity", "trade_type",
	"entry_date", "entry_time", "exit_date", "exit_time",
}

// Optional template columns, in order.
var OptionalColumns = []string{
	"stop_loss", "strategy", "outcome", "notes", "chart_link", "vix", "call_iv", "put_iv",
	"strike_price", "option_type", "vwap_position", "ema_position", "market_condition",
	"timeframe", "trade_direction", "exit_reason", "entry_emotion", "exit_emotion",
}

// numericColumns are coerced with leading-number float parsing; unparseable cells become null.
var numericColumns = map[string]bool{
	"entry_price":        true,
	"exit_price":         true,
	"quantity":           true,
	"stop_loss":          true,
	"planned_rr":         true,
	"actual_rr":          true,
	"slippage":           true,
	"vix":                true,
	"call_iv":            true,
	"put_iv":             true,
	"strike_price":       true,
	"confidence_level":   true,
	"stress_level":       true,
	"satisfaction_score": true,
}

var timeColumns = map[string]bool{
	"entry_time": true,
	"exit_time":  true,
}

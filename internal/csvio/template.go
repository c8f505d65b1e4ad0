package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
)

// TemplateColumns is the fixed column order of the import template.
func TemplateColumns() []string {
	cols := make([]string, 0, len(RequiredColumns)+len(OptionalColumns))
	cols = append(cols, RequiredColumns...)
	return append(cols, OptionalColumns...)
}

var templateInstructions = map[string]string{
	"symbol":          "required",
	"entry_price":     "required (number)",
	"exit_price":      "required (number, blank if open)",
	"quantity":        "required (number, blank if open)",
	"trade_type":      "required (options/futures/equity)",
	"entry_date":      "required (DD-MM-YYYY)",
	"entry_time":      "required (HH:MM or HH:MM:SS)",
	"exit_date":       "required (DD-MM-YYYY, blank if open)",
	"exit_time":       "required (HH:MM or HH:MM:SS, blank if open)",
	"outcome":         "optional (profit/loss/breakeven)",
	"option_type":     "optional (call/put)",
	"vwap_position":   "optional (above/below/at)",
	"ema_position":    "optional (above/below/at)",
	"trade_direction": "optional (long/short)",
}

var templateExample = map[string]string{
	"symbol":           "NIFTY",
	"entry_price":      "120.5",
	"exit_price":       "135",
	"quantity":         "50",
	"trade_type":       "options",
	"entry_date":       "15-01-2024",
	"entry_time":       "09:45",
	"exit_date":        "15-01-2024",
	"exit_time":        "10:30",
	"stop_loss":        "110",
	"strategy":         "breakout",
	"outcome":          "profit",
	"notes":            "Followed the plan",
	"chart_link":       "https://example.com/chart/1",
	"vix":              "13.2",
	"call_iv":          "14.1",
	"put_iv":           "15.3",
	"strike_price":     "21500",
	"option_type":      "call",
	"vwap_position":    "above",
	"ema_position":     "above",
	"market_condition": "trending",
	"timeframe":        "5m",
	"trade_direction":  "long",
	"exit_reason":      "target_hit",
	"entry_emotion":    "confident",
	"exit_emotion":     "calm",
}

// Template writes the import template: header, an instruction row and an
// example row. Re-importing it drops the instruction row because its
// entry_price is not numeric.
func Template(w io.Writer) error {
	cols := TemplateColumns()
	instructions := make([]string, len(cols))
	example := make([]string, len(cols))
	for i, c := range cols {
		instructions[i] = templateInstructions[c]
		if instructions[i] == "" {
			instructions[i] = "optional"
		}
		example[i] = templateExample[c]
	}

	writer := csv.NewWriter(w)
	if err := writer.WriteAll([][]string{cols, instructions, example}); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}

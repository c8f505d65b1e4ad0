package csvio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"trade-journal/internal/models"
)

// ErrNoTrades is returned when there is nothing to export.
var ErrNoTrades = errors.New("no trades to export")

// ExportRow is the flat CSV shape of a trade. Headers are the stored column names.
type ExportRow struct {
	ID                string `csv:"id"`
	UserID            string `csv:"user_id"`
	Symbol            string `csv:"symbol"`
	TradeType         string `csv:"trade_type"`
	Direction         string `csv:"trade_direction"`
	Strategy          string `csv:"strategy"`
	Outcome           string `csv:"outcome"`
	EntryPrice        string `csv:"entry_price"`
	ExitPrice         string `csv:"exit_price"`
	Quantity          string `csv:"quantity"`
	StopLoss          string `csv:"stop_loss"`
	PlannedRR         string `csv:"planned_rr"`
	ActualRR          string `csv:"actual_rr"`
	Slippage          string `csv:"slippage"`
	EntryDate         string `csv:"entry_date"`
	EntryTime         string `csv:"entry_time"`
	ExitDate          string `csv:"exit_date"`
	ExitTime          string `csv:"exit_time"`
	Timestamp         string `csv:"timestamp"`
	EntryEmotion      string `csv:"entry_emotion"`
	ExitEmotion       string `csv:"exit_emotion"`
	ConfidenceLevel   string `csv:"confidence_level"`
	StressLevel       string `csv:"stress_level"`
	SatisfactionScore string `csv:"satisfaction_score"`
	IsImpulsive       string `csv:"is_impulsive"`
	PlanDeviation     string `csv:"plan_deviation"`
	MarketCondition   string `csv:"market_condition"`
	Timeframe         string `csv:"timeframe"`
	VWAPPosition      string `csv:"vwap_position"`
	EMAPosition       string `csv:"ema_position"`
	ExitReason        string `csv:"exit_reason"`
	Notes             string `csv:"notes"`
	ChartLink         string `csv:"chart_link"`
	VIX               string `csv:"vix"`
	CallIV            string `csv:"call_iv"`
	PutIV             string `csv:"put_iv"`
	StrikePrice       string `csv:"strike_price"`
	OptionType        string `csv:"option_type"`
	AnalysisCount     string `csv:"analysis_count"`
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

// NewExportRow flattens a trade without reformatting its values.
func NewExportRow(t models.Trade) ExportRow {
	ts := ""
	if !t.Timestamp.IsZero() {
		ts = t.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return ExportRow{
		ID:                t.ID,
		UserID:            t.UserID,
		Symbol:            t.Symbol,
		TradeType:         string(t.TradeType),
		Direction:         string(t.Direction),
		Strategy:          t.Strategy,
		Outcome:           string(t.Outcome),
		EntryPrice:        strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
		ExitPrice:         formatFloat(t.ExitPrice),
		Quantity:          formatFloat(t.Quantity),
		StopLoss:          formatFloat(t.StopLoss),
		PlannedRR:         formatFloat(t.PlannedRR),
		ActualRR:          formatFloat(t.ActualRR),
		Slippage:          formatFloat(t.Slippage),
		EntryDate:         t.EntryDate,
		EntryTime:         t.EntryTime,
		ExitDate:          t.ExitDate,
		ExitTime:          t.ExitTime,
		Timestamp:         ts,
		EntryEmotion:      string(t.EntryEmotion),
		ExitEmotion:       string(t.ExitEmotion),
		ConfidenceLevel:   formatFloat(t.ConfidenceLevel),
		StressLevel:       formatFloat(t.StressLevel),
		SatisfactionScore: formatFloat(t.SatisfactionScore),
		IsImpulsive:       formatBool(t.IsImpulsive),
		PlanDeviation:     formatBool(t.PlanDeviation),
		MarketCondition:   string(t.MarketCondition),
		Timeframe:         string(t.Timeframe),
		VWAPPosition:      string(t.VWAPPosition),
		EMAPosition:       string(t.EMAPosition),
		ExitReason:        string(t.ExitReason),
		Notes:             t.Notes,
		ChartLink:         t.ChartLink,
		VIX:               formatFloat(t.VIX),
		CallIV:            formatFloat(t.CallIV),
		PutIV:             formatFloat(t.PutIV),
		StrikePrice:       formatFloat(t.StrikePrice),
		OptionType:        string(t.OptionType),
		AnalysisCount:     strconv.Itoa(t.AnalysisCount),
	}
}

// Export writes trades as CSV with a header row, one row per trade, in the
// order given.
func Export(w io.Writer, trades []models.Trade) error {
	if len(trades) == 0 {
		return ErrNoTrades
	}
	rows := make([]*ExportRow, 0, len(trades))
	for _, t := range trades {
		row := NewExportRow(t)
		rows = append(rows, &row)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

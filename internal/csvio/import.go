package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"trade-journal/internal/models"
)

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	shortClock   = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	meridiem     = regexp.MustCompile(`(?i)\s*[AP]M$`)
)

// ReadRows reads a whole CSV stream into a two-dimensional string array.
// Rows may have differing lengths; a UTF-8 BOM on the header is dropped.
func ReadRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// parseFloat mirrors lenient leading-number parsing: "12.5abc" is 12.5,
// anything without a numeric prefix is null.
func parseFloat(cell string) *float64 {
	m := leadingFloat.FindString(strings.TrimSpace(cell))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(cell string) int {
	m := leadingInt.FindString(strings.TrimSpace(cell))
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return v
}

// NormalizeClock strips a trailing AM/PM marker and pads HH:MM to HH:MM:SS.
// An empty cell stays empty.
func NormalizeClock(cell string) string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return ""
	}
	s = meridiem.ReplaceAllString(s, "")
	if shortClock.MatchString(s) {
		s += ":00"
	}
	return s
}

func parseBool(column, cell string) (*bool, error) {
	var v bool
	switch strings.ToLower(cell) {
	case "true", "yes", "y", "1":
		v = true
	case "false", "no", "n", "0":
		v = false
	default:
		return nil, fmt.Errorf("%w: %s %q", models.ErrInvalidEnum, column, cell)
	}
	return &v, nil
}

// Record is one CSV row mapped onto a trade.
type Record struct {
	Line          int
	Trade         models.Trade
	hasEntryPrice bool
}

// Complete reports whether the row carries the two fields an import needs.
// Incomplete rows are dropped without an error.
func (r Record) Complete() bool {
	return strings.TrimSpace(r.Trade.Symbol) != "" && r.hasEntryPrice
}

// MapRow applies per-column coercion to one data row. Unknown headers are
// ignored and missing cells are null. The returned error is the first value
// that could not be converted; the record is still filled as far as possible.
func MapRow(header, row []string) (Record, error) {
	var rec Record
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	t := &rec.Trade
	for i, name := range header {
		column := strings.ToLower(strings.TrimSpace(name))
		cell := ""
		if i < len(row) {
			cell = strings.TrimSpace(row[i])
		}

		if numericColumns[column] {
			v := parseFloat(cell)
			switch column {
			case "entry_price":
				if v != nil {
					t.EntryPrice = *v
					rec.hasEntryPrice = true
				}
			case "exit_price":
				t.ExitPrice = v
			case "quantity":
				t.Quantity = v
			case "stop_loss":
				t.StopLoss = v
			case "planned_rr":
				t.PlannedRR = v
			case "actual_rr":
				t.ActualRR = v
			case "slippage":
				t.Slippage = v
			case "vix":
				t.VIX = v
			case "call_iv":
				t.CallIV = v
			case "put_iv":
				t.PutIV = v
			case "strike_price":
				t.StrikePrice = v
			case "confidence_level":
				t.ConfidenceLevel = v
			case "stress_level":
				t.StressLevel = v
			case "satisfaction_score":
				t.SatisfactionScore = v
			}
			continue
		}
		if timeColumns[column] {
			if column == "entry_time" {
				t.EntryTime = NormalizeClock(cell)
			} else {
				t.ExitTime = NormalizeClock(cell)
			}
			continue
		}

		var err error
		switch column {
		case "symbol":
			t.Symbol = cell
		case "strategy":
			t.Strategy = cell
		case "notes":
			t.Notes = cell
		case "chart_link":
			t.ChartLink = cell
		case "entry_date":
			t.EntryDate = cell
		case "exit_date":
			t.ExitDate = cell
		case "analysis_count":
			t.AnalysisCount = parseInt(cell)
		case "trade_type":
			t.TradeType, err = models.ParseTradeType(cell)
		case "trade_direction":
			t.Direction, err = models.ParseDirection(cell)
		case "outcome":
			t.Outcome, err = models.ParseOutcome(cell)
		case "option_type":
			t.OptionType, err = models.ParseOptionType(cell)
		case "entry_emotion":
			t.EntryEmotion = models.ParseEmotion(cell)
		case "exit_emotion":
			t.ExitEmotion = models.ParseEmotion(cell)
		case "exit_reason":
			t.ExitReason = models.ParseExitReason(cell)
		case "market_condition":
			t.MarketCondition = models.ParseMarketCondition(cell)
		case "timeframe":
			t.Timeframe = models.ParseTimeframe(cell)
		case "vwap_position":
			t.VWAPPosition = models.ParseLevelPosition(cell)
		case "ema_position":
			t.EMAPosition = models.ParseLevelPosition(cell)
		case "is_impulsive":
			if cell != "" {
				t.IsImpulsive, err = parseBool(column, cell)
			}
		case "plan_deviation":
			if cell != "" {
				t.PlanDeviation, err = parseBool(column, cell)
			}
		case "timestamp":
			if cell != "" {
				t.Timestamp, err = time.Parse(time.RFC3339Nano, cell)
				if err != nil {
					err = fmt.Errorf("%w: timestamp %q, expected RFC3339", models.ErrDateTimeFormat, cell)
				}
			}
		}
		keep(err)
	}
	return rec, firstErr
}

// Inserter persists one imported trade.
type Inserter interface {
	InsertTrade(ctx context.Context, trade *models.Trade) error
}

// RowError attributes an import failure to its source row.
type RowError struct {
	Line    int          `json:"line"`
	Trade   models.Trade `json:"trade"`
	Message string       `json:"error"`
	Err     error        `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// IsDateTimeFormat reports whether the row failed on a date or time value.
func (e RowError) IsDateTimeFormat() bool {
	return errors.Is(e.Err, models.ErrDateTimeFormat)
}

// Result is the outcome of an import run.
type Result struct {
	Results []models.Trade `json:"results"`
	Errors  []RowError     `json:"errors"`
	Dropped int            `json:"dropped"`
}

// Importer maps CSV rows to trades and inserts them one at a time, so a
// failing row never aborts the rest.
type Importer struct {
	inserter Inserter
	logger   *zap.Logger
	now      func() time.Time
}

// NewImporter creates an Importer writing through inserter.
func NewImporter(inserter Inserter, logger *zap.Logger) *Importer {
	return &Importer{
		inserter: inserter,
		logger:   logger.Named("csv-import"),
		now:      time.Now,
	}
}

// Import processes rows, where rows[0] is the header, for userID.
// Rows missing symbol or entry_price are dropped silently.
func (im *Importer) Import(ctx context.Context, userID string, rows [][]string) Result {
	result := Result{Results: []models.Trade{}, Errors: []RowError{}}
	if len(rows) < 2 {
		return result
	}
	header := rows[0]

	for i, row := range rows[1:] {
		line := i + 2
		rec, err := MapRow(header, row)
		rec.Line = line
		if !rec.Complete() {
			result.Dropped++
			continue
		}

		trade := rec.Trade
		trade.UserID = userID
		if trade.Timestamp.IsZero() {
			trade.Timestamp = im.now()
		}

		if err == nil {
			err = im.inserter.InsertTrade(ctx, &trade)
		}
		if err != nil {
			im.logger.Warn("Failed to import row",
				zap.Int("line", line),
				zap.String("symbol", trade.Symbol),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, RowError{Line: line, Trade: trade, Message: err.Error(), Err: err})
			continue
		}
		result.Results = append(result.Results, trade)
	}

	im.logger.Info("CSV import finished",
		zap.Int("imported", len(result.Results)),
		zap.Int("failed", len(result.Errors)),
		zap.Int("dropped", result.Dropped),
	)
	return result
}

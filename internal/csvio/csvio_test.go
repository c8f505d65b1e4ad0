package csvio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal/internal/models"
)

// MockInserter is a mock implementation of the Inserter interface.
type MockInserter struct {
	mock.Mock
}

func (m *MockInserter) InsertTrade(ctx context.Context, trade *models.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

// recordingInserter accepts every trade and keeps it.
type recordingInserter struct {
	trades []models.Trade
}

func (r *recordingInserter) InsertTrade(_ context.Context, trade *models.Trade) error {
	r.trades = append(r.trades, *trade)
	return nil
}

func f64(v float64) *float64 { return &v }

func TestNormalizeClock(t *testing.T) {
	testCases := map[string]string{
		"10:30 AM": "10:30:00",
		"10:30am":  "10:30:00",
		"02:15 PM": "02:15:00",
		"9:05":     "9:05:00",
		"10:30:45": "10:30:45",
		"":         "",
		"  ":       "",
	}
	for input, expected := range testCases {
		assert.Equal(t, expected, NormalizeClock(input), "input %q", input)
	}
}

func TestMapRow_Coercion(t *testing.T) {
	header := []string{"Symbol", "entry_price", "exit_price", "quantity", "entry_time", "exit_time",
		"entry_date", "analysis_count", "stop_loss", "notes", "unknown_column", "trade_direction", "entry_emotion"}
	row := []string{"NIFTY", "101.5", "abc", "10lots", "10:30 AM", "", "15-01-2024", "x", "99.5", "", "ignored", "Short", "elated"}

	rec, err := MapRow(header, row)

	require.NoError(t, err)
	assert.True(t, rec.Complete())
	tr := rec.Trade
	assert.Equal(t, "NIFTY", tr.Symbol)
	assert.Equal(t, 101.5, tr.EntryPrice)
	assert.Nil(t, tr.ExitPrice, "non-numeric becomes null")
	require.NotNil(t, tr.Quantity)
	assert.Equal(t, 10.0, *tr.Quantity, "leading number is kept")
	assert.Equal(t, "10:30:00", tr.EntryTime)
	assert.Equal(t, "", tr.ExitTime)
	assert.Equal(t, "15-01-2024", tr.EntryDate, "dates pass through")
	assert.Equal(t, 0, tr.AnalysisCount)
	assert.Equal(t, 99.5, *tr.StopLoss)
	assert.Equal(t, models.DirectionShort, tr.Direction)
	assert.Equal(t, models.EmotionUnset, tr.EntryEmotion)
}

func TestMapRow_ShortRowAndInvalidEnum(t *testing.T) {
	header := []string{"symbol", "entry_price", "outcome", "is_impulsive"}

	rec, err := MapRow(header, []string{"TCS", "3500"})
	require.NoError(t, err)
	assert.True(t, rec.Complete())
	assert.Equal(t, models.OutcomeUnset, rec.Trade.Outcome)
	assert.Nil(t, rec.Trade.IsImpulsive)

	_, err = MapRow(header, []string{"TCS", "3500", "jackpot", "yes"})
	assert.ErrorIs(t, err, models.ErrInvalidEnum)
}

func TestImporter_DropsIncompleteRows(t *testing.T) {
	inserter := new(MockInserter)
	inserter.On("InsertTrade", mock.Anything, mock.MatchedBy(func(tr *models.Trade) bool {
		return tr.Symbol == "INFY"
	})).Return(nil).Once()

	rows := [][]string{
		{"symbol", "entry_price", "entry_date"},
		{"INFY", "1500", "15-01-2024"},
		{"", "1500", "15-01-2024"},
		{"TCS", "", "15-01-2024"},
		{"WIPRO", "n/a", "15-01-2024"},
	}

	result := NewImporter(inserter, zap.NewNop()).Import(context.Background(), "user-1", rows)

	assert.Len(t, result.Results, 1)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 3, result.Dropped)
	inserter.AssertExpectations(t)
}

func TestImporter_ContinuesAfterFailure(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	inserter := new(MockInserter)
	inserter.On("InsertTrade", mock.Anything, mock.MatchedBy(func(tr *models.Trade) bool {
		return tr.Symbol == "BAD"
	})).Return(errors.New("insert failed: connection reset"))
	inserter.On("InsertTrade", mock.Anything, mock.MatchedBy(func(tr *models.Trade) bool {
		return tr.Symbol != "BAD"
	})).Return(nil)

	rows := [][]string{
		{"symbol", "entry_price", "trade_type", "entry_date"},
		{"GOOD1", "10", "equity", "15-01-2024"},
		{"BAD", "10", "equity", "15-01-2024"},
		{"ENUM", "10", "crypto", "15-01-2024"},
		{"GOOD2", "10", "futures", "15-01-2024"},
	}

	im := NewImporter(inserter, zap.NewNop())
	im.now = func() time.Time { return fixed }
	result := im.Import(context.Background(), "user-1", rows)

	require.Len(t, result.Results, 2)
	assert.Equal(t, "GOOD1", result.Results[0].Symbol)
	assert.Equal(t, "GOOD2", result.Results[1].Symbol)
	assert.Equal(t, "user-1", result.Results[0].UserID)
	assert.Equal(t, fixed, result.Results[0].Timestamp)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, 3, result.Errors[0].Line)
	assert.Contains(t, result.Errors[0].Message, "connection reset")
	assert.Equal(t, 4, result.Errors[1].Line)
	assert.ErrorIs(t, result.Errors[1], models.ErrInvalidEnum)
	inserter.AssertNumberOfCalls(t, "InsertTrade", 3)
}

func TestImporter_EmptyInput(t *testing.T) {
	im := NewImporter(&recordingInserter{}, zap.NewNop())
	result := im.Import(context.Background(), "user-1", [][]string{{"symbol", "entry_price"}})
	assert.Empty(t, result.Results)
	assert.Empty(t, result.Errors)
}

func TestRowError_DateTimeFormat(t *testing.T) {
	_, err := models.ParseTradeDate("2024/01/15")
	rowErr := RowError{Line: 2, Err: err}
	assert.True(t, rowErr.IsDateTimeFormat())
	assert.False(t, RowError{Err: errors.New("boom")}.IsDateTimeFormat())
}

func TestExport_EmptyIsRejected(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Export(&buf, nil), ErrNoTrades)
	assert.Zero(t, buf.Len())
}

func TestExportImport_RoundTrip(t *testing.T) {
	yes := true
	ts := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	original := []models.Trade{
		{
			ID: "a", UserID: "user-1", Symbol: "NIFTY", TradeType: models.TradeTypeOptions,
			Direction: models.DirectionShort, Strategy: "gap, fade", Outcome: models.OutcomeProfit,
			EntryPrice: 120.25, ExitPrice: f64(101.1), Quantity: f64(75), StopLoss: f64(130),
			EntryDate: "15-01-2024", EntryTime: "09:30:00", ExitDate: "15-01-2024", ExitTime: "10:05:00",
			Timestamp: ts, EntryEmotion: models.EmotionConfident, ConfidenceLevel: f64(7),
			IsImpulsive: &yes, MarketCondition: models.MarketConditionSideways, Timeframe: models.Timeframe5m,
			VWAPPosition: models.LevelPositionBelow, ExitReason: models.ExitReasonTarget,
			Notes: "multi\nline \"quoted\" note", VIX: f64(13.45), StrikePrice: f64(21500),
			OptionType: models.OptionTypePut, AnalysisCount: 2,
		},
		{
			ID: "b", UserID: "user-1", Symbol: "RELIANCE", TradeType: models.TradeTypeEquity,
			EntryPrice: 2450.5, EntryDate: "16-01-2024", EntryTime: "11:00:00", Timestamp: ts.Add(time.Hour),
		},
		{
			ID: "c", UserID: "user-1", Symbol: "", EntryPrice: 10, EntryDate: "17-01-2024",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, original))

	rows, err := ReadRows(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	sink := &recordingInserter{}
	result := NewImporter(sink, zap.NewNop()).Import(context.Background(), "user-2", rows)

	require.Len(t, result.Results, 2, "row without symbol is dropped")
	assert.Equal(t, 1, result.Dropped)
	assert.Empty(t, result.Errors)

	for i, got := range sink.trades {
		want := original[i]
		assert.Equal(t, want.Symbol, got.Symbol)
		assert.Equal(t, want.TradeType, got.TradeType)
		assert.Equal(t, want.Direction, got.Direction)
		assert.Equal(t, want.Strategy, got.Strategy)
		assert.Equal(t, want.Outcome, got.Outcome)
		assert.InDelta(t, want.EntryPrice, got.EntryPrice, 1e-9)
		assert.Equal(t, want.EntryDate, got.EntryDate)
		assert.Equal(t, want.EntryTime, got.EntryTime)
		assert.Equal(t, want.ExitTime, got.ExitTime)
		assert.True(t, want.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, want.Notes, got.Notes)
		assert.Equal(t, want.OptionType, got.OptionType)
		assert.Equal(t, want.AnalysisCount, got.AnalysisCount)
		assert.Equal(t, "user-2", got.UserID)
		if want.ExitPrice == nil {
			assert.Nil(t, got.ExitPrice)
			continue
		}
		assert.InDelta(t, *want.ExitPrice, *got.ExitPrice, 1e-9)
		assert.InDelta(t, *want.Quantity, *got.Quantity, 1e-9)
		assert.InDelta(t, *want.VIX, *got.VIX, 1e-9)
		assert.Equal(t, *want.IsImpulsive, *got.IsImpulsive)
	}
}

func TestTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Template(&buf))

	rows, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 27)
	assert.Equal(t, "symbol", rows[0][0])
	assert.Equal(t, "exit_time", rows[0][8])
	assert.Equal(t, "stop_loss", rows[0][9])
	assert.Equal(t, "exit_emotion", rows[0][26])

	sink := &recordingInserter{}
	result := NewImporter(sink, zap.NewNop()).Import(context.Background(), "user-1", rows)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, "09:45:00", sink.trades[0].EntryTime)
	assert.Equal(t, models.OptionTypeCall, sink.trades[0].OptionType)
}

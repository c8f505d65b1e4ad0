package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Calibration of the discipline score. These weights are product-level
// constants and are not configurable.
const (
	maxScore = 100

	stopLossWeight = 15

	overtradeThreshold  = 3
	overtradePerTrade   = 5
	overtradePenaltyCap = 30

	offHoursWeight = 20
	marketOpen     = 555 // 09:15
	marketClose    = 930 // 15:30
)

// ConsistencyReport breaks the discipline score into its penalties.
type ConsistencyReport struct {
	Trades             int      `json:"trades"`
	MissingStopLoss    int      `json:"missing_stop_loss"`
	OvertradedDays     []string `json:"overtraded_days"`
	OffHoursTrades     int      `json:"off_hours_trades"`
	StopLossPenalty    float64  `json:"stop_loss_penalty"`
	OvertradingPenalty float64  `json:"overtrading_penalty"`
	OffHoursPenalty    float64  `json:"off_hours_penalty"`
	Score              float64  `json:"score"`
}

// Display renders the score with one decimal, e.g. "87.5".
func (r ConsistencyReport) Display() string {
	return decimal.NewFromFloat(r.Score).StringFixed(1)
}

// ConsistencyScore returns the 0-100 discipline score as a display string.
// An empty journal scores "0.0".
func ConsistencyScore(trades []models.Trade) string {
	return ConsistencyBreakdown(trades).Display()
}

// ConsistencyBreakdown computes the discipline score and each penalty.
func ConsistencyBreakdown(trades []models.Trade) ConsistencyReport {
	report := ConsistencyReport{Trades: len(trades), OvertradedDays: []string{}}
	if len(trades) == 0 {
		return report
	}
	total := float64(len(trades))

	for _, t := range trades {
		if t.StopLoss == nil {
			report.MissingStopLoss++
		}
	}
	report.StopLossPenalty = float64(report.MissingStopLoss) / total * stopLossWeight

	days := groupByDay(trades)
	keys := make([]string, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Strings(keys)

	offHoursSum := 0.0
	for _, day := range keys {
		dayTrades := days[day]
		if excess := len(dayTrades) - overtradeThreshold; excess > 0 {
			report.OvertradedDays = append(report.OvertradedDays, day)
			report.OvertradingPenalty += float64(excess * overtradePerTrade)
		}

		off := 0
		for _, t := range dayTrades {
			if outsideMarketHours(t.EntryTime) {
				off++
			}
		}
		report.OffHoursTrades += off
		offHoursSum += float64(off) / float64(len(dayTrades)) * offHoursWeight
	}
	report.OvertradingPenalty = math.Min(report.OvertradingPenalty, overtradePenaltyCap)
	report.OffHoursPenalty = offHoursSum / float64(len(keys))

	score := maxScore - report.StopLossPenalty - report.OvertradingPenalty - report.OffHoursPenalty
	score = math.Max(0, math.Min(maxScore, score))
	report.Score = decimal.NewFromFloat(score).Round(1).InexactFloat64()
	return report
}

func groupByDay(trades []models.Trade) map[string][]models.Trade {
	days := make(map[string][]models.Trade)
	for _, t := range trades {
		key := strings.TrimSpace(t.EntryDate)
		days[key] = append(days[key], t)
	}
	return days
}

// Unparseable or missing times are not counted as off-hours.
func outsideMarketHours(clock string) bool {
	if strings.TrimSpace(clock) == "" {
		return false
	}
	minutes, err := models.MinutesOfDay(clock)
	if err != nil {
		return false
	}
	return minutes < marketOpen || minutes > marketClose
}

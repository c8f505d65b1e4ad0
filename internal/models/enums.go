package models

import (
	"fmt"
	"strings"
)

// Direction is the side of a trade. The zero value means unset and is
// treated as long by the calculators.
type Direction string

const (
	DirectionUnset Direction = ""
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeType is the instrument class of a trade.
type TradeType string

const (
	TradeTypeUnset   TradeType = ""
	TradeTypeOptions TradeType = "options"
	TradeTypeFutures TradeType = "futures"
	TradeTypeEquity  TradeType = "equity"
)

// Outcome is the user-asserted result of a trade. It is never derived from prices.
type Outcome string

const (
	OutcomeUnset     Outcome = ""
	OutcomeProfit    Outcome = "profit"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// OptionType is call or put for options trades.
type OptionType string

const (
	OptionTypeUnset OptionType = ""
	OptionTypeCall  OptionType = "call"
	OptionTypePut   OptionType = "put"
)

// Emotion tags the trader's state at entry or exit.
type Emotion string

const (
	EmotionUnset         Emotion = ""
	EmotionCalm          Emotion = "calm"
	EmotionConfident     Emotion = "confident"
	EmotionNeutral       Emotion = "neutral"
	EmotionExcited       Emotion = "excited"
	EmotionAnxious       Emotion = "anxious"
	EmotionFearful       Emotion = "fearful"
	EmotionGreedy        Emotion = "greedy"
	EmotionImpatient     Emotion = "impatient"
	EmotionFrustrated    Emotion = "frustrated"
	EmotionOverconfident Emotion = "overconfident"
	EmotionFOMO          Emotion = "fomo"
	EmotionRevenge       Emotion = "revenge"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonUnset    ExitReason = ""
	ExitReasonTarget   ExitReason = "target_hit"
	ExitReasonStopLoss ExitReason = "stop_loss_hit"
	ExitReasonTrailing ExitReason = "trailing_stop"
	ExitReasonTime     ExitReason = "time_exit"
	ExitReasonManual   ExitReason = "manual"
	ExitReasonPanic    ExitReason = "panic"
	ExitReasonOther    ExitReason = "other"
)

// MarketCondition describes the prevailing market regime.
type MarketCondition string

const (
	MarketConditionUnset     MarketCondition = ""
	MarketConditionTrending  MarketCondition = "trending"
	MarketConditionUptrend   MarketCondition = "uptrend"
	MarketConditionDowntrend MarketCondition = "downtrend"
	MarketConditionSideways  MarketCondition = "sideways"
	MarketConditionVolatile  MarketCondition = "volatile"
	MarketConditionChoppy    MarketCondition = "choppy"
)

// Timeframe is the chart timeframe the trade was taken on.
type Timeframe string

const (
	TimeframeUnset Timeframe = ""
	Timeframe1m    Timeframe = "1m"
	Timeframe3m    Timeframe = "3m"
	Timeframe5m    Timeframe = "5m"
	Timeframe15m   Timeframe = "15m"
	Timeframe30m   Timeframe = "30m"
	Timeframe1h    Timeframe = "1h"
	Timeframe4h    Timeframe = "4h"
	Timeframe1d    Timeframe = "1d"
	Timeframe1w    Timeframe = "1w"
)

// LevelPosition is where price sat relative to an indicator (VWAP, EMA) at entry.
type LevelPosition string

const (
	LevelPositionUnset LevelPosition = ""
	LevelPositionAbove LevelPosition = "above"
	LevelPositionBelow LevelPosition = "below"
	LevelPositionAt    LevelPosition = "at"
)

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// ParseDirection converts a free-form value into a Direction. buy/sell are accepted as aliases.
func ParseDirection(s string) (Direction, error) {
	switch normalize(s) {
	case "":
		return DirectionUnset, nil
	case "long", "buy":
		return DirectionLong, nil
	case "short", "sell":
		return DirectionShort, nil
	}
	return DirectionUnset, fmt.Errorf("%w: trade_direction %q", ErrInvalidEnum, s)
}

// ParseTradeType converts a free-form value into a TradeType.
func ParseTradeType(s string) (TradeType, error) {
	switch normalize(s) {
	case "":
		return TradeTypeUnset, nil
	case "options", "option":
		return TradeTypeOptions, nil
	case "futures", "future":
		return TradeTypeFutures, nil
	case "equity", "stock", "stocks":
		return TradeTypeEquity, nil
	}
	return TradeTypeUnset, fmt.Errorf("%w: trade_type %q", ErrInvalidEnum, s)
}

// ParseOutcome converts a free-form value into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch normalize(s) {
	case "":
		return OutcomeUnset, nil
	case "profit", "win":
		return OutcomeProfit, nil
	case "loss":
		return OutcomeLoss, nil
	case "breakeven", "break_even":
		return OutcomeBreakeven, nil
	}
	return OutcomeUnset, fmt.Errorf("%w: outcome %q", ErrInvalidEnum, s)
}

// ParseOptionType converts a free-form value into an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	switch normalize(s) {
	case "":
		return OptionTypeUnset, nil
	case "call", "ce":
		return OptionTypeCall, nil
	case "put", "pe":
		return OptionTypePut, nil
	}
	return OptionTypeUnset, fmt.Errorf("%w: option_type %q", ErrInvalidEnum, s)
}

var emotions = tagSet(EmotionCalm, EmotionConfident, EmotionNeutral, EmotionExcited, EmotionAnxious,
	EmotionFearful, EmotionGreedy, EmotionImpatient, EmotionFrustrated, EmotionOverconfident,
	EmotionFOMO, EmotionRevenge)

var exitReasons = tagSet(ExitReasonTarget, ExitReasonStopLoss, ExitReasonTrailing, ExitReasonTime,
	ExitReasonManual, ExitReasonPanic, ExitReasonOther)

var marketConditions = tagSet(MarketConditionTrending, MarketConditionUptrend, MarketConditionDowntrend,
	MarketConditionSideways, MarketConditionVolatile, MarketConditionChoppy)

var timeframes = tagSet(Timeframe1m, Timeframe3m, Timeframe5m, Timeframe15m, Timeframe30m,
	Timeframe1h, Timeframe4h, Timeframe1d, Timeframe1w)

var levelPositions = tagSet(LevelPositionAbove, LevelPositionBelow, LevelPositionAt)

func tagSet[T ~string](values ...T) map[string]T {
	m := make(map[string]T, len(values))
	for _, v := range values {
		m[string(v)] = v
	}
	return m
}

// Descriptive tags never fail to parse; unknown values fall back to unset.
func parseTag[T ~string](set map[string]T, s string) T {
	return set[normalize(s)]
}

func ParseEmotion(s string) Emotion { return parseTag(emotions, s) }

func ParseExitReason(s string) ExitReason { return parseTag(exitReasons, s) }

func ParseMarketCondition(s string) MarketCondition { return parseTag(marketConditions, s) }

func ParseTimeframe(s string) Timeframe {
	return parseTag(timeframes, strings.ToLower(strings.TrimSpace(s)))
}

func ParseLevelPosition(s string) LevelPosition { return parseTag(levelPositions, s) }

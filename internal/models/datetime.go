package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage format of entry_date and exit_date.
const DateLayout = "02-01-2006"

var (
	// ErrDateTimeFormat is wrapped by every date or time parse failure.
	ErrDateTimeFormat = errors.New("invalid date/time format")
	// ErrInvalidEnum is wrapped when a closed enum field holds an unknown value.
	ErrInvalidEnum = errors.New("invalid enum value")
	// ErrInvalidTrade is wrapped by record validation failures.
	ErrInvalidTrade = errors.New("invalid trade")
)

// ParseTradeDate parses a DD-MM-YYYY string. Dates are never compared lexically.
func ParseTradeDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q, expected DD-MM-YYYY", ErrDateTimeFormat, s)
	}
	return t, nil
}

// ParseTradeClock parses HH:MM[:SS][ AM/PM] into an offset from midnight.
func ParseTradeClock(s string) (time.Duration, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	meridiem := ""
	if strings.HasSuffix(raw, "AM") || strings.HasSuffix(raw, "PM") {
		meridiem = raw[len(raw)-2:]
		raw = strings.TrimSpace(raw[:len(raw)-2])
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: time %q, expected HH:MM[:SS]", ErrDateTimeFormat, s)
	}
	fields := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: time %q, expected HH:MM[:SS]", ErrDateTimeFormat, s)
		}
		fields[i] = n
	}
	hour, minute, second := fields[0], fields[1], fields[2]

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: time %q, hour out of range", ErrDateTimeFormat, s)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: time %q, hour out of range", ErrDateTimeFormat, s)
		}
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, fmt.Errorf("%w: time %q, field out of range", ErrDateTimeFormat, s)
	}

	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second, nil
}

// MinutesOfDay returns the minutes since midnight for a clock string.
func MinutesOfDay(s string) (int, error) {
	d, err := ParseTradeClock(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Minute), nil
}

// combine joins a DD-MM-YYYY date and an optional clock value.
func combine(date, clock string) (time.Time, error) {
	day, err := ParseTradeDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(clock) == "" {
		return day, nil
	}
	offset, err := ParseTradeClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset), nil
}

package util

import (
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	closeHour   = 16
	closeMinute = 30
)

func marketLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Errorf("Failed to load location 'America/New_York': %v. Falling back to UTC.", err)
		return time.UTC
	}
	return loc
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// NextMarketDate predicts when the next daily bar becomes available.
// It returns the next weekday at 4:30 PM New York time, in UTC.
func NextMarketDate(input time.Time) time.Time {
	loc := marketLocation()
	nowET := input.In(loc)

	next := time.Date(nowET.Year(), nowET.Month(), nowET.Day(), closeHour, closeMinute, 0, 0, loc)
	if nowET.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	for isWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}

	return next.UTC()
}

// LastTradingDay returns the date of the most recent complete daily bar as of input,
// as a UTC midnight to match bar dates. Exchange holidays are not modelled.
func LastTradingDay(input time.Time) time.Time {
	loc := marketLocation()
	nowET := input.In(loc)

	day := time.Date(nowET.Year(), nowET.Month(), nowET.Day(), closeHour, closeMinute, 0, 0, loc)
	if nowET.Before(day) {
		day = day.AddDate(0, 0, -1)
	}
	for isWeekend(day) {
		day = day.AddDate(0, 0, -1)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

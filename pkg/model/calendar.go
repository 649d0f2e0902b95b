package model

import (
	"fmt"
	"time"
)

// PeriodLayout is the time layout of a monthly budget period ("2026-10").
const PeriodLayout = "2006-01"

// DateLayout is the time layout used for daily entries and holidays.
const DateLayout = "2006-01-02"

// PeriodOf returns the monthly period containing t.
func PeriodOf(t time.Time) string {
	return t.Format(PeriodLayout)
}

// PeriodBounds returns the start (inclusive) and end (exclusive) of a monthly period.
func PeriodBounds(period string) (start, end time.Time, err error) {
	start, err = time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse period %q: %w", period, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// HolidaySet is a set of calendar dates on which spend is expected to drop.
type HolidaySet map[string]struct{}

// ParseHolidays builds a HolidaySet from YYYY-MM-DD strings.
func ParseHolidays(dates []string) (HolidaySet, error) {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", d, err)
		}
		set[t.Format(DateLayout)] = struct{}{}
	}
	return set, nil
}

// Contains reports whether t falls on a holiday.
func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h[t.Format(DateLayout)]
	return ok
}

// Calendar places an evaluation date within its monthly period.
type Calendar struct {
	Date          time.Time `json:"date"`
	DaysElapsed   int       `json:"days_elapsed"`
	DaysInPeriod  int       `json:"days_in_period"`
	DaysRemaining int       `json:"days_remaining"`
	IsWeekend     bool      `json:"is_weekend"`
	IsHoliday     bool      `json:"is_holiday"`
}

// NewCalendar derives the calendar context for now. DaysElapsed counts
// completed days of the month, so the first of the month has none.
func NewCalendar(now time.Time, holidays HolidaySet) Calendar {
	y, m, d := now.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	daysInPeriod := date.AddDate(0, 1, -d).Day()
	elapsed := d - 1

	wd := date.Weekday()
	return Calendar{
		Date:          date,
		DaysElapsed:   elapsed,
		DaysInPeriod:  daysInPeriod,
		DaysRemaining: daysInPeriod - elapsed,
		IsWeekend:     wd == time.Saturday || wd == time.Sunday,
		IsHoliday:     holidays.Contains(date),
	}
}

// Period returns the monthly period of the calendar date.
func (c Calendar) Period() string {
	return PeriodOf(c.Date)
}

// TimePercentage is the share of the period already elapsed.
func (c Calendar) TimePercentage() float64 {
	if c.DaysInPeriod <= 0 {
		return 0
	}
	return float64(c.DaysElapsed) / float64(c.DaysInPeriod) * 100
}

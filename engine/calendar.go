/*
calendar.go - Business-day calendar and weighted day sampling

PURPOSE:
  Builds the business days (Monday-Friday, no holiday calendar) of a
  target month and assigns each a sampling weight: strong weekdays
  (Tuesday and Friday by default) weigh 3, the rest weigh 1. Invoice
  chunks draw their date independently from the normalized distribution,
  with replacement - several invoices on the same day are expected.
*/
package engine

import (
	"math/rand"
	"time"
)

// =============================================================================
// MONTH CALENDAR
// =============================================================================

// MonthCalendar holds the sellable days of one month with their sampling
// weights. Build with NewMonthCalendar, draw with Pick.
type MonthCalendar struct {
	Month   MonthKey
	Days    []time.Time
	weights []int
	totalW  int
}

// NewMonthCalendar enumerates the business days of the month containing
// the reference date and weights them per cfg.
func NewMonthCalendar(reference time.Time, cfg Config) *MonthCalendar {
	start := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	cal := &MonthCalendar{Month: MonthOf(start)}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			continue
		}
		w := cfg.BaseWeight
		if cfg.isStrongDay(wd) {
			w = cfg.StrongWeight
		}
		cal.Days = append(cal.Days, d)
		cal.weights = append(cal.weights, w)
		cal.totalW += w
	}
	return cal
}

// Pick draws one business day from the weighted distribution.
func (c *MonthCalendar) Pick(rng *rand.Rand) time.Time {
	if len(c.Days) == 0 {
		return time.Time{}
	}
	target := rng.Intn(c.totalW)
	for i, w := range c.weights {
		target -= w
		if target < 0 {
			return c.Days[i]
		}
	}
	return c.Days[len(c.Days)-1] // unreachable
}

// Weight returns the sampling weight of the i-th business day.
func (c *MonthCalendar) Weight(i int) int { return c.weights[i] }

// BusinessDayCount returns the number of sellable days in the month.
func (c *MonthCalendar) BusinessDayCount() int { return len(c.Days) }

// Package schedule implements the Strategy Pattern for advancing recurring
// due dates. Each frequency (weekly, monthly, quarterly, yearly) has its own
// advancer encapsulating the step logic, including month-end clamping.
package schedule

import (
	"finbook/internal/core"
)

// Advancer is the strategy interface for stepping a due date forward by one
// billing cycle.
type Advancer interface {
	// Next returns the due date one cycle after from.
	Next(from core.CalendarDate) core.CalendarDate
}

// WeeklyAdvancer steps seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(from core.CalendarDate) core.CalendarDate {
	return from.AddDays(7)
}

// MonthlyAdvancer steps one calendar month. A due day past the end of the
// target month clamps to its last day (Jan 31 -> Feb 28).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(from core.CalendarDate) core.CalendarDate {
	return from.AddMonths(1)
}

// QuarterlyAdvancer steps three calendar months with the same clamping.
type QuarterlyAdvancer struct{}

func (QuarterlyAdvancer) Next(from core.CalendarDate) core.CalendarDate {
	return from.AddMonths(3)
}

// YearlyAdvancer steps twelve calendar months; Feb 29 clamps to Feb 28 in
// non-leap years.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(from core.CalendarDate) core.CalendarDate {
	return from.AddMonths(12)
}

// advancers maps frequencies to their strategies.
var advancers = map[core.Frequency]Advancer{
	core.Weekly:    WeeklyAdvancer{},
	core.Monthly:   MonthlyAdvancer{},
	core.Quarterly: QuarterlyAdvancer{},
	core.Yearly:    YearlyAdvancer{},
}

// GetAdvancer returns the advancer for a frequency.
func GetAdvancer(f core.Frequency) (Advancer, error) {
	a, ok := advancers[f]
	if !ok {
		return nil, core.ErrUnknownFrequency
	}
	return a, nil
}

// RegisterAdvancer registers a custom advancer for a new frequency type.
func RegisterAdvancer(f core.Frequency, a Advancer) {
	advancers[f] = a
}

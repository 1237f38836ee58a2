package tracking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence grades a projection by how many worked days back it.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

const (
	lowConfidenceDays    = 3
	mediumConfidenceDays = 10
)

// MonthProjection extrapolates the calendar month of a reference time at
// the pace worked so far.
type MonthProjection struct {
	Month           string
	Hours           decimal.Decimal
	Amount          decimal.Decimal
	ProjectedHours  decimal.Decimal
	ProjectedAmount decimal.Decimal
	LastMonthAmount decimal.Decimal
	Confidence      Confidence
	DaysElapsed     int
	DaysInMonth     int
	DaysWorked      int
}

// ProjectMonth projects hours and earnings of the month containing ref.
func (a *Aggregator) ProjectMonth(records []Record, ref time.Time) MonthProjection {
	start := a.BucketStart(ref, PeriodMonth)
	p := MonthProjection{
		Month:       a.BucketKey(ref, PeriodMonth),
		DaysElapsed: ref.In(a.loc).Day(),
		DaysInMonth: start.AddDate(0, 1, -1).Day(),
	}
	lastMonth := a.BucketKey(start.AddDate(0, -1, 0), PeriodMonth)

	worked := make(map[string]bool)
	for _, r := range records {
		hours, amount, counted := a.Contribution(r)
		if !counted {
			continue
		}
		switch a.BucketKey(r.Start, PeriodMonth) {
		case p.Month:
			p.Hours = p.Hours.Add(hours)
			p.Amount = p.Amount.Add(amount)
			worked[a.BucketKey(r.Start, PeriodDay)] = true
		case lastMonth:
			p.LastMonthAmount = p.LastMonthAmount.Add(amount)
		}
	}
	p.DaysWorked = len(worked)

	switch {
	case p.DaysWorked < lowConfidenceDays:
		p.Confidence = ConfidenceLow
	case p.DaysWorked < mediumConfidenceDays:
		p.Confidence = ConfidenceMedium
	default:
		p.Confidence = ConfidenceHigh
	}

	scale := decimal.NewFromInt(int64(p.DaysInMonth)).Div(decimal.NewFromInt(int64(p.DaysElapsed)))
	p.ProjectedHours = p.Hours.Mul(scale).Round(2)
	p.ProjectedAmount = p.Amount.Mul(scale).Round(2)
	return p
}

// VsLastMonth compares the projected amount with last month's total.
func (p MonthProjection) VsLastMonth() string {
	if !p.LastMonthAmount.IsPositive() {
		return "No prior data"
	}
	diff := p.ProjectedAmount.Sub(p.LastMonthAmount).Div(p.LastMonthAmount).Mul(decimal.NewFromInt(100))
	switch {
	case diff.Abs().LessThan(decimal.NewFromInt(10)):
		return "Similar to last month"
	case diff.IsPositive():
		return fmt.Sprintf("%s%% higher than last month", diff.Round(0))
	}
	return fmt.Sprintf("%s%% lower than last month", diff.Neg().Round(0))
}

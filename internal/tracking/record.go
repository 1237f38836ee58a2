package tracking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is a read-only snapshot of one clock-in/clock-out session.
type Record struct {
	ID       string
	OwnerRef string
	// Start is zero when the source value was missing or unparseable.
	Start time.Time
	// End is nil while the session is open.
	End *time.Time
	// DurationHours and Amount are authoritative when set.
	DurationHours *decimal.Decimal
	Amount        *decimal.Decimal
	Overtime      bool
}

// Open reports whether the session has not been clocked out yet.
func (r Record) Open() bool {
	return r.End == nil
}

// Valid reports whether the record carries a usable start instant.
func (r Record) Valid() bool {
	return !r.Start.IsZero()
}

// Period selects the calendar bucket used for grouping.
type Period int

const (
	// PeriodDay buckets by calendar date.
	PeriodDay Period = iota
	// PeriodWeek buckets by ISO year-week.
	PeriodWeek
	// PeriodMonth buckets by calendar year-month.
	PeriodMonth
)

func (p Period) String() string {
	switch p {
	case PeriodDay:
		return "day"
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	default:
		return "unknown"
	}
}

// Next cycles day -> week -> month -> day.
func (p Period) Next() Period {
	return (p + 1) % 3
}

// ParsePeriod accepts "day", "week" or "month".
func ParsePeriod(s string) (Period, bool) {
	switch s {
	case "day", "d", "today":
		return PeriodDay, true
	case "week", "w":
		return PeriodWeek, true
	case "month", "m":
		return PeriodMonth, true
	}
	return PeriodDay, false
}

// Totals is the accumulated contribution of a set of records.
type Totals struct {
	Hours          decimal.Decimal
	Amount         decimal.Decimal
	OvertimeHours  decimal.Decimal
	OvertimeAmount decimal.Decimal
	// Records is how many closed records contributed.
	Records int
	// Skipped is how many records were dropped for a missing start.
	Skipped int
}

// HoursFloat converts the hour total for display.
func (t Totals) HoursFloat() float64 {
	return t.Hours.InexactFloat64()
}

// AmountFloat converts the amount total for display.
func (t Totals) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

func (t *Totals) add(hours, amount decimal.Decimal, overtime bool) {
	t.Hours = t.Hours.Add(hours)
	t.Amount = t.Amount.Add(amount)
	if overtime {
		t.OvertimeHours = t.OvertimeHours.Add(hours)
		t.OvertimeAmount = t.OvertimeAmount.Add(amount)
	}
	t.Records++
}

// Plus returns the sum of two totals.
func (t Totals) Plus(o Totals) Totals {
	return Totals{
		Hours:          t.Hours.Add(o.Hours),
		Amount:         t.Amount.Add(o.Amount),
		OvertimeHours:  t.OvertimeHours.Add(o.OvertimeHours),
		OvertimeAmount: t.OvertimeAmount.Add(o.OvertimeAmount),
		Records:        t.Records + o.Records,
		Skipped:        t.Skipped + o.Skipped,
	}
}

// Bucket holds the totals of one calendar period.
type Bucket struct {
	Start  time.Time
	Key    string
	Totals Totals
	Period Period
}

// Summary is the today / this week / this month view used by the clock
// screen.
type Summary struct {
	Reference time.Time
	Today     Totals
	Week      Totals
	Month     Totals
	Skipped   int
}

// MonthlyEarnings holds the per-month amount of one calendar year.
type MonthlyEarnings struct {
	Months [12]decimal.Decimal
	Total  decimal.Decimal
	Year   int
}

// DayGroup is one calendar day of history.
type DayGroup struct {
	Day     time.Time
	Key     string
	Records []Record
	Totals  Totals
}

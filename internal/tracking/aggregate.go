package tracking

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Aggregator buckets records in a single reference timezone and prices
// records that carry no amount with one hourly rate.
type Aggregator struct {
	loc  *time.Location
	rate decimal.Decimal
}

// NewAggregator returns an aggregator for loc. A nil loc means UTC and a
// negative rate is treated as zero.
func NewAggregator(loc *time.Location, hourlyRate decimal.Decimal) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if hourlyRate.IsNegative() {
		hourlyRate = decimal.Zero
	}
	return &Aggregator{loc: loc, rate: hourlyRate}
}

// Location returns the reference timezone.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Rate returns the hourly rate used for records without an amount.
func (a *Aggregator) Rate() decimal.Decimal {
	return a.rate
}

// HoursFromSeconds converts a live elapsed count to hours.
func HoursFromSeconds(secs int64) decimal.Decimal {
	if secs <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(secs).Div(secondsPerHour)
}

// Contribution returns what r adds to historical totals. Open records and
// records without a start are not counted.
func (a *Aggregator) Contribution(r Record) (hours, amount decimal.Decimal, counted bool) {
	if !r.Valid() || r.Open() {
		return decimal.Zero, decimal.Zero, false
	}
	if r.DurationHours != nil {
		hours = *r.DurationHours
	}
	if r.Amount != nil {
		amount = *r.Amount
	} else {
		amount = hours.Mul(a.rate)
	}
	return hours, amount, true
}

// BucketKey returns the period identifier containing t.
func (a *Aggregator) BucketKey(t time.Time, p Period) string {
	t = t.In(a.loc)
	switch p {
	case PeriodWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// BucketStart returns the first instant of the period containing t.
// Weeks start on Monday.
func (a *Aggregator) BucketStart(t time.Time, p Period) time.Time {
	t = t.In(a.loc)
	y, m, d := t.Date()
	switch p {
	case PeriodWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, a.loc)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, a.loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, a.loc)
	}
}

// Aggregate totals the records falling in the period that contains ref.
func (a *Aggregator) Aggregate(records []Record, ref time.Time, p Period) Totals {
	return a.AggregateKey(records, a.BucketKey(ref, p), p)
}

// AggregateKey totals the records whose start falls in the bucket key.
// Skipped counts invalid records across the whole input.
func (a *Aggregator) AggregateKey(records []Record, key string, p Period) Totals {
	var out Totals
	for _, r := range records {
		if !r.Valid() {
			out.Skipped++
			continue
		}
		if a.BucketKey(r.Start, p) != key {
			continue
		}
		if hours, amount, ok := a.Contribution(r); ok {
			out.add(hours, amount, r.Overtime)
		}
	}
	return out
}

// Buckets returns every bucket that holds at least one record, most
// recent first. Buckets with only open records are included with zero
// totals.
func (a *Aggregator) Buckets(records []Record, p Period) []Bucket {
	byKey := make(map[string]*Bucket)
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		key := a.BucketKey(r.Start, p)
		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key, Period: p, Start: a.BucketStart(r.Start, p)}
			byKey[key] = b
		}
		if hours, amount, counted := a.Contribution(r); counted {
			b.Totals.add(hours, amount, r.Overtime)
		}
	}

	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out
}

// Summarize computes today, this week and this month relative to ref in
// one pass. Month means the calendar month of ref.
func (a *Aggregator) Summarize(records []Record, ref time.Time) Summary {
	day := a.BucketKey(ref, PeriodDay)
	week := a.BucketKey(ref, PeriodWeek)
	month := a.BucketKey(ref, PeriodMonth)

	s := Summary{Reference: ref}
	for _, r := range records {
		if !r.Valid() {
			s.Skipped++
			continue
		}
		hours, amount, counted := a.Contribution(r)
		if !counted {
			continue
		}
		if a.BucketKey(r.Start, PeriodDay) == day {
			s.Today.add(hours, amount, r.Overtime)
		}
		if a.BucketKey(r.Start, PeriodWeek) == week {
			s.Week.add(hours, amount, r.Overtime)
		}
		if a.BucketKey(r.Start, PeriodMonth) == month {
			s.Month.add(hours, amount, r.Overtime)
		}
	}
	s.Today.Skipped = s.Skipped
	s.Week.Skipped = s.Skipped
	s.Month.Skipped = s.Skipped
	return s
}

// MonthlyEarnings spreads the amounts of one calendar year over its months.
func (a *Aggregator) MonthlyEarnings(records []Record, year int) MonthlyEarnings {
	out := MonthlyEarnings{Year: year}
	for _, r := range records {
		_, amount, counted := a.Contribution(r)
		if !counted {
			continue
		}
		start := r.Start.In(a.loc)
		if start.Year() != year {
			continue
		}
		m := int(start.Month()) - 1
		out.Months[m] = out.Months[m].Add(amount)
	}
	for _, v := range out.Months {
		out.Total = out.Total.Add(v)
	}
	return out
}

// GroupByDay groups records by calendar day, newest day first and newest
// record first within a day. Records without a start are left out.
func (a *Aggregator) GroupByDay(records []Record) []DayGroup {
	byKey := make(map[string]*DayGroup)
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		key := a.BucketKey(r.Start, PeriodDay)
		g, ok := byKey[key]
		if !ok {
			g = &DayGroup{Key: key, Day: a.BucketStart(r.Start, PeriodDay)}
			byKey[key] = g
		}
		g.Records = append(g.Records, r)
		if hours, amount, counted := a.Contribution(r); counted {
			g.Totals.add(hours, amount, r.Overtime)
		}
	}

	out := make([]DayGroup, 0, len(byKey))
	for _, g := range byKey {
		sort.Slice(g.Records, func(i, j int) bool {
			ri, rj := g.Records[i], g.Records[j]
			if !ri.Start.Equal(rj.Start) {
				return ri.Start.After(rj.Start)
			}
			return ri.ID < rj.ID
		})
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out
}

// DailyHours returns the hours of each of the last days calendar days
// ending at ref, oldest first. Used for trend charts.
func (a *Aggregator) DailyHours(records []Record, ref time.Time, days int) []float64 {
	if days <= 0 {
		return nil
	}
	end := a.BucketStart(ref, PeriodDay)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := end.AddDate(0, 0, -(days - 1 - i))
		index[day.Format("2006-01-02")] = i
	}

	sums := make([]decimal.Decimal, days)
	for _, r := range records {
		hours, _, counted := a.Contribution(r)
		if !counted {
			continue
		}
		if i, ok := index[a.BucketKey(r.Start, PeriodDay)]; ok {
			sums[i] = sums[i].Add(hours)
		}
	}

	out := make([]float64, days)
	for i, v := range sums {
		out[i] = v.InexactFloat64()
	}
	return out
}

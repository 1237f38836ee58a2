package tracking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProjectMonth(t *testing.T) {
	records := []Record{
		closed("a", "2024-03-01T09:00:00Z", "2024-03-01T11:00:00Z", "2", "20"),
		closed("b", "2024-03-04T09:00:00Z", "2024-03-04T11:00:00Z", "2", "20"),
		closed("c", "2024-03-04T15:00:00Z", "2024-03-04T15:30:00Z", "0.5", "5"),
		closed("d", "2024-03-08T09:00:00Z", "2024-03-08T09:30:00Z", "0.5", "5"),
		closed("feb", "2024-02-20T09:00:00Z", "2024-02-20T19:00:00Z", "10", "100"),
		{ID: "open", Start: ts("2024-03-10T08:00:00Z")},
	}
	agg := NewAggregator(time.UTC, decimal.NewFromInt(10))

	p := agg.ProjectMonth(records, ts("2024-03-10T12:00:00Z"))
	assert.Equal(t, "2024-03", p.Month)
	assert.Equal(t, 10, p.DaysElapsed)
	assert.Equal(t, 31, p.DaysInMonth)
	assert.Equal(t, 3, p.DaysWorked)
	assert.Equal(t, ConfidenceMedium, p.Confidence)
	assertDecimal(t, "5", p.Hours)
	assertDecimal(t, "50", p.Amount)
	assertDecimal(t, "15.5", p.ProjectedHours)
	assertDecimal(t, "155", p.ProjectedAmount)
	assertDecimal(t, "100", p.LastMonthAmount)
	assert.Equal(t, "55% higher than last month", p.VsLastMonth())
}

func TestProjectMonth_Empty(t *testing.T) {
	agg := NewAggregator(time.UTC, decimal.NewFromInt(10))

	p := agg.ProjectMonth(nil, ts("2024-02-29T23:00:00Z"))
	assert.Equal(t, 29, p.DaysInMonth)
	assert.Equal(t, ConfidenceLow, p.Confidence)
	assert.True(t, p.ProjectedAmount.IsZero())
	assert.Equal(t, "No prior data", p.VsLastMonth())
}

func TestProjectMonth_Timezone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata not available")
	}
	agg := NewAggregator(madrid, decimal.NewFromInt(10))

	// 23:30 UTC on 31 March is already 1 April in Madrid.
	p := agg.ProjectMonth(nil, ts("2024-03-31T23:30:00Z"))
	assert.Equal(t, "2024-04", p.Month)
	assert.Equal(t, 1, p.DaysElapsed)
	assert.Equal(t, 30, p.DaysInMonth)
}

func TestMonthProjection_VsLastMonth(t *testing.T) {
	tests := []struct {
		projected, last string
		want            string
	}{
		{"105", "100", "Similar to last month"},
		{"95", "100", "Similar to last month"},
		{"150", "100", "50% higher than last month"},
		{"40", "100", "60% lower than last month"},
		{"40", "0", "No prior data"},
	}
	for _, tt := range tests {
		t.Run(tt.projected+"/"+tt.last, func(t *testing.T) {
			p := MonthProjection{
				ProjectedAmount: decimal.RequireFromString(tt.projected),
				LastMonthAmount: decimal.RequireFromString(tt.last),
			}
			assert.Equal(t, tt.want, p.VsLastMonth())
		})
	}
}

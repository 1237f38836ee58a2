// Package models defines data structures and domain types.
package models

// TimeRange represents the selected window of the history chart.
type TimeRange int

const (
	// TimeRange7Days shows the last 7 days.
	TimeRange7Days TimeRange = iota
	// TimeRange14Days shows the last 14 days.
	TimeRange14Days
	// TimeRange30Days shows the last 30 days.
	TimeRange30Days
	// TimeRange90Days shows the last 90 days.
	TimeRange90Days
)

// String returns the display name for a time range.
func (t TimeRange) String() string {
	switch t {
	case TimeRange7Days:
		return "7 Days"
	case TimeRange14Days:
		return "14 Days"
	case TimeRange30Days:
		return "30 Days"
	case TimeRange90Days:
		return "90 Days"
	default:
		return "Unknown"
	}
}

// Days returns the number of days covered by the time range.
func (t TimeRange) Days() int {
	switch t {
	case TimeRange7Days:
		return 7
	case TimeRange14Days:
		return 14
	case TimeRange30Days:
		return 30
	case TimeRange90Days:
		return 90
	default:
		return 30
	}
}

// Next cycles to the next time range.
func (t TimeRange) Next() TimeRange {
	return (t + 1) % 4
}

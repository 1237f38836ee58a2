// Package tracking reconstructs live session time and reduces time records
// into per-period totals. Everything here is pure: no I/O, no shared state.
package tracking

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ElapsedSeconds returns the whole seconds between start and now.
// A zero start or a now that precedes start yields 0.
func ElapsedSeconds(start, now time.Time) int64 {
	if start.IsZero() || now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / time.Second)
}

// Elapsed is ElapsedSeconds measured against the wall clock.
func Elapsed(start time.Time) int64 {
	return ElapsedSeconds(start, time.Now())
}

// FormatHHMMSS renders seconds as HH:MM:SS. Hours grow past two digits
// instead of wrapping.
func FormatHHMMSS(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseHHMMSS is the inverse of FormatHHMMSS.
func ParseHHMMSS(value string) (int64, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q: want HH:MM:SS", value)
	}

	var fields [3]int64
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return 0, fmt.Errorf("invalid duration %q: %q is not a number", value, p)
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", value, err)
		}
		fields[i] = n
	}

	h, m, s := fields[0], fields[1], fields[2]
	if m >= 60 || s >= 60 {
		return 0, fmt.Errorf("invalid duration %q: minutes and seconds must be below 60", value)
	}
	rest := m*60 + s
	if h > (math.MaxInt64-rest)/3600 {
		return 0, fmt.Errorf("invalid duration %q: hours out of range", value)
	}
	return h*3600 + rest, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// legacyLayout is the naive "YYYY-MM-DD HH:MM:SS" form some records carry.
// It is read as UTC.
const legacyLayout = "2006-01-02 15:04:05"

// MalformedMarker stands in for a value that was present but unreadable.
const MalformedMarker = "invalid"

// Timestamp is a JSON instant that tolerates ISO strings, the legacy
// layout and unix seconds or milliseconds. Anything else decodes to the
// zero time without failing the surrounding document, and Malformed
// reports it.
type Timestamp struct {
	time.Time
	malformed bool
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp is ParseTime for a stored value. A non-empty s that does
// not parse gives a malformed timestamp.
func ParseTimestamp(s string) Timestamp {
	t := ParseTime(s)
	return Timestamp{Time: t, malformed: t.IsZero() && s != ""}
}

// Malformed reports whether a value was present but could not be read.
func (t Timestamp) Malformed() bool {
	return t.malformed
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var ok bool
	t.Time, ok = parseTimeField(data)
	t.malformed = !ok
	return nil
}

// MarshalJSON writes RFC 3339 with nanoseconds, or null for the zero time.
// A malformed value is written as an unreadable marker so it stays
// malformed after a round trip.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.malformed {
		return []byte(`"` + MalformedMarker + `"`), nil
	}
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// parseTimeField reads a JSON string in any ParseTime form, or a unix
// number. ok is false when a value was present but unreadable; null and
// the empty string are absent, not malformed.
func parseTimeField(data json.RawMessage) (t time.Time, ok bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return time.Time{}, true
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err == nil {
		t = ParseTime(strVal)
		return t, strVal == "" || !t.IsZero()
	}

	var numVal float64
	if err := json.Unmarshal(data, &numVal); err == nil {
		t = fromUnix(numVal)
		return t, !t.IsZero()
	}

	return time.Time{}, false
}

// ParseTime parses the textual forms accepted by Timestamp. It returns the
// zero time when nothing matches.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(legacyLayout, s, time.UTC); err == nil {
		return t
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromUnix(n)
	}
	return time.Time{}
}

func fromUnix(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	if v > 1e12 {
		// Milliseconds
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

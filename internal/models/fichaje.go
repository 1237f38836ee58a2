package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/shopspring/decimal"
)

// Ref is a reference to another document. The backend sends either the
// bare id or the populated object.
type Ref string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = Ref(id)
		return nil
	}
	var obj struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.MongoID != "" {
		*r = Ref(obj.MongoID)
	} else {
		*r = Ref(obj.ID)
	}
	return nil
}

// Fichaje is one clock-in/clock-out record as the backend serves it.
type Fichaje struct {
	Start         Timestamp        `json:"inicio"`
	End           *Timestamp       `json:"fin,omitempty"`
	DurationHours *decimal.Decimal `json:"duracionHoras,omitempty"`
	Amount        *decimal.Decimal `json:"importeDia,omitempty"`
	ID            string           `json:"_id"`
	User          Ref              `json:"usuario,omitempty"`
	Date          string           `json:"fecha,omitempty"`
	Overtime      bool             `json:"extra,omitempty"`
}

// Open reports whether the record has not been clocked out. An end that
// is present but unreadable still closes the record.
func (f *Fichaje) Open() bool {
	return f.End == nil || (f.End.IsZero() && !f.End.Malformed())
}

// Malformed reports whether the start or the end could not be read.
func (f *Fichaje) Malformed() bool {
	return f.Start.IsZero() || (f.End != nil && f.End.Malformed())
}

// ToRecord converts the wire record into the aggregation input. A
// malformed record gets the zero start so aggregation skips and counts it.
func (f *Fichaje) ToRecord() tracking.Record {
	r := tracking.Record{
		ID:       f.ID,
		OwnerRef: string(f.User),
		Start:    f.Start.Time,
		Overtime: f.Overtime,
	}
	if f.Malformed() {
		r.Start = time.Time{}
	}
	if !f.Open() {
		end := f.End.Time
		r.End = &end
	}
	if f.DurationHours != nil {
		d := *f.DurationHours
		r.DurationHours = &d
	}
	if f.Amount != nil {
		a := *f.Amount
		r.Amount = &a
	}
	return r
}

// Records converts a slice of wire records.
func Records(list []Fichaje) []tracking.Record {
	out := make([]tracking.Record, len(list))
	for i := range list {
		out[i] = list[i].ToRecord()
	}
	return out
}

// HistoryTotals are the server-side week and month totals.
type HistoryTotals struct {
	Week  decimal.Decimal `json:"semana"`
	Month decimal.Decimal `json:"mes"`
}

// HistoryResponse is the payload of the history endpoint.
type HistoryResponse struct {
	Records []Fichaje     `json:"historial"`
	Totals  HistoryTotals `json:"totales"`
}

// CurrentResponse is the payload of the current-record endpoint.
type CurrentResponse struct {
	Current *Fichaje `json:"fichajeEnCurso,omitempty"`
}

// ClockResponse is returned by clock in, clock out and overtime updates.
type ClockResponse struct {
	Message string  `json:"message,omitempty"`
	Record  Fichaje `json:"fichaje"`
}

// Elapsed returns the live seconds of an open record at now.
func (f *Fichaje) Elapsed(now time.Time) int64 {
	if !f.Open() {
		return 0
	}
	return tracking.ElapsedSeconds(f.Start.Time, now)
}

package models

import "time"

// ClockAction names an action taken from this client.
type ClockAction string

const (
	ActionClockIn     ClockAction = "clock-in"
	ActionClockOut    ClockAction = "clock-out"
	ActionOvertimeOn  ClockAction = "overtime-on"
	ActionOvertimeOff ClockAction = "overtime-off"
	ActionDelete      ClockAction = "delete"
	ActionDeleteAll   ClockAction = "delete-all"
)

// ClockEvent is one entry of the local activity log.
type ClockEvent struct {
	At       time.Time
	Owner    string
	RecordID string
	Action   ClockAction
	ID       int64
}

package leave

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Interval is an inclusive range of civil dates an employee is on leave.
// Only approved intervals block attendance.
type Interval struct {
	ID         string
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	Status     Status
	LeaveType  string
	CreatedAt  time.Time
}

// Covers reports whether date falls within [StartDate, EndDate]. All three
// values are civil dates.
func (i Interval) Covers(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(i.StartDate)) && !d.After(dateOnly(i.EndDate))
}

// Blocks reports whether the interval prevents attendance on date.
func (i Interval) Blocks(date time.Time) bool {
	return i.Status == StatusApproved && i.Covers(date)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package employee

import (
	"fmt"
	"time"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// DaySchedule is one weekday of an employee's working schedule.
// Start and End are "HH:MM" wall clock times.
type DaySchedule struct {
	Active bool
	Start  string
	End    string
}

// ScheduleView is the read-only directory projection attendance works with.
type ScheduleView struct {
	ID               string
	BadgeUID         *string
	FullName         string
	Department       *string
	Position         *string
	DateEmployed     *time.Time
	EmploymentStatus EmploymentStatus
	Schedule         map[time.Weekday]DaySchedule
}

func (v ScheduleView) IsActive() bool {
	return v.EmploymentStatus == EmploymentStatusActive
}

// DayFor returns the schedule entry for the weekday of date. ok is false
// when the employee has no schedule row for that weekday.
func (v ScheduleView) DayFor(date time.Time) (DaySchedule, bool) {
	if v.Schedule == nil {
		return DaySchedule{}, false
	}
	day, ok := v.Schedule[date.Weekday()]
	return day, ok
}

// IsWorkDay reports whether date falls on an active schedule day.
func (v ScheduleView) IsWorkDay(date time.Time) bool {
	day, ok := v.DayFor(date)
	return ok && day.Active
}

// ISOWeekday converts a 1 (Monday) to 7 (Sunday) day number into time.Weekday.
func ISOWeekday(n int) (time.Weekday, error) {
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("day of week %d out of range 1-7", n)
	}
	return time.Weekday(n % 7), nil
}

package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
)

// Minute-of-day window boundaries, closed-open.
const (
	windowOpen     = 6 * 60  // 06:00
	clockInClose   = 17 * 60 // 17:00
	workHoursClose = 19 * 60 // 19:00
)

// CheckWorkingHours is the general gate applied before either action window.
func CheckWorkingHours(at time.Time) error {
	m := attendance.MinuteOfDay(at)
	if m < windowOpen || m >= workHoursClose {
		return attendance.ErrOutsideWorkingHours
	}
	return nil
}

// CheckWindow reports whether action is permitted at the given instant.
func CheckWindow(action attendance.Action, at time.Time) error {
	if err := CheckWorkingHours(at); err != nil {
		return err
	}

	m := attendance.MinuteOfDay(at)
	switch action {
	case attendance.ActionTimeIn:
		if m < windowOpen || m >= clockInClose {
			return attendance.ErrOutsideClockInWindow
		}
	case attendance.ActionTimeOut:
		if m < windowOpen || m >= workHoursClose {
			return attendance.ErrOutsideClockOutWindow
		}
	}
	return nil
}

// LatenessPolicy decides how lateness is measured and when it turns a shift
// Late. Records keep the policy of the channel that opened them.
type LatenessPolicy struct {
	Name string
	// UseSchedule measures against the weekday start instead of FixedCutoff.
	UseSchedule bool
	FixedCutoff string
	// LateAfter is the number of late minutes tolerated before status Late.
	LateAfter int
}

var (
	// ManualLateness applies to administrator entries: a fixed 08:00 cutoff
	// and any lateness at all makes the shift Late.
	ManualLateness = LatenessPolicy{
		Name:        "manual",
		FixedCutoff: "08:00",
		LateAfter:   0,
	}

	// ScheduleLateness applies to badge scans: the weekday schedule start is
	// the cutoff and up to 30 minutes is tolerated.
	ScheduleLateness = LatenessPolicy{
		Name:        "schedule",
		UseSchedule: true,
		LateAfter:   30,
	}
)

// PolicyFor returns the lateness policy matching the channel that recorded
// the time in.
func PolicyFor(source *attendance.Source) LatenessPolicy {
	if source != nil && *source == attendance.SourceRFID {
		return ScheduleLateness
	}
	return ManualLateness
}

// ClockInOutcome is what a policy derives from a clock-in instant.
type ClockInOutcome struct {
	LateMinutes int
	Status      attendance.Status
	WorkDay     bool
	Note        string
}

const nonWorkDayNote = "Scan recorded on a non-working day"

// EvaluateClockIn computes lateness and the opening status for a clock-in at
// the given instant. view may be nil when no schedule is available.
func (p LatenessPolicy) EvaluateClockIn(at time.Time, view *employee.ScheduleView) ClockInOutcome {
	date := attendance.CivilDate(at)

	if !p.UseSchedule {
		cutoff, _ := attendance.At(date, p.FixedCutoff)
		late := minutesAfter(at, cutoff)
		return ClockInOutcome{LateMinutes: late, Status: p.openingStatus(late), WorkDay: true}
	}

	if view == nil || !view.IsWorkDay(date) {
		return ClockInOutcome{Status: attendance.StatusNoWork, WorkDay: false, Note: nonWorkDayNote}
	}

	day, _ := view.DayFor(date)
	cutoff, err := attendance.At(date, day.Start)
	if err != nil {
		// Work day without a usable start time: nothing to be late against.
		return ClockInOutcome{Status: attendance.StatusPresent, WorkDay: true}
	}
	late := minutesAfter(at, cutoff)
	return ClockInOutcome{LateMinutes: late, Status: p.openingStatus(late), WorkDay: true}
}

// IsLate reports whether lateMinutes exceeds the policy tolerance.
func (p LatenessPolicy) IsLate(lateMinutes int) bool {
	return lateMinutes > p.LateAfter
}

func (p LatenessPolicy) openingStatus(lateMinutes int) attendance.Status {
	if p.IsLate(lateMinutes) {
		return attendance.StatusLate
	}
	return attendance.StatusPresent
}

// ClosingStatus derives the status of a shift that has both ends.
func (p LatenessPolicy) ClosingStatus(lateMinutes int, hoursWorked float64, workDay bool) attendance.Status {
	switch {
	case !workDay:
		return attendance.StatusNoWork
	case hoursWorked < halfDayHours:
		return attendance.StatusHalfDay
	case p.IsLate(lateMinutes):
		return attendance.StatusLate
	default:
		return attendance.StatusCompleted
	}
}

// minutesAfter returns the whole minutes t is past ref, floored at zero.
func minutesAfter(t, ref time.Time) int {
	diff := t.Sub(ref).Minutes()
	if diff <= 0 {
		return 0
	}
	return int(math.Floor(diff))
}

package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// Shifts shorter than this are Half-day.
const halfDayHours = 4.0

// ShiftMetrics holds the derived figures of a closed shift.
type ShiftMetrics struct {
	HoursWorked     float64
	TotalMinutes    int
	OvertimeMinutes int
}

var secondsPerHour = decimal.NewFromInt(3600)

// CalculateShift derives worked time and overtime for a shift. Overtime is
// measured against the scheduled end of the time-in date and is zero when
// view is nil or that date is not a work day.
func CalculateShift(timeIn, timeOut time.Time, view *employee.ScheduleView) ShiftMetrics {
	elapsed := timeOut.Sub(timeIn)
	if elapsed < 0 {
		elapsed = 0
	}

	hours := decimal.NewFromInt(int64(elapsed / time.Second)).
		Div(secondsPerHour).
		Round(2)

	metrics := ShiftMetrics{
		HoursWorked:  hours.InexactFloat64(),
		TotalMinutes: int(elapsed / time.Minute),
	}

	if view == nil {
		return metrics
	}

	date := attendance.CivilDate(timeIn)
	if !view.IsWorkDay(date) {
		return metrics
	}
	day, _ := view.DayFor(date)
	scheduledEnd, err := attendance.At(date, day.End)
	if err != nil {
		return metrics
	}
	metrics.OvertimeMinutes = minutesAfter(timeOut, scheduledEnd)
	return metrics
}

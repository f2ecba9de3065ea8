package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
)

// Schedules holds the cron specs of the attendance jobs.
type Schedules struct {
	PrimarySweep   string
	SafetyNetSweep string
	Absence        string
}

type AttendanceJobs struct {
	attendanceSvc attendance.Service
	now           func() time.Time
}

func NewAttendanceJobs(attendanceSvc attendance.Service) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceSvc: attendanceSvc,
		now:           time.Now,
	}
}

// RegisterJobs adds the two forced closure runs and absence marking. The
// safety-net run only finds records the primary run missed or that were
// opened after it.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, schedules Schedules) error {
	if err := scheduler.AddJob("forced_closure_primary", schedules.PrimarySweep, j.ForcedClosure); err != nil {
		return err
	}
	if err := scheduler.AddJob("forced_closure_safety_net", schedules.SafetyNetSweep, j.ForcedClosure); err != nil {
		return err
	}
	if schedules.Absence != "" {
		if err := scheduler.AddJob("mark_absent_employees", schedules.Absence, j.MarkAbsentEmployees); err != nil {
			return err
		}
	}
	return nil
}

func (j *AttendanceJobs) ForcedClosure(ctx context.Context) error {
	trigger := j.now()
	slog.Info("Cron: Starting forced closure sweep", "trigger_at", trigger.In(attendance.Location).Format(time.RFC3339))

	result, err := j.attendanceSvc.RunForcedClosure(ctx, trigger)
	if err != nil {
		if errors.Is(err, attendance.ErrSweepInProgress) {
			slog.Info("Cron: Forced closure sweep already running, skipping")
			return nil
		}
		return fmt.Errorf("forced closure sweep: %w", err)
	}

	if len(result.Failed) > 0 {
		slog.Warn("Cron: Forced closure left records open", "failed", len(result.Failed))
	}
	return nil
}

func (j *AttendanceJobs) MarkAbsentEmployees(ctx context.Context) error {
	date := attendance.CivilDate(j.now())
	if _, err := j.attendanceSvc.MarkAbsent(ctx, date); err != nil {
		return fmt.Errorf("mark absent employees: %w", err)
	}
	return nil
}

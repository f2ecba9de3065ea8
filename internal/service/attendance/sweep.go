package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
)

// RunForcedClosure implements attendance.Service. Only records still clocked
// in when their key is locked are touched, so repeated runs never rewrite a
// record an earlier run or a real clock-out already completed.
func (a *AttendanceServiceImpl) RunForcedClosure(ctx context.Context, trigger time.Time) (attendance.SweepResult, error) {
	if !a.sweepMu.TryLock() {
		return attendance.SweepResult{}, attendance.ErrSweepInProgress
	}
	defer a.sweepMu.Unlock()

	result := attendance.SweepResult{
		TriggerAt: trigger.In(attendance.Location).Format(time.RFC3339),
	}

	open, err := a.records.ListOpen(ctx, attendance.CivilDate(trigger))
	if err != nil {
		return result, a.systemError("failed to list open attendances", err)
	}

	if len(open) == 0 {
		slog.Info("Sweep: no open attendances found", "trigger_at", result.TriggerAt)
		return result, nil
	}

	schedules := make(map[string]*employee.ScheduleView)
	for _, rec := range open {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sweep interrupted: %w", err)
		}

		view, ok := schedules[rec.EmployeeID]
		if !ok {
			view = a.optionalSchedule(ctx, rec.EmployeeID)
			schedules[rec.EmployeeID] = view
		}

		closed, err := a.records.Apply(ctx, rec.EmployeeID, rec.Date, func(current *attendance.Record) (*attendance.Record, error) {
			return a.machine.ForceClose(current, trigger, a.sweepIdentity, view)
		})
		if err != nil {
			if errors.Is(err, errNotOpen) {
				result.Skipped++
				continue
			}
			slog.Error("Sweep: failed to close attendance",
				"attendance_id", rec.ID,
				"employee_id", rec.EmployeeID,
				"date", rec.DateKey(),
				"error", err,
			)
			reason, _ := bulkReason(err)
			result.Failed = append(result.Failed, attendance.SweepFailure{
				RecordID:   rec.ID,
				EmployeeID: rec.EmployeeID,
				Date:       rec.DateKey(),
				Reason:     reason,
			})
			continue
		}

		result.ClosedCount++
		a.publish("attendance.force_closed", closed)
	}

	slog.Info("Sweep: closed open attendances",
		"trigger_at", result.TriggerAt,
		"count", result.ClosedCount,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
	)
	return result, nil
}

package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
)

// MarkAbsent implements attendance.Service. Employees on approved leave and
// employees not scheduled to work that day are left without a record.
func (a *AttendanceServiceImpl) MarkAbsent(ctx context.Context, date time.Time) (attendance.AbsenceResult, error) {
	day := attendance.CivilDate(date)
	result := attendance.AbsenceResult{Date: attendance.DateKey(day)}

	employees, err := a.directory.ListActive(ctx)
	if err != nil {
		return result, a.systemError("failed to list active employees", err)
	}

	onLeave, err := a.leaves.ListApprovedOn(ctx, day)
	if err != nil {
		return result, a.systemError("failed to list approved leaves", err)
	}
	leaveSet := make(map[string]struct{}, len(onLeave))
	for _, id := range onLeave {
		leaveSet[id] = struct{}{}
	}

	for _, view := range employees {
		if !view.IsWorkDay(day) {
			continue
		}
		if _, ok := leaveSet[view.ID]; ok {
			result.SkippedOnLeave++
			continue
		}

		_, err := a.records.Apply(ctx, view.ID, day, func(current *attendance.Record) (*attendance.Record, error) {
			return a.machine.Absent(current, view, day, a.sweepIdentity)
		})
		if err != nil {
			if errors.Is(err, errRecordExists) {
				continue
			}
			slog.Error("Failed to mark employee absent", "employee_id", view.ID, "date", result.Date, "error", err)
			continue
		}
		result.MarkedCount++
	}

	slog.Info("Absence marking completed", "date", result.Date, "marked", result.MarkedCount, "skipped_on_leave", result.SkippedOnLeave)
	return result, nil
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

const (
	defaultRecordedBy = "admin"
	scanRecordedBy    = "rfid"
)

type AttendanceServiceImpl struct {
	records   attendance.Repository
	leaves    leave.Repository
	directory employee.Directory
	guard     *LeaveConflictGuard
	machine   *StateMachine
	hub       *sse.Hub

	sweepIdentity string
	sweepMu       sync.Mutex
	now           func() time.Time
}

// timePtrToString formats an optional instant in the attendance zone.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.In(attendance.Location).Format("2006-01-02 15:04:05")
	return &format
}

func sourcePtrToString(s *attendance.Source) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// SubmitScan implements attendance.Service.
func (a *AttendanceServiceImpl) SubmitScan(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResponse{}, err
	}

	scannedAt := a.now()
	if req.ScannedAt != "" {
		// Format already checked by Validate.
		scannedAt, _ = validator.IsValidDateTime(req.ScannedAt)
	}

	view, err := a.directory.GetByBadgeUID(ctx, strings.ToUpper(req.UID))
	if err != nil {
		if errors.Is(err, employee.ErrBadgeNotAssigned) || errors.Is(err, employee.ErrEmployeeNotFound) {
			return attendance.ScanResponse{}, attendance.ErrUnknownBadge
		}
		return attendance.ScanResponse{}, a.systemError("failed to look up badge", err, "uid", req.UID)
	}

	ev := Event{
		Employee:   view,
		At:         scannedAt,
		Source:     attendance.SourceRFID,
		RecordedBy: scanRecordedBy,
	}
	rec, err := a.transition(ctx, view.ID, "", scannedAt, func(current *attendance.Record) (*attendance.Record, error) {
		return a.machine.Scan(current, ev)
	})
	if err != nil {
		return attendance.ScanResponse{}, err
	}

	res := attendance.ScanResponse{
		Status:          rec.Status,
		EmployeeID:      rec.EmployeeID,
		Name:            rec.EmployeeName,
		Action:          actionOf(rec),
		LateMinutes:     rec.LateMinutes,
		OvertimeMinutes: rec.OvertimeMinutes,
		HoursWorked:     rec.HoursWorked,
	}
	res.Token = attendance.SuccessToken(res)
	return res, nil
}

// SubmitManual implements attendance.Service.
func (a *AttendanceServiceImpl) SubmitManual(ctx context.Context, req attendance.ManualEventRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		return attendance.RecordResponse{}, err
	}
	at, err := attendance.At(date, req.Time)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	view, err := a.lookupEmployee(ctx, req.EmployeeID)
	if err != nil {
		return attendance.RecordResponse{}, err
	}

	ev := Event{
		Employee:   view,
		At:         at,
		Action:     req.Action,
		Source:     attendance.SourceManual,
		Notes:      req.Notes,
		RecordedBy: recordedByOrDefault(req.RecordedBy),
	}
	rec, err := a.transition(ctx, view.ID, req.Action, at, func(current *attendance.Record) (*attendance.Record, error) {
		return a.machine.Apply(current, ev)
	})
	if err != nil {
		return attendance.RecordResponse{}, err
	}
	return mapRecordToResponse(rec), nil
}

// CorrectRecord implements attendance.Service.
func (a *AttendanceServiceImpl) CorrectRecord(ctx context.Context, req attendance.CorrectionRequest) (attendance.RecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecordResponse{}, err
	}

	existing, err := a.records.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.RecordResponse{}, err
		}
		return attendance.RecordResponse{}, a.systemError("failed to get attendance", err, "id", req.ID)
	}

	correction := Correction{
		TimeIn:     req.TimeIn,
		TimeOut:    req.TimeOut,
		Notes:      req.Notes,
		RecordedBy: recordedByOrDefault(req.RecordedBy),
	}
	dates := []time.Time{existing.Date}
	if req.Date != nil {
		date, err := attendance.ParseDate(*req.Date)
		if err != nil {
			return attendance.RecordResponse{}, err
		}
		correction.Date = &date
		dates = append(dates, date)
	}

	if err := a.guard.Check(ctx, existing.EmployeeID, dates...); err != nil {
		return attendance.RecordResponse{}, a.passOrWrap(err, "failed to check leave", "id", req.ID)
	}

	view := a.optionalSchedule(ctx, existing.EmployeeID)
	rec, err := a.records.ApplyByID(ctx, req.ID, func(current *attendance.Record) (*attendance.Record, error) {
		return a.machine.Correct(current, correction, view)
	})
	if err != nil {
		return attendance.RecordResponse{}, a.passOrWrap(err, "failed to correct attendance", "id", req.ID)
	}

	a.publish("attendance.corrected", rec)
	return mapRecordToResponse(rec), nil
}

// GetRecord implements attendance.Service.
func (a *AttendanceServiceImpl) GetRecord(ctx context.Context, id string) (attendance.RecordResponse, error) {
	rec, err := a.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.RecordResponse{}, err
		}
		return attendance.RecordResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	return mapRecordToResponse(rec), nil
}

// ListRecords implements attendance.Service.
func (a *AttendanceServiceImpl) ListRecords(ctx context.Context, filter attendance.RecordFilter) (attendance.ListRecordResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordResponse{}, err
	}

	records, total, err := a.records.List(ctx, filter)
	if err != nil {
		return attendance.ListRecordResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	responses := make([]attendance.RecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, mapRecordToResponse(rec))
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}

	return attendance.ListRecordResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Records:    responses,
	}, nil
}

// transition runs the time-window gate, then the leave guard, and then fn
// under the store's per-key guard for (employeeID, civil date of at). An
// empty action is a scan: its direction depends on the stored record, so
// only the working-hours gate runs here and fn checks the action window.
func (a *AttendanceServiceImpl) transition(ctx context.Context, employeeID string, action attendance.Action, at time.Time, fn attendance.MutateFunc) (attendance.Record, error) {
	date := attendance.CivilDate(at)

	gate := CheckWorkingHours(at)
	if action != "" {
		gate = CheckWindow(action, at)
	}
	if gate != nil {
		return attendance.Record{}, gate
	}

	if err := a.guard.Check(ctx, employeeID, date); err != nil {
		return attendance.Record{}, a.passOrWrap(err, "failed to check leave", "employee_id", employeeID)
	}

	rec, err := a.records.Apply(ctx, employeeID, date, fn)
	if err != nil {
		return attendance.Record{}, a.passOrWrap(err, "failed to apply attendance event", "employee_id", employeeID, "date", attendance.DateKey(date))
	}

	event := "attendance.clock_in"
	if rec.State() == attendance.StateCompleted {
		event = "attendance.clock_out"
	}
	a.publish(event, rec)
	return rec, nil
}

func (a *AttendanceServiceImpl) lookupEmployee(ctx context.Context, id string) (employee.ScheduleView, error) {
	view, err := a.directory.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return employee.ScheduleView{}, attendance.ErrEmployeeNotFound
		}
		return employee.ScheduleView{}, a.systemError("failed to look up employee", err, "employee_id", id)
	}
	return view, nil
}

// optionalSchedule returns the employee's schedule, or nil when it cannot be
// read. Without a schedule overtime is zero and the work-day flag is kept.
func (a *AttendanceServiceImpl) optionalSchedule(ctx context.Context, id string) *employee.ScheduleView {
	view, err := a.directory.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			slog.Warn("Failed to load schedule, overtime will be zero", "employee_id", id, "error", err)
		}
		return nil
	}
	return &view
}

func (a *AttendanceServiceImpl) publish(event string, rec attendance.Record) {
	if a.hub == nil {
		return
	}
	a.hub.Publish(sse.TopicAttendance, sse.Event{Event: event, Data: mapRecordToResponse(rec)})
}

// passOrWrap returns structured rejections unchanged and logs anything else
// as a system failure.
func (a *AttendanceServiceImpl) passOrWrap(err error, msg string, attrs ...any) error {
	var rejection *attendance.Error
	if errors.As(err, &rejection) {
		return err
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return err
	}
	return a.systemError(msg, err, attrs...)
}

func (a *AttendanceServiceImpl) systemError(msg string, err error, attrs ...any) error {
	slog.Error(msg, append(attrs, "error", err)...)
	return fmt.Errorf("%s: %w", msg, err)
}

func recordedByOrDefault(recordedBy string) string {
	if strings.TrimSpace(recordedBy) == "" {
		return defaultRecordedBy
	}
	return recordedBy
}

func actionOf(rec attendance.Record) attendance.Action {
	if rec.State() == attendance.StateCompleted {
		return attendance.ActionTimeOut
	}
	return attendance.ActionTimeIn
}

// mapRecordToResponse converts a Record entity to RecordResponse
func mapRecordToResponse(rec attendance.Record) attendance.RecordResponse {
	var dateEmployed *string
	if rec.DateEmployed != nil {
		d := rec.DateEmployed.Format(attendance.DateLayout)
		dateEmployed = &d
	}

	return attendance.RecordResponse{
		ID:              rec.ID,
		EmployeeID:      rec.EmployeeID,
		EmployeeName:    rec.EmployeeName,
		Department:      rec.Department,
		Position:        rec.Position,
		DateEmployed:    dateEmployed,
		Date:            rec.DateKey(),
		TimeIn:          timePtrToString(rec.TimeIn),
		TimeOut:         timePtrToString(rec.TimeOut),
		Status:          rec.Status,
		LateMinutes:     rec.LateMinutes,
		OvertimeMinutes: rec.OvertimeMinutes,
		HoursWorked:     rec.HoursWorked,
		TotalMinutes:    rec.TotalMinutes,
		RecordType:      string(rec.RecordType),
		TimeInSource:    sourcePtrToString(rec.TimeInSource),
		TimeOutSource:   sourcePtrToString(rec.TimeOutSource),
		Notes:           rec.Notes,
		RecordedBy:      rec.RecordedBy,
		CreatedAt:       rec.CreatedAt.In(attendance.Location).Format("2006-01-02 15:04:05"),
		LastModified:    rec.LastModified.In(attendance.Location).Format("2006-01-02 15:04:05"),
	}
}

func NewAttendanceService(
	records attendance.Repository,
	leaves leave.Repository,
	directory employee.Directory,
	hub *sse.Hub,
	sweepIdentity string,
) attendance.Service {
	return newAttendanceService(records, leaves, directory, hub, sweepIdentity, time.Now)
}

func newAttendanceService(
	records attendance.Repository,
	leaves leave.Repository,
	directory employee.Directory,
	hub *sse.Hub,
	sweepIdentity string,
	now func() time.Time,
) *AttendanceServiceImpl {
	return &AttendanceServiceImpl{
		records:       records,
		leaves:        leaves,
		directory:     directory,
		guard:         NewLeaveConflictGuard(leaves),
		machine:       NewStateMachine(now),
		hub:           hub,
		sweepIdentity: sweepIdentity,
		now:           now,
	}
}

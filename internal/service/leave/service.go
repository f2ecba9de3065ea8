package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
)

type LeaveServiceImpl struct {
	leaves    leave.Repository
	directory employee.Directory
}

// AssignLeave implements leave.Service.
func (l *LeaveServiceImpl) AssignLeave(ctx context.Context, req leave.AssignLeaveRequest) (leave.IntervalResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.IntervalResponse{}, err
	}

	if _, err := l.directory.GetByID(ctx, req.EmployeeID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return leave.IntervalResponse{}, attendance.ErrEmployeeNotFound
		}
		return leave.IntervalResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	// Layout was checked by Validate.
	start, _ := attendance.ParseDate(req.StartDate)
	end, _ := attendance.ParseDate(req.EndDate)

	interval, err := l.leaves.Create(ctx, leave.Interval{
		EmployeeID: req.EmployeeID,
		StartDate:  start,
		EndDate:    end,
		Status:     req.Status,
		LeaveType:  req.LeaveType,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return leave.IntervalResponse{}, fmt.Errorf("failed to create leave interval: %w", err)
	}

	slog.Info("Leave interval assigned",
		"leave_id", interval.ID,
		"employee_id", interval.EmployeeID,
		"start_date", req.StartDate,
		"end_date", req.EndDate,
		"status", interval.Status,
	)
	return mapIntervalToResponse(interval), nil
}

// RemoveLeave implements leave.Service.
func (l *LeaveServiceImpl) RemoveLeave(ctx context.Context, id string) error {
	if err := l.leaves.Delete(ctx, id); err != nil {
		if errors.Is(err, leave.ErrLeaveNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete leave interval: %w", err)
	}
	slog.Info("Leave interval removed", "leave_id", id)
	return nil
}

// ListLeaves implements leave.Service.
func (l *LeaveServiceImpl) ListLeaves(ctx context.Context, filter leave.Filter) ([]leave.IntervalResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	intervals, err := l.leaves.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave intervals: %w", err)
	}

	responses := make([]leave.IntervalResponse, 0, len(intervals))
	for _, interval := range intervals {
		responses = append(responses, mapIntervalToResponse(interval))
	}
	return responses, nil
}

func mapIntervalToResponse(i leave.Interval) leave.IntervalResponse {
	return leave.IntervalResponse{
		ID:         i.ID,
		EmployeeID: i.EmployeeID,
		StartDate:  i.StartDate.Format(attendance.DateLayout),
		EndDate:    i.EndDate.Format(attendance.DateLayout),
		Status:     i.Status,
		LeaveType:  i.LeaveType,
		CreatedAt:  i.CreatedAt.In(attendance.Location).Format("2006-01-02 15:04:05"),
	}
}

func NewLeaveService(leaves leave.Repository, directory employee.Directory) leave.Service {
	return &LeaveServiceImpl{
		leaves:    leaves,
		directory: directory,
	}
}

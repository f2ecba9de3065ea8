package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
)

// LeaveConflictGuard blocks attendance writes on dates covered by approved leave.
type LeaveConflictGuard struct {
	leaves leave.Repository
}

func NewLeaveConflictGuard(leaves leave.Repository) *LeaveConflictGuard {
	return &LeaveConflictGuard{leaves: leaves}
}

// IsBlocked reports whether employeeID has approved leave covering date.
func (g *LeaveConflictGuard) IsBlocked(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	blocked, err := g.leaves.HasApprovedLeave(ctx, employeeID, attendance.CivilDate(date))
	if err != nil {
		return false, fmt.Errorf("failed to check approved leave: %w", err)
	}
	return blocked, nil
}

// Check returns ErrOnApprovedLeave when the date is blocked.
func (g *LeaveConflictGuard) Check(ctx context.Context, employeeID string, dates ...time.Time) error {
	for _, date := range dates {
		blocked, err := g.IsBlocked(ctx, employeeID, date)
		if err != nil {
			return err
		}
		if blocked {
			return attendance.ErrOnApprovedLeave
		}
	}
	return nil
}

package leave

import (
	"context"
	"time"
)

type Repository interface {
	// HasApprovedLeave reports whether an approved interval covers date.
	HasApprovedLeave(ctx context.Context, employeeID string, date time.Time) (bool, error)

	Create(ctx context.Context, interval Interval) (Interval, error)
	GetByID(ctx context.Context, id string) (Interval, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]Interval, error)

	// ListApprovedOn returns the employee IDs with approved leave covering date.
	ListApprovedOn(ctx context.Context, date time.Time) ([]string, error)
}

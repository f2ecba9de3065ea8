package employee

import "context"

// Directory is the read-only employee lookup owned by the HR directory.
type Directory interface {
	// GetByID returns ErrEmployeeNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (ScheduleView, error)

	// GetByBadgeUID only matches active employees and returns
	// ErrBadgeNotAssigned otherwise.
	GetByBadgeUID(ctx context.Context, uid string) (ScheduleView, error)

	// ListActive returns every active employee with their schedule.
	ListActive(ctx context.Context) ([]ScheduleView, error)
}

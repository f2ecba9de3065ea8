package attendance

import (
	"context"
	"time"
)

// MutateFunc receives the current record for a key (nil when none exists)
// and returns the record to persist. Returning an error aborts the write and
// the error is passed through to the caller unchanged.
type MutateFunc func(current *Record) (*Record, error)

// Repository is the attendance record store. Implementations guarantee at
// most one record per (employee, date) and run every MutateFunc under an
// exclusive per-key guard, so concurrent transitions on the same key observe
// each other's effects.
type Repository interface {
	// Apply runs fn against the record for (employeeID, date) and persists
	// the returned record atomically.
	Apply(ctx context.Context, employeeID string, date time.Time, fn MutateFunc) (Record, error)

	// ApplyByID runs fn against an existing record. fn may move the record to
	// a different date; the move fails with ErrDuplicateRecord when the target
	// key is already taken.
	ApplyByID(ctx context.Context, id string, fn MutateFunc) (Record, error)

	// GetByID retrieves a record or returns ErrAttendanceNotFound.
	GetByID(ctx context.Context, id string) (Record, error)

	// GetByEmployeeAndDate returns nil when no record exists for the key.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)

	// ListOpen returns records that are clocked in but not clocked out,
	// dated on or before the given civil date.
	ListOpen(ctx context.Context, onOrBefore time.Time) ([]Record, error)

	// List retrieves records with filters and pagination.
	List(ctx context.Context, filter RecordFilter) ([]Record, int64, error)
}

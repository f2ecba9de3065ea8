package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
	"github.com/google/uuid"
)

type leaveRepository struct {
	mu        sync.RWMutex
	intervals map[string]leave.Interval
}

// HasApprovedLeave implements leave.Repository.
func (r *leaveRepository) HasApprovedLeave(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, interval := range r.intervals {
		if interval.EmployeeID == employeeID && interval.Blocks(date) {
			return true, nil
		}
	}
	return false, nil
}

// Create implements leave.Repository.
func (r *leaveRepository) Create(ctx context.Context, interval leave.Interval) (leave.Interval, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return leave.Interval{}, fmt.Errorf("failed to generate leave id: %w", err)
	}
	interval.ID = id.String()
	if interval.CreatedAt.IsZero() {
		interval.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals[interval.ID] = interval
	return interval, nil
}

// GetByID implements leave.Repository.
func (r *leaveRepository) GetByID(ctx context.Context, id string) (leave.Interval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	interval, ok := r.intervals[id]
	if !ok {
		return leave.Interval{}, leave.ErrLeaveNotFound
	}
	return interval, nil
}

// Delete implements leave.Repository.
func (r *leaveRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.intervals[id]; !ok {
		return leave.ErrLeaveNotFound
	}
	delete(r.intervals, id)
	return nil
}

// List implements leave.Repository.
func (r *leaveRepository) List(ctx context.Context, filter leave.Filter) ([]leave.Interval, error) {
	var covering *time.Time
	if filter.Date != nil && *filter.Date != "" {
		d, err := time.Parse("2006-01-02", *filter.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date filter: %w", err)
		}
		covering = &d
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]leave.Interval, 0)
	for _, interval := range r.intervals {
		if filter.EmployeeID != nil && interval.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && interval.Status != *filter.Status {
			continue
		}
		if covering != nil && !interval.Covers(*covering) {
			continue
		}
		result = append(result, interval)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ListApprovedOn implements leave.Repository.
func (r *leaveRepository) ListApprovedOn(ctx context.Context, date time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, interval := range r.intervals {
		if !interval.Blocks(date) {
			continue
		}
		if _, ok := seen[interval.EmployeeID]; ok {
			continue
		}
		seen[interval.EmployeeID] = struct{}{}
		ids = append(ids, interval.EmployeeID)
	}
	sort.Strings(ids)
	return ids, nil
}

func NewLeaveRepository() leave.Repository {
	return &leaveRepository{intervals: make(map[string]leave.Interval)}
}

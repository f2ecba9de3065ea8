package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/google/uuid"
)

type attendanceRepository struct {
	locks *keyLocker

	mu      sync.RWMutex
	records map[string]attendance.Record
	byKey   map[string]string
}

func recordKey(employeeID string, date time.Time) string {
	return employeeID + "|" + attendance.DateKey(date)
}

// Apply implements attendance.Repository.
func (r *attendanceRepository) Apply(ctx context.Context, employeeID string, date time.Time, fn attendance.MutateFunc) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}

	key := recordKey(employeeID, date)
	unlock := r.locks.Lock(key)
	defer unlock()

	var current *attendance.Record
	r.mu.RLock()
	if id, ok := r.byKey[key]; ok {
		rec := r.records[id]
		current = &rec
	}
	r.mu.RUnlock()

	next, err := fn(current)
	if err != nil {
		return attendance.Record{}, err
	}
	if next == nil {
		return attendance.Record{}, fmt.Errorf("attendance mutation for %s returned no record", key)
	}
	if recordKey(next.EmployeeID, next.Date) != key {
		return attendance.Record{}, fmt.Errorf("attendance mutation for %s changed the record key", key)
	}

	return r.store(key, "", *next)
}

// ApplyByID implements attendance.Repository.
func (r *attendanceRepository) ApplyByID(ctx context.Context, id string, fn attendance.MutateFunc) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}

	// dest is the key a previous attempt tried to move the record to. A move
	// holds both keys, and only learns the destination from fn, so the first
	// attempt of a move is discarded and repeated with both keys locked.
	var dest string
	for {
		r.mu.RLock()
		rec, ok := r.records[id]
		r.mu.RUnlock()
		if !ok {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}

		oldKey := recordKey(rec.EmployeeID, rec.Date)
		keys := []string{oldKey}
		if dest != "" {
			keys = append(keys, dest)
		}
		unlock := r.locks.LockAll(keys...)

		// The record may have moved while we waited for its key.
		r.mu.RLock()
		current, ok := r.records[id]
		r.mu.RUnlock()
		if !ok {
			unlock()
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		if recordKey(current.EmployeeID, current.Date) != oldKey {
			unlock()
			continue
		}

		next, err := fn(&current)
		if err != nil {
			unlock()
			return attendance.Record{}, err
		}
		if next == nil {
			unlock()
			return attendance.Record{}, fmt.Errorf("attendance mutation for %s returned no record", id)
		}
		next.ID = id
		next.EmployeeID = current.EmployeeID

		newKey := recordKey(next.EmployeeID, next.Date)
		if newKey != oldKey && newKey != dest {
			unlock()
			dest = newKey
			continue
		}

		saved, err := r.store(newKey, oldKey, *next)
		unlock()
		return saved, err
	}
}

// store writes rec under key, releasing oldKey when the record moved. The
// map lock makes the uniqueness check and the write one step.
func (r *attendanceRepository) store(key, oldKey string, rec attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, fmt.Errorf("failed to generate attendance id: %w", err)
		}
		rec.ID = id.String()
	}

	if existing, ok := r.byKey[key]; ok && existing != rec.ID {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}

	if oldKey != "" && oldKey != key {
		delete(r.byKey, oldKey)
	}
	r.records[rec.ID] = rec
	r.byKey[key] = rec.ID
	return rec, nil
}

// GetByID implements attendance.Repository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	return rec, nil
}

// GetByEmployeeAndDate implements attendance.Repository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[recordKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	rec := r.records[id]
	return &rec, nil
}

// ListOpen implements attendance.Repository.
func (r *attendanceRepository) ListOpen(ctx context.Context, onOrBefore time.Time) ([]attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := attendance.DateKey(onOrBefore)
	var open []attendance.Record
	for _, rec := range r.records {
		if rec.State() != attendance.StateClockedIn {
			continue
		}
		if rec.DateKey() > limit {
			continue
		}
		open = append(open, rec)
	}
	sortRecords(open, true)
	return open, nil
}

// List implements attendance.Repository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []attendance.Record
	for _, rec := range r.records {
		if filter.EmployeeID != nil && *filter.EmployeeID != "" && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.StartDate != nil && *filter.StartDate != "" && rec.DateKey() < *filter.StartDate {
			continue
		}
		if filter.EndDate != nil && *filter.EndDate != "" && rec.DateKey() > *filter.EndDate {
			continue
		}
		if filter.Status != nil && string(rec.Status) != *filter.Status {
			continue
		}
		matched = append(matched, rec)
	}
	sortRecords(matched, false)

	total := int64(len(matched))
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []attendance.Record{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// sortRecords orders by date (ascending when asc, newest first otherwise),
// then employee.
func sortRecords(records []attendance.Record, asc bool) {
	sort.Slice(records, func(i, j int) bool {
		di, dj := records[i].DateKey(), records[j].DateKey()
		if di != dj {
			if asc {
				return di < dj
			}
			return di > dj
		}
		return records[i].EmployeeID < records[j].EmployeeID
	})
}

func NewAttendanceRepository() attendance.Repository {
	return &attendanceRepository{
		locks:   newKeyLocker(),
		records: make(map[string]attendance.Record),
		byKey:   make(map[string]string),
	}
}

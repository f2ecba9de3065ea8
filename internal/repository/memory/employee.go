package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
)

// Directory is an in-process employee.Directory seeded through Put.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]employee.ScheduleView
}

func NewDirectory(views ...employee.ScheduleView) *Directory {
	d := &Directory{employees: make(map[string]employee.ScheduleView)}
	for _, v := range views {
		d.Put(v)
	}
	return d
}

// Put inserts or replaces an employee.
func (d *Directory) Put(view employee.ScheduleView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[view.ID] = view
}

// GetByID implements employee.Directory.
func (d *Directory) GetByID(ctx context.Context, id string) (employee.ScheduleView, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	view, ok := d.employees[id]
	if !ok {
		return employee.ScheduleView{}, employee.ErrEmployeeNotFound
	}
	return view, nil
}

// GetByBadgeUID implements employee.Directory.
func (d *Directory) GetByBadgeUID(ctx context.Context, uid string) (employee.ScheduleView, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, view := range d.employees {
		if view.BadgeUID != nil && strings.EqualFold(*view.BadgeUID, uid) && view.IsActive() {
			return view, nil
		}
	}
	return employee.ScheduleView{}, employee.ErrBadgeNotAssigned
}

// ListActive implements employee.Directory.
func (d *Directory) ListActive(ctx context.Context) ([]employee.ScheduleView, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var active []employee.ScheduleView
	for _, view := range d.employees {
		if view.IsActive() {
			active = append(active, view)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

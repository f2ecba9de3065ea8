package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeDirectory struct {
	db *database.DB
}

const employeeColumns = `id, badge_uid, full_name, department, position, date_employed, employment_status`

// GetByID implements employee.Directory.
func (e *employeeDirectory) GetByID(ctx context.Context, id string) (employee.ScheduleView, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	view, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.ScheduleView{}, employee.ErrEmployeeNotFound
		}
		return employee.ScheduleView{}, fmt.Errorf("failed to get employee by id: %w", err)
	}

	if err := e.loadSchedules(ctx, q, []*employee.ScheduleView{&view}); err != nil {
		return employee.ScheduleView{}, err
	}
	return view, nil
}

// GetByBadgeUID implements employee.Directory.
func (e *employeeDirectory) GetByBadgeUID(ctx context.Context, uid string) (employee.ScheduleView, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE UPPER(badge_uid) = $1 AND employment_status = $2`
	view, err := scanEmployee(q.QueryRow(ctx, query, strings.ToUpper(uid), employee.EmploymentStatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.ScheduleView{}, employee.ErrBadgeNotAssigned
		}
		return employee.ScheduleView{}, fmt.Errorf("failed to get employee by badge: %w", err)
	}

	if err := e.loadSchedules(ctx, q, []*employee.ScheduleView{&view}); err != nil {
		return employee.ScheduleView{}, err
	}
	return view, nil
}

// ListActive implements employee.Directory.
func (e *employeeDirectory) ListActive(ctx context.Context) ([]employee.ScheduleView, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE employment_status = $1
		ORDER BY id`
	rows, err := q.Query(ctx, query, employee.EmploymentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var views []employee.ScheduleView
	for rows.Next() {
		view, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	ptrs := make([]*employee.ScheduleView, len(views))
	for i := range views {
		ptrs[i] = &views[i]
	}
	if err := e.loadSchedules(ctx, q, ptrs); err != nil {
		return nil, err
	}
	return views, nil
}

// loadSchedules fills the weekday schedule of every view in one query.
func (e *employeeDirectory) loadSchedules(ctx context.Context, q database.Querier, views []*employee.ScheduleView) error {
	if len(views) == 0 {
		return nil
	}

	byID := make(map[string]*employee.ScheduleView, len(views))
	ids := make([]string, 0, len(views))
	for _, v := range views {
		v.Schedule = make(map[time.Weekday]employee.DaySchedule)
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	query := `
		SELECT employee_id, day_of_week, is_active,
			   COALESCE(to_char(start_time, 'HH24:MI'), ''),
			   COALESCE(to_char(end_time, 'HH24:MI'), '')
		FROM employee_schedules
		WHERE employee_id = ANY($1)`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to get employee schedules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			employeeID string
			dayOfWeek  int
			day        employee.DaySchedule
		)
		if err := rows.Scan(&employeeID, &dayOfWeek, &day.Active, &day.Start, &day.End); err != nil {
			return fmt.Errorf("failed to scan employee schedule: %w", err)
		}
		weekday, err := employee.ISOWeekday(dayOfWeek)
		if err != nil {
			return fmt.Errorf("invalid schedule row for employee %s: %w", employeeID, err)
		}
		if v, ok := byID[employeeID]; ok {
			v.Schedule[weekday] = day
		}
	}
	return rows.Err()
}

func scanEmployee(row pgx.Row) (employee.ScheduleView, error) {
	var (
		view         employee.ScheduleView
		dateEmployed *time.Time
	)
	err := row.Scan(
		&view.ID, &view.BadgeUID, &view.FullName, &view.Department, &view.Position,
		&dateEmployed, &view.EmploymentStatus,
	)
	if err != nil {
		return employee.ScheduleView{}, err
	}
	if dateEmployed != nil {
		d := civilDate(*dateEmployed)
		view.DateEmployed = &d
	}
	return view, nil
}

func NewEmployeeDirectory(db *database.DB) employee.Directory {
	return &employeeDirectory{db: db}
}

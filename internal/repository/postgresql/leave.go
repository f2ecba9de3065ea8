package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type leaveRepository struct {
	db *database.DB
}

const leaveColumns = `id, employee_id, start_date, end_date, status, leave_type, created_at`

// HasApprovedLeave implements leave.Repository.
func (l *leaveRepository) HasApprovedLeave(ctx context.Context, employeeID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM leave_intervals
			WHERE employee_id = $1
			  AND status = $2
			  AND start_date <= $3
			  AND end_date >= $3
		)`

	var exists bool
	if err := q.QueryRow(ctx, query, employeeID, leave.StatusApproved, attendance.DateKey(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check approved leave: %w", err)
	}
	return exists, nil
}

// Create implements leave.Repository.
func (l *leaveRepository) Create(ctx context.Context, interval leave.Interval) (leave.Interval, error) {
	q := GetQuerier(ctx, l.db)

	id, err := uuid.NewV7()
	if err != nil {
		return leave.Interval{}, fmt.Errorf("failed to generate leave id: %w", err)
	}
	interval.ID = id.String()

	query := `
		INSERT INTO leave_intervals (id, employee_id, start_date, end_date, status, leave_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err = q.QueryRow(ctx, query,
		interval.ID,
		interval.EmployeeID,
		attendance.DateKey(interval.StartDate),
		attendance.DateKey(interval.EndDate),
		interval.Status,
		interval.LeaveType,
	).Scan(&interval.CreatedAt)
	if err != nil {
		return leave.Interval{}, fmt.Errorf("failed to create leave interval: %w", err)
	}
	return interval, nil
}

// GetByID implements leave.Repository.
func (l *leaveRepository) GetByID(ctx context.Context, id string) (leave.Interval, error) {
	q := GetQuerier(ctx, l.db)

	query := `SELECT ` + leaveColumns + ` FROM leave_intervals WHERE id = $1`
	interval, err := scanInterval(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.Interval{}, leave.ErrLeaveNotFound
		}
		return leave.Interval{}, fmt.Errorf("failed to get leave interval: %w", err)
	}
	return interval, nil
}

// Delete implements leave.Repository.
func (l *leaveRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, l.db)

	tag, err := q.Exec(ctx, `DELETE FROM leave_intervals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leave interval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrLeaveNotFound
	}
	return nil
}

// List implements leave.Repository.
func (l *leaveRepository) List(ctx context.Context, filter leave.Filter) ([]leave.Interval, error) {
	q := GetQuerier(ctx, l.db)

	baseWhere := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.Status != nil {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND start_date <= $%d AND end_date >= $%d", argIdx, argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}

	query := `SELECT ` + leaveColumns + ` FROM leave_intervals ` + baseWhere + ` ORDER BY start_date ASC, id ASC`
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave intervals: %w", err)
	}
	defer rows.Close()

	intervals := make([]leave.Interval, 0)
	for rows.Next() {
		interval, err := scanInterval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave interval: %w", err)
		}
		intervals = append(intervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leave intervals: %w", err)
	}
	return intervals, nil
}

// ListApprovedOn implements leave.Repository.
func (l *leaveRepository) ListApprovedOn(ctx context.Context, date time.Time) ([]string, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT DISTINCT employee_id
		FROM leave_intervals
		WHERE status = $1
		  AND start_date <= $2
		  AND end_date >= $2
		ORDER BY employee_id`
	rows, err := q.Query(ctx, query, leave.StatusApproved, attendance.DateKey(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leaves: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect approved leaves: %w", err)
	}
	return ids, nil
}

func scanInterval(row pgx.Row) (leave.Interval, error) {
	var interval leave.Interval
	if err := row.Scan(
		&interval.ID, &interval.EmployeeID, &interval.StartDate, &interval.EndDate,
		&interval.Status, &interval.LeaveType, &interval.CreatedAt,
	); err != nil {
		return leave.Interval{}, err
	}
	interval.StartDate = civilDate(interval.StartDate)
	interval.EndDate = civilDate(interval.EndDate)
	return interval, nil
}

func NewLeaveRepository(db *database.DB) leave.Repository {
	return &leaveRepository{db: db}
}

package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// maxMoveRetries bounds how often ApplyByID re-reads a record that moved to
// another date while it waited for the key lock.
const maxMoveRetries = 3

const attendanceColumns = `
	id, employee_id, date, employee_name, department, position, date_employed,
	time_in, time_out, status, late_minutes, overtime_minutes, hours_worked,
	total_minutes, work_day, record_type, time_in_source, time_out_source,
	notes, recorded_by, created_at, last_modified`

type attendanceRepository struct {
	db *database.DB
}

func recordKey(employeeID string, date time.Time) string {
	return employeeID + "|" + attendance.DateKey(date)
}

// lockKey serialises writers of one (employee, date) key for the rest of the
// transaction, whether or not a row exists yet.
func lockKey(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock attendance key %s: %w", key, err)
	}
	return nil
}

// Apply implements attendance.Repository.
func (a *attendanceRepository) Apply(ctx context.Context, employeeID string, date time.Time, fn attendance.MutateFunc) (attendance.Record, error) {
	key := recordKey(employeeID, date)

	var saved attendance.Record
	err := WithTransaction(ctx, a.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockKey(ctx, tx, key); err != nil {
			return err
		}

		query := `SELECT ` + attendanceColumns + `
			FROM attendances
			WHERE employee_id = $1 AND date = $2
			FOR UPDATE`
		current, err := scanRecord(tx.QueryRow(ctx, query, employeeID, attendance.DateKey(date)))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to get attendance by employee and date: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("attendance mutation for %s returned no record", key)
		}
		if recordKey(next.EmployeeID, next.Date) != key {
			return fmt.Errorf("attendance mutation for %s changed the record key", key)
		}

		saved, err = a.save(ctx, tx, *next, current != nil)
		return err
	})
	if err != nil {
		return attendance.Record{}, err
	}
	return saved, nil
}

// ApplyByID implements attendance.Repository.
func (a *attendanceRepository) ApplyByID(ctx context.Context, id string, fn attendance.MutateFunc) (attendance.Record, error) {
	for attempt := 0; attempt < maxMoveRetries; attempt++ {
		saved, moved, err := a.applyByID(ctx, id, fn)
		if moved {
			continue
		}
		return saved, err
	}
	return attendance.Record{}, fmt.Errorf("attendance %s kept moving while being corrected", id)
}

func (a *attendanceRepository) applyByID(ctx context.Context, id string, fn attendance.MutateFunc) (attendance.Record, bool, error) {
	existing, err := a.GetByID(ctx, id)
	if err != nil {
		return attendance.Record{}, false, err
	}
	oldKey := recordKey(existing.EmployeeID, existing.Date)

	var (
		saved attendance.Record
		moved bool
	)
	err = WithTransaction(ctx, a.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := lockKey(ctx, tx, oldKey); err != nil {
			return err
		}

		query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1 FOR UPDATE`
		current, err := scanRecord(tx.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return attendance.ErrAttendanceNotFound
			}
			return fmt.Errorf("failed to get attendance by id: %w", err)
		}
		if recordKey(current.EmployeeID, current.Date) != oldKey {
			moved = true
			return nil
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("attendance mutation for %s returned no record", id)
		}
		next.ID = id
		next.EmployeeID = current.EmployeeID

		if newKey := recordKey(next.EmployeeID, next.Date); newKey != oldKey {
			if err := lockKey(ctx, tx, newKey); err != nil {
				return err
			}
		}

		saved, err = a.save(ctx, tx, *next, true)
		return err
	})
	if err != nil {
		return attendance.Record{}, false, err
	}
	return saved, moved, nil
}

// save inserts or updates rec inside tx.
func (a *attendanceRepository) save(ctx context.Context, tx pgx.Tx, rec attendance.Record, exists bool) (attendance.Record, error) {
	args := []interface{}{
		rec.EmployeeID, attendance.DateKey(rec.Date), rec.EmployeeName, rec.Department, rec.Position,
		dateArg(rec.DateEmployed), rec.TimeIn, rec.TimeOut, rec.Status, rec.LateMinutes,
		rec.OvertimeMinutes, rec.HoursWorked, rec.TotalMinutes, rec.WorkDay, rec.RecordType,
		rec.TimeInSource, rec.TimeOutSource, rec.Notes, rec.RecordedBy, rec.CreatedAt,
		rec.LastModified,
	}

	var query string
	if exists {
		query = `
			UPDATE attendances SET
				employee_id = $1, date = $2, employee_name = $3, department = $4, position = $5,
				date_employed = $6, time_in = $7, time_out = $8, status = $9, late_minutes = $10,
				overtime_minutes = $11, hours_worked = $12, total_minutes = $13, work_day = $14,
				record_type = $15, time_in_source = $16, time_out_source = $17, notes = $18,
				recorded_by = $19, created_at = $20, last_modified = $21
			WHERE id = $22`
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, fmt.Errorf("failed to generate attendance id: %w", err)
		}
		rec.ID = id.String()
		query = `
			INSERT INTO attendances (
				employee_id, date, employee_name, department, position,
				date_employed, time_in, time_out, status, late_minutes,
				overtime_minutes, hours_worked, total_minutes, work_day,
				record_type, time_in_source, time_out_source, notes,
				recorded_by, created_at, last_modified, id
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
			)`
	}
	args = append(args, rec.ID)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to save attendance: %w", err)
	}
	return rec, nil
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1`
	rec, err := scanRecord(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}
	return *rec, nil
}

// GetByEmployeeAndDate implements attendance.Repository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE employee_id = $1 AND date = $2`
	rec, err := scanRecord(q.QueryRow(ctx, query, employeeID, attendance.DateKey(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No existing attendance found
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}
	return rec, nil
}

// ListOpen implements attendance.Repository.
func (a *attendanceRepository) ListOpen(ctx context.Context, onOrBefore time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE time_in IS NOT NULL
		  AND time_out IS NULL
		  AND date <= $1
		ORDER BY date ASC, employee_id ASC`

	rows, err := q.Query(ctx, query, attendance.DateKey(onOrBefore))
	if err != nil {
		return nil, fmt.Errorf("failed to list open attendances: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// List implements attendance.Repository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	baseWhere := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM attendances " + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT %s
		FROM attendances
		%s
		ORDER BY date DESC, employee_id ASC
		LIMIT $%d OFFSET $%d`, attendanceColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func collectRecords(rows pgx.Rows) ([]attendance.Record, error) {
	records := make([]attendance.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendances: %w", err)
	}
	return records, nil
}

// scanRecord reads one row selected with attendanceColumns.
func scanRecord(row pgx.Row) (*attendance.Record, error) {
	var (
		rec           attendance.Record
		date          time.Time
		dateEmployed  *time.Time
		timeInSource  *string
		timeOutSource *string
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &date, &rec.EmployeeName, &rec.Department, &rec.Position, &dateEmployed,
		&rec.TimeIn, &rec.TimeOut, &rec.Status, &rec.LateMinutes, &rec.OvertimeMinutes, &rec.HoursWorked,
		&rec.TotalMinutes, &rec.WorkDay, &rec.RecordType, &timeInSource, &timeOutSource,
		&rec.Notes, &rec.RecordedBy, &rec.CreatedAt, &rec.LastModified,
	)
	if err != nil {
		return nil, err
	}

	rec.Date = civilDate(date)
	if dateEmployed != nil {
		d := civilDate(*dateEmployed)
		rec.DateEmployed = &d
	}
	rec.TimeInSource = sourcePtr(timeInSource)
	rec.TimeOutSource = sourcePtr(timeOutSource)
	if rec.TimeIn != nil {
		t := rec.TimeIn.In(attendance.Location)
		rec.TimeIn = &t
	}
	if rec.TimeOut != nil {
		t := rec.TimeOut.In(attendance.Location)
		rec.TimeOut = &t
	}
	return &rec, nil
}

// civilDate rebuilds a DATE column, which pgx returns as UTC midnight, as
// midnight in the attendance zone.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, attendance.Location)
}

func dateArg(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := attendance.DateKey(*t)
	return &s
}

func sourcePtr(s *string) *attendance.Source {
	if s == nil {
		return nil
	}
	return attendance.SourcePtr(attendance.Source(*s))
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

package attendance

import (
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

// ========================================
// SCAN DTOs
// ========================================

type ScanRequest struct {
	UID       string `json:"uid" validate:"required,badgeuid"`
	ScannedAt string `json:"scanned_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (r *ScanRequest) Validate() error {
	return validator.Struct(r)
}

type ScanResponse struct {
	Status          Status  `json:"status"`
	EmployeeID      string  `json:"employee_id"`
	Name            string  `json:"name"`
	Action          Action  `json:"action"`
	LateMinutes     int     `json:"late_minutes"`
	OvertimeMinutes int     `json:"overtime_minutes"`
	HoursWorked     float64 `json:"hours_worked"`
	Token           string  `json:"token"`
}

// ========================================
// MANUAL ENTRY DTOs
// ========================================

type ManualEventRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required,max=64"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string  `json:"time" validate:"required,clock"`
	Action     Action  `json:"action" validate:"required,oneof=time_in time_out"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	RecordedBy string  `json:"-"`
}

func (r *ManualEventRequest) Validate() error {
	return validator.Struct(r)
}

type BulkManualRequest struct {
	Events     []ManualEventRequest `json:"events" validate:"required,min=1,max=500"`
	RecordedBy string               `json:"-"`
}

// Validate checks the envelope only; each event is validated on its own so
// that a malformed item lands in the failed list instead of rejecting the batch.
func (r *BulkManualRequest) Validate() error {
	return validator.Struct(r)
}

type BulkSuccess struct {
	Index  int                `json:"index"`
	Item   ManualEventRequest `json:"item"`
	Record RecordResponse     `json:"record"`
}

type BulkFailure struct {
	Index  int                `json:"index"`
	Item   ManualEventRequest `json:"item"`
	Reason string             `json:"reason"`
	Code   string             `json:"code"`
}

type BulkResult struct {
	Successful []BulkSuccess `json:"successful"`
	Failed     []BulkFailure `json:"failed"`
}

// ========================================
// CORRECTION DTOs
// ========================================

type CorrectionRequest struct {
	ID         string  `json:"-" validate:"required"`
	TimeIn     *string `json:"time_in,omitempty" validate:"omitempty,clock"`
	TimeOut    *string `json:"time_out,omitempty" validate:"omitempty,clock"`
	Date       *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	RecordedBy string  `json:"-"`
}

func (r *CorrectionRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if r.TimeIn == nil && r.TimeOut == nil && r.Date == nil && r.Notes == nil {
		return ErrEmptyCorrection
	}
	return nil
}

// ========================================
// SWEEP DTOs
// ========================================

type SweepRequest struct {
	TriggerAt string `json:"trigger_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (r *SweepRequest) Validate() error {
	return validator.Struct(r)
}

type SweepFailure struct {
	RecordID   string `json:"record_id"`
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

type SweepResult struct {
	TriggerAt   string         `json:"trigger_at"`
	ClosedCount int            `json:"closed_count"`
	Skipped     int            `json:"skipped"`
	Failed      []SweepFailure `json:"failed,omitempty"`
}

type AbsenceRequest struct {
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r *AbsenceRequest) Validate() error {
	return validator.Struct(r)
}

type AbsenceResult struct {
	Date           string `json:"date"`
	MarkedCount    int    `json:"marked_count"`
	SkippedOnLeave int    `json:"skipped_on_leave"`
}

// ========================================
// QUERY DTOs
// ========================================

type RecordFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

var validStatuses = []string{
	string(StatusPresent), string(StatusLate), string(StatusAbsent),
	string(StatusCompleted), string(StatusHalfDay), string(StatusNoWork),
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil && !validator.IsInSlice(*f.Status, validStatuses) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: Present, Late, Absent, Completed, Half-day, No Work",
		})
	}

	if f.StartDate != nil && *f.StartDate != "" {
		if _, valid := validator.IsValidDate(*f.StartDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if _, valid := validator.IsValidDate(*f.EndDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecordResponse struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name"`
	Department      *string `json:"department,omitempty"`
	Position        *string `json:"position,omitempty"`
	DateEmployed    *string `json:"date_employed,omitempty"`
	Date            string  `json:"date"`
	TimeIn          *string `json:"time_in,omitempty"`
	TimeOut         *string `json:"time_out,omitempty"`
	Status          Status  `json:"status"`
	LateMinutes     int     `json:"late_minutes"`
	OvertimeMinutes int     `json:"overtime_minutes"`
	HoursWorked     float64 `json:"hours_worked"`
	TotalMinutes    int     `json:"total_minutes"`
	RecordType      string  `json:"record_type"`
	TimeInSource    *string `json:"time_in_source,omitempty"`
	TimeOutSource   *string `json:"time_out_source,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	RecordedBy      string  `json:"recorded_by"`
	CreatedAt       string  `json:"created_at"`
	LastModified    string  `json:"last_modified"`
}

type ListRecordResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Records    []RecordResponse `json:"records"`
}

package leave

import (
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

type AssignLeaveRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,max=64"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status     Status `json:"status" validate:"required,oneof=pending approved rejected"`
	LeaveType  string `json:"leave_type" validate:"required,max=64"`
}

func (r *AssignLeaveRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	// Both dates already passed the layout check above.
	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	if end.Before(start) {
		return validator.ValidationErrors{{
			Field:   "end_date",
			Message: ErrInvalidDateRange.Error(),
		}}
	}
	return nil
}

type Filter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Status     *Status `json:"status,omitempty"`
	Date       *string `json:"date,omitempty"` // YYYY-MM-DD, intervals covering this date
}

func (f *Filter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && !validator.IsInSlice(string(*f.Status), []string{
		string(StatusPending), string(StatusApproved), string(StatusRejected),
	}) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: pending, approved, rejected",
		})
	}

	if f.Date != nil && *f.Date != "" {
		if _, valid := validator.IsValidDate(*f.Date); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type IntervalResponse struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     Status `json:"status"`
	LeaveType  string `json:"leave_type"`
	CreatedAt  string `json:"created_at"`
}

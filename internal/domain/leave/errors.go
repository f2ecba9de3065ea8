package leave

import "errors"

var (
	ErrLeaveNotFound    = errors.New("leave interval not found")
	ErrInvalidDateRange = errors.New("end_date must not be before start_date")
)

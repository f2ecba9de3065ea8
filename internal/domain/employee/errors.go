package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrBadgeNotAssigned = errors.New("badge is not assigned to an active employee")
)

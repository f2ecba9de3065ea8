package attendance

import "errors"

// Kind groups rejections by how callers should react to them.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTimeWindow Kind = "time_window"
	KindSystem     Kind = "system"
)

// Error is a structured rejection with a stable reason code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Attendance domain errors
var (
	// Transition errors
	ErrTimeInAlreadyRecorded  = newError(KindConflict, "TIME_IN_ALREADY_RECORDED", "time in already recorded for this date")
	ErrNoTimeInRecord         = newError(KindConflict, "NO_TIME_IN_RECORD", "no time in record found for this date")
	ErrTimeOutAlreadyRecorded = newError(KindConflict, "TIME_OUT_ALREADY_RECORDED", "time out already recorded for this date")
	ErrOnApprovedLeave        = newError(KindConflict, "ON_APPROVED_LEAVE", "employee has approved leave on this date")
	ErrCorrectionGapTooShort  = newError(KindConflict, "CORRECTION_GAP_TOO_SHORT", "time out must be at least 10 minutes after time in")
	ErrDuplicateRecord        = newError(KindConflict, "DUPLICATE_RECORD", "an attendance record already exists for this employee and date")
	ErrSweepInProgress        = newError(KindConflict, "SWEEP_IN_PROGRESS", "a forced closure sweep is already running")

	// Time window errors
	ErrOutsideWorkingHours   = newError(KindTimeWindow, "OUTSIDE_WORKING_HOURS", "outside working hours (06:00-19:00)")
	ErrOutsideClockInWindow  = newError(KindTimeWindow, "OUTSIDE_CLOCK_IN_WINDOW", "time in is only allowed between 06:00 and 17:00")
	ErrOutsideClockOutWindow = newError(KindTimeWindow, "OUTSIDE_CLOCK_OUT_WINDOW", "time out is only allowed between 06:00 and 19:00")

	// Validation errors
	ErrInvalidBadgeUID      = newError(KindValidation, "INVALID_UID", "badge UID must be 8 hexadecimal characters")
	ErrTimeOutBeforeTimeIn  = newError(KindValidation, "TIME_OUT_BEFORE_TIME_IN", "time out must be after time in")
	ErrEmptyCorrection      = newError(KindValidation, "EMPTY_CORRECTION", "at least one of time_in, time_out, date or notes is required")
	ErrTimeOutWithoutTimeIn = newError(KindValidation, "TIME_OUT_WITHOUT_TIME_IN", "time out cannot be set on a record without time in")

	// Lookup errors
	ErrAttendanceNotFound = newError(KindNotFound, "ATTENDANCE_NOT_FOUND", "attendance record not found")
	ErrUnknownBadge       = newError(KindNotFound, "UNKNOWN_BADGE", "no active employee is assigned to this badge")
	ErrEmployeeNotFound   = newError(KindNotFound, "EMPLOYEE_NOT_FOUND", "employee not found")

	// ErrSystem is what callers see for unexpected failures.
	ErrSystem = newError(KindSystem, "SYSTEM_ERROR", "an unexpected error occurred")
)

// KindOf reports the rejection kind carried by err, or KindSystem when err
// is not a structured rejection.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// CodeOf reports the stable reason code carried by err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrSystem.Code
}

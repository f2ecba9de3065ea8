package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

// StatusFor maps a rejection kind to its HTTP status.
func StatusFor(kind attendance.Kind) int {
	switch kind {
	case attendance.KindValidation, attendance.KindTimeWindow:
		return http.StatusUnprocessableEntity
	case attendance.KindNotFound:
		return http.StatusNotFound
	case attendance.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Attendance domain errors carry their own code
	var rejection *attendance.Error
	if errors.As(err, &rejection) {
		if rejection.Kind == attendance.KindSystem {
			InternalServerError(w, attendance.ErrSystem.Message)
			return
		}
		fail(w, StatusFor(rejection.Kind), rejection.Code, rejection.Message, nil, nil)
		return
	}

	switch {
	// Leave domain errors
	case errors.Is(err, leave.ErrLeaveNotFound):
		NotFound(w, "Leave interval not found")
	case errors.Is(err, leave.ErrInvalidDateRange):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

// ScanToken is the data payload of every scan response.
type ScanToken struct {
	Token string `json:"token"`
}

// ScanRejected writes a failed scan. The reader token is still carried in
// data so the bridge can display it without understanding the error.
func ScanRejected(w http.ResponseWriter, err error) {
	token := attendance.RejectionToken(err)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fail(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", validationErrs.ToMap(), ScanToken{Token: token})
		return
	}

	kind := attendance.KindOf(err)
	message := attendance.ErrSystem.Message
	if kind != attendance.KindSystem {
		var rejection *attendance.Error
		errors.As(err, &rejection)
		message = rejection.Message
	} else {
		slog.Error("Scan failed", "error", err)
	}

	fail(w, StatusFor(kind), attendance.CodeOf(err), message, nil, ScanToken{Token: token})
}

package attendance

import (
	"errors"
	"strings"

	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

// uidPrefix starts every inbound reader line.
const uidPrefix = "UID:"

// Outbound status tokens written back to the reader. Each scan produces
// exactly one of these.
const (
	TokenAlreadyDone  = "INFO:ALREADY_DONE:Attendance_Complete"
	TokenInvalidUID   = "ERROR:INVALID_UID:Check_Card"
	TokenOnLeave      = "ERROR:ON_LEAVE:Leave_Approved"
	TokenOutsideHours = "ERROR:OUTSIDE_HOURS:Not_Allowed"
	TokenSystemError  = "ERROR:SYSTEM:Try_Again"
)

// ParseScanLine extracts the badge UID from a reader line such as
// "UID:A1B2C3D4". The UID is returned upper-cased.
func ParseScanLine(line string) (string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(strings.ToUpper(line), uidPrefix) {
		return "", ErrInvalidBadgeUID
	}
	uid := strings.TrimSpace(line[len(uidPrefix):])
	if !validator.IsValidBadgeUID(uid) {
		return "", ErrInvalidBadgeUID
	}
	return strings.ToUpper(uid), nil
}

// FormatScanLine renders uid in the inbound line format.
func FormatScanLine(uid string) string {
	return uidPrefix + strings.ToUpper(uid)
}

// SuccessToken renders the token for an accepted scan.
func SuccessToken(res ScanResponse) string {
	name := tokenName(res.Name)
	if res.Action == ActionTimeOut {
		return "SUCCESS:CHECKOUT:" + name + ":OUT"
	}
	if res.Status == StatusNoWork {
		return "SUCCESS:CHECKIN:" + name + ":NO_WORK"
	}
	return "SUCCESS:CHECKIN:" + name + ":IN"
}

// RejectionToken renders the token for a scan that failed with err.
func RejectionToken(err error) string {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs),
		errors.Is(err, ErrInvalidBadgeUID),
		errors.Is(err, ErrUnknownBadge):
		return TokenInvalidUID
	case errors.Is(err, ErrTimeOutAlreadyRecorded),
		errors.Is(err, ErrTimeInAlreadyRecorded):
		return TokenAlreadyDone
	case errors.Is(err, ErrOnApprovedLeave):
		return TokenOnLeave
	case KindOf(err) == KindTimeWindow:
		return TokenOutsideHours
	default:
		return TokenSystemError
	}
}

// tokenName makes a display name safe for the colon-delimited wire format.
func tokenName(name string) string {
	name = strings.ReplaceAll(name, ":", "")
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "Unknown"
	}
	return strings.Join(fields, "_")
}

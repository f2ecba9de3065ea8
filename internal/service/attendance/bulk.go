package attendance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

const validationCode = "VALIDATION_ERROR"

// SubmitBulkManual implements attendance.Service. Items run in order and
// independently; there is no rollback of earlier items when a later one fails.
func (a *AttendanceServiceImpl) SubmitBulkManual(ctx context.Context, req attendance.BulkManualRequest) (attendance.BulkResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.BulkResult{}, err
	}

	result := attendance.BulkResult{
		Successful: make([]attendance.BulkSuccess, 0, len(req.Events)),
		Failed:     make([]attendance.BulkFailure, 0),
	}

	for i, item := range req.Events {
		if item.RecordedBy == "" {
			item.RecordedBy = req.RecordedBy
		}

		rec, err := a.SubmitManual(ctx, item)
		if err != nil {
			reason, code := bulkReason(err)
			result.Failed = append(result.Failed, attendance.BulkFailure{
				Index:  i,
				Item:   item,
				Reason: reason,
				Code:   code,
			})
			continue
		}

		result.Successful = append(result.Successful, attendance.BulkSuccess{
			Index:  i,
			Item:   item,
			Record: rec,
		})
	}

	slog.Info("Bulk manual attendance processed",
		"total", len(req.Events),
		"successful", len(result.Successful),
		"failed", len(result.Failed),
	)
	return result, nil
}

// bulkReason turns an item failure into a caller-facing reason and code
// without leaking internal error detail.
func bulkReason(err error) (string, string) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return validationErrs.Error(), validationCode
	}

	var rejection *attendance.Error
	if errors.As(err, &rejection) {
		return rejection.Message, rejection.Code
	}
	return attendance.ErrSystem.Message, attendance.ErrSystem.Code
}

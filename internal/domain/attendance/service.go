package attendance

import (
	"context"
	"time"
)

// Service is the attendance lifecycle engine shared by the hardware and
// admin entry surfaces.
type Service interface {
	// SubmitScan resolves a badge to an employee and applies a clock-in or
	// clock-out depending on the current record state.
	SubmitScan(ctx context.Context, req ScanRequest) (ScanResponse, error)

	// SubmitManual applies an administrator's clock-in or clock-out.
	SubmitManual(ctx context.Context, req ManualEventRequest) (RecordResponse, error)

	// SubmitBulkManual applies manual events one by one; a failing item never
	// stops the rest of the batch.
	SubmitBulkManual(ctx context.Context, req BulkManualRequest) (BulkResult, error)

	// CorrectRecord edits time in, time out, date or notes of an existing record.
	CorrectRecord(ctx context.Context, req CorrectionRequest) (RecordResponse, error)

	// RunForcedClosure closes every record left clocked in as of trigger.
	RunForcedClosure(ctx context.Context, trigger time.Time) (SweepResult, error)

	// MarkAbsent writes Absent records for scheduled employees with no
	// attendance on the given civil date.
	MarkAbsent(ctx context.Context, date time.Time) (AbsenceResult, error)

	GetRecord(ctx context.Context, id string) (RecordResponse, error)
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordResponse, error)
}

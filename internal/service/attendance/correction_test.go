package attendance

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scannedShift(t *testing.T, h *harness) attendance.Record {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T07:10:00+08:00"))
	require.NoError(t, err)
	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T16:05:00+08:00"))
	require.NoError(t, err)
	rec := h.record(t, "emp-1", "2025-03-03")
	require.NotNil(t, rec)
	return *rec
}

func TestCorrectRecord_GapTooShort(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	before := scannedShift(t, h)

	_, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:      before.ID,
		TimeIn:  strPtr("10:00"),
		TimeOut: strPtr("10:05"),
	})
	assert.ErrorIs(t, err, attendance.ErrCorrectionGapTooShort)

	after := h.record(t, "emp-1", "2025-03-03")
	assert.Equal(t, before, *after)
}

func TestCorrectRecord_TimesRetagAsManual(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	before := scannedShift(t, h)

	res, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:         before.ID,
		TimeIn:     strPtr("08:30"),
		RecordedBy: "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, before.ID, res.ID)
	assert.Equal(t, "2025-03-03 08:30:00", *res.TimeIn)
	assert.Equal(t, "2025-03-03 16:05:00", *res.TimeOut)
	// Manual policy: 30 minutes past 08:00 is Late.
	assert.Equal(t, 30, res.LateMinutes)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, 5, res.OvertimeMinutes)
	assert.Equal(t, 7.58, res.HoursWorked)
	assert.Equal(t, "manual", res.RecordType)
	assert.Equal(t, "manual", *res.TimeInSource)
	assert.Equal(t, "rfid", *res.TimeOutSource)
	assert.Equal(t, "admin-1", res.RecordedBy)
}

func TestCorrectRecord_TimeOutOnlyKeepsScanLateness(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T07:20:00+08:00"))
	require.NoError(t, err)
	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T16:05:00+08:00"))
	require.NoError(t, err)
	before := h.record(t, "emp-1", "2025-03-03")
	require.NotNil(t, before)
	require.Equal(t, 20, before.LateMinutes)
	require.Equal(t, attendance.StatusCompleted, before.Status)
	require.Equal(t, 5, before.OvertimeMinutes)

	res, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:      before.ID,
		TimeOut: strPtr("16:30"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-03 07:20:00", *res.TimeIn)
	assert.Equal(t, "2025-03-03 16:30:00", *res.TimeOut)
	// 20 minutes is inside the scan tolerance, so the shift stays Completed.
	assert.Equal(t, 20, res.LateMinutes)
	assert.Equal(t, attendance.StatusCompleted, res.Status)
	assert.Equal(t, 30, res.OvertimeMinutes)
	assert.Equal(t, "rfid", *res.TimeInSource)
	assert.Equal(t, "manual", *res.TimeOutSource)
	assert.Equal(t, "manual", res.RecordType)
}

func TestCorrectRecord_NonWorkDayStaysNoWork(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	// 2025-03-08 is a Saturday with an inactive schedule row.
	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-08T09:00:00+08:00"))
	require.NoError(t, err)
	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-08T15:00:00+08:00"))
	require.NoError(t, err)
	before := h.record(t, "emp-1", "2025-03-08")
	require.NotNil(t, before)
	require.Equal(t, attendance.StatusNoWork, before.Status)
	require.Zero(t, before.LateMinutes)

	res, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:      before.ID,
		TimeOut: strPtr("15:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNoWork, res.Status)
	assert.Zero(t, res.LateMinutes)
	assert.Zero(t, res.OvertimeMinutes)
	assert.Equal(t, 6.5, res.HoursWorked)

	// A new time in on the same Saturday is still not a work day.
	res, err = h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:     before.ID,
		TimeIn: strPtr("10:00"),
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNoWork, res.Status)
	assert.Zero(t, res.LateMinutes)
}

func TestCorrectRecord_MoveToWorkDayRederivesFlag(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-08T07:45:00+08:00"))
	require.NoError(t, err)
	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-08T16:00:00+08:00"))
	require.NoError(t, err)
	before := h.record(t, "emp-1", "2025-03-08")
	require.NotNil(t, before)
	require.Equal(t, attendance.StatusNoWork, before.Status)

	res, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:   before.ID,
		Date: strPtr("2025-03-07"),
	})
	require.NoError(t, err)

	// Friday 07:00 start under the scan policy: 45 minutes is Late.
	assert.Equal(t, "2025-03-07", res.Date)
	assert.Equal(t, 45, res.LateMinutes)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, "rfid", *res.TimeInSource)
}

func TestCorrectRecord_NotesOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	before := scannedShift(t, h)

	res, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:    before.ID,
		Notes: strPtr("badge reader was offline"),
	})
	require.NoError(t, err)

	assert.Equal(t, "badge reader was offline", *res.Notes)
	assert.Equal(t, "manual", res.RecordType)
	assert.Equal(t, "admin", res.RecordedBy)
	assert.Equal(t, "rfid", *res.TimeInSource)
	assert.Equal(t, "rfid", *res.TimeOutSource)
	assert.Equal(t, before.LateMinutes, res.LateMinutes)
	assert.Equal(t, before.Status, res.Status)
}

func TestCorrectRecord_MovesDate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	before := scannedShift(t, h)

	res, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{
		ID:   before.ID,
		Date: strPtr("2025-03-04"),
	})
	require.NoError(t, err)

	assert.Equal(t, before.ID, res.ID)
	assert.Equal(t, "2025-03-04", res.Date)
	assert.Equal(t, "2025-03-04 07:10:00", *res.TimeIn)
	assert.Equal(t, "2025-03-04 16:05:00", *res.TimeOut)
	assert.Nil(t, h.record(t, "emp-1", "2025-03-03"))
	assert.NotNil(t, h.record(t, "emp-1", "2025-03-04"))
}

func TestCorrectRecord_MoveOntoExistingRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	before := scannedShift(t, h)

	_, err := h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-04", "08:00", attendance.ActionTimeIn))
	require.NoError(t, err)

	_, err = h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{ID: before.ID, Date: strPtr("2025-03-04")})
	assert.ErrorIs(t, err, attendance.ErrDuplicateRecord)
}

func TestCorrectRecord_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	before := scannedShift(t, h)

	_, err := h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{ID: before.ID})
	assert.ErrorIs(t, err, attendance.ErrEmptyCorrection)

	_, err = h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{ID: "missing", Notes: strPtr("x")})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	_, err = h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{ID: before.ID, TimeOut: strPtr("07:00")})
	assert.ErrorIs(t, err, attendance.ErrTimeOutBeforeTimeIn)
}

func TestStateMachine_CorrectAbsentMarker(t *testing.T) {
	h := newHarness(t)
	m := h.svc.machine
	view := weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4")
	date := mustDate(t, "2025-03-03")

	marker, err := m.Absent(nil, view, date, testSweepIdentity)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, marker.Status)
	assert.Equal(t, attendance.StateNoRecord, marker.State())

	_, err = m.Correct(marker, Correction{TimeOut: strPtr("16:00")}, &view)
	assert.ErrorIs(t, err, attendance.ErrTimeOutWithoutTimeIn)

	filled, err := m.Correct(marker, Correction{TimeIn: strPtr("07:55"), TimeOut: strPtr("16:00")}, &view)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCompleted, filled.Status)
	assert.Zero(t, filled.LateMinutes)
	assert.Equal(t, attendance.StateCompleted, filled.State())
}

func TestStateMachine_CorrectKeepsSecondsOnDateShift(t *testing.T) {
	h := newHarness(t)
	m := h.svc.machine

	timeIn := mustAt(t, "2025-03-03", "08:00").Add(42_000_000_000)
	current := &attendance.Record{
		EmployeeID: "emp-1",
		Date:       mustDate(t, "2025-03-03"),
		TimeIn:     &timeIn,
		Status:     attendance.StatusPresent,
		WorkDay:    true,
	}
	date := mustDate(t, "2025-03-05")

	next, err := m.Correct(current, Correction{Date: &date}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05 08:00:42", next.TimeIn.Format("2006-01-02 15:04:05"))
	assert.Nil(t, next.TimeOut)
	assert.Equal(t, attendance.StateClockedIn, next.State())
	assert.Equal(t, attendance.StatusPresent, next.Status)
	assert.True(t, next.WorkDay)
}

package attendance

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitScan_ScheduleAwareShift(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	in, err := h.svc.SubmitScan(ctx, scan("a1b2c3d4", "2025-03-03T07:10:00+08:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionTimeIn, in.Action)
	assert.Equal(t, attendance.StatusPresent, in.Status)
	assert.Equal(t, 10, in.LateMinutes)
	assert.Equal(t, "SUCCESS:CHECKIN:Maria_Santos:IN", in.Token)

	out, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T16:05:00+08:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.ActionTimeOut, out.Action)
	assert.Equal(t, attendance.StatusCompleted, out.Status)
	assert.Equal(t, 10, out.LateMinutes)
	assert.Equal(t, 5, out.OvertimeMinutes)
	assert.Equal(t, 8.92, out.HoursWorked)
	assert.Equal(t, "SUCCESS:CHECKOUT:Maria_Santos:OUT", out.Token)

	rec := h.record(t, "emp-1", "2025-03-03")
	require.NotNil(t, rec)
	assert.Equal(t, attendance.RecordTypeAuto, rec.RecordType)
	assert.Equal(t, attendance.SourceRFID, *rec.TimeInSource)
	assert.Equal(t, attendance.SourceRFID, *rec.TimeOutSource)
	assert.True(t, rec.WorkDay)

	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T16:30:00+08:00"))
	assert.ErrorIs(t, err, attendance.ErrTimeOutAlreadyRecorded)
	assert.Equal(t, attendance.TokenAlreadyDone, attendance.RejectionToken(err))
}

func TestSubmitScan_UsesClockWhenNoTimestamp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	h.clock.Set(mustAt(t, "2025-03-04", "07:45"))

	res, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", ""))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, 45, res.LateMinutes)
	assert.NotNil(t, h.record(t, "emp-1", "2025-03-04"))
}

func TestSubmitScan_NonWorkingDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	in, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-09T09:00:00+08:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNoWork, in.Status)
	assert.Equal(t, "SUCCESS:CHECKIN:Maria_Santos:NO_WORK", in.Token)

	out, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-09T17:30:00+08:00"))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusNoWork, out.Status)
	assert.Zero(t, out.OvertimeMinutes)

	rec := h.record(t, "emp-1", "2025-03-09")
	require.NotNil(t, rec)
	assert.False(t, rec.WorkDay)
	require.NotNil(t, rec.Notes)
	assert.Contains(t, *rec.Notes, nonWorkDayNote)
}

func TestSubmitScan_Rejections(t *testing.T) {
	ctx := context.Background()
	inactive := weekdayEmployee("emp-2", "Former Staff", "DEADBEEF")
	inactive.EmploymentStatus = employee.EmploymentStatusResigned
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"), inactive)

	tests := []struct {
		name      string
		req       attendance.ScanRequest
		wantErr   error
		wantToken string
	}{
		{"malformed uid", scan("XYZ", "2025-03-03T08:00:00+08:00"), nil, attendance.TokenInvalidUID},
		{"unknown badge", scan("0BADCAFE", "2025-03-03T08:00:00+08:00"), attendance.ErrUnknownBadge, attendance.TokenInvalidUID},
		{"inactive employee", scan("DEADBEEF", "2025-03-03T08:00:00+08:00"), attendance.ErrUnknownBadge, attendance.TokenInvalidUID},
		{"before opening", scan("A1B2C3D4", "2025-03-03T05:30:00+08:00"), attendance.ErrOutsideWorkingHours, attendance.TokenOutsideHours},
		{"clock in too late", scan("A1B2C3D4", "2025-03-03T17:30:00+08:00"), attendance.ErrOutsideClockInWindow, attendance.TokenOutsideHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.SubmitScan(ctx, tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantToken, attendance.RejectionToken(err))
		})
	}

	assert.Nil(t, h.record(t, "emp-1", "2025-03-03"))
}

func TestSubmitManual_FixedCutoffLateness(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	res, err := h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "09:05", attendance.ActionTimeIn))
	require.NoError(t, err)
	assert.Equal(t, 65, res.LateMinutes)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, "manual", res.RecordType)
	assert.Equal(t, "admin-1", res.RecordedBy)
	require.NotNil(t, res.TimeIn)
	assert.Equal(t, "2025-03-03 09:05:00", *res.TimeIn)

	res, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "17:00", attendance.ActionTimeOut))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, 60, res.OvertimeMinutes)
	assert.Equal(t, 7.92, res.HoursWorked)
}

func TestSubmitManual_ClockOutOutsideWindow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	_, err := h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "08:00", attendance.ActionTimeIn))
	require.NoError(t, err)

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "20:00", attendance.ActionTimeOut))
	require.Error(t, err)
	assert.Equal(t, attendance.KindTimeWindow, attendance.KindOf(err))

	rec := h.record(t, "emp-1", "2025-03-03")
	assert.Equal(t, attendance.StateClockedIn, rec.State())
}

func TestSubmitManual_TransitionRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	_, err := h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "16:00", attendance.ActionTimeOut))
	assert.ErrorIs(t, err, attendance.ErrNoTimeInRecord)
	assert.Nil(t, h.record(t, "emp-1", "2025-03-03"))

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "09:00", attendance.ActionTimeIn))
	require.NoError(t, err)

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "10:00", attendance.ActionTimeIn))
	assert.ErrorIs(t, err, attendance.ErrTimeInAlreadyRecorded)

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "08:30", attendance.ActionTimeOut))
	assert.ErrorIs(t, err, attendance.ErrTimeOutBeforeTimeIn)

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "09:00", attendance.ActionTimeOut))
	assert.ErrorIs(t, err, attendance.ErrTimeOutBeforeTimeIn)

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "15:00", attendance.ActionTimeOut))
	require.NoError(t, err)

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "16:00", attendance.ActionTimeOut))
	assert.ErrorIs(t, err, attendance.ErrTimeOutAlreadyRecorded)
}

func TestSubmitManual_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	tests := []struct {
		name string
		req  attendance.ManualEventRequest
	}{
		{"bad clock", manual("emp-1", "2025-03-03", "25:00", attendance.ActionTimeIn)},
		{"bad date", manual("emp-1", "03/03/2025", "08:00", attendance.ActionTimeIn)},
		{"bad action", manual("emp-1", "2025-03-03", "08:00", "lunch")},
		{"missing employee", manual("", "2025-03-03", "08:00", attendance.ActionTimeIn)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.SubmitManual(ctx, tt.req)
			var validationErrs validator.ValidationErrors
			assert.ErrorAs(t, err, &validationErrs)
		})
	}

	_, err := h.svc.SubmitManual(ctx, manual("ghost", "2025-03-03", "08:00", attendance.ActionTimeIn))
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestApprovedLeaveBlocksEveryEntryPoint(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	h.approveLeave(t, "emp-1", "2025-03-04", "2025-03-05")

	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-04T08:00:00+08:00"))
	assert.ErrorIs(t, err, attendance.ErrOnApprovedLeave)
	assert.Equal(t, attendance.TokenOnLeave, attendance.RejectionToken(err))

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-05", "08:00", attendance.ActionTimeIn))
	assert.ErrorIs(t, err, attendance.ErrOnApprovedLeave)

	bulk, err := h.svc.SubmitBulkManual(ctx, attendance.BulkManualRequest{
		Events: []attendance.ManualEventRequest{manual("emp-1", "2025-03-04", "08:00", attendance.ActionTimeIn)},
	})
	require.NoError(t, err)
	require.Len(t, bulk.Failed, 1)
	assert.Equal(t, attendance.ErrOnApprovedLeave.Code, bulk.Failed[0].Code)

	// A correction may not move a record onto a leave date.
	monday, err := h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-03", "08:00", attendance.ActionTimeIn))
	require.NoError(t, err)
	_, err = h.svc.CorrectRecord(ctx, attendance.CorrectionRequest{ID: monday.ID, Date: strPtr("2025-03-04")})
	assert.ErrorIs(t, err, attendance.ErrOnApprovedLeave)

	assert.Nil(t, h.record(t, "emp-1", "2025-03-04"))
	assert.Nil(t, h.record(t, "emp-1", "2025-03-05"))
}

func TestTimeWindowCheckedBeforeLeave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))
	h.approveLeave(t, "emp-1", "2025-03-04", "2025-03-04")

	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-04T20:00:00+08:00"))
	assert.ErrorIs(t, err, attendance.ErrOutsideWorkingHours)
	assert.Equal(t, attendance.KindTimeWindow, attendance.KindOf(err))
	assert.Equal(t, attendance.TokenOutsideHours, attendance.RejectionToken(err))

	_, err = h.svc.SubmitManual(ctx, manual("emp-1", "2025-03-04", "17:30", attendance.ActionTimeIn))
	assert.ErrorIs(t, err, attendance.ErrOutsideClockInWindow)

	// Inside the window the leave still wins.
	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-04T08:00:00+08:00"))
	assert.ErrorIs(t, err, attendance.ErrOnApprovedLeave)
	assert.Nil(t, h.record(t, "emp-1", "2025-03-04"))
}

func TestSubmitScan_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"))

	events, cleanup := h.hub.Subscribe(sse.TopicAttendance)
	defer cleanup()

	_, err := h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T07:00:00+08:00"))
	require.NoError(t, err)
	_, err = h.svc.SubmitScan(ctx, scan("A1B2C3D4", "2025-03-03T16:00:00+08:00"))
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, "attendance.clock_in", first.Event)
	second := <-events
	assert.Equal(t, "attendance.clock_out", second.Event)
	data, ok := second.Data.(attendance.RecordResponse)
	require.True(t, ok)
	assert.Equal(t, "emp-1", data.EmployeeID)
}

func TestListRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		weekdayEmployee("emp-1", "Maria Santos", "A1B2C3D4"),
		weekdayEmployee("emp-2", "Jose Rizal", "B1B2C3D4"),
	)

	for _, date := range []string{"2025-03-03", "2025-03-04", "2025-03-05"} {
		for _, emp := range []string{"emp-1", "emp-2"} {
			_, err := h.svc.SubmitManual(ctx, manual(emp, date, "08:00", attendance.ActionTimeIn))
			require.NoError(t, err)
		}
	}

	res, err := h.svc.ListRecords(ctx, attendance.RecordFilter{Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 1, res.Page)
	assert.Len(t, res.Records, 4)

	_, err = h.svc.ListRecords(ctx, attendance.RecordFilter{Limit: 500})
	var validationErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &validationErrs)

	got, err := h.svc.GetRecord(ctx, res.Records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, res.Records[0].ID, got.ID)

	_, err = h.svc.GetRecord(ctx, "missing")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

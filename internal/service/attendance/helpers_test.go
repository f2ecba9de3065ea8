package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-core/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

const testSweepIdentity = "system:forced-closure"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	svc       *AttendanceServiceImpl
	records   attendance.Repository
	leaves    leave.Repository
	directory *memory.Directory
	hub       *sse.Hub
	clock     *fakeClock
}

func newHarness(t *testing.T, views ...employee.ScheduleView) *harness {
	t.Helper()
	h := &harness{
		records:   memory.NewAttendanceRepository(),
		leaves:    memory.NewLeaveRepository(),
		directory: memory.NewDirectory(views...),
		hub:       sse.NewHub(16),
		clock:     &fakeClock{now: mustAt(t, "2025-03-03", "12:00")},
	}
	h.svc = newAttendanceService(h.records, h.leaves, h.directory, h.hub, testSweepIdentity, h.clock.Now)
	return h
}

func (h *harness) approveLeave(t *testing.T, employeeID, start, end string) {
	t.Helper()
	_, err := h.leaves.Create(context.Background(), leave.Interval{
		EmployeeID: employeeID,
		StartDate:  mustDate(t, start),
		EndDate:    mustDate(t, end),
		Status:     leave.StatusApproved,
		LeaveType:  "vacation",
	})
	require.NoError(t, err)
}

func (h *harness) record(t *testing.T, employeeID, date string) *attendance.Record {
	t.Helper()
	rec, err := h.records.GetByEmployeeAndDate(context.Background(), employeeID, mustDate(t, date))
	require.NoError(t, err)
	return rec
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := attendance.ParseDate(s)
	require.NoError(t, err)
	return d
}

func mustAt(t *testing.T, date, clock string) time.Time {
	t.Helper()
	at, err := attendance.At(mustDate(t, date), clock)
	require.NoError(t, err)
	return at
}

func strPtr(s string) *string {
	return &s
}

// weekdayEmployee works Monday to Friday 07:00-16:00 and has an inactive
// Saturday row. 2025-03-03 is a Monday.
func weekdayEmployee(id, name, badge string) employee.ScheduleView {
	schedule := map[time.Weekday]employee.DaySchedule{
		time.Saturday: {Active: false, Start: "08:00", End: "12:00"},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		schedule[d] = employee.DaySchedule{Active: true, Start: "07:00", End: "16:00"}
	}
	return employee.ScheduleView{
		ID:               id,
		BadgeUID:         strPtr(badge),
		FullName:         name,
		Department:       strPtr("Operations"),
		EmploymentStatus: employee.EmploymentStatusActive,
		Schedule:         schedule,
	}
}

func manual(employeeID, date, clock string, action attendance.Action) attendance.ManualEventRequest {
	return attendance.ManualEventRequest{
		EmployeeID: employeeID,
		Date:       date,
		Time:       clock,
		Action:     action,
		RecordedBy: "admin-1",
	}
}

func scan(uid, at string) attendance.ScanRequest {
	return attendance.ScanRequest{UID: uid, ScannedAt: at}
}

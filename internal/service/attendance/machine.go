package attendance

import (
	"errors"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
)

const (
	minCorrectionGap = 10 * time.Minute
	forcedCloseNote  = "Automatically closed by forced closure sweep"
	absentNote       = "Marked absent: no attendance recorded"
)

var (
	// errNotOpen tells the sweep a record is no longer clocked in.
	errNotOpen = errors.New("record is not clocked in")
	// errRecordExists tells absence marking the key already has a record.
	errRecordExists = errors.New("record already exists")
)

// Event is a single clock-in or clock-out from either channel.
type Event struct {
	Employee   employee.ScheduleView
	At         time.Time
	Action     attendance.Action
	Source     attendance.Source
	Notes      *string
	RecordedBy string
}

func (e Event) recordType() attendance.RecordType {
	if e.Source == attendance.SourceRFID {
		return attendance.RecordTypeAuto
	}
	return attendance.RecordTypeManual
}

// Correction is an administrative edit already resolved to concrete values.
type Correction struct {
	TimeIn     *string // HH:MM
	TimeOut    *string // HH:MM
	Date       *time.Time
	Notes      *string
	RecordedBy string
}

func (c Correction) touchesTimes() bool {
	return c.TimeIn != nil || c.TimeOut != nil || c.Date != nil
}

// StateMachine applies transitions to the current record of one
// (employee, date) key. It does no I/O; callers run it inside the store's
// per-key guard.
type StateMachine struct {
	now func() time.Time
}

func NewStateMachine(now func() time.Time) *StateMachine {
	if now == nil {
		now = time.Now
	}
	return &StateMachine{now: now}
}

// Apply dispatches ev according to its action.
func (m *StateMachine) Apply(current *attendance.Record, ev Event) (*attendance.Record, error) {
	switch ev.Action {
	case attendance.ActionTimeIn:
		return m.ClockIn(current, ev)
	case attendance.ActionTimeOut:
		return m.ClockOut(current, ev)
	default:
		return nil, attendance.ErrSystem
	}
}

// Scan picks the action for a badge scan from the current state: a key with
// no time in is clocked in, anything else is clocked out.
func (m *StateMachine) Scan(current *attendance.Record, ev Event) (*attendance.Record, error) {
	if current.State() == attendance.StateNoRecord {
		ev.Action = attendance.ActionTimeIn
		return m.ClockIn(current, ev)
	}
	ev.Action = attendance.ActionTimeOut
	return m.ClockOut(current, ev)
}

func (m *StateMachine) ClockIn(current *attendance.Record, ev Event) (*attendance.Record, error) {
	if current.State() != attendance.StateNoRecord {
		return nil, attendance.ErrTimeInAlreadyRecorded
	}
	if err := CheckWindow(attendance.ActionTimeIn, ev.At); err != nil {
		return nil, err
	}

	now := m.now()
	next := newRecord(current, ev.Employee, ev.At, now)

	source := ev.Source
	outcome := PolicyFor(&source).EvaluateClockIn(ev.At, &ev.Employee)

	timeIn := ev.At
	next.TimeIn = &timeIn
	next.TimeOut = nil
	next.TimeInSource = attendance.SourcePtr(source)
	next.TimeOutSource = nil
	next.LateMinutes = outcome.LateMinutes
	next.OvertimeMinutes = 0
	next.HoursWorked = 0
	next.TotalMinutes = 0
	next.Status = outcome.Status
	next.WorkDay = outcome.WorkDay
	next.RecordType = ev.recordType()
	next.RecordedBy = ev.RecordedBy
	next.LastModified = now

	// An Absent marker being filled keeps its note history.
	next.AppendNote(outcome.Note)
	if ev.Notes != nil {
		next.AppendNote(*ev.Notes)
	}
	return next, nil
}

func (m *StateMachine) ClockOut(current *attendance.Record, ev Event) (*attendance.Record, error) {
	switch current.State() {
	case attendance.StateNoRecord:
		return nil, attendance.ErrNoTimeInRecord
	case attendance.StateCompleted:
		return nil, attendance.ErrTimeOutAlreadyRecorded
	}
	if err := CheckWindow(attendance.ActionTimeOut, ev.At); err != nil {
		return nil, err
	}
	if !ev.At.After(*current.TimeIn) {
		return nil, attendance.ErrTimeOutBeforeTimeIn
	}

	next := *current
	m.close(&next, ev.At, &ev.Employee)
	next.TimeOutSource = attendance.SourcePtr(ev.Source)
	next.RecordType = ev.recordType()
	next.RecordedBy = ev.RecordedBy
	if ev.Notes != nil {
		next.AppendNote(*ev.Notes)
	}
	return &next, nil
}

// ForceClose completes a clocked-in record on behalf of the sweep. Records
// dated before the trigger's civil date are closed at the end of their own
// day rather than at the trigger instant.
func (m *StateMachine) ForceClose(current *attendance.Record, trigger time.Time, identity string, view *employee.ScheduleView) (*attendance.Record, error) {
	if current.State() != attendance.StateClockedIn {
		return nil, errNotOpen
	}

	timeOut := trigger
	if attendance.DateKey(current.Date) != attendance.DateKey(trigger) {
		timeOut = endOfDay(current.Date)
	}
	if !timeOut.After(*current.TimeIn) {
		return nil, attendance.ErrTimeOutBeforeTimeIn
	}

	next := *current
	m.close(&next, timeOut, view)
	next.TimeOutSource = nil
	next.RecordType = attendance.RecordTypeAuto
	next.RecordedBy = identity
	next.AppendNote(forcedCloseNote)
	return &next, nil
}

// Correct applies an administrative edit. Only fields present in c change.
// A supplied clock time re-tags its side as manual; lateness is recomputed
// only when the time in itself changes, and the work-day flag only when the
// record moves to another date.
func (m *StateMachine) Correct(current *attendance.Record, c Correction, view *employee.ScheduleView) (*attendance.Record, error) {
	if current == nil {
		return nil, attendance.ErrAttendanceNotFound
	}

	next := *current
	next.RecordType = attendance.RecordTypeManual
	next.RecordedBy = c.RecordedBy
	next.LastModified = m.now()
	if c.Notes != nil {
		notes := *c.Notes
		next.Notes = &notes
	}

	if !c.touchesTimes() {
		return &next, nil
	}

	date := current.Date
	if c.Date != nil {
		date = attendance.CivilDate(*c.Date)
	}
	next.Date = date

	timeIn, err := correctedInstant(date, c.TimeIn, current.TimeIn)
	if err != nil {
		return nil, err
	}
	timeOut, err := correctedInstant(date, c.TimeOut, current.TimeOut)
	if err != nil {
		return nil, err
	}

	if c.TimeIn != nil && c.TimeOut != nil && timeOut.Sub(*timeIn) < minCorrectionGap {
		return nil, attendance.ErrCorrectionGapTooShort
	}
	if timeOut != nil && timeIn == nil {
		return nil, attendance.ErrTimeOutWithoutTimeIn
	}
	if timeOut != nil && !timeOut.After(*timeIn) {
		return nil, attendance.ErrTimeOutBeforeTimeIn
	}

	dateMoved := !date.Equal(current.Date)
	if dateMoved && view != nil {
		next.WorkDay = view.IsWorkDay(date)
	}

	next.TimeIn = timeIn
	next.TimeOut = nil
	next.OvertimeMinutes = 0
	next.HoursWorked = 0
	next.TotalMinutes = 0

	if timeIn == nil {
		// Nothing recorded on either side: the record stays an Absent marker.
		next.TimeInSource = nil
		next.TimeOutSource = nil
		next.LateMinutes = 0
		next.Status = attendance.StatusAbsent
		return &next, nil
	}

	if c.TimeIn != nil {
		next.TimeInSource = attendance.SourcePtr(attendance.SourceManual)
	}
	// Lateness follows the time in: a new clock time is measured under the
	// manual policy, a moved date under the policy that opened the record.
	if c.TimeIn != nil || (dateMoved && view != nil) {
		outcome := PolicyFor(next.TimeInSource).EvaluateClockIn(*timeIn, view)
		next.LateMinutes = outcome.LateMinutes
		next.Status = outcome.Status
	}
	if !next.WorkDay {
		next.LateMinutes = 0
		next.Status = attendance.StatusNoWork
	}

	if timeOut == nil {
		next.TimeOutSource = nil
		return &next, nil
	}
	m.close(&next, *timeOut, view)
	if c.TimeOut != nil {
		next.TimeOutSource = attendance.SourcePtr(attendance.SourceManual)
	}
	return &next, nil
}

// Absent creates an Absent marker for a key that has no record yet.
func (m *StateMachine) Absent(current *attendance.Record, view employee.ScheduleView, date time.Time, identity string) (*attendance.Record, error) {
	if current != nil {
		return nil, errRecordExists
	}
	now := m.now()
	next := newRecord(nil, view, date, now)
	next.Status = attendance.StatusAbsent
	next.WorkDay = true
	next.RecordType = attendance.RecordTypeAuto
	next.RecordedBy = identity
	next.LastModified = now
	next.AppendNote(absentNote)
	return next, nil
}

// close sets the time out and everything derived from it.
func (m *StateMachine) close(r *attendance.Record, timeOut time.Time, view *employee.ScheduleView) {
	metrics := CalculateShift(*r.TimeIn, timeOut, view)
	policy := PolicyFor(r.TimeInSource)

	out := timeOut
	r.TimeOut = &out
	r.HoursWorked = metrics.HoursWorked
	r.TotalMinutes = metrics.TotalMinutes
	r.OvertimeMinutes = metrics.OvertimeMinutes
	r.Status = policy.ClosingStatus(r.LateMinutes, metrics.HoursWorked, r.WorkDay)
	r.LastModified = m.now()
}

// newRecord starts from an existing keyless marker when there is one so the
// identity and creation time survive, and refreshes the directory snapshot
// otherwise.
func newRecord(current *attendance.Record, view employee.ScheduleView, at, now time.Time) *attendance.Record {
	if current != nil {
		next := *current
		return &next
	}
	return &attendance.Record{
		EmployeeID:   view.ID,
		Date:         attendance.CivilDate(at),
		EmployeeName: view.FullName,
		Department:   view.Department,
		Position:     view.Position,
		DateEmployed: view.DateEmployed,
		CreatedAt:    now,
	}
}

// correctedInstant resolves one side of a correction: an explicit HH:MM on
// the effective date, or the existing instant moved to that date.
func correctedInstant(date time.Time, clock *string, existing *time.Time) (*time.Time, error) {
	if clock != nil {
		at, err := attendance.At(date, *clock)
		if err != nil {
			return nil, err
		}
		return &at, nil
	}
	if existing == nil {
		return nil, nil
	}
	e := existing.In(attendance.Location)
	d := date.In(attendance.Location)
	at := time.Date(d.Year(), d.Month(), d.Day(), e.Hour(), e.Minute(), e.Second(), e.Nanosecond(), attendance.Location)
	return &at, nil
}

func endOfDay(date time.Time) time.Time {
	d := date.In(attendance.Location)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, attendance.Location)
}

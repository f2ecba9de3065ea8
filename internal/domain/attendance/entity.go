package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent   Status = "Present"
	StatusLate      Status = "Late"
	StatusAbsent    Status = "Absent"
	StatusCompleted Status = "Completed"
	StatusHalfDay   Status = "Half-day"
	StatusNoWork    Status = "No Work"
)

// RecordType tells whether a record was last written by hardware or the
// sweep (auto) or by an administrator (manual).
type RecordType string

const (
	RecordTypeAuto   RecordType = "auto"
	RecordTypeManual RecordType = "manual"
)

// Source is the channel that produced one side of a shift.
type Source string

const (
	SourceRFID   Source = "rfid"
	SourceManual Source = "manual"
)

type Action string

const (
	ActionTimeIn  Action = "time_in"
	ActionTimeOut Action = "time_out"
)

// State is the lifecycle position of an (employee, date) key.
type State int

const (
	StateNoRecord State = iota
	StateClockedIn
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateClockedIn:
		return "clocked_in"
	case StateCompleted:
		return "completed"
	default:
		return "no_record"
	}
}

type Record struct {
	ID         string
	EmployeeID string
	Date       time.Time

	// Directory snapshot taken when the record is created
	EmployeeName string
	Department   *string
	Position     *string
	DateEmployed *time.Time

	TimeIn          *time.Time
	TimeOut         *time.Time
	Status          Status
	LateMinutes     int
	OvertimeMinutes int
	HoursWorked     float64
	TotalMinutes    int
	WorkDay         bool

	RecordType    RecordType
	TimeInSource  *Source
	TimeOutSource *Source

	Notes        *string
	RecordedBy   string
	CreatedAt    time.Time
	LastModified time.Time
}

// State derives the lifecycle state from the recorded instants. A record
// without a time in (an Absent marker) behaves like no record at all.
func (r *Record) State() State {
	if r == nil || r.TimeIn == nil {
		return StateNoRecord
	}
	if r.TimeOut == nil {
		return StateClockedIn
	}
	return StateCompleted
}

// DateKey returns the civil date half of the record identity.
func (r Record) DateKey() string {
	return DateKey(r.Date)
}

// AppendNote adds note on a new line after any existing notes.
func (r *Record) AppendNote(note string) {
	if note == "" {
		return
	}
	if r.Notes == nil || *r.Notes == "" {
		r.Notes = &note
		return
	}
	joined := *r.Notes + "\n" + note
	r.Notes = &joined
}

func SourcePtr(s Source) *Source {
	return &s
}

package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-core/internal/pkg/validator"
)

type seedDay struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=1,max=7"`
	Start     string `json:"start" validate:"required,clock"`
	End       string `json:"end" validate:"required,clock"`
	Active    *bool  `json:"active,omitempty"`
}

type seedEmployee struct {
	ID               string    `json:"id" validate:"required,max=64"`
	BadgeUID         *string   `json:"badge_uid,omitempty" validate:"omitempty,badgeuid"`
	FullName         string    `json:"full_name" validate:"required"`
	Department       *string   `json:"department,omitempty"`
	Position         *string   `json:"position,omitempty"`
	DateEmployed     *string   `json:"date_employed,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EmploymentStatus string    `json:"employment_status,omitempty" validate:"omitempty,oneof=active resigned terminated"`
	Schedule         []seedDay `json:"schedule" validate:"dive"`
}

// LoadDirectoryFile builds a Directory from a JSON array of employees, used
// to seed the memory storage driver.
func LoadDirectoryFile(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read employee seed: %w", err)
	}
	return parseDirectory(raw)
}

func parseDirectory(raw []byte) (*Directory, error) {
	var seeds []seedEmployee
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("decode employee seed: %w", err)
	}

	d := NewDirectory()
	for i := range seeds {
		view, err := seeds[i].toView()
		if err != nil {
			return nil, fmt.Errorf("employee seed %d: %w", i, err)
		}
		d.Put(view)
	}
	return d, nil
}

func (s *seedEmployee) toView() (employee.ScheduleView, error) {
	if err := validator.Struct(s); err != nil {
		return employee.ScheduleView{}, err
	}

	view := employee.ScheduleView{
		ID:               s.ID,
		FullName:         s.FullName,
		Department:       s.Department,
		Position:         s.Position,
		EmploymentStatus: employee.EmploymentStatusActive,
		Schedule:         make(map[time.Weekday]employee.DaySchedule, len(s.Schedule)),
	}
	if s.EmploymentStatus != "" {
		view.EmploymentStatus = employee.EmploymentStatus(s.EmploymentStatus)
	}
	if s.BadgeUID != nil {
		uid := strings.ToUpper(*s.BadgeUID)
		view.BadgeUID = &uid
	}
	if s.DateEmployed != nil {
		employed, _ := validator.IsValidDate(*s.DateEmployed)
		view.DateEmployed = &employed
	}

	for _, day := range s.Schedule {
		weekday, err := employee.ISOWeekday(day.DayOfWeek)
		if err != nil {
			return employee.ScheduleView{}, err
		}
		active := day.Active == nil || *day.Active
		view.Schedule[weekday] = employee.DaySchedule{Active: active, Start: day.Start, End: day.End}
	}
	return view, nil
}

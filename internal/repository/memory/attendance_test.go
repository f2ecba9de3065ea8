package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := attendance.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func clockIn(employeeID string, date time.Time) attendance.MutateFunc {
	return func(current *attendance.Record) (*attendance.Record, error) {
		if current != nil {
			return nil, attendance.ErrTimeInAlreadyRecorded
		}
		at, _ := attendance.At(date, "08:00")
		return &attendance.Record{
			EmployeeID: employeeID,
			Date:       date,
			TimeIn:     &at,
			Status:     attendance.StatusPresent,
		}, nil
	}
}

func TestApply_CreatesOneRecordPerKey(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	d := day("2025-03-03")

	created, err := repo.Apply(ctx, "emp-1", d, clockIn("emp-1", d))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.Apply(ctx, "emp-1", d, clockIn("emp-1", d))
	assert.ErrorIs(t, err, attendance.ErrTimeInAlreadyRecorded)

	found, err := repo.GetByEmployeeAndDate(ctx, "emp-1", d)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := repo.GetByEmployeeAndDate(ctx, "emp-2", d)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestApply_ConcurrentClockInsOnSameKey(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	d := day("2025-03-03")

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Apply(ctx, "emp-1", d, clockIn("emp-1", d))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				assert.ErrorIs(t, err, attendance.ErrTimeInAlreadyRecorded)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, rejected)

	_, total, err := repo.List(ctx, attendance.RecordFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestApply_RejectsKeyChange(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	d := day("2025-03-03")

	_, err := repo.Apply(ctx, "emp-1", d, clockIn("emp-2", d))
	assert.Error(t, err)

	_, err = repo.Apply(ctx, "emp-1", d, func(current *attendance.Record) (*attendance.Record, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

func TestApplyByID_MovesRecordToNewDate(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	monday, tuesday := day("2025-03-03"), day("2025-03-04")

	created, err := repo.Apply(ctx, "emp-1", monday, clockIn("emp-1", monday))
	require.NoError(t, err)

	moved, err := repo.ApplyByID(ctx, created.ID, func(current *attendance.Record) (*attendance.Record, error) {
		next := *current
		next.Date = tuesday
		next.EmployeeID = "someone-else"
		return &next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, moved.ID)
	assert.Equal(t, "emp-1", moved.EmployeeID)
	assert.Equal(t, "2025-03-04", moved.DateKey())

	old, err := repo.GetByEmployeeAndDate(ctx, "emp-1", monday)
	require.NoError(t, err)
	assert.Nil(t, old)

	// The old key is free again.
	_, err = repo.Apply(ctx, "emp-1", monday, clockIn("emp-1", monday))
	assert.NoError(t, err)
}

func TestApplyByID_MoveOntoOccupiedDateIsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	monday, tuesday := day("2025-03-03"), day("2025-03-04")

	first, err := repo.Apply(ctx, "emp-1", monday, clockIn("emp-1", monday))
	require.NoError(t, err)
	_, err = repo.Apply(ctx, "emp-1", tuesday, clockIn("emp-1", tuesday))
	require.NoError(t, err)

	_, err = repo.ApplyByID(ctx, first.ID, func(current *attendance.Record) (*attendance.Record, error) {
		next := *current
		next.Date = tuesday
		return &next, nil
	})
	assert.ErrorIs(t, err, attendance.ErrDuplicateRecord)

	unchanged, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", unchanged.DateKey())
}

func TestApplyByID_MoveWaitsForDestinationKey(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	monday, tuesday := day("2025-03-03"), day("2025-03-04")

	first, err := repo.Apply(ctx, "emp-1", monday, clockIn("emp-1", monday))
	require.NoError(t, err)

	moveErr := make(chan error, 1)
	_, err = repo.Apply(ctx, "emp-1", tuesday, func(current *attendance.Record) (*attendance.Record, error) {
		go func() {
			_, err := repo.ApplyByID(ctx, first.ID, func(current *attendance.Record) (*attendance.Record, error) {
				next := *current
				next.Date = tuesday
				return &next, nil
			})
			moveErr <- err
		}()
		time.Sleep(50 * time.Millisecond)
		assert.Len(t, moveErr, 0, "move finished while the destination key was held")
		return clockIn("emp-1", tuesday)(current)
	})
	require.NoError(t, err)

	assert.ErrorIs(t, <-moveErr, attendance.ErrDuplicateRecord)
	unchanged, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", unchanged.DateKey())
}

func TestApplyByID_CrossingMovesDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	monday, tuesday := day("2025-03-03"), day("2025-03-04")

	a, err := repo.Apply(ctx, "emp-1", monday, clockIn("emp-1", monday))
	require.NoError(t, err)
	b, err := repo.Apply(ctx, "emp-1", tuesday, clockIn("emp-1", tuesday))
	require.NoError(t, err)

	moveTo := func(d time.Time) attendance.MutateFunc {
		return func(current *attendance.Record) (*attendance.Record, error) {
			next := *current
			next.Date = d
			return &next, nil
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = repo.ApplyByID(ctx, a.ID, moveTo(tuesday))
			}()
			go func() {
				defer wg.Done()
				_, _ = repo.ApplyByID(ctx, b.ID, moveTo(monday))
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("crossing moves did not finish")
	}

	// Both keys stay occupied; neither move can succeed.
	gotA, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", gotA.DateKey())
	gotB, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04", gotB.DateKey())
}

func TestApplyByID_NotFound(t *testing.T) {
	repo := NewAttendanceRepository()
	_, err := repo.ApplyByID(context.Background(), "missing", func(current *attendance.Record) (*attendance.Record, error) {
		return current, nil
	})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestListOpen(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	d1, d2, d3 := day("2025-03-03"), day("2025-03-04"), day("2025-03-05")

	for _, d := range []time.Time{d3, d1, d2} {
		_, err := repo.Apply(ctx, "emp-1", d, clockIn("emp-1", d))
		require.NoError(t, err)
	}

	// Close the Tuesday record.
	_, err := repo.Apply(ctx, "emp-1", d2, func(current *attendance.Record) (*attendance.Record, error) {
		next := *current
		out := current.TimeIn.Add(8 * time.Hour)
		next.TimeOut = &out
		return &next, nil
	})
	require.NoError(t, err)

	open, err := repo.ListOpen(ctx, d2)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "2025-03-03", open[0].DateKey())

	open, err = repo.ListOpen(ctx, d3)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "2025-03-03", open[0].DateKey())
	assert.Equal(t, "2025-03-05", open[1].DateKey())
}

func TestList_FilterAndPaginate(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	for _, s := range []string{"2025-03-03", "2025-03-04", "2025-03-05"} {
		d := day(s)
		for _, emp := range []string{"emp-1", "emp-2"} {
			_, err := repo.Apply(ctx, emp, d, clockIn(emp, d))
			require.NoError(t, err)
		}
	}

	emp := "emp-1"
	records, total, err := repo.List(ctx, attendance.RecordFilter{EmployeeID: &emp, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 2)
	assert.Equal(t, "2025-03-05", records[0].DateKey())
	assert.Equal(t, "2025-03-04", records[1].DateKey())

	records, _, err = repo.List(ctx, attendance.RecordFilter{EmployeeID: &emp, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-03-03", records[0].DateKey())

	start, end := "2025-03-04", "2025-03-04"
	records, total, err = repo.List(ctx, attendance.RecordFilter{StartDate: &start, EndDate: &end, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, records, 2)

	records, _, err = repo.List(ctx, attendance.RecordFilter{Page: 5, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, records)
}

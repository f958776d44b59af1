package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptpal/promptpal-api/internal/models"
)

func TestActiveTasksForToday(t *testing.T) {
	location := berlin(t)
	today := "2026-03-10"
	yesterday := "2026-03-09"
	tomorrow := "2026-03-11"

	tasks := newFakeTaskRepo(
		models.Task{ID: 1, Name: "Old", Kind: models.TaskKindText, ActiveDate: &yesterday},
		models.Task{ID: 2, Name: "Current", Kind: models.TaskKindText, ActiveDate: &today},
		models.Task{ID: 3, Name: "Upcoming", Kind: models.TaskKindText, ActiveDate: &tomorrow},
		models.Task{ID: 4, Name: "Unscheduled", Kind: models.TaskKindText},
	)

	svc := NewTaskService(tasks, location, testLogger())
	// Late evening local time still selects the same calendar day.
	svc.(*taskService).now = func() time.Time {
		return time.Date(2026, 3, 10, 23, 30, 0, 0, location)
	}

	active, err := svc.ActiveTasksForToday(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, uint(2), active[0].ID)
}

func TestActiveTasksForTodayCrossesMidnight(t *testing.T) {
	location := berlin(t)
	day := "2026-03-11"
	tasks := newFakeTaskRepo(models.Task{ID: 5, Name: "Next", Kind: models.TaskKindText, ActiveDate: &day})

	svc := NewTaskService(tasks, location, testLogger())
	// Just past local midnight the next day's task becomes active, even
	// though it is still the previous day in UTC.
	svc.(*taskService).now = func() time.Time {
		return time.Date(2026, 3, 11, 0, 5, 0, 0, location)
	}

	active, err := svc.ActiveTasksForToday(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, uint(5), active[0].ID)
}

func TestGetTaskNotFound(t *testing.T) {
	svc := NewTaskService(newFakeTaskRepo(), berlin(t), testLogger())

	_, err := svc.GetTask(context.Background(), 9)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

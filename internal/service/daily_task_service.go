package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/repository"
)

// TaskService resolves the published tasks, in particular the task(s) active
// on the current calendar day in the server timezone.
type TaskService interface {
	ActiveTasksForToday(ctx context.Context) ([]dto.TaskResponse, error)
	GetTask(ctx context.Context, id uint) (dto.TaskResponse, error)
	ListTasks(ctx context.Context) ([]dto.TaskResponse, error)
}

type taskService struct {
	tasks    repository.TaskRepository
	location *time.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// NewTaskService constructs a task service operating in the given timezone.
func NewTaskService(tasks repository.TaskRepository, location *time.Location, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:    tasks,
		location: location,
		logger:   logger.With().Str("component", "task_service").Logger(),
		now:      time.Now,
	}
}

// ActiveTasksForToday selects all tasks scheduled for the current calendar
// day. Selection compares date strings, so a task flips active at local
// midnight regardless of the host clock's zone.
func (s *taskService) ActiveTasksForToday(ctx context.Context) ([]dto.TaskResponse, error) {
	today := s.now().In(s.location).Format(dateLayout)

	tasks, err := s.tasks.List(ctx, repository.TaskFilter{ActiveDate: &today})
	if err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	return dto.NewTaskResponses(tasks), nil
}

func (s *taskService) GetTask(ctx context.Context, id uint) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}
	return dto.NewTaskResponse(task), nil
}

func (s *taskService) ListTasks(ctx context.Context) ([]dto.TaskResponse, error) {
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return dto.NewTaskResponses(tasks), nil
}

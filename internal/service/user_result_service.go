package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/repository"
	"github.com/promptpal/promptpal-api/internal/scoring"
)

// UserResultService aggregates a user's judged submissions into an overall
// result across all tasks scheduled up to today.
type UserResultService interface {
	// ComputeUserResult builds the per-task breakdown and overall mean. The
	// overall score is null while any in-scope task is still unattempted.
	ComputeUserResult(ctx context.Context, userID uint) (dto.UserResultResponse, error)
	// RefreshCachedScore recomputes the aggregate and stores it on the user
	// record so listings never trigger the full computation.
	RefreshCachedScore(ctx context.Context, userID uint) error
}

type userResultService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	location    *time.Location
	logger      zerolog.Logger
	now         func() time.Time
}

// NewUserResultService constructs a user result service.
func NewUserResultService(
	tasks repository.TaskRepository,
	submissions repository.SubmissionRepository,
	users repository.UserRepository,
	location *time.Location,
	logger zerolog.Logger,
) UserResultService {
	return &userResultService{
		tasks:       tasks,
		submissions: submissions,
		users:       users,
		location:    location,
		logger:      logger.With().Str("component", "user_result_service").Logger(),
		now:         time.Now,
	}
}

func (s *userResultService) ComputeUserResult(ctx context.Context, userID uint) (dto.UserResultResponse, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResultResponse{}, ErrUserNotFound
		}
		return dto.UserResultResponse{}, err
	}

	result, err := s.compute(ctx, userID)
	if err != nil {
		return dto.UserResultResponse{}, err
	}
	return dto.NewUserResultResponse(result), nil
}

func (s *userResultService) RefreshCachedScore(ctx context.Context, userID uint) error {
	result, err := s.compute(ctx, userID)
	if err != nil {
		return fmt.Errorf("compute user result: %w", err)
	}
	if err := s.users.UpdateCachedScore(ctx, userID, result.Score); err != nil {
		return fmt.Errorf("store cached score: %w", err)
	}
	return nil
}

// compute resolves the in-scope task set (scheduled on or before today) and
// rebuilds each task's result from the latest persisted judge reply.
func (s *userResultService) compute(ctx context.Context, userID uint) (scoring.UserResult, error) {
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{ScheduledOnly: true})
	if err != nil {
		return scoring.UserResult{}, fmt.Errorf("list scheduled tasks: %w", err)
	}

	today := s.now().In(s.location).Format(dateLayout)
	inScope := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		if task.ActiveDate != nil && *task.ActiveDate <= today {
			inScope = append(inScope, task.ID)
		}
	}

	resultsByTask := make(map[uint]scoring.TaskResult, len(inScope))
	for _, taskID := range inScope {
		taskResult, ok, err := s.latestResult(ctx, userID, taskID)
		if err != nil {
			return scoring.UserResult{}, err
		}
		if ok {
			resultsByTask[taskID] = taskResult
		}
	}

	return scoring.NewUserResult(inScope, resultsByTask), nil
}

// latestResult derives the task result from the newest judged submission. The
// best attempt only governs the task score surface, not this aggregate.
func (s *userResultService) latestResult(ctx context.Context, userID, taskID uint) (scoring.TaskResult, bool, error) {
	submission, err := s.submissions.LatestScored(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scoring.TaskResult{}, false, nil
		}
		return scoring.TaskResult{}, false, fmt.Errorf("load latest judged submission: %w", err)
	}

	reply, err := scoring.ParseReply(json.RawMessage(submission.Result))
	if err != nil {
		// A stored result that no longer parses counts as unattempted
		// instead of failing the whole aggregate.
		s.logger.Warn().Err(err).
			Uint("submission_id", submission.ID).
			Uint("task_id", taskID).
			Msg("skipping malformed stored result")
		return scoring.TaskResult{}, false, nil
	}

	return scoring.NewTaskResult(taskID, submission.ID, submission.CreatedAt, reply), true, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/repository"
	"github.com/promptpal/promptpal-api/internal/scoring"
)

// StatsService computes population-wide average scores, optionally with one
// user excluded so participants can compare themselves against everyone else.
type StatsService interface {
	AverageScores(ctx context.Context, excludeUserID *uint) (dto.AverageScoresResponse, error)
	// InvalidateCache drops the cached averages. Called after repairs that
	// rewrite historical scores.
	InvalidateCache(ctx context.Context) error
}

type statsService struct {
	taskScores  repository.TaskScoreRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewStatsService constructs a stats service. The cache client may be nil, in
// which case every call recomputes.
func NewStatsService(taskScores repository.TaskScoreRepository, submissions repository.SubmissionRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) StatsService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &statsService{
		taskScores:  taskScores,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "stats_service").Logger(),
	}
}

const statsCachePrefix = "promptpal:stats:averages"

func statsCacheKey(excludeUserID *uint) string {
	if excludeUserID == nil {
		return statsCachePrefix + ":all"
	}
	return fmt.Sprintf("%s:exclude:%d", statsCachePrefix, *excludeUserID)
}

func (s *statsService) AverageScores(ctx context.Context, excludeUserID *uint) (dto.AverageScoresResponse, error) {
	key := statsCacheKey(excludeUserID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var response dto.AverageScoresResponse
			if jsonErr := json.Unmarshal(cached, &response); jsonErr == nil {
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("stats cache read failed")
		}
	}

	response, err := s.computeAverages(ctx, excludeUserID)
	if err != nil {
		return dto.AverageScoresResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("stats cache write failed")
			}
		}
	}
	return response, nil
}

func (s *statsService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	iter := s.cache.Scan(ctx, 0, statsCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("invalidate stats cache: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan stats cache: %w", err)
	}
	return nil
}

func (s *statsService) computeAverages(ctx context.Context, excludeUserID *uint) (dto.AverageScoresResponse, error) {
	scores, err := s.taskScores.List(ctx, repository.TaskScoreFilter{
		ExcludeUserID: excludeUserID,
		CompletedOnly: true,
	})
	if err != nil {
		return dto.AverageScoresResponse{}, fmt.Errorf("list task scores: %w", err)
	}

	taskTotals := map[uint]float64{}
	taskCounts := map[uint]int{}
	criterionTotals := map[string]float64{}
	criterionCounts := map[string]int{}
	users := map[uint]struct{}{}
	taskOrder := []uint{}

	for _, score := range scores {
		if _, seen := taskCounts[score.TaskID]; !seen {
			taskOrder = append(taskOrder, score.TaskID)
		}
		taskTotals[score.TaskID] += score.Score
		taskCounts[score.TaskID]++
		users[score.UserID] = struct{}{}

		if score.SubmissionID == nil {
			continue
		}

		submission, err := s.submissions.GetByID(ctx, *score.SubmissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return dto.AverageScoresResponse{}, fmt.Errorf("load contributing submission: %w", err)
		}

		reply, err := scoring.ParseReply(json.RawMessage(submission.Result))
		if err != nil {
			// A malformed stored reply is skipped, not fatal: the task
			// average above already counted this score.
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("skipping malformed result in averages")
			continue
		}

		taskResult := scoring.NewTaskResult(score.TaskID, submission.ID, submission.CreatedAt, reply)
		for _, criterion := range taskResult.CriterionResults {
			criterionTotals[criterion.CriterionID] += criterion.Score
			criterionCounts[criterion.CriterionID]++
		}
	}

	response := dto.AverageScoresResponse{
		TaskAverages:      make([]dto.TaskAverage, 0, len(taskOrder)),
		CriteriaAverages:  make([]dto.CriterionAverage, 0, len(criterionCounts)),
		ExcludedUserID:    excludeUserID,
		ContributingUsers: len(users),
	}

	for _, taskID := range taskOrder {
		response.TaskAverages = append(response.TaskAverages, dto.TaskAverage{
			TaskID:          taskID,
			AverageScore:    taskTotals[taskID] / float64(taskCounts[taskID]),
			SubmissionCount: taskCounts[taskID],
		})
	}

	for _, criterionID := range sortedCriterionIDs(criterionCounts) {
		response.CriteriaAverages = append(response.CriteriaAverages, dto.CriterionAverage{
			CriterionID:     criterionID,
			AverageScore:    criterionTotals[criterionID] / float64(criterionCounts[criterionID]),
			SubmissionCount: criterionCounts[criterionID],
		})
	}
	return response, nil
}

func sortedCriterionIDs(counts map[string]int) []string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

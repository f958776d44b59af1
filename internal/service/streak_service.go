package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/models"
	"github.com/promptpal/promptpal-api/internal/repository"
)

const dateLayout = "2006-01-02"

// StreakService tracks consecutive completion days per user. All day
// arithmetic happens on calendar dates in the configured server timezone,
// never on raw instants.
type StreakService interface {
	// RegisterCompletion records a completed day for the user. Multiple
	// completions on the same calendar day count once.
	RegisterCompletion(ctx context.Context, userID uint, at time.Time) error
	// GetStreak returns the user's streak, creating a zeroed record when
	// none exists. A streak whose last completion is older than yesterday
	// is reset and the reset is persisted before returning.
	GetStreak(ctx context.Context, userID uint) (dto.StreakResponse, error)
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	// ResetInactiveStreaks persists the decay of every streak whose last
	// completion is older than yesterday. Returns the number of resets.
	ResetInactiveStreaks(ctx context.Context) (int, error)
	// ResyncFromHistory rebuilds one user's streak record from their
	// completed task scores. Intended as a manual repair operation.
	ResyncFromHistory(ctx context.Context, userID uint) (dto.StreakResponse, error)
}

type streakService struct {
	streaks    repository.StreakRepository
	taskScores repository.TaskScoreRepository
	location   *time.Location
	logger     zerolog.Logger
	now        func() time.Time
}

// NewStreakService constructs a streak service operating in the given timezone.
func NewStreakService(streaks repository.StreakRepository, taskScores repository.TaskScoreRepository, location *time.Location, logger zerolog.Logger) StreakService {
	return &streakService{
		streaks:    streaks,
		taskScores: taskScores,
		location:   location,
		logger:     logger.With().Str("component", "streak_service").Logger(),
		now:        time.Now,
	}
}

func (s *streakService) day(at time.Time) string {
	return at.In(s.location).Format(dateLayout)
}

func (s *streakService) yesterdayOf(day string) string {
	t, err := time.ParseInLocation(dateLayout, day, s.location)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dateLayout)
}

func (s *streakService) RegisterCompletion(ctx context.Context, userID uint, at time.Time) error {
	today := s.day(at)
	yesterday := s.yesterdayOf(today)

	streak, err := s.streaks.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load streak: %w", err)
		}

		streak = models.UserStreak{
			UserID:             userID,
			CurrentStreak:      1,
			LongestStreak:      1,
			TotalCompletedDays: 1,
			LastCompletionDate: &today,
			StreakStartDate:    &today,
		}
		if err := s.streaks.Create(ctx, &streak); err != nil {
			return fmt.Errorf("create streak: %w", err)
		}
		s.logger.Info().Uint("user_id", userID).Str("date", today).Msg("streak started")
		return nil
	}

	if streak.LastCompletionDate != nil && *streak.LastCompletionDate == today {
		return nil
	}

	switch {
	case streak.LastCompletionDate != nil && *streak.LastCompletionDate == yesterday:
		streak.CurrentStreak++
	default:
		streak.CurrentStreak = 1
		streak.StreakStartDate = &today
	}

	streak.TotalCompletedDays++
	streak.LastCompletionDate = &today
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}

	if err := s.streaks.Update(ctx, &streak); err != nil {
		return fmt.Errorf("update streak: %w", err)
	}

	s.logger.Info().
		Uint("user_id", userID).
		Str("date", today).
		Int("current_streak", streak.CurrentStreak).
		Msg("streak updated")
	return nil
}

func (s *streakService) GetStreak(ctx context.Context, userID uint) (dto.StreakResponse, error) {
	streak, err := s.streaks.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StreakResponse{}, fmt.Errorf("load streak: %w", err)
		}

		streak = models.UserStreak{UserID: userID}
		if err := s.streaks.Create(ctx, &streak); err != nil {
			return dto.StreakResponse{}, fmt.Errorf("create streak: %w", err)
		}
		return dto.NewStreakResponse(streak), nil
	}

	if s.isBroken(streak) && streak.CurrentStreak != 0 {
		streak.CurrentStreak = 0
		streak.StreakStartDate = nil
		if err := s.streaks.Update(ctx, &streak); err != nil {
			return dto.StreakResponse{}, fmt.Errorf("persist streak reset: %w", err)
		}
		s.logger.Info().Uint("user_id", userID).Msg("broken streak reset on read")
	}

	return dto.NewStreakResponse(streak), nil
}

func (s *streakService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	// Fetch unbounded and truncate after filtering. Limiting in the query
	// would let streaks broken since the last sweep shrink the board below
	// the requested size while eligible users sit past the window.
	streaks, err := s.streaks.ListActive(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	entries := make([]dto.LeaderboardEntry, 0, len(streaks))
	for _, streak := range streaks {
		if s.isBroken(streak) {
			continue
		}
		entries = append(entries, dto.LeaderboardEntry{
			UserID:             streak.UserID,
			Name:               streak.User.Name,
			CurrentStreak:      streak.CurrentStreak,
			LongestStreak:      streak.LongestStreak,
			TotalCompletedDays: streak.TotalCompletedDays,
		})
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (s *streakService) ResetInactiveStreaks(ctx context.Context) (int, error) {
	streaks, err := s.streaks.ListActive(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("load active streaks: %w", err)
	}

	resets := 0
	for _, streak := range streaks {
		if !s.isBroken(streak) {
			continue
		}

		streak.CurrentStreak = 0
		streak.StreakStartDate = nil
		if err := s.streaks.Update(ctx, &streak); err != nil {
			s.logger.Error().Err(err).Uint("user_id", streak.UserID).Msg("failed to reset inactive streak")
			continue
		}
		resets++
	}

	s.logger.Info().Int("resets", resets).Msg("inactive streak sweep finished")
	return resets, nil
}

func (s *streakService) ResyncFromHistory(ctx context.Context, userID uint) (dto.StreakResponse, error) {
	scores, err := s.taskScores.List(ctx, repository.TaskScoreFilter{
		UserID:        &userID,
		CompletedOnly: true,
	})
	if err != nil {
		return dto.StreakResponse{}, fmt.Errorf("load completion history: %w", err)
	}

	days := map[string]struct{}{}
	for _, score := range scores {
		if score.CompletedAt == nil {
			continue
		}
		days[s.day(*score.CompletedAt)] = struct{}{}
	}

	rebuilt := s.rebuildFromDays(userID, days)

	streak, err := s.streaks.GetByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StreakResponse{}, fmt.Errorf("load streak: %w", err)
		}
		if err := s.streaks.Create(ctx, &rebuilt); err != nil {
			return dto.StreakResponse{}, fmt.Errorf("create streak: %w", err)
		}
		return dto.NewStreakResponse(rebuilt), nil
	}

	streak.CurrentStreak = rebuilt.CurrentStreak
	streak.LongestStreak = rebuilt.LongestStreak
	streak.TotalCompletedDays = rebuilt.TotalCompletedDays
	streak.LastCompletionDate = rebuilt.LastCompletionDate
	streak.StreakStartDate = rebuilt.StreakStartDate

	if err := s.streaks.Update(ctx, &streak); err != nil {
		return dto.StreakResponse{}, fmt.Errorf("update streak: %w", err)
	}

	s.logger.Info().Uint("user_id", userID).Int("days", len(days)).Msg("streak resynced from history")
	return dto.NewStreakResponse(streak), nil
}

// rebuildFromDays replays the set of completion days in order and derives
// the streak counters as if each day had been registered live.
func (s *streakService) rebuildFromDays(userID uint, days map[string]struct{}) models.UserStreak {
	streak := models.UserStreak{UserID: userID}
	if len(days) == 0 {
		return streak
	}

	ordered := make([]time.Time, 0, len(days))
	for day := range days {
		t, err := time.ParseInLocation(dateLayout, day, s.location)
		if err != nil {
			continue
		}
		ordered = append(ordered, t)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	current := 0
	longest := 0
	var runStart, prev time.Time
	var lastDay, startDay string

	for i, day := range ordered {
		if i == 0 || !day.Equal(prev.AddDate(0, 0, 1)) {
			current = 1
			runStart = day
		} else {
			current++
		}
		if current > longest {
			longest = current
		}
		prev = day
	}

	lastDay = prev.Format(dateLayout)
	startDay = runStart.Format(dateLayout)

	streak.TotalCompletedDays = len(ordered)
	streak.LongestStreak = longest
	streak.LastCompletionDate = &lastDay

	today := s.day(s.now())
	yesterday := s.yesterdayOf(today)
	if lastDay == today || lastDay == yesterday {
		streak.CurrentStreak = current
		streak.StreakStartDate = &startDay
	}
	return streak
}

func (s *streakService) isBroken(streak models.UserStreak) bool {
	if streak.CurrentStreak == 0 {
		return true
	}
	if streak.LastCompletionDate == nil {
		return true
	}

	today := s.day(s.now())
	last := *streak.LastCompletionDate
	return last != today && last != s.yesterdayOf(today)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/promptpal/promptpal-api/internal/models"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	location, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return location
}

func newStreakFixture(t *testing.T, now time.Time, streaks ...models.UserStreak) (StreakService, *fakeStreakRepo, *fakeTaskScoreRepo) {
	t.Helper()

	streakRepo := newFakeStreakRepo(streaks...)
	taskScores := newFakeTaskScoreRepo()
	svc := NewStreakService(streakRepo, taskScores, berlin(t), testLogger())
	svc.(*streakService).now = func() time.Time { return now }
	return svc, streakRepo, taskScores
}

func TestRegisterCompletionStartsStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, now)

	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, now))

	streak, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, streak.CurrentStreak)
	require.Equal(t, 1, streak.LongestStreak)
	require.Equal(t, 1, streak.TotalCompletedDays)
	require.Equal(t, "2026-03-10", *streak.LastCompletionDate)
	require.Equal(t, "2026-03-10", *streak.StreakStartDate)
}

func TestRegisterCompletionSameDayCountsOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, now)

	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, now))
	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, now.Add(6*time.Hour)))

	streak, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, streak.CurrentStreak)
	require.Equal(t, 1, streak.TotalCompletedDays)
}

func TestRegisterCompletionConsecutiveDays(t *testing.T) {
	day1 := time.Date(2026, 3, 9, 23, 30, 0, 0, berlin(t))
	day2 := time.Date(2026, 3, 10, 0, 30, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, day2)

	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, day1))
	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, day2))

	streak, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, streak.CurrentStreak)
	require.Equal(t, 2, streak.LongestStreak)
	require.Equal(t, 2, streak.TotalCompletedDays)
	require.Equal(t, "2026-03-09", *streak.StreakStartDate)
}

func TestRegisterCompletionGapResetsRun(t *testing.T) {
	day1 := time.Date(2026, 3, 5, 12, 0, 0, 0, berlin(t))
	day2 := time.Date(2026, 3, 6, 12, 0, 0, 0, berlin(t))
	day4 := time.Date(2026, 3, 8, 12, 0, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, day4)

	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, day1))
	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, day2))
	require.NoError(t, svc.RegisterCompletion(context.Background(), 1, day4))

	streak, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, streak.CurrentStreak)
	require.Equal(t, 2, streak.LongestStreak)
	require.Equal(t, 3, streak.TotalCompletedDays)
	require.Equal(t, "2026-03-08", *streak.StreakStartDate)
}

func TestGetStreakResetsBrokenRun(t *testing.T) {
	lastDay := "2026-03-05"
	startDay := "2026-03-01"
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, now, models.UserStreak{
		UserID:             1,
		CurrentStreak:      5,
		LongestStreak:      7,
		TotalCompletedDays: 12,
		LastCompletionDate: &lastDay,
		StreakStartDate:    &startDay,
	})

	streak, err := svc.GetStreak(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, streak.CurrentStreak)
	require.Equal(t, 7, streak.LongestStreak)
	require.Equal(t, 12, streak.TotalCompletedDays)
	require.Nil(t, streak.StreakStartDate)

	// The reset must be stored, not just reflected in the response.
	stored, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, stored.CurrentStreak)
	require.Equal(t, 7, stored.LongestStreak)
	require.Nil(t, stored.StreakStartDate)
	require.Equal(t, lastDay, *stored.LastCompletionDate)
}

func TestGetStreakYesterdayStillCounts(t *testing.T) {
	lastDay := "2026-03-09"
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, berlin(t))
	svc, _, _ := newStreakFixture(t, now, models.UserStreak{
		UserID:             1,
		CurrentStreak:      4,
		LongestStreak:      4,
		LastCompletionDate: &lastDay,
	})

	streak, err := svc.GetStreak(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 4, streak.CurrentStreak)
}

func TestGetStreakCreatesZeroedRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, now)

	streak, err := svc.GetStreak(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 0, streak.CurrentStreak)
	require.Nil(t, streak.LastCompletionDate)

	stored, err := repo.GetByUser(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 0, stored.CurrentStreak)
	require.Equal(t, 0, stored.TotalCompletedDays)
}

func TestResetInactiveStreaks(t *testing.T) {
	stale := "2026-03-05"
	fresh := "2026-03-09"
	now := time.Date(2026, 3, 10, 0, 10, 0, 0, berlin(t))
	svc, repo, _ := newStreakFixture(t, now,
		models.UserStreak{UserID: 1, CurrentStreak: 5, LongestStreak: 5, LastCompletionDate: &stale, StreakStartDate: &stale},
		models.UserStreak{UserID: 2, CurrentStreak: 3, LongestStreak: 3, LastCompletionDate: &fresh, StreakStartDate: &fresh},
	)

	resets, err := svc.ResetInactiveStreaks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resets)

	broken, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, broken.CurrentStreak)
	require.Equal(t, 5, broken.LongestStreak)
	require.Nil(t, broken.StreakStartDate)

	intact, err := repo.GetByUser(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 3, intact.CurrentStreak)
}

func TestResyncFromHistory(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, berlin(t))
	svc, repo, taskScores := newStreakFixture(t, now)

	days := []time.Time{
		time.Date(2026, 3, 6, 10, 0, 0, 0, berlin(t)),
		time.Date(2026, 3, 9, 10, 0, 0, 0, berlin(t)),
		time.Date(2026, 3, 10, 10, 0, 0, 0, berlin(t)),
	}
	for i, day := range days {
		completedAt := day
		require.NoError(t, taskScores.Save(context.Background(), &models.TaskScore{
			UserID:      1,
			TaskID:      uint(i + 1),
			Score:       4,
			IsCompleted: true,
			CompletedAt: &completedAt,
		}))
	}

	streak, err := svc.ResyncFromHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, streak.CurrentStreak)
	require.Equal(t, 2, streak.LongestStreak)
	require.Equal(t, 3, streak.TotalCompletedDays)
	require.Equal(t, "2026-03-10", *streak.LastCompletionDate)
	require.Equal(t, "2026-03-09", *streak.StreakStartDate)

	stored, err := repo.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, stored.CurrentStreak)
}

func TestLeaderboardSkipsFreshlyBrokenStreaks(t *testing.T) {
	stale := "2026-03-01"
	fresh := "2026-03-10"
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, berlin(t))
	svc, _, _ := newStreakFixture(t, now,
		models.UserStreak{UserID: 1, CurrentStreak: 9, LongestStreak: 9, LastCompletionDate: &stale, User: models.AppUser{ID: 1, Name: "Stale"}},
		models.UserStreak{UserID: 2, CurrentStreak: 3, LongestStreak: 4, LastCompletionDate: &fresh, User: models.AppUser{ID: 2, Name: "Fresh"}},
	)

	entries, err := svc.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint(2), entries[0].UserID)
	require.Equal(t, "Fresh", entries[0].Name)
}

func TestLeaderboardFillsLimitPastBrokenStreaks(t *testing.T) {
	stale := "2026-03-01"
	fresh := "2026-03-10"
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, berlin(t))
	svc, _, _ := newStreakFixture(t, now,
		models.UserStreak{UserID: 1, CurrentStreak: 9, LongestStreak: 9, LastCompletionDate: &stale, User: models.AppUser{ID: 1, Name: "Stale"}},
		models.UserStreak{UserID: 2, CurrentStreak: 5, LongestStreak: 6, LastCompletionDate: &fresh, User: models.AppUser{ID: 2, Name: "Second"}},
		models.UserStreak{UserID: 3, CurrentStreak: 3, LongestStreak: 4, LastCompletionDate: &fresh, User: models.AppUser{ID: 3, Name: "Third"}},
	)

	// The broken top entry must not eat a slot: users past the cut still fill
	// the board up to the requested size.
	entries, err := svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint(2), entries[0].UserID)
	require.Equal(t, uint(3), entries[1].UserID)
}

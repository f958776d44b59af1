package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AppUser{},
		&models.Task{},
		&models.Submission{},
		&models.TaskScore{},
		&models.UserStreak{},
	))
	return db
}

func TestTaskScoreRepositoryUpsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskScoreRepository(db)

	now := time.Now()
	submissionID := uint(11)
	score := models.TaskScore{
		UserID:          1,
		TaskID:          2,
		Score:           3.5,
		PercentageScore: 70,
		Attempts:        1,
		IsCompleted:     true,
		CompletedAt:     &now,
		SubmissionID:    &submissionID,
	}
	require.NoError(t, repo.Save(context.Background(), &score))

	loaded, err := repo.GetByUserAndTask(context.Background(), 1, 2)
	require.NoError(t, err)
	require.InDelta(t, 3.5, loaded.Score, 1e-9)

	loaded.Score = 4.5
	loaded.Attempts = 2
	require.NoError(t, repo.Save(context.Background(), &loaded))

	updated, err := repo.GetByUserAndTask(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, score.ID, updated.ID)
	require.InDelta(t, 4.5, updated.Score, 1e-9)
	require.Equal(t, 2, updated.Attempts)

	var count int64
	require.NoError(t, db.Model(&models.TaskScore{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestTaskScoreRepositoryDuplicatePairRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskScoreRepository(db)

	require.NoError(t, repo.Save(context.Background(), &models.TaskScore{UserID: 1, TaskID: 2, Score: 3}))
	err := repo.Save(context.Background(), &models.TaskScore{UserID: 1, TaskID: 2, Score: 4})
	require.Error(t, err, "second row for the same (user, task) must hit the unique index")
}

func TestTaskScoreRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskScoreRepository(db)

	require.NoError(t, repo.Save(context.Background(), &models.TaskScore{UserID: 1, TaskID: 1, Score: 4, IsCompleted: true}))
	require.NoError(t, repo.Save(context.Background(), &models.TaskScore{UserID: 2, TaskID: 1, Score: 2, IsCompleted: true}))
	require.NoError(t, repo.Save(context.Background(), &models.TaskScore{UserID: 3, TaskID: 1, Score: 1, IsCompleted: false}))

	completed, err := repo.List(context.Background(), TaskScoreFilter{CompletedOnly: true})
	require.NoError(t, err)
	require.Len(t, completed, 2)

	exclude := uint(2)
	others, err := repo.List(context.Background(), TaskScoreFilter{ExcludeUserID: &exclude, CompletedOnly: true})
	require.NoError(t, err)
	require.Len(t, others, 1)
	require.Equal(t, uint(1), others[0].UserID)
}

func TestSubmissionRepositoryLatestScored(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)

	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	older := models.Submission{ReferenceID: "ref-1", UserID: 1, TaskID: 2, Status: models.SubmissionStatusScored, CreatedAt: base}
	newer := models.Submission{ReferenceID: "ref-2", UserID: 1, TaskID: 2, Status: models.SubmissionStatusScored, CreatedAt: base.Add(time.Hour)}
	pending := models.Submission{ReferenceID: "ref-3", UserID: 1, TaskID: 2, Status: models.SubmissionStatusPending, CreatedAt: base.Add(2 * time.Hour)}
	for _, submission := range []*models.Submission{&older, &newer, &pending} {
		require.NoError(t, repo.Create(context.Background(), submission))
	}

	latest, err := repo.LatestScored(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, newer.ID, latest.ID, "unjudged attempts never shadow the latest scored one")

	_, err = repo.LatestScored(context.Background(), 9, 2)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStreakRepositoryListActiveOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStreakRepository(db)

	require.NoError(t, db.Create(&models.AppUser{Name: "A", Email: "a@example.com"}).Error)
	require.NoError(t, db.Create(&models.AppUser{Name: "B", Email: "b@example.com"}).Error)
	require.NoError(t, db.Create(&models.AppUser{Name: "C", Email: "c@example.com"}).Error)

	require.NoError(t, repo.Create(context.Background(), &models.UserStreak{UserID: 1, CurrentStreak: 3, LongestStreak: 5}))
	require.NoError(t, repo.Create(context.Background(), &models.UserStreak{UserID: 2, CurrentStreak: 3, LongestStreak: 8}))
	require.NoError(t, repo.Create(context.Background(), &models.UserStreak{UserID: 3, CurrentStreak: 0, LongestStreak: 9}))

	streaks, err := repo.ListActive(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, streaks, 2, "broken streaks stay off the board")
	require.Equal(t, uint(2), streaks[0].UserID, "longest streak breaks the tie")
	require.Equal(t, uint(1), streaks[1].UserID)
}

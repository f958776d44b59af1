package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/promptpal/promptpal-api/internal/models"
)

func seedStatsData(t *testing.T) (*fakeTaskScoreRepo, *fakeSubmissionRepo) {
	t.Helper()

	submissions := newFakeSubmissionRepo(
		models.Submission{ID: 1, UserID: 1, TaskID: 7, Status: models.SubmissionStatusScored,
			Result: datatypes.JSON(`{"criteria":{"1":{"subquestions":{"10":{"score":4,"feedback":""}}}}}`)},
		models.Submission{ID: 2, UserID: 2, TaskID: 7, Status: models.SubmissionStatusScored,
			Result: datatypes.JSON(`{"criteria":{"1":{"subquestions":{"10":{"score":2,"feedback":""}}}}}`)},
	)

	taskScores := newFakeTaskScoreRepo()
	one, two := uint(1), uint(2)
	require.NoError(t, taskScores.Save(context.Background(), &models.TaskScore{
		UserID: 1, TaskID: 7, Score: 4, IsCompleted: true, SubmissionID: &one,
	}))
	require.NoError(t, taskScores.Save(context.Background(), &models.TaskScore{
		UserID: 2, TaskID: 7, Score: 2, IsCompleted: true, SubmissionID: &two,
	}))

	return taskScores, submissions
}

func TestAverageScores(t *testing.T) {
	taskScores, submissions := seedStatsData(t)
	svc := NewStatsService(taskScores, submissions, nil, time.Minute, testLogger())

	response, err := svc.AverageScores(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, response.ContributingUsers)
	require.Len(t, response.TaskAverages, 1)
	require.Equal(t, uint(7), response.TaskAverages[0].TaskID)
	require.InDelta(t, 3.0, response.TaskAverages[0].AverageScore, 1e-9)
	require.Equal(t, 2, response.TaskAverages[0].SubmissionCount)

	require.Len(t, response.CriteriaAverages, 1)
	require.Equal(t, "1", response.CriteriaAverages[0].CriterionID)
	require.InDelta(t, 3.0, response.CriteriaAverages[0].AverageScore, 1e-9)
}

func TestAverageScoresExcludesUser(t *testing.T) {
	taskScores, submissions := seedStatsData(t)
	svc := NewStatsService(taskScores, submissions, nil, time.Minute, testLogger())

	exclude := uint(2)
	response, err := svc.AverageScores(context.Background(), &exclude)
	require.NoError(t, err)
	require.Equal(t, 1, response.ContributingUsers)
	require.InDelta(t, 4.0, response.TaskAverages[0].AverageScore, 1e-9)
	require.Equal(t, &exclude, response.ExcludedUserID)
}

func TestAverageScoresSkipsMalformedResults(t *testing.T) {
	taskScores, submissions := seedStatsData(t)
	require.NoError(t, submissions.SaveResult(context.Background(), 2, datatypes.JSON(`"not an object"`), models.SubmissionStatusScored))

	svc := NewStatsService(taskScores, submissions, nil, time.Minute, testLogger())

	response, err := svc.AverageScores(context.Background(), nil)
	require.NoError(t, err)
	// The task average still counts both scores; only the criterion
	// breakdown loses the malformed contribution.
	require.InDelta(t, 3.0, response.TaskAverages[0].AverageScore, 1e-9)
	require.Equal(t, 1, response.CriteriaAverages[0].SubmissionCount)
	require.InDelta(t, 4.0, response.CriteriaAverages[0].AverageScore, 1e-9)
}

func TestAverageScoresServedFromCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	taskScores, submissions := seedStatsData(t)
	svc := NewStatsService(taskScores, submissions, redisClient, time.Minute, testLogger())

	first, err := svc.AverageScores(context.Background(), nil)
	require.NoError(t, err)

	// New data after the first computation must not show up until the TTL
	// or an explicit invalidation.
	require.NoError(t, taskScores.Save(context.Background(), &models.TaskScore{
		UserID: 3, TaskID: 7, Score: 5, IsCompleted: true,
	}))

	cached, err := svc.AverageScores(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, first.TaskAverages[0].AverageScore, cached.TaskAverages[0].AverageScore)
	require.Equal(t, first.ContributingUsers, cached.ContributingUsers)

	require.NoError(t, svc.InvalidateCache(context.Background()))

	refreshed, err := svc.AverageScores(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 3, refreshed.ContributingUsers)
}

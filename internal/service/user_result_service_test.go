package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/promptpal/promptpal-api/internal/models"
)

func newResultFixture(t *testing.T) (UserResultService, *fakeSubmissionRepo, *fakeUserRepo) {
	t.Helper()

	location := berlin(t)
	day1 := "2026-03-09"
	day2 := "2026-03-10"

	tasks := newFakeTaskRepo(
		models.Task{ID: 1, Name: "First", Kind: models.TaskKindText, ActiveDate: &day1},
		models.Task{ID: 2, Name: "Second", Kind: models.TaskKindText, ActiveDate: &day2},
	)
	users := newFakeUserRepo(models.AppUser{ID: 1, Email: "user@example.com"})
	submissions := newFakeSubmissionRepo()

	svc := NewUserResultService(tasks, submissions, users, location, testLogger())
	svc.(*userResultService).now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, location)
	}
	return svc, submissions, users
}

func addScoredSubmission(t *testing.T, submissions *fakeSubmissionRepo, userID, taskID uint, raw string) {
	t.Helper()

	submission := models.Submission{
		UserID: userID,
		TaskID: taskID,
		Status: models.SubmissionStatusScored,
		Result: datatypes.JSON(raw),
	}
	require.NoError(t, submissions.Create(context.Background(), &submission))
}

func TestComputeUserResultNullWhileIncomplete(t *testing.T) {
	svc, submissions, _ := newResultFixture(t)

	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":4,"feedback":""}}}}}`)

	result, err := svc.ComputeUserResult(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, result.Score)
	require.Len(t, result.TaskResults, 1)
}

func TestComputeUserResultMeanWhenComplete(t *testing.T) {
	svc, submissions, _ := newResultFixture(t)

	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":4,"feedback":""}}}}}`)
	addScoredSubmission(t, submissions, 1, 2,
		`{"criteria":{"1":{"subquestions":{"10":{"score":2,"feedback":""}}}}}`)

	result, err := svc.ComputeUserResult(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, result.Score)
	require.InDelta(t, 3.0, *result.Score, 1e-9)
	require.Len(t, result.TaskResults, 2)
}

func TestComputeUserResultUsesLatestJudgedSubmission(t *testing.T) {
	svc, submissions, _ := newResultFixture(t)

	// The newest judged submission defines the task result even when an
	// earlier attempt scored higher.
	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":5,"feedback":""}}}}}`)
	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":2,"feedback":""}}}}}`)
	addScoredSubmission(t, submissions, 1, 2,
		`{"criteria":{"1":{"subquestions":{"10":{"score":4,"feedback":""}}}}}`)

	result, err := svc.ComputeUserResult(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, result.Score)
	require.InDelta(t, 3.0, *result.Score, 1e-9)
}

func TestComputeUserResultIgnoresUnjudgedSubmissions(t *testing.T) {
	svc, submissions, _ := newResultFixture(t)

	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":4,"feedback":""}}}}}`)

	// A newer attempt still waiting for the judge does not replace the
	// latest judged one.
	pending := models.Submission{UserID: 1, TaskID: 1, Status: models.SubmissionStatusPending}
	require.NoError(t, submissions.Create(context.Background(), &pending))

	result, err := svc.ComputeUserResult(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result.TaskResults, 1)
	require.InDelta(t, 4.0, result.TaskResults[0].Score, 1e-9)
}

func TestComputeUserResultUnknownUser(t *testing.T) {
	svc, _, _ := newResultFixture(t)

	_, err := svc.ComputeUserResult(context.Background(), 99)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefreshCachedScore(t *testing.T) {
	svc, submissions, users := newResultFixture(t)

	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":5,"feedback":""}}}}}`)
	addScoredSubmission(t, submissions, 1, 2,
		`{"criteria":{"1":{"subquestions":{"10":{"score":3,"feedback":""}}}}}`)

	require.NoError(t, svc.RefreshCachedScore(context.Background(), 1))

	user, err := users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, user.CachedScore)
	require.InDelta(t, 4.0, *user.CachedScore, 1e-9)
}

func TestRefreshCachedScoreClearsWhileIncomplete(t *testing.T) {
	svc, submissions, users := newResultFixture(t)

	addScoredSubmission(t, submissions, 1, 1,
		`{"criteria":{"1":{"subquestions":{"10":{"score":5,"feedback":""}}}}}`)

	require.NoError(t, svc.RefreshCachedScore(context.Background(), 1))

	user, err := users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, user.CachedScore)
}

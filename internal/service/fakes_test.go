package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/models"
	"github.com/promptpal/promptpal-api/internal/repository"
	"github.com/promptpal/promptpal-api/pkg/judge"
	"github.com/promptpal/promptpal-api/pkg/mailer"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeTaskRepo struct {
	tasks map[uint]models.Task
}

func newFakeTaskRepo(tasks ...models.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: map[uint]models.Task{}}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id uint) (models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]models.Task, error) {
	var tasks []models.Task
	for _, task := range r.tasks {
		if filter.ActiveDate != nil {
			if task.ActiveDate == nil || *task.ActiveDate != *filter.ActiveDate {
				continue
			}
		}
		if filter.ScheduledOnly && task.ActiveDate == nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

type fakeCriterionRepo struct {
	criteria []models.Criterion
}

func (r *fakeCriterionRepo) ListWithSubquestions(_ context.Context) ([]models.Criterion, error) {
	var out []models.Criterion
	for _, criterion := range r.criteria {
		if len(criterion.Subquestions) > 0 {
			out = append(out, criterion)
		}
	}
	return out, nil
}

func (r *fakeCriterionRepo) List(_ context.Context) ([]models.Criterion, error) {
	return r.criteria, nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uint]models.AppUser
	nextID uint
}

func newFakeUserRepo(users ...models.AppUser) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[uint]models.AppUser{}, nextID: 1}
	for _, user := range users {
		repo.users[user.ID] = user
		if user.ID >= repo.nextID {
			repo.nextID = user.ID + 1
		}
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.AppUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (models.AppUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return models.AppUser{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (models.AppUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.AppUser{}, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]models.AppUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []models.AppUser
	for _, user := range r.users {
		users = append(users, user)
	}
	return users, nil
}

func (r *fakeUserRepo) UpdateCachedScore(_ context.Context, id uint, score *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.CachedScore = score
	r.users[id] = user
	return nil
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	nextID      uint
}

func newFakeSubmissionRepo(submissions ...models.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: map[uint]models.Submission{}, nextID: 1}
	for _, submission := range submissions {
		repo.submissions[submission.ID] = submission
		if submission.ID >= repo.nextID {
			repo.nextID = submission.ID + 1
		}
	}
	return repo
}

func (r *fakeSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission.ID = r.nextID
	r.nextID++
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *fakeSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var submissions []models.Submission
	for _, submission := range r.submissions {
		if filter.UserID != nil && submission.UserID != *filter.UserID {
			continue
		}
		if filter.TaskID != nil && submission.TaskID != *filter.TaskID {
			continue
		}
		if filter.Status != nil && submission.Status != *filter.Status {
			continue
		}
		submissions = append(submissions, submission)
	}
	return submissions, nil
}

func (r *fakeSubmissionRepo) LatestScored(_ context.Context, userID, taskID uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest models.Submission
	found := false
	for _, submission := range r.submissions {
		if submission.UserID != userID || submission.TaskID != taskID {
			continue
		}
		if submission.Status != models.SubmissionStatusScored {
			continue
		}
		if !found || submission.CreatedAt.After(latest.CreatedAt) ||
			(submission.CreatedAt.Equal(latest.CreatedAt) && submission.ID > latest.ID) {
			latest = submission
			found = true
		}
	}
	if !found {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *fakeSubmissionRepo) UpdateStatus(_ context.Context, id uint, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Status = status
	r.submissions[id] = submission
	return nil
}

func (r *fakeSubmissionRepo) SaveResult(_ context.Context, id uint, result datatypes.JSON, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Result = result
	submission.Status = status
	r.submissions[id] = submission
	return nil
}

type fakeTaskScoreRepo struct {
	mu     sync.Mutex
	scores map[uint]models.TaskScore
	nextID uint
}

func newFakeTaskScoreRepo() *fakeTaskScoreRepo {
	return &fakeTaskScoreRepo{scores: map[uint]models.TaskScore{}, nextID: 1}
}

func (r *fakeTaskScoreRepo) GetByUserAndTask(_ context.Context, userID, taskID uint) (models.TaskScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, score := range r.scores {
		if score.UserID == userID && score.TaskID == taskID {
			return score, nil
		}
	}
	return models.TaskScore{}, gorm.ErrRecordNotFound
}

func (r *fakeTaskScoreRepo) Save(_ context.Context, score *models.TaskScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if score.ID == 0 {
		score.ID = r.nextID
		r.nextID++
	}
	r.scores[score.ID] = *score
	return nil
}

func (r *fakeTaskScoreRepo) List(_ context.Context, filter repository.TaskScoreFilter) ([]models.TaskScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var scores []models.TaskScore
	for _, score := range r.scores {
		if filter.UserID != nil && score.UserID != *filter.UserID {
			continue
		}
		if filter.ExcludeUserID != nil && score.UserID == *filter.ExcludeUserID {
			continue
		}
		if filter.CompletedOnly && !score.IsCompleted {
			continue
		}
		scores = append(scores, score)
	}
	return scores, nil
}

type fakeStreakRepo struct {
	mu      sync.Mutex
	streaks map[uint]models.UserStreak
	nextID  uint
}

func newFakeStreakRepo(streaks ...models.UserStreak) *fakeStreakRepo {
	repo := &fakeStreakRepo{streaks: map[uint]models.UserStreak{}, nextID: 1}
	for _, streak := range streaks {
		if streak.ID == 0 {
			streak.ID = repo.nextID
		}
		repo.streaks[streak.UserID] = streak
		if streak.ID >= repo.nextID {
			repo.nextID = streak.ID + 1
		}
	}
	return repo
}

func (r *fakeStreakRepo) GetByUser(_ context.Context, userID uint) (models.UserStreak, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	streak, ok := r.streaks[userID]
	if !ok {
		return models.UserStreak{}, gorm.ErrRecordNotFound
	}
	return streak, nil
}

func (r *fakeStreakRepo) Create(_ context.Context, streak *models.UserStreak) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	streak.ID = r.nextID
	r.nextID++
	r.streaks[streak.UserID] = *streak
	return nil
}

func (r *fakeStreakRepo) Update(_ context.Context, streak *models.UserStreak) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streaks[streak.UserID] = *streak
	return nil
}

func (r *fakeStreakRepo) ListActive(_ context.Context, limit int) ([]models.UserStreak, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var streaks []models.UserStreak
	for _, streak := range r.streaks {
		if streak.CurrentStreak > 0 {
			streaks = append(streaks, streak)
		}
	}
	sort.Slice(streaks, func(i, j int) bool {
		if streaks[i].CurrentStreak != streaks[j].CurrentStreak {
			return streaks[i].CurrentStreak > streaks[j].CurrentStreak
		}
		if streaks[i].LongestStreak != streaks[j].LongestStreak {
			return streaks[i].LongestStreak > streaks[j].LongestStreak
		}
		return streaks[i].UserID < streaks[j].UserID
	})
	if limit > 0 && len(streaks) > limit {
		streaks = streaks[:limit]
	}
	return streaks, nil
}

type fakeJudge struct {
	reply       json.RawMessage
	err         error
	textCalls   int
	imageCalls  int
	lastText    judge.TextRequest
	lastImagery judge.ImageRequest
}

func (j *fakeJudge) EvaluateText(_ context.Context, req judge.TextRequest) (json.RawMessage, error) {
	j.textCalls++
	j.lastText = req
	return j.reply, j.err
}

func (j *fakeJudge) EvaluateImagePair(_ context.Context, req judge.ImageRequest) (json.RawMessage, error) {
	j.imageCalls++
	j.lastImagery = req
	return j.reply, j.err
}

type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []uint
}

func (d *recordingDispatcher) DispatchSubmission(_ context.Context, submissionID uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, submissionID)
	return nil
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
	failFor  map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, message mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor != nil && m.failFor[message.To] {
		return errSendFailed
	}
	m.messages = append(m.messages, message)
	return nil
}

var errSendFailed = errors.New("smtp unavailable")

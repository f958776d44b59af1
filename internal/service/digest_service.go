package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/models"
	"github.com/promptpal/promptpal-api/internal/repository"
	"github.com/promptpal/promptpal-api/pkg/mailer"
)

// DigestService composes and sends participant email: per-user result
// summaries on demand and the daily digest sweep.
type DigestService interface {
	// SendResultsEmail mails one participant their current results.
	SendResultsEmail(ctx context.Context, userID uint) error
	// SendDailyDigest mails every participant sequentially. The sweep is
	// skipped entirely when no task is scheduled for today. One failed
	// recipient never aborts the sweep; the error count is returned.
	SendDailyDigest(ctx context.Context) (sent, failed int, err error)
}

// DigestConfig tunes the digest sweep.
type DigestConfig struct {
	// Pause between consecutive recipients, to stay under relay rate limits.
	Pause       time.Duration
	FrontendURL string
}

type digestService struct {
	users    repository.UserRepository
	tasks    repository.TaskRepository
	results  UserResultService
	streaks  StreakService
	mailer   mailer.Mailer
	policy   *bluemonday.Policy
	config   DigestConfig
	logger   zerolog.Logger
	location *time.Location
	now      func() time.Time
}

// NewDigestService constructs a digest service.
func NewDigestService(
	users repository.UserRepository,
	tasks repository.TaskRepository,
	results UserResultService,
	streaks StreakService,
	sender mailer.Mailer,
	location *time.Location,
	config DigestConfig,
	logger zerolog.Logger,
) DigestService {
	if config.Pause <= 0 {
		config.Pause = 100 * time.Millisecond
	}

	return &digestService{
		users:    users,
		tasks:    tasks,
		results:  results,
		streaks:  streaks,
		mailer:   sender,
		policy:   bluemonday.StrictPolicy(),
		config:   config,
		logger:   logger.With().Str("component", "digest_service").Logger(),
		location: location,
		now:      time.Now,
	}
}

func (s *digestService) SendResultsEmail(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	todays, err := s.todayTasks(ctx)
	if err != nil {
		return err
	}

	return s.send(ctx, user, todays)
}

func (s *digestService) SendDailyDigest(ctx context.Context) (int, int, error) {
	todays, err := s.todayTasks(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(todays) == 0 {
		s.logger.Info().Msg("no tasks scheduled today, digest skipped")
		return 0, 0, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list digest recipients: %w", err)
	}

	sent, failed := 0, 0
	for i, user := range users {
		if err := ctx.Err(); err != nil {
			return sent, failed, err
		}
		if i > 0 {
			time.Sleep(s.config.Pause)
		}

		if err := s.send(ctx, user, todays); err != nil {
			failed++
			s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("digest delivery failed for recipient")
			continue
		}
		sent++
	}

	s.logger.Info().Int("sent", sent).Int("failed", failed).Msg("daily digest finished")
	return sent, failed, nil
}

func (s *digestService) todayTasks(ctx context.Context) ([]models.Task, error) {
	today := s.now().In(s.location).Format(dateLayout)
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{ActiveDate: &today})
	if err != nil {
		return nil, fmt.Errorf("list today's tasks: %w", err)
	}
	return tasks, nil
}

func (s *digestService) send(ctx context.Context, user models.AppUser, todays []models.Task) error {
	result, err := s.results.ComputeUserResult(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("compute results for email: %w", err)
	}

	streak, err := s.streaks.GetStreak(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load streak for email: %w", err)
	}

	message := mailer.Message{
		To:      user.Email,
		Subject: "Your PromptPal results",
		HTML:    s.composeResultsHTML(user.Name, result, streak, todays),
	}

	if err := s.mailer.Send(ctx, message); err != nil {
		return fmt.Errorf("send results email: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("results email sent")
	return nil
}

func (s *digestService) composeResultsHTML(name string, result dto.UserResultResponse, streak dto.StreakResponse, todays []models.Task) string {
	var b strings.Builder

	greeting := "there"
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		greeting = s.policy.Sanitize(trimmed)
	}

	b.WriteString("<h2>Hi " + greeting + ",</h2>")
	b.WriteString("<p>Here is your daily prompt challenge summary for " + s.now().In(s.location).Format("January 2, 2006") + ".</p>")

	if len(todays) > 0 {
		b.WriteString("<p>Today's challenge:</p><ul>")
		for _, task := range todays {
			b.WriteString("<li>" + s.policy.Sanitize(task.Name) + "</li>")
		}
		b.WriteString("</ul>")
	}

	if result.Score != nil {
		b.WriteString(fmt.Sprintf("<p>Your overall score so far: <strong>%.2f / %.0f</strong></p>", *result.Score, 5.0))
	} else {
		b.WriteString("<p>You still have open tasks. Finish them all to unlock your overall score.</p>")
	}

	if streak.CurrentStreak > 0 {
		b.WriteString(fmt.Sprintf("<p>Current streak: <strong>%d day(s)</strong> (longest: %d)</p>", streak.CurrentStreak, streak.LongestStreak))
	}

	if len(result.TaskResults) > 0 {
		b.WriteString("<ul>")
		for _, task := range result.TaskResults {
			b.WriteString(fmt.Sprintf("<li>Task %d: %.2f", task.TaskID, task.Score))
			for _, criterion := range task.CriterionResults {
				for _, sub := range criterion.SubquestionResults {
					feedback := s.policy.Sanitize(strings.TrimSpace(sub.Feedback))
					if feedback == "" {
						continue
					}
					b.WriteString("<br/><em>" + feedback + "</em>")
				}
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}

	if s.config.FrontendURL != "" {
		b.WriteString("<p><a href=\"" + s.config.FrontendURL + "\">Open today's challenge</a></p>")
	}

	return b.String()
}

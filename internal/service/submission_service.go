package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/promptpal/promptpal-api/internal/dto"
	"github.com/promptpal/promptpal-api/internal/models"
	"github.com/promptpal/promptpal-api/internal/queue"
	"github.com/promptpal/promptpal-api/internal/repository"
	"github.com/promptpal/promptpal-api/internal/scoring"
	"github.com/promptpal/promptpal-api/pkg/judge"
)

// ErrTaskNotFound indicates the referenced task does not exist.
var ErrTaskNotFound = errors.New("task not found")

// ErrUserNotFound indicates the referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSolutionTooShort indicates the solution prompt has too few
// non-whitespace characters.
var ErrSolutionTooShort = errors.New("solution prompt too short")

// ErrUnsupportedImage indicates the uploaded file is not an image.
var ErrUnsupportedImage = errors.New("uploaded file is not an image")

// ErrNotImageTask indicates an image was submitted for a task that is not
// judged by image comparison.
var ErrNotImageTask = errors.New("task does not accept image submissions")

// ErrInvalidJudgeReply indicates the judge reply failed schema validation.
var ErrInvalidJudgeReply = errors.New("judge reply failed schema validation")

// ErrUploadsDisabled indicates no image storage backend is configured.
var ErrUploadsDisabled = errors.New("image uploads are not configured")

// FileUploader stores an uploaded asset and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SubmissionService accepts solutions, runs the asynchronous judging
// pipeline, and applies results to task scores, streaks, and user aggregates.
type SubmissionService interface {
	Submit(ctx context.Context, userID uint, payload dto.SubmitSolutionRequest) (dto.SubmissionResponse, error)
	SubmitImage(ctx context.Context, userID, taskID uint, filename string, file io.Reader) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	// Process is the queue handler: it loads the submission, invokes the
	// external judge, and applies the result. Safe to re-deliver.
	Process(ctx context.Context, submissionID uint)
	// OnJudged validates and applies a raw judge reply. Re-running it for
	// the same submission and reply is a no-op beyond the first application.
	OnJudged(ctx context.Context, submissionID uint, raw json.RawMessage) error
}

// SubmissionConfig carries pipeline tuning knobs.
type SubmissionConfig struct {
	MinSolutionLength int
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	users       repository.UserRepository
	taskScores  repository.TaskScoreRepository
	rubric      RubricService
	judge       judge.Judge
	dispatcher  queue.Dispatcher
	streaks     StreakService
	results     UserResultService
	uploader    FileUploader
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	config      SubmissionConfig
	now         func() time.Time
}

// SubmissionDeps groups the collaborators of the submission pipeline.
type SubmissionDeps struct {
	Submissions repository.SubmissionRepository
	Tasks       repository.TaskRepository
	Users       repository.UserRepository
	TaskScores  repository.TaskScoreRepository
	Rubric      RubricService
	Judge       judge.Judge
	Dispatcher  queue.Dispatcher
	Streaks     StreakService
	Results     UserResultService
	Uploader    FileUploader
	Validator   *validator.Validate
	Logger      zerolog.Logger
	Config      SubmissionConfig
}

// NewSubmissionService constructs the submission pipeline.
func NewSubmissionService(deps SubmissionDeps) SubmissionService {
	if deps.Config.MinSolutionLength <= 0 {
		deps.Config.MinSolutionLength = 10
	}

	return &submissionService{
		submissions: deps.Submissions,
		tasks:       deps.Tasks,
		users:       deps.Users,
		taskScores:  deps.TaskScores,
		rubric:      deps.Rubric,
		judge:       deps.Judge,
		dispatcher:  deps.Dispatcher,
		streaks:     deps.Streaks,
		results:     deps.Results,
		uploader:    deps.Uploader,
		validator:   deps.Validator,
		logger:      deps.Logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/promptpal/promptpal-api/internal/service/submission"),
		config:      deps.Config,
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, userID uint, payload dto.SubmitSolutionRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if countNonWhitespace(payload.SolutionPrompt) < s.config.MinSolutionLength {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: need at least %d non-whitespace characters", ErrSolutionTooShort, s.config.MinSolutionLength)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrUserNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if _, err := s.tasks.GetByID(ctx, payload.TaskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTaskNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		ReferenceID:    uuid.NewString(),
		UserID:         userID,
		TaskID:         payload.TaskID,
		SolutionPrompt: payload.SolutionPrompt,
		Status:         models.SubmissionStatusPending,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.dispatch(ctx, submission.ID)
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) SubmitImage(ctx context.Context, userID, taskID uint, filename string, file io.Reader) (dto.SubmissionResponse, error) {
	if s.uploader == nil {
		return dto.SubmissionResponse{}, ErrUploadsDisabled
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTaskNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if task.Kind != models.TaskKindImage || task.ReferenceImageURL == "" {
		return dto.SubmissionResponse{}, ErrNotImageTask
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrUserNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("read uploaded image: %w", err)
	}

	if kind := mimetype.Detect(content); !strings.HasPrefix(kind.String(), "image/") {
		return dto.SubmissionResponse{}, ErrUnsupportedImage
	}

	imageURL, err := s.uploader.Upload(ctx, filename, bytes.NewReader(content))
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("upload image: %w", err)
	}

	submission := models.Submission{
		ReferenceID:  uuid.NewString(),
		UserID:       userID,
		TaskID:       taskID,
		UserImageURL: imageURL,
		Status:       models.SubmissionStatusPending,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.dispatch(ctx, submission.ID)
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) dispatch(ctx context.Context, submissionID uint) {
	if err := s.dispatcher.DispatchSubmission(ctx, submissionID); err != nil {
		// The submission stays pending; a redelivery or manual re-dispatch
		// picks it up later.
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to dispatch judge job")
	}
}

func (s *submissionService) Process(ctx context.Context, submissionID uint) {
	ctx, span := s.tracer.Start(ctx, "submission.process", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("cannot load submission for judging")
		return
	}

	if submission.HasResult() {
		span.SetAttributes(attribute.Bool("already_scored", true))
		return
	}

	if err := s.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusJudging); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to mark submission judging")
	}

	raw, err := s.runJudge(ctx, submission)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "judge_failed")
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("judge evaluation failed")
		if statusErr := s.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusFailed); statusErr != nil {
			s.logger.Error().Err(statusErr).Uint("submission_id", submission.ID).Msg("failed to mark submission failed")
		}
		return
	}

	if err := s.OnJudged(ctx, submission.ID, raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply_result_failed")
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to apply judge result")
	}
}

func (s *submissionService) runJudge(ctx context.Context, submission models.Submission) (json.RawMessage, error) {
	rubric, err := s.rubric.LoadRubric(ctx)
	if err != nil {
		return nil, err
	}

	schema, err := s.rubric.BuildResponseSchema(rubric)
	if err != nil {
		return nil, err
	}

	rubricJSON, err := s.rubric.RubricJSON(rubric)
	if err != nil {
		return nil, err
	}

	task := submission.Task
	if task.ID == 0 {
		task, err = s.tasks.GetByID(ctx, submission.TaskID)
		if err != nil {
			return nil, err
		}
	}

	if task.Kind == models.TaskKindImage {
		return s.judge.EvaluateImagePair(ctx, judge.ImageRequest{
			TaskName:          task.Name,
			Question:          task.Question,
			RubricJSON:        rubricJSON,
			ResponseSchema:    schema,
			UserImageURL:      submission.UserImageURL,
			ReferenceImageURL: task.ReferenceImageURL,
		})
	}

	return s.judge.EvaluateText(ctx, judge.TextRequest{
		TaskName:       task.Name,
		Question:       task.Question,
		IdealPrompt:    task.IdealPrompt,
		RubricJSON:     rubricJSON,
		ResponseSchema: schema,
		Solution:       submission.SolutionPrompt,
	})
}

func (s *submissionService) OnJudged(ctx context.Context, submissionID uint, raw json.RawMessage) error {
	ctx, span := s.tracer.Start(ctx, "submission.on_judged", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	rubric, err := s.rubric.LoadRubric(ctx)
	if err != nil {
		return err
	}

	if err := s.validateReply(rubric, raw); err != nil {
		return err
	}

	reply, err := scoring.ParseReply(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJudgeReply, err)
	}

	if err := s.submissions.SaveResult(ctx, submission.ID, datatypes.JSON(raw), models.SubmissionStatusScored); err != nil {
		return fmt.Errorf("persist judge result: %w", err)
	}

	taskResult := scoring.NewTaskResult(submission.TaskID, submission.ID, submission.CreatedAt, reply)
	firstCompletion, err := s.applyTaskScore(ctx, submission, taskResult)
	if err != nil {
		return err
	}

	// Streak and cached-score updates are independent best-effort side
	// effects; a failure in one must not roll back the other.
	if firstCompletion {
		if err := s.streaks.RegisterCompletion(ctx, submission.UserID, s.now()); err != nil {
			s.logger.Error().Err(err).Uint("user_id", submission.UserID).Msg("failed to register streak completion")
		}
	}

	if err := s.results.RefreshCachedScore(ctx, submission.UserID); err != nil {
		s.logger.Error().Err(err).Uint("user_id", submission.UserID).Msg("failed to refresh cached user score")
	}

	span.SetAttributes(attribute.Float64("score", taskResult.Score))
	return nil
}

// validateReply checks the raw judge payload against a lenient variant of
// the rubric schema: structure and ids must match exactly, but a null score
// is tolerated because it defaults to the minimum during normalization.
func (s *submissionService) validateReply(rubric []models.Criterion, raw json.RawMessage) error {
	schemaRaw, err := s.rubric.BuildValidationSchema(rubric)
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("judge_reply.json", bytes.NewReader(schemaRaw)); err != nil {
		return fmt.Errorf("compile judge schema: %w", err)
	}
	schema, err := compiler.Compile("judge_reply.json")
	if err != nil {
		return fmt.Errorf("compile judge schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJudgeReply, err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJudgeReply, err)
	}
	return nil
}

// applyTaskScore upserts the (user, task) score with best-attempt-wins
// semantics and reports whether this was the first completed attempt.
func (s *submissionService) applyTaskScore(ctx context.Context, submission models.Submission, result scoring.TaskResult) (bool, error) {
	percentage := scoring.Percentage(result)
	now := s.now()

	record, err := s.taskScores.GetByUserAndTask(ctx, submission.UserID, submission.TaskID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}

		submissionID := submission.ID
		record = models.TaskScore{
			UserID:                  submission.UserID,
			TaskID:                  submission.TaskID,
			Score:                   result.Score,
			PercentageScore:         percentage,
			Attempts:                1,
			IsCompleted:             true,
			CompletedAt:             &now,
			SubmissionID:            &submissionID,
			LastAppliedSubmissionID: &submissionID,
		}
		if err := s.taskScores.Save(ctx, &record); err != nil {
			return false, fmt.Errorf("create task score: %w", err)
		}
		return true, nil
	}

	// Exact replay of an already-applied judge result must not inflate the
	// attempt count.
	if record.LastAppliedSubmissionID == nil || *record.LastAppliedSubmissionID != submission.ID {
		record.Attempts++
	}

	if result.Score > record.Score {
		submissionID := submission.ID
		record.Score = result.Score
		record.PercentageScore = percentage
		record.SubmissionID = &submissionID
		record.CompletedAt = &now
	}

	submissionID := submission.ID
	record.LastAppliedSubmissionID = &submissionID
	record.IsCompleted = true

	if err := s.taskScores.Save(ctx, &record); err != nil {
		return false, fmt.Errorf("update task score: %w", err)
	}
	return false, nil
}

func countNonWhitespace(value string) int {
	count := 0
	for _, r := range value {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

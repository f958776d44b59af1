package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptpal",
		Subsystem: "judge",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of judge evaluation requests",
	}, []string{"model", "mode"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptpal",
		Subsystem: "judge",
		Name:      "evaluation_failures_total",
		Help:      "Number of judge evaluation failures",
	}, []string{"model", "mode"})
)

// OpenAIConfig defines configuration options for the OpenAI judge.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	VisionModel string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIJudge implements Judge against the OpenAI chat completion API using
// strict structured outputs.
type OpenAIJudge struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIJudge builds a new judge using the provided configuration.
func NewOpenAIJudge(cfg OpenAIConfig) (*OpenAIJudge, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	tracer := otel.Tracer("github.com/promptpal/promptpal-api/pkg/judge/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIJudge{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// EvaluateText grades a submitted solution prompt against the rubric and
// returns the raw structured reply.
func (j *OpenAIJudge) EvaluateText(parent context.Context, req TextRequest) (json.RawMessage, error) {
	ctx, span := j.tracer.Start(parent, "judge.evaluate_text", trace.WithAttributes(
		attribute.String("model", j.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       j.cfg.Model,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildTextGuidelines(req),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "My solution:\n" + req.Solution,
			},
		},
		ResponseFormat: responseFormat("prompt_results", req.ResponseSchema),
	}

	return j.complete(ctx, span, request, j.cfg.Model, "text")
}

// EvaluateImagePair grades a user-generated image against the task's
// reference image using the same structured-output contract.
func (j *OpenAIJudge) EvaluateImagePair(parent context.Context, req ImageRequest) (json.RawMessage, error) {
	ctx, span := j.tracer.Start(parent, "judge.evaluate_image_pair", trace.WithAttributes(
		attribute.String("model", j.cfg.VisionModel),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:     j.cfg.VisionModel,
		MaxTokens: j.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildImageGuidelines(req),
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Please evaluate how well the first image (user's result) matches the second image (expected result) based on the criteria provided.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    req.UserImageURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    req.ReferenceImageURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: responseFormat("image_evaluation_results", req.ResponseSchema),
	}

	return j.complete(ctx, span, request, j.cfg.VisionModel, "image")
}

func (j *OpenAIJudge) complete(ctx context.Context, span trace.Span, request openai.ChatCompletionRequest, model, mode string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, request)
	judgeDuration.WithLabelValues(model, mode).Observe(time.Since(start).Seconds())
	if err != nil {
		judgeFailures.WithLabelValues(model, mode).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("judge evaluate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from judge")
		judgeFailures.WithLabelValues(model, mode).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		err := fmt.Errorf("judge reply is not valid json")
		judgeFailures.WithLabelValues(model, mode).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	j.logger.Debug().Str("model", model).Str("mode", mode).Int("bytes", len(content)).Msg("judge reply received")
	return json.RawMessage(content), nil
}

func responseFormat(name string, schema json.RawMessage) *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	}
}

func buildTextGuidelines(req TextRequest) string {
	builder := strings.Builder{}
	builder.WriteString("You are given a task for a user to write a prompt. ")
	builder.WriteString("Analyze the user's entered solution prompt and score it against the given ideal prompt and criteria. ")
	builder.WriteString("The ideal prompt is just a reference; base your scores mostly on the criteria. ")
	builder.WriteString("Provide a score (from 1 to 5) and feedback (up to 200 characters) for each criterion subquestion, following the output JSON schema. ")
	builder.WriteString("Don't hesitate to provide low scores when needed. ")
	builder.WriteString("If the prompt is irrelevant, e.g. empty or just a set of random words or letters, rate it with score 1. ")
	builder.WriteString("If the prompt is effectively just a reworded copy of the task, rate it with score 1 or 2.")
	builder.WriteString("\n\nTask for the user to write a prompt:\n")
	builder.WriteString(fmt.Sprintf("[%s] %s", req.TaskName, req.Question))
	builder.WriteString("\n\nIdeal prompt:\n")
	builder.WriteString(req.IdealPrompt)
	builder.WriteString("\n\nCriteria (as JSON, key your reply by the \"id\" values):\n")
	builder.Write(req.RubricJSON)
	return builder.String()
}

func buildImageGuidelines(req ImageRequest) string {
	builder := strings.Builder{}
	builder.WriteString("You are an expert image evaluator. Compare two images: the user's generated image and the expected target image. ")
	builder.WriteString("Score how well the user's image matches the expected result using the given criteria.")
	builder.WriteString("\n\nTask the user was trying to accomplish:\n")
	builder.WriteString(fmt.Sprintf("[%s] %s", req.TaskName, req.Question))
	builder.WriteString("\n\nYou will compare the user's generated image (first image) against the expected target image (second image). ")
	builder.WriteString("Consider visual similarity and composition, color scheme and style matching, subject matter accuracy, and overall adherence to the task requirements. ")
	builder.WriteString("Provide a score (from 1 to 5) and feedback (up to 200 characters) for each criterion subquestion, following the output JSON schema. ")
	builder.WriteString("If you report an overall similarity percentage, use these bands: 90-100 nearly identical, 70-89 very similar, 50-69 moderate, 30-49 some similarity, 0-29 very different.")
	builder.WriteString("\n\nCriteria (as JSON, key your reply by the \"id\" values):\n")
	builder.Write(req.RubricJSON)
	return builder.String()
}

package judge

import (
	"context"
	"encoding/json"
)

// TextRequest carries everything needed to grade a submitted solution prompt.
type TextRequest struct {
	TaskName    string
	Question    string
	IdealPrompt string
	// RubricJSON is the serialized rubric (ids + questions) embedded in the
	// judge instructions so the reply is keyed by id, not display name.
	RubricJSON json.RawMessage
	// ResponseSchema is the strict JSON schema the judge reply must conform to.
	ResponseSchema json.RawMessage
	Solution       string
}

// ImageRequest carries a dual-image comparison evaluation: the user's
// generated image against the task's reference image.
type ImageRequest struct {
	TaskName          string
	Question          string
	RubricJSON        json.RawMessage
	ResponseSchema    json.RawMessage
	UserImageURL      string
	ReferenceImageURL string
}

// Judge describes an external LLM capable of scoring submissions against a
// rubric with a structured-output contract.
type Judge interface {
	EvaluateText(ctx context.Context, req TextRequest) (json.RawMessage, error)
	EvaluateImagePair(ctx context.Context, req ImageRequest) (json.RawMessage, error)
}

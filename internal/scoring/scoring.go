// Package scoring turns raw judge replies into clamped, averaged results.
// All functions are pure and deterministic.
package scoring

import (
	"math"
	"sort"
	"time"
)

const (
	// MinScore is the lowest score a subquestion can receive. Missing or
	// out-of-range judge scores clamp to this value rather than being
	// rejected.
	MinScore = 1.0
	// MaxScore is the highest score a subquestion can receive.
	MaxScore = 5.0
)

// SubquestionResult is a clamped judge verdict for one subquestion.
type SubquestionResult struct {
	SubquestionID string  `json:"subquestionId"`
	Score         float64 `json:"score"`
	Feedback      string  `json:"feedback"`
}

// CriterionResult averages the subquestion results of one criterion.
type CriterionResult struct {
	CriterionID        string              `json:"criterionId"`
	Score              float64             `json:"score"`
	SubquestionResults []SubquestionResult `json:"subquestionResults"`
}

// TaskResult averages the criterion results for one judged submission.
type TaskResult struct {
	TaskID           uint              `json:"taskId"`
	SubmissionID     uint              `json:"submissionId"`
	SubmittedAt      time.Time         `json:"submittedAt"`
	Score            float64           `json:"score"`
	CriterionResults []CriterionResult `json:"criterionResults"`
}

// UserResult aggregates task results across a user's in-scope task set.
// Score is nil when at least one in-scope task has no completed result.
type UserResult struct {
	Score       *float64     `json:"score"`
	TaskResults []TaskResult `json:"taskResults"`
}

// Clamp forces a raw judge score into [MinScore, MaxScore].
func Clamp(score float64) float64 {
	return math.Max(MinScore, math.Min(score, MaxScore))
}

// NewSubquestionResult converts a raw judge verdict. A missing score defaults
// to the minimum rather than failing the whole evaluation.
func NewSubquestionResult(subquestionID string, reply SubquestionReply) SubquestionResult {
	result := SubquestionResult{
		SubquestionID: subquestionID,
		Score:         MinScore,
		Feedback:      reply.Feedback,
	}
	if reply.Score != nil {
		result.Score = Clamp(*reply.Score)
	}
	return result
}

// NewCriterionResult averages the subquestion verdicts of one criterion.
// Subquestions are ordered by id so the result is deterministic regardless of
// map iteration order.
func NewCriterionResult(criterionID string, reply CriterionReply) CriterionResult {
	result := CriterionResult{
		CriterionID:        criterionID,
		SubquestionResults: make([]SubquestionResult, 0, len(reply.Subquestions)),
	}

	var total float64
	for _, subquestionID := range sortedKeys(reply.Subquestions) {
		subResult := NewSubquestionResult(subquestionID, reply.Subquestions[subquestionID])
		result.SubquestionResults = append(result.SubquestionResults, subResult)
		total += subResult.Score
	}

	// Divide by max(1, n) so an empty criterion yields 0 instead of NaN.
	result.Score = total / math.Max(1, float64(len(result.SubquestionResults)))
	return result
}

// NewTaskResult averages the criterion results of one judged submission.
func NewTaskResult(taskID, submissionID uint, submittedAt time.Time, reply JudgeReply) TaskResult {
	result := TaskResult{
		TaskID:           taskID,
		SubmissionID:     submissionID,
		SubmittedAt:      submittedAt,
		CriterionResults: make([]CriterionResult, 0, len(reply.Criteria)),
	}

	var total float64
	for _, criterionID := range sortedKeys(reply.Criteria) {
		criterionResult := NewCriterionResult(criterionID, reply.Criteria[criterionID])
		result.CriterionResults = append(result.CriterionResults, criterionResult)
		total += criterionResult.Score
	}

	result.Score = total / math.Max(1, float64(len(result.CriterionResults)))
	return result
}

// NewUserResult aggregates the task results for the given in-scope task ids.
// The score is nil if any in-scope task is unattempted; otherwise it is the
// mean of the present task scores.
func NewUserResult(inScopeTaskIDs []uint, resultsByTask map[uint]TaskResult) UserResult {
	result := UserResult{TaskResults: make([]TaskResult, 0, len(inScopeTaskIDs))}

	complete := true
	var total float64
	for _, taskID := range inScopeTaskIDs {
		taskResult, ok := resultsByTask[taskID]
		if !ok {
			complete = false
			continue
		}
		result.TaskResults = append(result.TaskResults, taskResult)
		total += taskResult.Score
	}

	if complete {
		score := total / math.Max(1, float64(len(inScopeTaskIDs)))
		result.Score = &score
	}
	return result
}

// Percentage converts a task result into a 0-100 score:
// round(100 * criterionScoreSum / (criterionCount * 5)).
func Percentage(result TaskResult) int {
	if len(result.CriterionResults) == 0 {
		return 0
	}
	var total float64
	for _, criterion := range result.CriterionResults {
		total += criterion.Score
	}
	maxPossible := float64(len(result.CriterionResults)) * MaxScore
	return int(math.Round(total / maxPossible * 100))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

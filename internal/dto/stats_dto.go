package dto

// TaskAverage is the population-wide mean score for one task.
type TaskAverage struct {
	TaskID          uint    `json:"task_id"`
	AverageScore    float64 `json:"average_score"`
	SubmissionCount int     `json:"submission_count"`
}

// CriterionAverage is the population-wide mean score for one rubric criterion,
// re-derived from the raw judge replies of contributing submissions.
type CriterionAverage struct {
	CriterionID     string  `json:"criterion_id"`
	AverageScore    float64 `json:"average_score"`
	SubmissionCount int     `json:"submission_count"`
}

// AverageScoresResponse groups population-wide averages per task and per
// criterion, optionally computed with one user excluded.
type AverageScoresResponse struct {
	TaskAverages      []TaskAverage      `json:"task_averages"`
	CriteriaAverages  []CriterionAverage `json:"criteria_averages"`
	ExcludedUserID    *uint              `json:"excluded_user_id,omitempty"`
	ContributingUsers int                `json:"contributing_users"`
}

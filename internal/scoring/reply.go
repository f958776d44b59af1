package scoring

import (
	"encoding/json"
	"fmt"
)

// JudgeReply is the structured evaluation returned by the external judge,
// keyed by criterion id and subquestion id (decimal string forms of the
// rubric primary keys).
type JudgeReply struct {
	Criteria map[string]CriterionReply `json:"criteria"`
}

// CriterionReply groups the judge's subquestion verdicts for one criterion.
type CriterionReply struct {
	Subquestions map[string]SubquestionReply `json:"subquestions"`
}

// SubquestionReply is a single raw judge verdict. Score is a pointer so a
// missing or null score is distinguishable from an explicit value.
type SubquestionReply struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

// ParseReply decodes a raw judge payload into a JudgeReply.
func ParseReply(raw json.RawMessage) (JudgeReply, error) {
	var reply JudgeReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return JudgeReply{}, fmt.Errorf("parse judge reply: %w", err)
	}
	if reply.Criteria == nil {
		return JudgeReply{}, fmt.Errorf("judge reply missing criteria object")
	}
	return reply, nil
}

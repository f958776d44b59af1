package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubjectSubmissionsJudge is the subject judge jobs are published on.
const SubjectSubmissionsJudge = "promptpal.submissions.judge"

type judgeJob struct {
	SubmissionID uint `json:"submission_id"`
}

// NATSDispatcher publishes judge jobs to a NATS subject.
type NATSDispatcher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSDispatcher constructs a NATS-backed dispatcher.
func NewNATSDispatcher(conn *nats.Conn, logger zerolog.Logger) *NATSDispatcher {
	return &NATSDispatcher{
		conn:   conn,
		logger: logger.With().Str("component", "nats_dispatcher").Logger(),
	}
}

// DispatchSubmission publishes a judge job for the given submission.
func (d *NATSDispatcher) DispatchSubmission(ctx context.Context, submissionID uint) error {
	payload, err := json.Marshal(judgeJob{SubmissionID: submissionID})
	if err != nil {
		return fmt.Errorf("marshal judge job: %w", err)
	}

	if err := d.conn.Publish(SubjectSubmissionsJudge, payload); err != nil {
		return fmt.Errorf("publish judge job: %w", err)
	}

	d.logger.Debug().Uint("submission_id", submissionID).Msg("judge job published")
	return nil
}

// Subscribe consumes judge jobs in a queue group so only one worker handles
// each job. The returned unsubscribe function stops consumption.
func Subscribe(conn *nats.Conn, handler Handler, logger zerolog.Logger) (func(), error) {
	workerLogger := logger.With().Str("component", "judge_queue_worker").Logger()

	subscription, err := conn.QueueSubscribe(SubjectSubmissionsJudge, "judge-workers", func(msg *nats.Msg) {
		var job judgeJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			workerLogger.Error().Err(err).Msg("discarding malformed judge job")
			return
		}
		handler(context.Background(), job.SubmissionID)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe judge jobs: %w", err)
	}

	return func() {
		if err := subscription.Unsubscribe(); err != nil {
			workerLogger.Warn().Err(err).Msg("failed to unsubscribe judge worker")
		}
	}, nil
}

// Package queue dispatches judge jobs for accepted submissions. The NATS
// dispatcher gives at-least-once delivery across processes; the inline
// dispatcher runs the handler in a detached goroutine for single-process
// deployments and tests.
package queue

import "context"

// Handler consumes one judge job identified by submission id. Handlers must
// be idempotent: the same job may be delivered more than once.
type Handler func(ctx context.Context, submissionID uint)

// Dispatcher hands accepted submissions to the judging pipeline without
// blocking the request path.
type Dispatcher interface {
	DispatchSubmission(ctx context.Context, submissionID uint) error
}

package queue

import "context"

// InlineDispatcher runs the handler in a detached goroutine. Judge results
// are lost if the process dies mid-evaluation; use the NATS dispatcher when
// durability matters.
type InlineDispatcher struct {
	handler Handler
}

// NewInlineDispatcher constructs an in-process dispatcher.
func NewInlineDispatcher(handler Handler) *InlineDispatcher {
	return &InlineDispatcher{handler: handler}
}

// DispatchSubmission hands the job to the handler without blocking.
func (d *InlineDispatcher) DispatchSubmission(_ context.Context, submissionID uint) error {
	go d.handler(context.Background(), submissionID)
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"wa-webhook/internal/wa"
)

const (
	QueueDefault = "default"

	TypeSendReply = "wa:send_reply"
)

// TaskSendReplyPayload carries one outbound text reply.
type TaskSendReplyPayload struct {
	To        string
	Body      string
	MessageID string // inbound message the reply answers, for log correlation
}

// NewSendReplyTask builds the asynq task for one reply. MaxRetry is 0:
// replies are single-attempt, a failed send is logged and dropped.
func NewSendReplyTask(p TaskSendReplyPayload) (*asynq.Task, []asynq.Option) {
	b, _ := json.Marshal(p)
	t := asynq.NewTask(TypeSendReply, b, asynq.Queue(QueueDefault))
	opts := []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(30 * time.Second),
	}
	return t, opts
}

// EnqueueingSender satisfies the dispatcher's ReplySender by handing
// replies to the asynq queue instead of calling the platform inline.
type EnqueueingSender struct {
	q *asynq.Client
}

func NewEnqueueingSender(q *asynq.Client) *EnqueueingSender {
	return &EnqueueingSender{q: q}
}

func (s *EnqueueingSender) SendText(ctx context.Context, to, body string) error {
	t, opts := NewSendReplyTask(TaskSendReplyPayload{To: to, Body: body})
	if _, err := s.q.EnqueueContext(ctx, t, opts...); err != nil {
		return fmt.Errorf("%w: enqueue reply: %v", wa.ErrDeliveryFailed, err)
	}
	return nil
}

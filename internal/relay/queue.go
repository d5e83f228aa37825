package relay

import (
	"context"
	"errors"
	"sync"

	"prism/internal/domain"
)

// DefaultMailboxLimit caps the envelopes queued per mailbox.
const DefaultMailboxLimit = 1024

// ErrMailboxFull is returned when a mailbox already holds its limit.
var ErrMailboxFull = errors.New("relay: mailbox full")

// Queue stores envelopes per mailbox in arrival order.
type Queue interface {
	Push(ctx context.Context, box string, env domain.Envelope) error
	// Peek returns up to limit envelopes from the head; limit <= 0 means all.
	Peek(ctx context.Context, box string, limit int) ([]domain.Envelope, error)
	// Drop removes up to count envelopes from the head.
	Drop(ctx context.Context, box string, count int) error
}

// MemoryQueue keeps mailboxes in process memory.
type MemoryQueue struct {
	mu    sync.Mutex
	boxes map[string][]domain.Envelope
	max   int
}

// NewMemoryQueue returns an empty queue holding at most max envelopes per
// mailbox; max <= 0 uses DefaultMailboxLimit.
func NewMemoryQueue(max int) *MemoryQueue {
	if max <= 0 {
		max = DefaultMailboxLimit
	}
	return &MemoryQueue{boxes: make(map[string][]domain.Envelope), max: max}
}

func (q *MemoryQueue) Push(_ context.Context, box string, env domain.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.boxes[box]) >= q.max {
		return ErrMailboxFull
	}
	q.boxes[box] = append(q.boxes[box], env)
	return nil
}

func (q *MemoryQueue) Peek(_ context.Context, box string, limit int) ([]domain.Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	queued := q.boxes[box]
	if limit <= 0 || limit > len(queued) {
		limit = len(queued)
	}
	return append([]domain.Envelope(nil), queued[:limit]...), nil
}

func (q *MemoryQueue) Drop(_ context.Context, box string, count int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	queued := q.boxes[box]
	if count >= len(queued) {
		delete(q.boxes, box)
		return nil
	}
	if count > 0 {
		q.boxes[box] = append([]domain.Envelope(nil), queued[count:]...)
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)

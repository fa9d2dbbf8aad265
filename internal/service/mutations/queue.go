package mutations

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueClosed is returned for jobs submitted after Close.
var ErrQueueClosed = errors.New("mutation queue closed")

// Func is a mutation executed on behalf of one stock code.
type Func func(ctx context.Context) error

// Observer receives queue events, typically for metrics.
type Observer interface {
	JobFinished(wait, run time.Duration, err error)
	QueueDepth(pending int)
}

type job struct {
	id       string
	ctx      context.Context
	fn       Func
	done     chan error
	enqueued time.Time
}

// Queue serializes mutations per key. Jobs for the same key run one at a
// time in submission order; jobs for different keys run concurrently.
type Queue struct {
	mu       sync.Mutex
	lanes    map[string][]*job
	pending  int
	closed   bool
	wg       sync.WaitGroup
	logger   *zap.Logger
	observer Observer
}

// NewQueue creates an empty queue. observer may be nil.
func NewQueue(logger *zap.Logger, observer Observer) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		lanes:    make(map[string][]*job),
		logger:   logger,
		observer: observer,
	}
}

// Enqueue schedules fn behind every job already queued for key. The
// returned channel receives exactly one value once fn ran or was skipped.
func (q *Queue) Enqueue(ctx context.Context, key string, fn Func) <-chan error {
	done := make(chan error, 1)
	j := &job{
		id:       uuid.NewString(),
		ctx:      ctx,
		fn:       fn,
		done:     done,
		enqueued: time.Now(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		done <- ErrQueueClosed
		return done
	}

	lane, running := q.lanes[key]
	q.lanes[key] = append(lane, j)
	q.pending++
	depth := len(q.lanes[key])
	q.reportDepth()
	if !running {
		q.wg.Add(1)
		go q.drain(key)
	}
	q.mu.Unlock()

	q.logger.Debug("mutation enqueued", zap.String("key", key), zap.String("job_id", j.id), zap.Int("depth", depth))

	return done
}

// Do enqueues fn and waits for its result. Waiting stops early when ctx is
// done, in which case the job is skipped if it has not started yet.
func (q *Queue) Do(ctx context.Context, key string, fn Func) error {
	done := q.Enqueue(ctx, key, fn)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued or running jobs for key.
func (q *Queue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes[key])
}

// Close rejects further jobs and waits until every lane has drained.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

// drain runs the jobs of one lane until it is empty. The head job stays in
// the lane while it runs so that Enqueue sees the lane as busy.
func (q *Queue) drain(key string) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		lane := q.lanes[key]
		if len(lane) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		j := lane[0]
		q.mu.Unlock()

		q.run(key, j)

		q.mu.Lock()
		rest := q.lanes[key][1:]
		q.pending--
		q.reportDepth()
		if len(rest) == 0 {
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		q.lanes[key] = rest
		q.mu.Unlock()
	}
}

// reportDepth must be called with q.mu held so depths arrive in order.
func (q *Queue) reportDepth() {
	if q.observer != nil {
		q.observer.QueueDepth(q.pending)
	}
}

func (q *Queue) run(key string, j *job) {
	started := time.Now()
	wait := started.Sub(j.enqueued)

	var err error
	if ctxErr := j.ctx.Err(); ctxErr != nil {
		err = ctxErr
		q.logger.Debug("mutation skipped", zap.String("key", key), zap.String("job_id", j.id), zap.Error(ctxErr))
	} else {
		err = j.fn(j.ctx)
	}

	elapsed := time.Since(started)
	if err != nil {
		q.logger.Debug("mutation failed", zap.String("key", key), zap.String("job_id", j.id), zap.Duration("duration", elapsed), zap.Error(err))
	} else {
		q.logger.Debug("mutation completed", zap.String("key", key), zap.String("job_id", j.id), zap.Duration("duration", elapsed))
	}
	if q.observer != nil {
		q.observer.JobFinished(wait, elapsed, err)
	}

	j.done <- err
}

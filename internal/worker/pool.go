package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalogdesk/internal/infra"
	"catalogdesk/internal/metrics"

	"github.com/rs/zerolog/log"
)

const (
	QueueOrdersRefresh = "jobs:orders_refresh"
	QueueEmail         = "jobs:email"
)

// Job types.
const (
	JobOrdersRefresh    = "orders_refresh"
	JobSuppliersRefresh = "suppliers_refresh"
	JobEmail            = "email"
)

const (
	defaultMaxAttempts = 3
	defaultPopTimeout  = 5 * time.Second
)

// ErrPermanent marks a failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc processes one job payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// ── Dispatcher ────────────────────────────────────────────────────────────────

// Dispatcher enqueues async jobs into the broker.
// The worker pool dequeues them.
type Dispatcher struct{ broker Broker }

func NewDispatcher(broker Broker) *Dispatcher { return &Dispatcher{broker: broker} }

// EnqueueEmail pushes a mail job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, msg infra.Message) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, msg)
}

// EnqueueOrdersRefresh asks a worker to reload the order feed and returns the
// queue it went to.
func (d *Dispatcher) EnqueueOrdersRefresh(ctx context.Context) (string, error) {
	return QueueOrdersRefresh, d.enqueue(ctx, QueueOrdersRefresh, JobOrdersRefresh, struct{}{})
}

// EnqueueSuppliersRefresh asks a worker to reload the supplier feed.
func (d *Dispatcher) EnqueueSuppliersRefresh(ctx context.Context) error {
	return d.enqueue(ctx, QueueOrdersRefresh, JobSuppliersRefresh, struct{}{})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	if err := d.broker.Push(ctx, queue, encoded); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

// ── Pool ──────────────────────────────────────────────────────────────────────

// Pool runs a fixed number of goroutines consuming all queues.
type Pool struct {
	broker      Broker
	size        int
	handlers    map[string]HandlerFunc
	maxAttempts int
	popTimeout  time.Duration
	backoff     func(attempt int) time.Duration
	wg          sync.WaitGroup
}

func NewPool(broker Broker, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		broker:      broker,
		size:        size,
		handlers:    make(map[string]HandlerFunc),
		maxAttempts: defaultMaxAttempts,
		popTimeout:  defaultPopTimeout,
		backoff:     exponentialBackoff,
	}
}

// Handle registers h for jobType. Must be called before Start.
func (p *Pool) Handle(jobType string, h HandlerFunc) { p.handlers[jobType] = h }

// Start launches the workers. They exit when ctx is cancelled; Wait blocks
// until they have.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", p.size)
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	queues := []string{QueueOrdersRefresh, QueueEmail}
	for {
		if ctx.Err() != nil {
			log.Info().Msgf("worker %d shutting down", id)
			return
		}
		// Blocking pop, waits up to popTimeout then loops to check ctx
		queue, raw, err := p.broker.Pop(ctx, p.popTimeout, queues...)
		if err != nil {
			if !errors.Is(err, ErrNoJob) && ctx.Err() == nil {
				log.Error().Err(err).Int("worker", id).Msg("dequeue failed")
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		p.process(ctx, queue, raw)
	}
}

func (p *Pool) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(string(raw))
		SendToDLQ(ctx, p.broker, queue, Job{Type: "unknown", Payload: quoted}, "invalid envelope: "+err.Error(), 0)
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.broker, queue, job, "no handler for job type", 0)
		return
	}

	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	attempts, err := p.withRetry(ctx, func() error { return h(ctx, job.Payload) })
	if err != nil {
		metrics.RecordJob(queue, metrics.ResultError)
		SendToDLQ(ctx, p.broker, queue, job, err.Error(), attempts)
		return
	}
	metrics.RecordJob(queue, metrics.ResultOK)
}

// withRetry calls fn up to maxAttempts times with exponential backoff and
// reports how many attempts were made. ErrPermanent stops at once.
func (p *Pool) withRetry(ctx context.Context, fn func() error) (int, error) {
	var lastErr error
	for i := 0; i < p.maxAttempts; i++ {
		if i > 0 && !sleepCtx(ctx, p.backoff(i)) {
			return i, ctx.Err()
		}
		lastErr = fn()
		if lastErr == nil {
			return i + 1, nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return i + 1, lastErr
		}
	}
	return p.maxAttempts, lastErr
}

// exponentialBackoff: 1s, 2s, 4s …
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// sleepCtx waits d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

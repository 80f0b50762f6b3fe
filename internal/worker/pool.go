package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"brewpos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	queuePrefix  = "jobs:"
	QueueReceipt = queuePrefix + JobReceipt
	QueueEmail   = queuePrefix + JobEmail

	JobReceipt = "receipt"
	JobEmail   = "email"
)

// MaxAttempts is how many times a job runs before it is parked as a dead letter.
const MaxAttempts = 3

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes the payload of one job type. Returning an error retries
// the job; wrap it with Permanent to skip the retries.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) error

func (f HandlerFunc) Process(ctx context.Context, raw json.RawMessage) error { return f(ctx, raw) }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP. With a breaker, enqueues fail fast
// while Redis keeps failing so a sale is not held up by its receipt job.
type Dispatcher struct {
	rdb     *redis.Client
	breaker *infra.Breaker
}

// NewDispatcher builds a dispatcher; breaker may be nil.
func NewDispatcher(rdb *redis.Client, breaker *infra.Breaker) *Dispatcher {
	return &Dispatcher{rdb: rdb, breaker: breaker}
}

// EnqueueReceipt pushes a receipt rendering job.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, payload ReceiptJobPayload) error {
	return d.enqueue(ctx, QueueReceipt, JobReceipt, payload)
}

// EnqueueEmail pushes an email job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	if d.breaker == nil {
		return push(ctx, d.rdb, queue, job)
	}
	return d.breaker.Do(ctx, func(ctx context.Context) error {
		return push(ctx, d.rdb, queue, job)
	})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues and routes each job to its handler.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	dead     *DeadLetters
	// backoff returns the delay before attempt n+1 is requeued
	backoff func(attempt int) time.Duration
	// pause is how long a worker waits after Redis itself failed
	pause time.Duration
}

// NewPool builds a pool routing job types to handlers.
func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, dead: NewDeadLetters(rdb), backoff: exponentialBackoff, pause: time.Second}
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// Start launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, Queues...).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Int("worker", id).Dur("pause", p.pause).Msg("dequeue failed")
				}
				sleep(ctx, p.pause)
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

// processJob runs one job. Failures are requeued with a growing delay until
// MaxAttempts, then parked as a dead letter.
func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		p.dead.Park(ctx, queue, Job{Type: "unknown", Payload: quoted}, "malformed envelope")
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		p.dead.Park(ctx, queue, job, "no handler registered")
		return
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Debug().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job done")
		return
	}

	if isPermanent(err) || job.Attempts >= MaxAttempts {
		p.dead.Park(ctx, queue, job, err.Error())
		return
	}

	delay := p.backoff(job.Attempts)
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).
		Dur("retry_in", delay).Msg("job failed, retrying")
	sleep(ctx, delay)
	// requeue with a fresh context so a shutdown does not lose the job
	pushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := push(pushCtx, p.rdb, queue, job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("requeue failed")
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

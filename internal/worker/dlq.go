package worker

// Jobs that fail permanently or run out of attempts are parked in one Redis
// list per source queue, dead:{queue}, newest first. A manager can read them
// and requeue them once the cause (a dead SMTP relay, a full disk) is fixed.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const deadPrefix = "dead:"

// ErrUnknownQueue is returned for a queue name the pool does not consume.
var ErrUnknownQueue = errors.New("unknown job queue")

// Queues lists the queues the pool consumes.
var Queues = []string{QueueReceipt, QueueEmail}

// DeadLetter is a parked job with why and when it was parked.
type DeadLetter struct {
	Queue    string    `json:"queue"`
	Job      Job       `json:"job"`
	Reason   string    `json:"reason"`
	ParkedAt time.Time `json:"parked_at"`
}

// DeadLetters stores parked jobs in Redis.
type DeadLetters struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDeadLetters(rdb *redis.Client) *DeadLetters {
	return &DeadLetters{rdb: rdb, now: time.Now}
}

func deadKey(queue string) string { return deadPrefix + queue }

// ResolveQueue accepts a queue by its full name or its job type, so
// "receipt" and "jobs:receipt" name the same queue.
func ResolveQueue(name string) (string, error) {
	for _, q := range Queues {
		if q == name || q == queuePrefix+name {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQueue, name)
}

// Park stores job. A failure is only logged: the job is lost either way.
func (d *DeadLetters) Park(ctx context.Context, queue string, job Job, reason string) {
	data, err := json.Marshal(DeadLetter{Queue: queue, Job: job, Reason: reason, ParkedAt: d.now().UTC()})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dead letter not encoded")
		return
	}
	if err := d.rdb.LPush(ctx, deadKey(queue), data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("type", job.Type).Msg("dead letter lost")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("job parked as dead letter")
}

// Len counts the parked jobs of queue.
func (d *DeadLetters) Len(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, deadKey(queue)).Result()
}

// Counts returns Len for every consumed queue.
func (d *DeadLetters) Counts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(Queues))
	for _, q := range Queues {
		n, err := d.Len(ctx, q)
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}

// List returns up to limit parked jobs of queue, newest first. Entries that
// no longer decode are skipped.
func (d *DeadLetters) List(ctx context.Context, queue string, limit int64) ([]DeadLetter, error) {
	queue, err := ResolveQueue(queue)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	raw, err := d.rdb.LRange(ctx, deadKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raw))
	for _, r := range raw {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(r), &dl); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("undecodable dead letter skipped")
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}

// Requeue moves up to limit of the oldest parked jobs of queue back onto it
// with their attempts reset, and returns how many moved.
func (d *DeadLetters) Requeue(ctx context.Context, queue string, limit int) (int, error) {
	queue, err := ResolveQueue(queue)
	if err != nil {
		return 0, err
	}
	moved := 0
	for limit <= 0 || moved < limit {
		raw, err := d.rdb.RPop(ctx, deadKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}
		var dl DeadLetter
		if err := json.Unmarshal([]byte(raw), &dl); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("undecodable dead letter dropped")
			continue
		}
		dl.Job.Attempts = 0
		if err := push(ctx, d.rdb, queue, dl.Job); err != nil {
			// put it back where it was so nothing is lost
			d.rdb.RPush(ctx, deadKey(queue), raw)
			return moved, err
		}
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("jobs", moved).Msg("dead letters requeued")
	}
	return moved, nil
}

package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is the position of a Breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrBreakerOpen is wrapped by every call a Breaker refuses.
var ErrBreakerOpen = errors.New("dependency unavailable")

// BreakerOpenError names the refusing dependency and when it will be tried again.
type BreakerOpenError struct {
	Name    string
	RetryAt time.Time
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("%s: %v until %s", e.Name, ErrBreakerOpen, e.RetryAt.Format(time.RFC3339))
}

func (e *BreakerOpenError) Unwrap() error { return ErrBreakerOpen }

// BreakerConfig tunes one Breaker.
type BreakerConfig struct {
	// Threshold is the run of counted failures that opens the breaker.
	Threshold int
	// Cooldown is how long an open breaker refuses calls before a trial.
	Cooldown time.Duration
	// Counts decides whether an error is the dependency's fault. Nil counts
	// every error except context cancellation.
	Counts func(error) bool
}

// Breaker guards one downstream dependency. After Threshold consecutive
// counted failures it refuses calls for Cooldown, then lets a single trial
// call through; the trial's outcome closes or reopens it.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// NewBreaker returns a closed breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now, state: BreakerClosed}
}

// Name is the dependency the breaker guards.
func (b *Breaker) Name() string { return b.name }

// Do runs fn unless the breaker refuses it.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerOpen:
		retryAt := b.openedAt.Add(b.cfg.Cooldown)
		if b.now().Before(retryAt) {
			return &BreakerOpenError{Name: b.name, RetryAt: retryAt}
		}
		b.state = BreakerHalfOpen
		b.trial = true
	case BreakerHalfOpen:
		if b.trial {
			return &BreakerOpenError{Name: b.name, RetryAt: b.now().Add(b.cfg.Cooldown)}
		}
		b.trial = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false

	if err == nil || !b.counts(err) {
		if b.state != BreakerClosed {
			log.Info().Str("dependency", b.name).Msg("breaker closed")
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.Threshold {
		if b.state != BreakerOpen {
			log.Warn().Err(err).Str("dependency", b.name).Int("failures", b.failures).Msg("breaker open")
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) counts(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if b.cfg.Counts != nil {
		return b.cfg.Counts(err)
	}
	return true
}

// BreakerStatus is the health view of one breaker.
type BreakerStatus struct {
	State    BreakerState `json:"state"`
	Failures int          `json:"failures"`
	RetryAt  *time.Time   `json:"retry_at,omitempty"`
}

// Status reports the breaker without changing it.
func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := BreakerStatus{State: b.state, Failures: b.failures}
	if b.state == BreakerOpen {
		at := b.openedAt.Add(b.cfg.Cooldown)
		st.RetryAt = &at
	}
	return st
}

// Breakers is the set of dependency breakers reported by the health check.
type Breakers []*Breaker

// Status maps each breaker name to its status. Nil entries are skipped.
func (bs Breakers) Status() map[string]BreakerStatus {
	out := make(map[string]BreakerStatus, len(bs))
	for _, b := range bs {
		if b != nil {
			out[b.name] = b.Status()
		}
	}
	return out
}

// Degraded reports whether any breaker is not closed.
func (bs Breakers) Degraded() bool {
	for _, b := range bs {
		if b != nil && b.Status().State != BreakerClosed {
			return true
		}
	}
	return false
}

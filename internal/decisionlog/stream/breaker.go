package stream

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of producing while the broker is
// considered unhealthy.
var ErrCircuitOpen = errors.New("decision log stream circuit open")

// Breaker stops post-commit publishing from stalling every request while
// Kafka is down. After threshold consecutive failures it rejects publishes
// for cooldown, then lets a single trial publish through.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	failures      int
	openUntil     time.Time
	open          bool
	trialInFlight bool
}

// NewBreaker creates a breaker. Non-positive arguments fall back to five
// failures and a one minute cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a publish may be attempted. Once the cooldown has
// expired exactly one caller is admitted as a trial.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.trialInFlight || b.now().Before(b.openUntil) {
		return false
	}
	b.trialInFlight = true
	return true
}

// RecordSuccess closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
	b.trialInFlight = false
}

// RecordFailure counts a failed publish. A failed trial reopens the circuit
// for another cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.trialInFlight || b.failures >= b.threshold {
		b.open = true
		b.trialInFlight = false
		b.openUntil = b.now().Add(b.cooldown)
	}
}

// IsOpen reports whether publishes are currently being rejected.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

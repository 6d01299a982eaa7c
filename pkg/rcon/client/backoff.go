package client

import (
	"math/rand"
	"time"
)

const (
	//DefaultPacing is the pause between two queued commands
	DefaultPacing = 50 * time.Millisecond
	//DefaultInitialBackoff is the first delay after a failed reconnect
	DefaultInitialBackoff = time.Second
	//DefaultMaxBackoff caps the reconnect delay
	DefaultMaxBackoff = 30 * time.Second

	jitterFactor = 0.25
)

//backoff calculates exponential reconnect delays with jitter.
//It is only used by the worker goroutine and needs no locking.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

//next returns the jittered delay and advances the backoff
func (b *backoff) next() time.Duration {
	delay := b.current + time.Duration(float64(b.current)*jitterFactor*b.rng.Float64())
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay
}

func (b *backoff) reset() {
	b.current = b.initial
}

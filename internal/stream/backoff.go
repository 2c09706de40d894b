package stream

import (
	"math/rand/v2"
	"time"
)

// Backoff yields the wait before each reconnect attempt.
// Implementations are used from the supervisor goroutine only.
type Backoff interface {
	Next() time.Duration
	Reset()
}

// ConstantBackoff always waits Delay.
type ConstantBackoff struct {
	Delay time.Duration
}

func (b *ConstantBackoff) Next() time.Duration { return b.Delay }
func (b *ConstantBackoff) Reset()              {}

// ExponentialBackoff grows the delay by Multiplier after every attempt up to
// Max. With Jitter set, each delay is drawn from [d/2, d].
type ExponentialBackoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool

	current time.Duration
	rand    func() float64
}

// NewExponentialBackoff returns a jittered exponential policy.
func NewExponentialBackoff(initial, maxDelay time.Duration, multiplier float64) *ExponentialBackoff {
	if multiplier < 1 {
		multiplier = 2
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return &ExponentialBackoff{Initial: initial, Max: maxDelay, Multiplier: multiplier, Jitter: true}
}

func (b *ExponentialBackoff) Next() time.Duration {
	if b.current <= 0 {
		b.current = b.Initial
	}
	d := b.current
	next := time.Duration(float64(b.current) * b.Multiplier)
	if next > b.Max || next <= 0 {
		next = b.Max
	}
	b.current = next
	if !b.Jitter || d <= 0 {
		return d
	}
	r := rand.Float64
	if b.rand != nil {
		r = b.rand
	}
	half := d / 2
	return half + time.Duration(r()*float64(d-half))
}

// Reset restarts the sequence at Initial.
func (b *ExponentialBackoff) Reset() {
	b.current = 0
}

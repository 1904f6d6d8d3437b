package monitor

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Pacer decides how long the worker sleeps between passes.
type Pacer interface {
	// Interval is the delay after a completed pass.
	Interval() time.Duration
	// Recovery is the delay after a failed fetch.
	Recovery() time.Duration
}

// JitterPacer sleeps Base plus a uniform jitter in [JitterMin, JitterMax]
// after each pass, and RecoveryDelay after a failed fetch.
type JitterPacer struct {
	Base          time.Duration
	JitterMin     time.Duration
	JitterMax     time.Duration
	RecoveryDelay time.Duration
}

// DefaultPacer polls every 60s plus 1 to 10s of jitter and waits 60s after a
// failed fetch.
func DefaultPacer() *JitterPacer {
	return &JitterPacer{
		Base:          60 * time.Second,
		JitterMin:     time.Second,
		JitterMax:     10 * time.Second,
		RecoveryDelay: 60 * time.Second,
	}
}

// Interval implements Pacer.
func (p *JitterPacer) Interval() time.Duration {
	lo, hi := p.JitterMin, p.JitterMax
	if hi < lo {
		lo, hi = hi, lo
	}
	return p.Base + lo + randomJitter(hi-lo)
}

// Recovery implements Pacer.
func (p *JitterPacer) Recovery() time.Duration {
	return p.RecoveryDelay
}

// randomJitter returns a uniform duration in [0, limit].
func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)+1))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

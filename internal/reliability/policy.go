package reliability

import (
	"time"

	"github.com/alabobai/media-bridge/config"
)

// DelayPolicy yields the pause before the next attempt. attempt is the
// 1-based number of the attempt that just finished.
type DelayPolicy interface {
	Delay(attempt int) time.Duration
}

// NoDelay retries immediately.
type NoDelay struct{}

func (NoDelay) Delay(int) time.Duration { return 0 }

// FixedDelay waits the same duration between every attempt.
type FixedDelay struct {
	D time.Duration
}

func (f FixedDelay) Delay(int) time.Duration { return f.D }

// ExponentialDelay doubles the base per completed attempt: base, 2*base,
// 4*base, capped at 62 doublings to avoid overflow.
type ExponentialDelay struct {
	Base time.Duration
}

func (e ExponentialDelay) Delay(attempt int) time.Duration {
	if e.Base <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	} else if shift > 62 {
		shift = 62
	}
	return e.Base << uint(shift)
}

// PolicyFromConfig maps the configured delay policy name to an
// implementation.
func PolicyFromConfig(policy string, base time.Duration) DelayPolicy {
	switch policy {
	case config.DelayPolicyFixed:
		return FixedDelay{D: base}
	case config.DelayPolicyExponential:
		return ExponentialDelay{Base: base}
	default:
		return NoDelay{}
	}
}

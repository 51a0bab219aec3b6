package backoff

import "time"

// Policy yields the delay before retry attempt n (0-based attempt count of
// the retry, i.e. n=0 is the delay before the first retry).
type Policy interface {
	NextDelay(attempt uint) time.Duration
	Attempts() uint
}

// FixedSchedule retries once per configured delay, in order. This is the
// schedule the resumable transport uses by default: an immediate retry
// followed by escalating waits up to a ceiling.
type FixedSchedule struct {
	delays []time.Duration
}

func NewFixedSchedule(delays []time.Duration) *FixedSchedule {
	return &FixedSchedule{
		delays: delays,
	}
}

func (p *FixedSchedule) NextDelay(attempt uint) time.Duration {
	if len(p.delays) == 0 {
		return 0
	}

	if int(attempt) >= len(p.delays) {
		return p.delays[len(p.delays)-1]
	}

	return p.delays[attempt]
}

func (p *FixedSchedule) Attempts() uint {
	return uint(len(p.delays))
}

// Exponential doubles the base delay per attempt up to a ceiling, for a
// bounded number of attempts.
type Exponential struct {
	base     time.Duration
	ceiling  time.Duration
	attempts uint
}

func NewExponential(base time.Duration, ceiling time.Duration, attempts uint) *Exponential {
	return &Exponential{
		base:     base,
		ceiling:  ceiling,
		attempts: attempts,
	}
}

func (p *Exponential) NextDelay(attempt uint) time.Duration {
	delay := p.base << attempt
	if delay > p.ceiling || delay < p.base {
		return p.ceiling
	}
	return delay
}

func (p *Exponential) Attempts() uint {
	return p.attempts
}

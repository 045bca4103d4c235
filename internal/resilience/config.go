package resilience

import "time"

// FromConfig builds a Policy from configuration values. Non-positive values
// keep the defaults; jitter is taken as given.
func FromConfig(attempts int, initial, maxBackoff time.Duration, multiplier, jitter float64) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if initial > 0 {
		p.InitialBackoff = initial
	}
	if maxBackoff > 0 {
		p.MaxBackoff = maxBackoff
	}
	if multiplier > 0 {
		p.Multiplier = multiplier
	}
	if jitter >= 0 {
		p.Jitter = jitter
	}
	return p
}

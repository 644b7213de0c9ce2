package device

import "time"

// options collects device-level configuration applied at Listen/Dial time.
type options struct {
	asyncDispatch bool
}

// Option configures a Device at creation time.
type Option func(*options)

// WithAsyncDispatch moves handler execution off the receive goroutine onto
// a single-worker pool. Dispatch stays serialized per device, so the
// in-order delivery guarantee for reliable messages is unchanged; the
// receive loop merely stops waiting for handlers to return.
func WithAsyncDispatch() Option {
	return func(o *options) { o.asyncDispatch = true }
}

// sendOptions collects per-call configuration for SendReliable.
type sendOptions struct {
	attempts int
	interval time.Duration
}

// SendOption configures a single reliable send.
type SendOption func(*sendOptions)

// WithAttempts overrides the number of transmissions (default DefaultAttempts).
func WithAttempts(n int) SendOption {
	return func(o *sendOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithInterval overrides the per-attempt ack wait (default DefaultInterval).
func WithInterval(dur time.Duration) SendOption {
	return func(o *sendOptions) {
		if dur > 0 {
			o.interval = dur
		}
	}
}

package repository

import "time"

type options struct {
	now func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithClock replaces the clock used to stamp new messages.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

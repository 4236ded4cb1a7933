// Package state holds the mutable application state and notifies
// subscribers when it changes.
package state

import "errors"

// Listener is called synchronously with the new value after every change
type Listener func(resolution float64) error

// Resolution is the single mutable value of the dashboard: the fraction of
// detail to keep, in (0, 1]. It is not safe for concurrent use; the
// controller's event loop is its only writer.
type Resolution struct {
	value     float64
	listeners []*subscription
}

type subscription struct {
	fn Listener
}

func NewResolution(initial float64) *Resolution {
	return &Resolution{value: initial}
}

// Get returns the current value
func (r *Resolution) Get() float64 {
	return r.value
}

// Subscribe registers fn and returns a function that removes it
func (r *Resolution) Subscribe(fn Listener) (unsubscribe func()) {
	sub := &subscription{fn: fn}
	r.listeners = append(r.listeners, sub)
	return func() {
		for i, s := range r.listeners {
			if s == sub {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// Set stores v and, when it differs from the current value, runs every
// listener in subscription order. Listener errors are joined and returned;
// the value stays updated either way.
func (r *Resolution) Set(v float64) error {
	if v == r.value {
		return nil
	}
	r.value = v

	var errs []error
	for _, s := range r.listeners {
		if err := s.fn(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

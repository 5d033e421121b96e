package wl

import "slices"

// Signal is a list of callbacks that are run when something happens
// to an object, such as it being destroyed.
type Signal[T any] struct {
	listeners []*Listener[T]
}

// Listener is a registration with a Signal.
type Listener[T any] struct {
	signal *Signal[T]
	f      func(T)
}

// Add registers f to be called when the signal is emitted.
func (s *Signal[T]) Add(f func(T)) *Listener[T] {
	lis := &Listener[T]{signal: s, f: f}
	s.listeners = append(s.listeners, lis)
	return lis
}

// Emit calls every listener in the order they were added. Listeners
// added during emission are not called. Listeners removed during
// emission are not called if they have not been already.
func (s *Signal[T]) Emit(v T) {
	for _, lis := range slices.Clone(s.listeners) {
		if lis.signal != s {
			continue
		}
		lis.f(v)
	}
}

// emitFinal emits the signal and then removes every listener.
func (s *Signal[T]) emitFinal(v T) {
	s.Emit(v)
	for _, lis := range s.listeners {
		lis.signal = nil
	}
	s.listeners = nil
}

// Remove unregisters the listener. It is safe to call more than once,
// and after the signal's owner has been destroyed.
func (lis *Listener[T]) Remove() {
	if (lis == nil) || (lis.signal == nil) {
		return
	}

	s := lis.signal
	lis.signal = nil
	s.listeners = slices.DeleteFunc(s.listeners, func(l *Listener[T]) bool { return l == lis })
}

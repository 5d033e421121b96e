// Package cq implements an unbounded concurrent queue that is read in
// batches.
package cq

import (
	"errors"
	"sync"
)

// Queue collects values sent on Add until they are received, all at
// once, from Get. Sends on Add never wait for a reader.
type Queue[T any] struct {
	done chan struct{}
	stop sync.Once

	add chan T
	get chan []T
}

func New[T any]() *Queue[T] {
	q := Queue[T]{
		done: make(chan struct{}),
		add:  make(chan T),
		get:  make(chan []T),
	}
	go q.run()

	return &q
}

// Stop stops the queue. Values that have not been received are
// dropped.
func (q *Queue[T]) Stop() {
	q.stop.Do(func() { close(q.done) })
}

// Done is closed when the queue is stopped.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}

func (q *Queue[T]) Add() chan<- T {
	return q.add
}

// Get yields every value added since the previous receive. It only
// becomes ready once at least one value is waiting.
func (q *Queue[T]) Get() <-chan []T {
	return q.get
}

func (q *Queue[T]) run() {
	var (
		batch []T
		get   chan []T
	)

	for {
		select {
		case <-q.done:
			return

		case v := <-q.add:
			batch = append(batch, v)
			get = q.get

		case get <- batch:
			batch = nil
			get = nil
		}
	}
}

// Run calls every function of batch in order and joins the errors
// they return.
func Run(batch []func() error) error {
	var errs []error
	for _, f := range batch {
		if err := f(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package cq_test

import (
	"errors"
	"testing"
	"time"

	"deedles.dev/wlkit/internal/cq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	q := cq.New[int]()
	defer q.Stop()

	for i := range 3 {
		q.Add() <- i
	}

	select {
	case batch := <-q.Get():
		assert.Equal(t, []int{0, 1, 2}, batch)
	case <-time.After(time.Second):
		t.Fatal("no batch")
	}

	select {
	case batch := <-q.Get():
		t.Fatalf("unexpected batch %v", batch)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestStop(t *testing.T) {
	q := cq.New[int]()
	q.Stop()
	q.Stop()

	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatal("queue not stopped")
	}
}

func TestRun(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	var order []int
	err := cq.Run([]func() error{
		func() error { order = append(order, 0); return errA },
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errB },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []int{0, 1, 2}, order)

	assert.NoError(t, cq.Run(nil))
}

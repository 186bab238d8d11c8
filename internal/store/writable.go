// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package store provides a single-value observable container.
package store

import "sync"

// Writable holds one value and notifies subscribers on every Set.
//
// The mutex only keeps reads and writes memory-safe. It does not order
// concurrent writers: when two goroutines call Set, whichever runs last
// wins. Callers that need ordering must serialize their writes.
type Writable[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[uint64]func(T)
	order  []uint64
	nextID uint64
}

// NewWritable creates a store holding initial.
func NewWritable[T any](initial T) *Writable[T] {
	return &Writable[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get returns the current value.
func (w *Writable[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Set replaces the value and notifies subscribers in subscription order.
// Subscribers run on the caller's goroutine after the lock is released.
func (w *Writable[T]) Set(v T) {
	w.mu.Lock()
	w.value = v
	fns := w.snapshot()
	w.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn, calls it once with the current value, and
// returns a function that removes the subscription.
func (w *Writable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.order = append(w.order, id)
	current := w.value
	w.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs, id)
			for i, sid := range w.order {
				if sid == id {
					w.order = append(w.order[:i], w.order[i+1:]...)
					break
				}
			}
		})
	}
}

// must be called with mu held
func (w *Writable[T]) snapshot() []func(T) {
	fns := make([]func(T), 0, len(w.order))
	for _, id := range w.order {
		fns = append(fns, w.subs[id])
	}
	return fns
}

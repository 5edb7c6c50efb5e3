package wgpu

// Package-internal snatch pattern for safe deferred destruction of HAL
// resources: a Device's HAL handle can be destroyed by Device.Release while
// other goroutines are concurrently creating resources through it. Based on
// the snatch pattern from Rust wgpu-core.

import "sync"

// snatchable wraps a value that can be "snatched" for destruction.
//
// The value can be accessed via Get() while it hasn't been snatched, and
// can be taken via Snatch() exactly once. After being snatched, Get()
// returns nil.
type snatchable[T any] struct {
	mu       sync.RWMutex
	value    *T
	snatched bool
}

func newSnatchable[T any](value T) *snatchable[T] {
	return &snatchable[T]{value: &value}
}

// Get returns the wrapped value if it hasn't been snatched. The caller must
// hold a read guard from the owning snatchLock.
func (s *snatchable[T]) Get(_ *snatchGuard) *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snatched {
		return nil
	}
	return s.value
}

// Snatch takes ownership of the wrapped value for destruction. Only the
// first call succeeds; later calls return nil. The caller must hold a
// write guard from the owning snatchLock.
func (s *snatchable[T]) Snatch(_ *exclusiveSnatchGuard) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snatched {
		return nil
	}
	s.snatched = true
	result := s.value
	s.value = nil
	return result
}

// snatchLock provides device-global coordination for snatchable resources.
// Many goroutines may hold read guards concurrently; destruction requires
// the single exclusive write guard.
type snatchLock struct {
	mu sync.RWMutex
}

func newSnatchLock() *snatchLock {
	return &snatchLock{}
}

func (l *snatchLock) Read() *snatchGuard {
	l.mu.RLock()
	return &snatchGuard{lock: l}
}

func (l *snatchLock) Write() *exclusiveSnatchGuard {
	l.mu.Lock()
	return &exclusiveSnatchGuard{lock: l}
}

// snatchGuard represents a held read lock on a snatchLock. Must be
// released exactly once.
type snatchGuard struct {
	lock     *snatchLock
	released bool
}

func (g *snatchGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.lock.mu.RUnlock()
}

// exclusiveSnatchGuard represents a held write lock on a snatchLock. Must
// be released exactly once.
type exclusiveSnatchGuard struct {
	lock     *snatchLock
	released bool
}

func (g *exclusiveSnatchGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.lock.mu.Unlock()
}

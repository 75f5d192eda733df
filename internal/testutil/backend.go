// Package testutil contains helper stubs used across tests to reduce
// boilerplate when constructing capability backends with scripted behavior.
// These helpers are intentionally minimal and not intended for production
// usage.
package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/reqmesh/capability"
)

// StubBackend is a scriptable capability backend for tests. It returns Data
// after Delay, or Err when set, and counts how often it was called.
type StubBackend struct {
	BackendName string
	Data        any
	Err         error
	Delay       time.Duration

	calls atomic.Int32
}

// Name returns the capability name this stub serves.
func (s *StubBackend) Name() string { return s.BackendName }

// Analyze waits Delay (unless the context ends first) and returns the
// scripted outcome.
func (s *StubBackend) Analyze(ctx context.Context, _ capability.Input) (any, error) {
	s.calls.Add(1)
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Data, nil
}

// Calls reports how often Analyze was invoked.
func (s *StubBackend) Calls() int { return int(s.calls.Load()) }

// FailingBackend returns a stub that always fails with err.
func FailingBackend(name string, err error) *StubBackend {
	return &StubBackend{BackendName: name, Err: err}
}

// SucceedingBackend returns a stub that always succeeds with data.
func SucceedingBackend(name string, data any) *StubBackend {
	return &StubBackend{BackendName: name, Data: data}
}

package test

import (
	"context"
	"sync"

	"go.uber.org/fx"
)

// LifecycleRecorder collects fx hooks so tests can drive start and stop
// explicitly instead of booting a full application.
type LifecycleRecorder struct {
	Hooks []fx.Hook
}

// Append stores hook for later invocation.
func (l *LifecycleRecorder) Append(h fx.Hook) {
	l.Hooks = append(l.Hooks, h)
}

// Start runs every recorded OnStart hook in registration order.
func (l *LifecycleRecorder) Start(ctx context.Context) error {
	for _, h := range l.Hooks {
		if h.OnStart == nil {
			continue
		}
		if err := h.OnStart(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop runs every recorded OnStop hook in reverse order, matching fx.
func (l *LifecycleRecorder) Stop(ctx context.Context) error {
	for i := len(l.Hooks) - 1; i >= 0; i-- {
		h := l.Hooks[i]
		if h.OnStop == nil {
			continue
		}
		if err := h.OnStop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ShutdownerStub records shutdown requests issued by the app wiring.
type ShutdownerStub struct {
	Called chan struct{}
	Err    error

	mu    sync.Mutex
	count int
}

// Shutdown notifies tests about graceful termination.
func (s *ShutdownerStub) Shutdown(...fx.ShutdownOption) error {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	if s.Called != nil {
		select {
		case s.Called <- struct{}{}:
		default:
		}
	}
	return s.Err
}

// Shutdowns reports how many times Shutdown was invoked.
func (s *ShutdownerStub) Shutdowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

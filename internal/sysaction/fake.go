package sysaction

import "sync"

// Fake counts action invocations for tests.
type Fake struct {
	mu            sync.Mutex
	ShutdownCalls int
	RestartCalls  int
	Err           error
}

func (f *Fake) Shutdown() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ShutdownCalls++

	return f.Err
}

func (f *Fake) Restart() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RestartCalls++

	return f.Err
}

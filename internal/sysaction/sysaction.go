// Package sysaction invokes the OS shutdown and restart commands on behalf
// of the monitor loop and the command handler.
package sysaction

import (
	"os/exec"
	"strings"
	"sync/atomic"

	"codeberg.org/tekogu/battwatch/internal/errors"
)

// Actions is the boundary to the host system. Both calls are fire-and-forget:
// on success the process is about to be terminated by the OS.
type Actions interface {
	Shutdown() error
	Restart() error
}

// Runner executes the configured shell commands.
type Runner struct {
	ShutdownCmd string
	RestartCmd  string
}

func NewRunner(shutdownCmd, restartCmd string) *Runner {
	return &Runner{
		ShutdownCmd: shutdownCmd,
		RestartCmd:  restartCmd,
	}
}

func (r *Runner) Shutdown() error {
	errFactory := errors.New()

	if err := run(r.ShutdownCmd); err != nil {
		return errFactory.Wrap(errors.ErrShutdownAction, err)
	}

	return nil
}

func (r *Runner) Restart() error {
	errFactory := errors.New()

	if err := run(r.RestartCmd); err != nil {
		return errFactory.Wrap(errors.ErrRestartAction, err)
	}

	return nil
}

func run(command string) error {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New().New(errors.ErrInvalidArgument)
	}

	return exec.Command(parts[0], parts[1:]...).Run()
}

// ShutdownLatch makes the shutdown action fire at most once per process,
// whether triggered autonomously by the monitor loop or by a remote command.
type ShutdownLatch struct {
	fired atomic.Bool
}

// TryAcquire reports whether the caller won the right to issue the shutdown.
// All later calls return false.
func (l *ShutdownLatch) TryAcquire() bool {
	return l.fired.CompareAndSwap(false, true)
}

// Fired reports whether a shutdown has already been issued.
func (l *ShutdownLatch) Fired() bool {
	return l.fired.Load()
}

// Package supervisor keeps the gateway process running and guards
// single-instance startup with file locks.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v5"

	"chanfinder/pkg/config"
)

// StartFunc runs one instance of the supervised process until it exits.
type StartFunc func(ctx context.Context) error

// Options tunes the restart loop.
type Options struct {
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration
	// StableAfter is how long a run must last before the delay starts over
	// from RestartDelay.
	StableAfter time.Duration
}

// OptionsFromConfig converts the seconds-based config section.
func OptionsFromConfig(cfg config.SupervisorConfig) Options {
	return Options{
		RestartDelay:    time.Duration(cfg.RestartDelaySeconds) * time.Second,
		MaxRestartDelay: time.Duration(cfg.MaxRestartDelaySeconds) * time.Second,
		StableAfter:     time.Duration(cfg.StableAfterSeconds) * time.Second,
	}
}

type Supervisor struct {
	start StartFunc
	opts  Options
	log   *slog.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

func New(start StartFunc, opts Options, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = time.Second
	}
	if opts.MaxRestartDelay < opts.RestartDelay {
		opts.MaxRestartDelay = opts.RestartDelay
	}

	return &Supervisor{
		start: start,
		opts:  opts,
		log:   log.With("component", "supervisor"),
		now:   time.Now,
		wait:  sleepContext,
	}
}

// Run starts the process and restarts it whenever it exits, until ctx ends.
// Consecutive quick failures back off exponentially up to MaxRestartDelay.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.start == nil {
		return errors.New("start function is required")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RestartDelay
	b.MaxInterval = s.opts.MaxRestartDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	for restarts := 0; ; restarts++ {
		startedAt := s.now()
		s.log.Info("Starting gateway", "restarts", restarts)

		err := s.start(ctx)
		if ctx.Err() != nil {
			s.log.Info("Supervisor stopping")
			return nil
		}

		uptime := s.now().Sub(startedAt)
		if s.opts.StableAfter > 0 && uptime >= s.opts.StableAfter {
			b.Reset()
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			delay = s.opts.MaxRestartDelay
		}

		if err != nil {
			s.log.Error("Gateway exited", "error", err, "uptime", uptime.Round(time.Millisecond), "restart_in", delay)
		} else {
			s.log.Warn("Gateway exited cleanly", "uptime", uptime.Round(time.Millisecond), "restart_in", delay)
		}

		if err := s.wait(ctx, delay); err != nil {
			s.log.Info("Supervisor stopping")
			return nil
		}
	}
}

// Command returns a StartFunc running name with args as a child process.
// Cancelling the context interrupts the child and kills it after grace.
func Command(name string, args []string, grace time.Duration, stdout, stderr io.Writer) StartFunc {
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.Env = os.Environ()
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
		cmd.WaitDelay = grace

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}
		return nil
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

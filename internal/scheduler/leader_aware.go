package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/ministry_platform/internal/leadership"
)

// Runner is a blocking worker loop.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Group runs every runner concurrently and returns when all have stopped.
func Group(runners ...Runner) Runner {
	return RunnerFunc(func(ctx context.Context) error {
		var wg sync.WaitGroup
		errs := make([]error, len(runners))
		for i, r := range runners {
			wg.Add(1)
			go func(i int, r Runner) {
				defer wg.Done()
				errs[i] = r.Run(ctx)
			}(i, r)
		}
		wg.Wait()
		return errors.Join(errs...)
	})
}

// LeaderAware runs a Runner only while this instance holds leadership.
type LeaderAware struct {
	runner Runner
	leader leadership.Leader
	logger zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewLeaderAware wraps runner behind leader.
func NewLeaderAware(runner Runner, leader leadership.Leader, logger zerolog.Logger) *LeaderAware {
	return &LeaderAware{
		runner: runner,
		leader: leader,
		logger: logger.With().Str("component", "leader_aware").Logger(),
	}
}

// Run follows leadership changes until ctx is done, then stops the wrapped
// runner and waits for it.
func (l *LeaderAware) Run(ctx context.Context) error {
	if l.leader.IsLeader() {
		l.start(ctx)
	}
	changes := l.leader.LeaderCh()
	for {
		select {
		case <-ctx.Done():
			l.stop()
			return nil
		case isLeader, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if isLeader {
				l.logger.Info().Msg("became leader, starting workers")
				l.start(ctx)
			} else {
				l.logger.Warn().Msg("lost leadership, stopping workers")
				l.stop()
			}
		}
	}
}

// Running reports whether the wrapped runner is active.
func (l *LeaderAware) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *LeaderAware) start(parent context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	l.cancel, l.done, l.running = cancel, done, true

	go func() {
		defer close(done)
		if err := l.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error().Err(err).Msg("leader worker exited")
		}
		l.mu.Lock()
		if l.done == done {
			l.running = false
		}
		l.mu.Unlock()
	}()
}

func (l *LeaderAware) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done, l.running = nil, nil, false
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCallbackPanic is returned by Ticker.Run when the callback panics.
var ErrCallbackPanic = errors.New("countdown callback panicked")

// Clock abstracts the wall clock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Ticker recomputes a schedule's Result from the clock on every tick.
type Ticker struct {
	schedule Schedule
	clock    Clock
	interval time.Duration
}

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithClock overrides the clock.
func WithClock(c Clock) TickerOption {
	return func(t *Ticker) { t.clock = c }
}

// WithInterval overrides the one-second tick interval.
func WithInterval(d time.Duration) TickerOption {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTicker builds a ticker over a schedule.
func NewTicker(schedule Schedule, opts ...TickerOption) *Ticker {
	t := &Ticker{schedule: schedule, clock: RealClock{}, interval: time.Second}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration { return t.interval }

// Current resolves the schedule at the clock's current time.
func (t *Ticker) Current() Result {
	return t.schedule.Next(t.clock.Now())
}

// Run calls fn once immediately and then on every tick until ctx is done.
// The underlying timer is stopped on every return path, and fn is never
// called after Run returns. A panic in fn ends the run with ErrCallbackPanic.
func (t *Ticker) Run(ctx context.Context, fn func(Result)) (err error) {
	if ctx.Err() != nil {
		return nil
	}

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()

	fn(t.Current())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			// Cancellation wins over a tick that fired at the same time.
			if ctx.Err() != nil {
				return nil
			}
			fn(t.Current())
		}
	}
}

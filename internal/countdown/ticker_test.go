/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package countdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

// steppingClock advances by step on every read.
type steppingClock struct {
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func referenceUTC() Schedule {
	return Schedule{Name: DefaultScheduleName, Location: time.UTC, Slots: ReferenceSchedule()}
}

func TestTickerRecomputesEveryTick(t *testing.T) {
	clock := &steppingClock{now: weekTime(time.Sunday, 9, 59, 58), step: time.Second}
	tk := NewTicker(referenceUTC(), WithClock(clock), WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []Result
	err := tk.Run(ctx, func(r Result) {
		got = append(got, r)
		if len(got) == 4 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("callbacks = %d, want 4", len(got))
	}

	// 09:59:58, 09:59:59, then rollover at 10:00:00 and 10:00:01.
	if got[0].NextServiceName != "Main Service" || got[0].TotalSeconds() != 2 {
		t.Fatalf("tick 0 = %q %d", got[0].NextServiceName, got[0].TotalSeconds())
	}
	if got[1].TotalSeconds() != 1 {
		t.Fatalf("tick 1 total = %d, want 1", got[1].TotalSeconds())
	}
	if got[2].NextServiceName != "Evening Service" {
		t.Fatalf("tick 2 = %q, want Evening Service", got[2].NextServiceName)
	}
	if got[3].TotalSeconds() != got[2].TotalSeconds()-1 {
		t.Fatalf("tick 3 total = %d, want %d", got[3].TotalSeconds(), got[2].TotalSeconds()-1)
	}
}

func TestTickerNoCallbackAfterReturn(t *testing.T) {
	tk := NewTicker(referenceUTC(), WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 64)
	done := make(chan error, 1)
	go func() {
		done <- tk.Run(ctx, func(Result) { calls <- struct{}{} })
	}()

	<-calls
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	n := len(calls)
	time.Sleep(20 * time.Millisecond)
	if len(calls) != n {
		t.Fatalf("callback ran after Run returned: %d -> %d", n, len(calls))
	}
}

func TestTickerCancelledContextSkipsCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	if err := NewTicker(referenceUTC()).Run(ctx, func(Result) { called = true }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Fatal("callback ran with a cancelled context")
	}
}

func TestTickerPanicEndsRun(t *testing.T) {
	tk := NewTicker(referenceUTC(), WithInterval(time.Millisecond))
	calls := 0
	err := tk.Run(context.Background(), func(Result) {
		calls++
		if calls == 2 {
			panic("render failed")
		}
	})
	if !errors.Is(err, ErrCallbackPanic) {
		t.Fatalf("err = %v, want ErrCallbackPanic", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestNewTickerDefaults(t *testing.T) {
	tk := NewTicker(referenceUTC(), WithInterval(-time.Second))
	if tk.Interval() != time.Second {
		t.Fatalf("Interval = %v, want 1s", tk.Interval())
	}
	fixed := weekTime(time.Sunday, 9, 0, 0)
	tk = NewTicker(referenceUTC(), WithClock(ClockFunc(func() time.Time { return fixed })))
	if got := tk.Current(); got.NextServiceName != "Main Service" || got.Hours != 1 {
		t.Fatalf("Current = %+v", got)
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// =============================================================================
// DEBOUNCER TESTS
// =============================================================================

func TestDebouncer_FiresOnceAfterLastTrigger(t *testing.T) {
	loop := NewFakeLoop(epoch)
	d := NewDebouncer(loop, 300*time.Millisecond)

	var fired []time.Time
	record := func() { fired = append(fired, loop.Now()) }

	d.Trigger(record)
	loop.Advance(100 * time.Millisecond)
	d.Trigger(record)
	loop.Advance(100 * time.Millisecond)
	d.Trigger(record)
	assert.True(t, d.Pending())

	loop.Advance(299 * time.Millisecond)
	assert.Empty(t, fired)

	loop.Advance(time.Millisecond)
	require.Len(t, fired, 1)
	assert.Equal(t, epoch.Add(500*time.Millisecond), fired[0])
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	loop := NewFakeLoop(epoch)
	d := NewDebouncer(loop, 50*time.Millisecond)

	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	loop.Advance(time.Second)
	assert.False(t, ran)
	assert.Equal(t, 0, loop.PendingTimers())
}

// =============================================================================
// RETRY LOOP TESTS
// =============================================================================

func TestRetryLoop_StopsEarlyOnSuccess(t *testing.T) {
	loop := NewFakeLoop(epoch)
	r := NewRetryLoop(loop, 16*time.Millisecond, 5)

	var attempts []int
	exhausted := false
	r.Start(func(n int) bool {
		attempts = append(attempts, n)
		return n == 3
	}, func() { exhausted = true })

	assert.Equal(t, []int{1}, attempts, "first attempt runs synchronously")
	loop.Advance(time.Second)

	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.False(t, exhausted)
	assert.False(t, r.Running())
}

func TestRetryLoop_BoundedAttempts(t *testing.T) {
	loop := NewFakeLoop(epoch)
	r := NewRetryLoop(loop, 10*time.Millisecond, 5)

	count := 0
	exhausted := 0
	r.Start(func(int) bool {
		count++
		return false
	}, func() { exhausted++ })

	loop.Advance(10 * time.Second)
	assert.Equal(t, 5, count)
	assert.Equal(t, 1, exhausted)
	assert.Equal(t, 0, loop.PendingTimers())
}

func TestRetryLoop_CancelAndRestart(t *testing.T) {
	loop := NewFakeLoop(epoch)
	r := NewRetryLoop(loop, 10*time.Millisecond, 5)

	first := 0
	r.Start(func(int) bool { first++; return false }, nil)
	loop.Advance(15 * time.Millisecond)
	require.Equal(t, 2, first)

	second := 0
	r.Start(func(int) bool { second++; return false }, nil)
	loop.Advance(time.Second)

	assert.Equal(t, 2, first, "restart must cancel the previous run")
	assert.Equal(t, 5, second)

	r.Start(func(int) bool { return false }, func() { t.Fatal("cancelled run must not report exhaustion") })
	r.Cancel()
	loop.Advance(time.Second)
}

// =============================================================================
// THROTTLE TESTS
// =============================================================================

func TestThrottle_LeadingAndTrailing(t *testing.T) {
	loop := NewFakeLoop(epoch)
	th := NewThrottle(loop, 200*time.Millisecond)

	var runs []string
	sample := func(name string) func() {
		return func() { runs = append(runs, name) }
	}

	th.Trigger(sample("t0"))
	loop.Advance(50 * time.Millisecond)
	th.Trigger(sample("t50"))
	loop.Advance(50 * time.Millisecond)
	th.Trigger(sample("t100"))
	loop.Advance(50 * time.Millisecond)
	th.Trigger(sample("t150"))

	assert.Equal(t, []string{"t0"}, runs)
	assert.True(t, th.Pending())

	loop.Advance(60 * time.Millisecond)
	assert.Equal(t, []string{"t0", "t150"}, runs, "trailing run uses the latest sample")
}

func TestThrottle_AtMostOncePerWindow(t *testing.T) {
	loop := NewFakeLoop(epoch)
	th := NewThrottle(loop, 200*time.Millisecond)

	var at []time.Time
	for i := 0; i < 100; i++ {
		th.Trigger(func() { at = append(at, loop.Now()) })
		loop.Advance(10 * time.Millisecond)
	}
	loop.Advance(time.Second)

	require.NotEmpty(t, at)
	for i := 1; i < len(at); i++ {
		gap := at[i].Sub(at[i-1])
		assert.GreaterOrEqual(t, gap, 199*time.Millisecond, "runs %d and %d too close", i-1, i)
	}
}

func TestThrottle_Cancel(t *testing.T) {
	loop := NewFakeLoop(epoch)
	th := NewThrottle(loop, 200*time.Millisecond)

	runs := 0
	th.Trigger(func() { runs++ })
	th.Trigger(func() { runs++ })
	th.Cancel()
	loop.Advance(time.Second)

	assert.Equal(t, 1, runs)
	assert.False(t, th.Pending())
}

// =============================================================================
// LOOP TESTS
// =============================================================================

func TestFakeLoop_GoHoldsCompletion(t *testing.T) {
	loop := NewFakeLoop(epoch)

	worked, completed := false, false
	loop.Go(func() { worked = true }, func() { completed = true })

	assert.True(t, worked)
	assert.False(t, completed)
	assert.Equal(t, 1, loop.InFlight())

	loop.Advance(time.Hour)
	assert.False(t, completed, "Advance must not release completions")

	loop.Flush()
	assert.True(t, completed)
}

func TestChanLoop_RunsPostsAndTimers(t *testing.T) {
	loop := NewChanLoop()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(stopped)
	}()

	fired := make(chan struct{})
	loop.AfterFunc(5*time.Millisecond, func() { close(fired) })

	cancelled := loop.AfterFunc(time.Millisecond, func() { t.Error("stopped timer ran") })
	assert.True(t, cancelled.Stop())

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { order = append(order, i) })
	}
	require.True(t, loop.Sync(func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}

	result := 0
	loop.Go(func() { result = 42 }, func() {})
	loop.Wait()
	require.True(t, loop.Sync(func() {}))
	assert.Equal(t, 42, result)

	cancel()
	<-stopped
	assert.False(t, loop.Sync(func() {}))
}

func TestTeaLoop_ForwardsInOrder(t *testing.T) {
	loop := NewTeaLoop()
	msgs := make(chan tea.Msg, 16)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		loop.Post(func() { order = append(order, i) })
	}
	loop.AttachFunc(func(m tea.Msg) { msgs <- m })
	loop.Post(func() { order = append(order, 3) })

	for i := 0; i < 4; i++ {
		select {
		case m := <-msgs:
			run, ok := m.(RunMsg)
			require.True(t, ok)
			run.Run()
		case <-time.After(2 * time.Second):
			t.Fatal("message not forwarded")
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3}, order)

	loop.Close()
}

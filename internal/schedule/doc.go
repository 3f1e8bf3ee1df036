// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package schedule provides the single-threaded event loop abstraction the
transcript controller runs on, plus the small timing utilities built on it.

# Loop

A Loop owns one logical thread of execution. Every callback it runs (timer
expiry, completion of off-loop work, posted closures) runs on that thread,
one at a time, so controller state never needs locking:

	loop.AfterFunc(50*time.Millisecond, func() { ... })  // timer
	loop.Go(func() { page, err = fetch() }, func() { apply(page, err) })
	loop.Post(func() { ... })                              // from any goroutine

Three implementations are provided:

  - TeaLoop: delivers callbacks as Bubble Tea messages (RunMsg) so they run
    inside the program's Update.
  - ChanLoop: a plain goroutine draining a channel, for line-mode clients.
  - FakeLoop: manual clock for tests; completions of Go work are held until
    Flush so in-flight states can be asserted.

# Utilities

  - Debouncer: run once after a quiet period, re-arming cancels the previous timer
  - RetryLoop: bounded attempts at a fixed interval, stops early on success
  - Throttle: at most one run per window with a trailing run that sees the
    latest state (golang.org/x/time/rate)

A stopped Handle guarantees its callback never runs; it is cancelled, not
merely ignored.
*/
package schedule

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// HOT RELOAD
// =============================================================================

// DefaultWatchDebounce collapses the burst of events an editor save produces.
const DefaultWatchDebounce = 250 * time.Millisecond

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce is the quiet period after the last change before reloading.
	// Default: DefaultWatchDebounce
	Debounce time.Duration
}

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path     string
	fn       func(*Config, error)
	debounce time.Duration
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// Watch starts watching path. fn receives the reloaded config, or the load
// error when the new contents are invalid, on the watcher's goroutine.
//
// The parent directory is watched rather than the file, so editors that save
// by rename are followed.
func Watch(path string, opts WatchOptions, fn func(*Config, error)) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultWatchDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		fn:       fn,
		debounce: opts.Debounce,
		watcher:  fsw,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) processEvents() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.deliver(nil, fmt.Errorf("watch %s: %w", w.path, err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	w.deliver(cfg, err)
}

func (w *Watcher) deliver(cfg *Config, err error) {
	if w.ctx.Err() != nil {
		return
	}
	w.fn(cfg, err)
}

// Close stops watching. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	err := w.watcher.Close()
	<-w.done
	return err
}
